package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommissionRate is the share of the transaction value paid to the partner
const CommissionRate = "0.015"

// CommissionStatus is the payout stage of a commission
type CommissionStatus string

const (
	CommissionPending  CommissionStatus = "PENDING"
	CommissionReleased CommissionStatus = "RELEASED"
	CommissionPaid     CommissionStatus = "PAID"
)

// Rank orders commission statuses; it returns -1 for unknown values
func (s CommissionStatus) Rank() int {
	switch s {
	case CommissionPending:
		return 0
	case CommissionReleased:
		return 1
	case CommissionPaid:
		return 2
	}
	return -1
}

// Valid reports whether s is a known commission status
func (s CommissionStatus) Valid() bool {
	return s.Rank() >= 0
}

// Commission is the reward tied 1:1 to a lead
type Commission struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LeadID    primitive.ObjectID `bson:"leadId" json:"leadId"`
	PartnerID primitive.ObjectID `bson:"partnerId" json:"partnerId"`
	Amount    float64            `bson:"amount" json:"amount"`
	Status    CommissionStatus   `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
	PaidAt    *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
}

// FundsSummary aggregates a partner's commissions for the funds dashboard
type FundsSummary struct {
	Paid               float64        `json:"paid"`
	Pending            float64        `json:"pending"`
	Provisional        float64        `json:"provisional"`
	Total              float64        `json:"total"`
	DocumentsValidated bool           `json:"documentsValidated"`
	MissingDocuments   []DocumentType `json:"missingDocuments,omitempty"`
	CanWithdraw        bool           `json:"canWithdraw"`
	WithdrawalURL      string         `json:"withdrawalUrl,omitempty"`
}

// CommissionFilter narrows admin commission listings
type CommissionFilter struct {
	PartnerID *primitive.ObjectID
	Status    CommissionStatus
}

// CommissionView is a commission with the lead and partner it belongs to
type CommissionView struct {
	Commission
	LeadName     string `json:"leadName,omitempty"`
	LeadPhone    string `json:"leadPhone,omitempty"`
	PartnerName  string `json:"partnerName,omitempty"`
	PartnerEmail string `json:"partnerEmail,omitempty"`
}
