package models

import (
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LeadStatus is a stage of the sales pipeline
type LeadStatus string

const (
	LeadRegistered  LeadStatus = "Registrado"
	LeadContacted   LeadStatus = "Contactado"
	LeadInterested  LeadStatus = "Interesado"
	LeadNegotiating LeadStatus = "En negociación"
	LeadReserved    LeadStatus = "Separado"
	LeadDownPayment LeadStatus = "Cuota inicial"
	LeadPaid        LeadStatus = "Pagado"
)

// ValueBearingStage is the stage at which the transaction value is known
// and the commission is computed
const ValueBearingStage = LeadReserved

// LeadStatuses is the pipeline in order
var LeadStatuses = []LeadStatus{
	LeadRegistered,
	LeadContacted,
	LeadInterested,
	LeadNegotiating,
	LeadReserved,
	LeadDownPayment,
	LeadPaid,
}

// Valid reports whether s is one of the pipeline stages
func (s LeadStatus) Valid() bool {
	for _, st := range LeadStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Channel identifies how a lead entered the system
type Channel string

const (
	ChannelMessaging Channel = "messaging"
	ChannelForm      Channel = "form"
	ChannelManual    Channel = "manual"
)

// CatalogItemRef points at a property in the external catalog
type CatalogItemRef struct {
	ID    *int   `json:"id,omitempty" bson:"id,omitempty"`
	Title string `json:"title,omitempty" bson:"title,omitempty"`
	Slug  string `json:"slug,omitempty" bson:"slug,omitempty"`
}

// InterestKey is the normalized catalog interest used for duplicate detection.
// Title wins over slug, and a bare catalog id is keyed as "id:<n>"; an empty
// key means "no particular property".
func (c *CatalogItemRef) InterestKey() string {
	if c == nil {
		return ""
	}
	if t := strings.TrimSpace(c.Title); t != "" {
		return strings.ToLower(t)
	}
	if slug := strings.TrimSpace(c.Slug); slug != "" {
		return strings.ToLower(slug)
	}
	if c.ID != nil {
		return "id:" + strconv.Itoa(*c.ID)
	}
	return ""
}

// Display returns the human readable interest
func (c *CatalogItemRef) Display() string {
	if c == nil {
		return ""
	}
	if c.Title != "" {
		return c.Title
	}
	return c.Slug
}

// Lead is a prospective customer attributed to exactly one partner
type Lead struct {
	ID               primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name             string             `json:"name" bson:"name"`
	Email            string             `json:"email,omitempty" bson:"email,omitempty"`
	Phone            string             `json:"phone" bson:"phone"`
	RawPhone         string             `json:"rawPhone,omitempty" bson:"rawPhone,omitempty"`
	City             string             `json:"city,omitempty" bson:"city,omitempty"`
	CatalogItem      *CatalogItemRef    `json:"catalogItem,omitempty" bson:"catalogItem,omitempty"`
	ProjectInterest  string             `json:"projectInterest,omitempty" bson:"projectInterest,omitempty"`
	Interest         string             `json:"-" bson:"interest"`
	Status           LeadStatus         `json:"status" bson:"status"`
	TransactionValue *float64           `json:"transactionValue,omitempty" bson:"transactionValue,omitempty"`
	IsValid          bool               `json:"isValid" bson:"isValid"`
	ReferrerID       primitive.ObjectID `json:"referrerId" bson:"referrerId"`
	Channel          Channel            `json:"channel" bson:"channel"`
	DedupKey         string             `json:"-" bson:"dedupKey"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// LeadDedupKey builds the unique key that makes lead creation idempotent
// for the same phone, owner and catalog interest.
func LeadDedupKey(phone string, referrerID primitive.ObjectID, interest string) string {
	return phone + "|" + referrerID.Hex() + "|" + interest
}

// LeadFilter narrows admin lead listings
type LeadFilter struct {
	ReferrerID *primitive.ObjectID
	Status     LeadStatus
	Phone      string
}
