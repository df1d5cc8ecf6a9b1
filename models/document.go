package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DocumentType is one of the documents a partner must provide before payout
type DocumentType string

const (
	DocIDCardFront DocumentType = "ID_CARD_FRONT"
	DocIDCardBack  DocumentType = "ID_CARD_BACK"
	DocRUT         DocumentType = "RUT"
	DocBankCert    DocumentType = "BANK_CERT"
)

// RequiredDocumentTypes must all be approved for a partner to be eligible
var RequiredDocumentTypes = []DocumentType{DocIDCardFront, DocIDCardBack, DocRUT, DocBankCert}

// Valid reports whether t is a required document type
func (t DocumentType) Valid() bool {
	for _, r := range RequiredDocumentTypes {
		if r == t {
			return true
		}
	}
	return false
}

// DocumentStatus is the review state of a submission
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "PENDING"
	DocumentApproved DocumentStatus = "APPROVED"
	DocumentRejected DocumentStatus = "REJECTED"
)

// Document is one submission of a required document.
// Open is true while the submission blocks a new one of the same type
// (pending or approved); the store keeps at most one open document per type.
type Document struct {
	ID          primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	PartnerID   primitive.ObjectID  `json:"partnerId" bson:"partnerId"`
	Type        DocumentType        `json:"type" bson:"type"`
	Content     string              `json:"content" bson:"content"`
	Status      DocumentStatus      `json:"status" bson:"status"`
	Feedback    string              `json:"feedback,omitempty" bson:"feedback,omitempty"`
	Open        bool                `json:"-" bson:"open"`
	ReviewerID  *primitive.ObjectID `json:"reviewerId,omitempty" bson:"reviewerId,omitempty"`
	SubmittedAt time.Time           `json:"submittedAt" bson:"submittedAt"`
	ReviewedAt  *time.Time          `json:"reviewedAt,omitempty" bson:"reviewedAt,omitempty"`
}

// Eligibility is the derived payout eligibility of a partner
type Eligibility struct {
	PartnerID   primitive.ObjectID `json:"partnerId"`
	AllApproved bool               `json:"allApproved"`
	Approved    []DocumentType     `json:"approved"`
	Pending     []DocumentType     `json:"pending,omitempty"`
	Rejected    []DocumentType     `json:"rejected,omitempty"`
	Missing     []DocumentType     `json:"missing,omitempty"`
}
