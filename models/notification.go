package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types pushed to partners
const (
	NotificationCommissionCreated = "commission_created"
	NotificationCommissionUpdated = "commission_updated"
	NotificationCommissionStatus  = "commission_status"
	NotificationDocumentReviewed  = "document_reviewed"
	NotificationPartnerStatus     = "partner_status"
)

// Notification model
type Notification struct {
	PartnerID primitive.ObjectID `json:"partnerId"`
	Title     string             `json:"title"`
	Message   string             `json:"message"`
	Type      string             `json:"type"`
	Data      interface{}        `json:"data,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}
