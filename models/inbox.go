package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InboxMessage is the raw record of a channel delivery, kept whether or not
// it became a lead
type InboxMessage struct {
	ID           primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	DeliveryID   string              `json:"deliveryId" bson:"deliveryId"`
	Channel      Channel             `json:"channel" bson:"channel"`
	Phone        string              `json:"phone" bson:"phone"`
	CatalogItem  *CatalogItemRef     `json:"catalogItem,omitempty" bson:"catalogItem,omitempty"`
	ReferralCode string              `json:"referralCode,omitempty" bson:"referralCode,omitempty"`
	ReferrerID   *primitive.ObjectID `json:"referrerId,omitempty" bson:"referrerId,omitempty"`
	Outcome      string              `json:"outcome" bson:"outcome"`
	LeadID       *primitive.ObjectID `json:"leadId,omitempty" bson:"leadId,omitempty"`
	ReceivedAt   time.Time           `json:"receivedAt" bson:"receivedAt"`
}

// PhoneClaim records the first partner that registered a phone
type PhoneClaim struct {
	Phone     string             `json:"phone" bson:"_id"`
	PartnerID primitive.ObjectID `json:"partnerId" bson:"partnerId"`
	ClaimedAt time.Time          `json:"claimedAt" bson:"claimedAt"`
}
