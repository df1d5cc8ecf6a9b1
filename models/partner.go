// models/partner.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the authorization role carried by a partner account
type Role string

const (
	RolePartner Role = "PARTNER"
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RolePartner, RoleAdmin, RoleManager:
		return true
	}
	return false
}

// PartnerStatus is the activation status of a partner
type PartnerStatus string

const (
	PartnerPending  PartnerStatus = "PENDING"
	PartnerActive   PartnerStatus = "ACTIVE"
	PartnerInactive PartnerStatus = "INACTIVE"
	PartnerBlocked  PartnerStatus = "BLOCKED"
)

// Valid reports whether s is a known partner status
func (s PartnerStatus) Valid() bool {
	switch s {
	case PartnerPending, PartnerActive, PartnerInactive, PartnerBlocked:
		return true
	}
	return false
}

// IsOverride reports whether s can only be set by an administrator.
// Automatic eligibility recomputation never overwrites an override.
func (s PartnerStatus) IsOverride() bool {
	return s == PartnerBlocked || s == PartnerInactive
}

// OverrideStatuses lists the administrative override statuses
var OverrideStatuses = []PartnerStatus{PartnerBlocked, PartnerInactive}

// Partner is a referrer who brings leads and earns commissions
type Partner struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name           string             `json:"name" bson:"name"`
	Email          string             `json:"email" bson:"email"`
	Password       string             `json:"-" bson:"password"`
	Phone          string             `json:"phone,omitempty" bson:"phone,omitempty"`
	City           string             `json:"city,omitempty" bson:"city,omitempty"`
	ReferralCode   string             `json:"referralCode" bson:"referralCode"`
	Role           Role               `json:"role" bson:"role"`
	Status         PartnerStatus      `json:"status" bson:"status"`
	BlockingReason string             `json:"blockingReason,omitempty" bson:"blockingReason,omitempty"`
	TermsAccepted  bool               `json:"termsAccepted" bson:"termsAccepted"`
	FCMToken       string             `json:"fcmToken,omitempty" bson:"fcmToken,omitempty"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// PartnerOverview is the admin listing row for a partner
type PartnerOverview struct {
	Partner
	LeadCount   int          `json:"leadCount"`
	Documents   []Document   `json:"documents"`
	Eligibility *Eligibility `json:"eligibility"`
}
