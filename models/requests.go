// models/requests.go
package models

// MessagingLeadRequest is the payload posted by the messaging channel webhook
type MessagingLeadRequest struct {
	Phone            string  `json:"phone"`
	CatalogItemID    *int    `json:"catalogItemId,omitempty"`
	CatalogItemTitle string  `json:"catalogItemTitle,omitempty"`
	CatalogItemSlug  string  `json:"catalogItemSlug,omitempty"`
	ReferralCode     *string `json:"referralCode,omitempty"`
	DeliveryID       string  `json:"deliveryId,omitempty"`
}

// CreateLeadRequest is the interactive lead form
type CreateLeadRequest struct {
	Name             string `json:"name" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	Phone            string `json:"phone" validate:"required"`
	City             string `json:"city,omitempty"`
	CatalogItemTitle string `json:"catalogItemTitle,omitempty"`
	ReferralCode     string `json:"referralCode" validate:"required"`
}

// ManualLeadRequest is an admin-entered lead
type ManualLeadRequest struct {
	Name             string `json:"name" validate:"required"`
	Email            string `json:"email,omitempty" validate:"omitempty,email"`
	Phone            string `json:"phone" validate:"required"`
	City             string `json:"city,omitempty"`
	CatalogItemTitle string `json:"catalogItemTitle,omitempty"`
	ReferralCode     string `json:"referralCode" validate:"required"`
}

// LeadStatusRequest moves a lead through the pipeline
type LeadStatusRequest struct {
	Status           LeadStatus `json:"status" validate:"required"`
	TransactionValue *float64   `json:"transactionValue,omitempty" validate:"omitempty,gt=0"`
}

// CommissionStatusRequest moves a commission through the payout workflow
type CommissionStatusRequest struct {
	Status CommissionStatus `json:"status" validate:"required,oneof=PENDING RELEASED PAID"`
}

// DocumentSubmitRequest submits a document by link
type DocumentSubmitRequest struct {
	Type DocumentType `json:"type" form:"type" validate:"required,oneof=ID_CARD_FRONT ID_CARD_BACK RUT BANK_CERT"`
	URL  string       `json:"url,omitempty" form:"url"`
}

// DocumentReviewRequest approves or rejects a document
type DocumentReviewRequest struct {
	Decision DocumentStatus `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Feedback string         `json:"feedback,omitempty" validate:"required_if=Decision REJECTED"`
}

// PartnerStatusRequest is an administrative status override
type PartnerStatusRequest struct {
	Status PartnerStatus `json:"status" validate:"required,oneof=PENDING ACTIVE INACTIVE BLOCKED"`
	Reason string        `json:"reason,omitempty"`
}

// RegisterRequest registers a new partner
type RegisterRequest struct {
	Name          string `json:"name" validate:"required,min=2"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	Phone         string `json:"phone,omitempty"`
	City          string `json:"city,omitempty"`
	TermsAccepted bool   `json:"termsAccepted"`
}

// LoginRequest authenticates a partner
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// FCMTokenRequest registers a device for push notifications
type FCMTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// CreateDiscountRequest creates a partner benefit
type CreateDiscountRequest struct {
	CommerceName string `json:"commerceName" validate:"required"`
	Category     string `json:"category" validate:"required"`
	Benefit      string `json:"benefit" validate:"required"`
	Code         string `json:"code,omitempty"`
}

// DiscountActiveRequest publishes or hides a discount
type DiscountActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}
