package services

import (
	"context"

	"github.com/goodsco/referidos_backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PartnerStore is the identity store for partners
type PartnerStore interface {
	Create(ctx context.Context, partner *models.Partner) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Partner, error)
	FindByEmail(ctx context.Context, email string) (*models.Partner, error)
	FindByReferralCode(ctx context.Context, code string) (*models.Partner, error)
	FindEarliestWithRole(ctx context.Context, roles []models.Role) (*models.Partner, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.PartnerStatus, reason string) (*models.Partner, error)
	SetDerivedStatus(ctx context.Context, id primitive.ObjectID, status models.PartnerStatus) (*models.Partner, error)
	SetFCMToken(ctx context.Context, id primitive.ObjectID, token string) error
	List(ctx context.Context, roles []models.Role) ([]models.Partner, error)
}

// LeadStore is the identity store for leads
type LeadStore interface {
	Insert(ctx context.Context, lead *models.Lead) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Lead, error)
	FindByPhone(ctx context.Context, phone string) ([]models.Lead, error)
	FindByContact(ctx context.Context, phones []string, emails []string) (*models.Lead, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.LeadStatus, value *float64) (*models.Lead, error)
	ToggleValidity(ctx context.Context, id primitive.ObjectID) (*models.Lead, error)
	ListByReferrer(ctx context.Context, referrerID primitive.ObjectID) ([]models.Lead, error)
	List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, error)
	ListAll(ctx context.Context) ([]models.Lead, error)
	CountByReferrer(ctx context.Context) (map[primitive.ObjectID]int, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// PhoneClaimStore records the first owner of each normalized phone
type PhoneClaimStore interface {
	Claim(ctx context.Context, phone string, partnerID primitive.ObjectID) (primitive.ObjectID, error)
	Reassign(ctx context.Context, phone string, partnerID primitive.ObjectID) error
}

// CommissionStore keeps at most one commission per lead
type CommissionStore interface {
	Insert(ctx context.Context, commission *models.Commission) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error)
	FindByLeadID(ctx context.Context, leadID primitive.ObjectID) (*models.Commission, error)
	UpdateAmount(ctx context.Context, leadID primitive.ObjectID, amount float64) (*models.Commission, error)
	CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, from, to models.CommissionStatus) (*models.Commission, error)
	Reassign(ctx context.Context, id, leadID, partnerID primitive.ObjectID) error
	ListByPartner(ctx context.Context, partnerID primitive.ObjectID) ([]models.Commission, error)
	List(ctx context.Context, filter models.CommissionFilter) ([]models.Commission, error)
}

// DocumentStore keeps partner document submissions
type DocumentStore interface {
	Insert(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Document, error)
	ListByPartner(ctx context.Context, partnerID primitive.ObjectID) ([]models.Document, error)
	Review(ctx context.Context, id primitive.ObjectID, status models.DocumentStatus, feedback string, reviewer primitive.ObjectID) (*models.Document, error)
}

// InboxStore is the raw log of channel deliveries
type InboxStore interface {
	Append(ctx context.Context, msg *models.InboxMessage) error
}

// DiscountStore keeps the partner benefits catalog
type DiscountStore interface {
	Insert(ctx context.Context, discount *models.Discount) error
	List(ctx context.Context, activeOnly bool) ([]models.Discount, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.Discount, error)
}
