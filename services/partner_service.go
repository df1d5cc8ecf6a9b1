package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/repositories"
	"github.com/goodsco/referidos_backend/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const referralCodeAttempts = 5

// PartnerService registers and authenticates partners
type PartnerService struct {
	partners PartnerStore
	now      func() time.Time
}

func NewPartnerService(partners PartnerStore) *PartnerService {
	return &PartnerService{partners: partners, now: time.Now}
}

// Register creates a PARTNER account in PENDING status
func (s *PartnerService) Register(ctx context.Context, req models.RegisterRequest) (*models.Partner, error) {
	if !req.TermsAccepted {
		return nil, fmt.Errorf("%w: terms must be accepted", ErrInvalidInput)
	}
	return s.create(ctx, req, models.RolePartner)
}

// SeedAdmin creates an administrative account; the CLI uses it to bootstrap
// a fresh database
func (s *PartnerService) SeedAdmin(ctx context.Context, name, email, password string, role models.Role) (*models.Partner, error) {
	if !role.Valid() || role == models.RolePartner {
		return nil, fmt.Errorf("%w: %q is not an administrative role", ErrInvalidInput, role)
	}
	req := models.RegisterRequest{Name: name, Email: email, Password: password, TermsAccepted: true}
	return s.create(ctx, req, role)
}

func (s *PartnerService) create(ctx context.Context, req models.RegisterRequest, role models.Role) (*models.Partner, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	}

	if _, err := s.partners.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("find partner: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err := utils.GenerateReferralCode(name)
		if err != nil {
			return nil, fmt.Errorf("generate referral code: %w", err)
		}

		now := s.now()
		partner := &models.Partner{
			ID:            primitive.NewObjectID(),
			Name:          name,
			Email:         email,
			Password:      string(hash),
			Phone:         utils.NormalizePhone(req.Phone),
			City:          strings.TrimSpace(req.City),
			ReferralCode:  code,
			Role:          role,
			Status:        models.PartnerPending,
			TermsAccepted: req.TermsAccepted,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		err = s.partners.Create(ctx, partner)
		if err == nil {
			logger.Info().Str("partner", partner.ID.Hex()).Str("role", string(role)).Msg("partner registered")
			return partner, nil
		}
		if !errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("create partner: %w", err)
		}
		if _, ferr := s.partners.FindByEmail(ctx, email); ferr == nil {
			return nil, ErrEmailTaken
		}
	}
	return nil, fmt.Errorf("could not allocate a unique referral code after %d attempts", referralCodeAttempts)
}

// Authenticate checks credentials and returns the partner
func (s *PartnerService) Authenticate(ctx context.Context, email, password string) (*models.Partner, error) {
	partner, err := s.partners.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("find partner: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(partner.Password), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return partner, nil
}

// Profile returns the partner by id
func (s *PartnerService) Profile(ctx context.Context, id primitive.ObjectID) (*models.Partner, error) {
	partner, err := s.partners.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	return partner, err
}

// SetFCMToken registers the partner's device for push notifications
func (s *PartnerService) SetFCMToken(ctx context.Context, id primitive.ObjectID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidInput)
	}
	err := s.partners.SetFCMToken(ctx, id, token)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
