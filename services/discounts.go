package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DiscountService manages the benefits partners get from allied businesses
type DiscountService struct {
	discounts DiscountStore
	auth      Authorizer
	now       func() time.Time
}

func NewDiscountService(discounts DiscountStore, auth Authorizer) *DiscountService {
	return &DiscountService{discounts: discounts, auth: auth, now: time.Now}
}

// Create publishes a new discount. Codes are stored upper case.
func (s *DiscountService) Create(ctx context.Context, actor Actor, req models.CreateDiscountRequest) (*models.Discount, error) {
	if err := requireAdmin(s.auth, actor); err != nil {
		return nil, err
	}
	discount := &models.Discount{
		ID:           primitive.NewObjectID(),
		CommerceName: strings.TrimSpace(req.CommerceName),
		Category:     strings.TrimSpace(req.Category),
		Benefit:      strings.TrimSpace(req.Benefit),
		Code:         strings.ToUpper(strings.TrimSpace(req.Code)),
		IsActive:     true,
		CreatedBy:    actor.ID,
	}
	if discount.CommerceName == "" || discount.Category == "" || discount.Benefit == "" {
		return nil, fmt.Errorf("%w: commerce name, category and benefit are required", ErrInvalidInput)
	}
	discount.CreatedAt = s.now()
	discount.UpdatedAt = discount.CreatedAt

	if err := s.discounts.Insert(ctx, discount); err != nil {
		return nil, fmt.Errorf("insert discount: %w", err)
	}
	logger.Info().Str("discount", discount.ID.Hex()).Str("commerce", discount.CommerceName).Msg("discount created")
	return discount, nil
}

// All lists every discount for administrators, newest first
func (s *DiscountService) All(ctx context.Context, actor Actor) ([]models.Discount, error) {
	if err := requireAdmin(s.auth, actor); err != nil {
		return nil, err
	}
	return s.discounts.List(ctx, false)
}

// Active lists the discounts partners can use
func (s *DiscountService) Active(ctx context.Context) ([]models.Discount, error) {
	return s.discounts.List(ctx, true)
}

// SetActive publishes or hides a discount
func (s *DiscountService) SetActive(ctx context.Context, actor Actor, id primitive.ObjectID, active bool) (*models.Discount, error) {
	if err := requireAdmin(s.auth, actor); err != nil {
		return nil, err
	}
	discount, err := s.discounts.SetActive(ctx, id, active)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set discount active: %w", err)
	}
	return discount, nil
}
