package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultOwnerResolver picks the catch-all owner of messaging leads that
// arrive without a usable referral code. It returns (nil, nil) when there is none.
type DefaultOwnerResolver interface {
	DefaultOwner(ctx context.Context) (*models.Partner, error)
}

// DefaultOwnerFunc adapts a function to DefaultOwnerResolver
type DefaultOwnerFunc func(ctx context.Context) (*models.Partner, error)

func (f DefaultOwnerFunc) DefaultOwner(ctx context.Context) (*models.Partner, error) {
	return f(ctx)
}

// StaticOwnerResolver resolves a configured partner by id or email
type StaticOwnerResolver struct {
	Partners PartnerStore
	ID       primitive.ObjectID
	Email    string
}

func (r *StaticOwnerResolver) DefaultOwner(ctx context.Context) (*models.Partner, error) {
	var (
		partner *models.Partner
		err     error
	)
	switch {
	case !r.ID.IsZero():
		partner, err = r.Partners.FindByID(ctx, r.ID)
	case r.Email != "":
		partner, err = r.Partners.FindByEmail(ctx, r.Email)
	default:
		return nil, nil
	}
	if errors.Is(err, repositories.ErrNotFound) {
		logger.Warn().Str("id", r.ID.Hex()).Str("email", r.Email).Msg("configured default owner not found")
		return nil, nil
	}
	return partner, err
}

// EarliestAdminResolver picks the earliest registered partner with an administrative role
type EarliestAdminResolver struct {
	Partners PartnerStore
	Roles    []models.Role
}

func (r *EarliestAdminResolver) DefaultOwner(ctx context.Context) (*models.Partner, error) {
	roles := r.Roles
	if len(roles) == 0 {
		roles = []models.Role{models.RoleAdmin}
	}
	partner, err := r.Partners.FindEarliestWithRole(ctx, roles)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return partner, err
}

// ChainOwnerResolver returns the first owner found by its resolvers in order
type ChainOwnerResolver []DefaultOwnerResolver

func (c ChainOwnerResolver) DefaultOwner(ctx context.Context) (*models.Partner, error) {
	for _, r := range c {
		partner, err := r.DefaultOwner(ctx)
		if err != nil {
			return nil, err
		}
		if partner != nil {
			return partner, nil
		}
	}
	return nil, nil
}

const defaultOwnerCacheKey = "referidos:default_owner"

// CachedOwnerResolver caches the resolved owner id in Redis. A nil client
// disables caching.
type CachedOwnerResolver struct {
	Client   *redis.Client
	Partners PartnerStore
	Next     DefaultOwnerResolver
	TTL      time.Duration
}

func (r *CachedOwnerResolver) DefaultOwner(ctx context.Context) (*models.Partner, error) {
	if r.Client == nil {
		return r.Next.DefaultOwner(ctx)
	}

	if hex, err := r.Client.Get(ctx, defaultOwnerCacheKey).Result(); err == nil {
		if id, err := primitive.ObjectIDFromHex(hex); err == nil {
			if partner, err := r.Partners.FindByID(ctx, id); err == nil {
				return partner, nil
			}
		}
	} else if err != redis.Nil {
		logger.Warn().Err(err).Msg("default owner cache read failed")
	}

	partner, err := r.Next.DefaultOwner(ctx)
	if err != nil || partner == nil {
		return partner, err
	}

	ttl := r.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := r.Client.Set(ctx, defaultOwnerCacheKey, partner.ID.Hex(), ttl).Err(); err != nil {
		logger.Warn().Err(err).Msg("default owner cache write failed")
	}
	return partner, nil
}
