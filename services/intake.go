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
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DedupPolicy selects how interactive and manual submissions are deduplicated
type DedupPolicy string

const (
	// DedupOwnerScoped applies first-owner-wins plus per-owner interest
	// dedup to every channel
	DedupOwnerScoped DedupPolicy = "owner_scoped"
	// DedupLegacyGlobal treats any lead matching the phone or email as
	// already registered for form and manual submissions
	DedupLegacyGlobal DedupPolicy = "legacy_global"
)

// ParseDedupPolicy falls back to DedupOwnerScoped for unknown values
func ParseDedupPolicy(s string) DedupPolicy {
	if DedupPolicy(strings.ToLower(strings.TrimSpace(s))) == DedupLegacyGlobal {
		return DedupLegacyGlobal
	}
	return DedupOwnerScoped
}

// IntakeOutcome tells what happened to a submission
type IntakeOutcome string

const (
	OutcomeCreated      IntakeOutcome = "created"
	OutcomeDuplicate    IntakeOutcome = "duplicate"
	OutcomePhoneOwned   IntakeOutcome = "phone_owned"
	OutcomeUnattributed IntakeOutcome = "unattributed"
)

// Submission is a raw lead from any intake channel
type Submission struct {
	Channel              models.Channel
	Phone                string
	Name                 string
	Email                string
	City                 string
	ReferralCode         string
	FallbackReferralCode string
	CatalogItem          *models.CatalogItemRef
	DeliveryID           string
}

// IntakeResult reports the outcome of a submission. Accepted is true when
// the prospect is registered for the resolved owner, either by this call or
// by an earlier identical one.
type IntakeResult struct {
	Accepted bool               `json:"accepted"`
	Outcome  IntakeOutcome      `json:"outcome"`
	LeadID   primitive.ObjectID `json:"leadId,omitempty"`
	OwnerID  primitive.ObjectID `json:"ownerId,omitempty"`
}

// LeadIntake turns submissions into leads owned by exactly one partner
type LeadIntake struct {
	partners     PartnerStore
	leads        LeadStore
	claims       PhoneClaimStore
	inbox        InboxStore
	defaultOwner DefaultOwnerResolver
	auth         Authorizer
	policy       DedupPolicy
	now          func() time.Time
}

func NewLeadIntake(partners PartnerStore, leads LeadStore, claims PhoneClaimStore, inbox InboxStore,
	defaultOwner DefaultOwnerResolver, auth Authorizer, policy DedupPolicy) *LeadIntake {
	if policy == "" {
		policy = DedupOwnerScoped
	}
	return &LeadIntake{
		partners:     partners,
		leads:        leads,
		claims:       claims,
		inbox:        inbox,
		defaultOwner: defaultOwner,
		auth:         auth,
		policy:       policy,
		now:          time.Now,
	}
}

// Submit registers a submission. Retried deliveries of the same phone, owner
// and interest are reported as OutcomeDuplicate without creating a lead.
func (s *LeadIntake) Submit(ctx context.Context, sub Submission) (IntakeResult, error) {
	if sub.Channel == "" {
		sub.Channel = models.ChannelForm
	}

	phone := utils.NormalizePhone(sub.Phone)
	if phone == "" {
		return IntakeResult{}, ErrPhoneRequired
	}

	owner, code, err := s.resolveOwner(ctx, sub)
	if err != nil {
		return IntakeResult{}, err
	}

	result := IntakeResult{Outcome: OutcomeUnattributed}
	if owner != nil {
		result, err = s.register(ctx, sub, phone, owner)
		if err != nil {
			return IntakeResult{}, err
		}
	}

	if sub.Channel == models.ChannelMessaging {
		s.recordInbox(ctx, sub, phone, code, owner, result)
	}

	intakeOutcomes.WithLabelValues(string(sub.Channel), string(result.Outcome)).Inc()
	logger.Info().
		Str(utils.LogFunc, "Submit").
		Str("channel", string(sub.Channel)).
		Str("outcome", string(result.Outcome)).
		Str("lead", result.LeadID.Hex()).
		Msg("lead submission handled")

	return result, nil
}

// SubmitManual registers a lead typed in by an administrator
func (s *LeadIntake) SubmitManual(ctx context.Context, actor Actor, sub Submission) (IntakeResult, error) {
	if err := requireAdmin(s.auth, actor); err != nil {
		return IntakeResult{}, err
	}
	sub.Channel = models.ChannelManual
	return s.Submit(ctx, sub)
}

// resolveOwner prefers the explicit code, then the fallback code. Messaging
// submissions that resolve neither go to the default owner; interactive ones
// fail with ErrUnknownReferralCode.
func (s *LeadIntake) resolveOwner(ctx context.Context, sub Submission) (*models.Partner, string, error) {
	explicit := strings.TrimSpace(sub.ReferralCode)
	fallback := strings.TrimSpace(sub.FallbackReferralCode)

	effective := explicit
	if effective == "" {
		effective = fallback
	}

	for i, code := range []string{explicit, fallback} {
		if code == "" {
			continue
		}
		partner, err := s.partners.FindByReferralCode(ctx, code)
		if err == nil {
			return partner, code, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, effective, fmt.Errorf("resolve referral code: %w", err)
		}
		if i == 0 && sub.Channel != models.ChannelMessaging {
			return nil, effective, ErrUnknownReferralCode
		}
	}

	if sub.Channel != models.ChannelMessaging {
		return nil, effective, ErrUnknownReferralCode
	}
	if s.defaultOwner == nil {
		return nil, effective, nil
	}

	partner, err := s.defaultOwner.DefaultOwner(ctx)
	if err != nil {
		return nil, effective, fmt.Errorf("resolve default owner: %w", err)
	}
	return partner, effective, nil
}

func (s *LeadIntake) register(ctx context.Context, sub Submission, phone string, owner *models.Partner) (IntakeResult, error) {
	if s.policy == DedupLegacyGlobal && sub.Channel != models.ChannelMessaging {
		return s.registerLegacy(ctx, sub, phone, owner)
	}

	interest := sub.CatalogItem.InterestKey()

	existing, err := s.leads.FindByPhone(ctx, phone)
	if err != nil {
		return IntakeResult{}, fmt.Errorf("find leads by phone: %w", err)
	}
	for _, lead := range existing {
		if lead.ReferrerID != owner.ID {
			return IntakeResult{Outcome: OutcomePhoneOwned, OwnerID: lead.ReferrerID}, nil
		}
	}
	for _, lead := range existing {
		if lead.Interest == interest {
			return IntakeResult{Accepted: true, Outcome: OutcomeDuplicate, LeadID: lead.ID, OwnerID: owner.ID}, nil
		}
	}

	claimedBy, err := s.claims.Claim(ctx, phone, owner.ID)
	if err != nil {
		return IntakeResult{}, fmt.Errorf("claim phone: %w", err)
	}
	if claimedBy != owner.ID {
		return IntakeResult{Outcome: OutcomePhoneOwned, OwnerID: claimedBy}, nil
	}

	return s.insert(ctx, s.buildLead(sub, phone, owner, interest))
}

// registerLegacy short-circuits on any lead sharing the phone, the
// synthesized contact identity or the email
func (s *LeadIntake) registerLegacy(ctx context.Context, sub Submission, phone string, owner *models.Partner) (IntakeResult, error) {
	emails := []string{utils.MessagingContactEmail(phone)}
	if email := normalizeEmail(sub.Email); email != "" {
		emails = append(emails, email)
	}
	phones := []string{phone, strings.TrimSpace(sub.Phone)}

	lead, err := s.leads.FindByContact(ctx, phones, emails)
	if err == nil {
		return IntakeResult{Accepted: true, Outcome: OutcomeDuplicate, LeadID: lead.ID, OwnerID: lead.ReferrerID}, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return IntakeResult{}, fmt.Errorf("find leads by contact: %w", err)
	}

	claimedBy, err := s.claims.Claim(ctx, phone, owner.ID)
	if err != nil {
		return IntakeResult{}, fmt.Errorf("claim phone: %w", err)
	}
	if claimedBy != owner.ID {
		return IntakeResult{Accepted: true, Outcome: OutcomeDuplicate, OwnerID: claimedBy}, nil
	}

	return s.insert(ctx, s.buildLead(sub, phone, owner, sub.CatalogItem.InterestKey()))
}

func (s *LeadIntake) insert(ctx context.Context, lead *models.Lead) (IntakeResult, error) {
	err := s.leads.Insert(ctx, lead)
	if err == nil {
		return IntakeResult{Accepted: true, Outcome: OutcomeCreated, LeadID: lead.ID, OwnerID: lead.ReferrerID}, nil
	}
	if !errors.Is(err, repositories.ErrDuplicateKey) {
		return IntakeResult{}, fmt.Errorf("insert lead: %w", err)
	}

	// a concurrent identical submission won the insert
	result := IntakeResult{Accepted: true, Outcome: OutcomeDuplicate, OwnerID: lead.ReferrerID}
	if existing, err := s.leads.FindByPhone(ctx, lead.Phone); err == nil {
		for _, l := range existing {
			if l.DedupKey == lead.DedupKey {
				result.LeadID = l.ID
				break
			}
		}
	}
	return result, nil
}

func (s *LeadIntake) buildLead(sub Submission, phone string, owner *models.Partner, interest string) *models.Lead {
	now := s.now()
	name := strings.TrimSpace(sub.Name)
	email := normalizeEmail(sub.Email)
	if sub.Channel == models.ChannelMessaging {
		if name == "" {
			name = "WhatsApp " + phone
		}
		if email == "" {
			email = utils.MessagingContactEmail(phone)
		}
	}

	return &models.Lead{
		ID:              primitive.NewObjectID(),
		Name:            name,
		Email:           email,
		Phone:           phone,
		RawPhone:        strings.TrimSpace(sub.Phone),
		City:            strings.TrimSpace(sub.City),
		CatalogItem:     sub.CatalogItem,
		ProjectInterest: sub.CatalogItem.Display(),
		Interest:        interest,
		Status:          models.LeadRegistered,
		IsValid:         false,
		ReferrerID:      owner.ID,
		Channel:         sub.Channel,
		DedupKey:        models.LeadDedupKey(phone, owner.ID, interest),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *LeadIntake) recordInbox(ctx context.Context, sub Submission, phone, code string, owner *models.Partner, result IntakeResult) {
	deliveryID := sub.DeliveryID
	if deliveryID == "" {
		deliveryID = uuid.New().String()
	}
	msg := &models.InboxMessage{
		DeliveryID:   deliveryID,
		Channel:      sub.Channel,
		Phone:        phone,
		CatalogItem:  sub.CatalogItem,
		ReferralCode: code,
		Outcome:      string(result.Outcome),
		ReceivedAt:   s.now(),
	}
	if owner != nil {
		id := owner.ID
		msg.ReferrerID = &id
	}
	if !result.LeadID.IsZero() {
		id := result.LeadID
		msg.LeadID = &id
	}
	if err := s.inbox.Append(ctx, msg); err != nil {
		logger.Error().Err(err).Str("delivery", deliveryID).Msg("failed to record inbox message")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
