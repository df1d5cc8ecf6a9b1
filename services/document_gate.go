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
)

// recomputeAttempts bounds how often a recompute re-reads documents that
// changed under it
const recomputeAttempts = 3

// DocumentGate tracks required document submissions and derives partner
// activation from their reviews
type DocumentGate struct {
	documents DocumentStore
	partners  PartnerStore
	auth      Authorizer
	notifier  Notifier
	now       func() time.Time
}

func NewDocumentGate(documents DocumentStore, partners PartnerStore, auth Authorizer, notifier Notifier) *DocumentGate {
	return &DocumentGate{
		documents: documents,
		partners:  partners,
		auth:      auth,
		notifier:  notifierOrNop(notifier),
		now:       time.Now,
	}
}

// Submit stores a new submission. It is refused with ErrDocumentExists while
// the latest submission of the type is pending or approved.
func (g *DocumentGate) Submit(ctx context.Context, partnerID primitive.ObjectID, docType models.DocumentType, content string) (*models.Document, error) {
	if !docType.Valid() {
		return nil, fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, docType)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: document content is required", ErrInvalidInput)
	}
	if _, err := g.partners.FindByID(ctx, partnerID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find partner: %w", err)
	}

	docs, err := g.documents.ListByPartner(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if latest := latestByType(docs)[docType]; latest != nil && latest.Status != models.DocumentRejected {
		return nil, ErrDocumentExists
	}

	doc := &models.Document{
		ID:          primitive.NewObjectID(),
		PartnerID:   partnerID,
		Type:        docType,
		Content:     content,
		Status:      models.DocumentPending,
		Open:        true,
		SubmittedAt: g.now(),
	}
	if err := g.documents.Insert(ctx, doc); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrDocumentExists
		}
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

// Review records an administrator's decision on the latest submission of a
// type and recomputes the partner's activation
func (g *DocumentGate) Review(ctx context.Context, actor Actor, documentID primitive.ObjectID, decision models.DocumentStatus, feedback string) (*models.Document, error) {
	if err := requireAdmin(g.auth, actor); err != nil {
		return nil, err
	}
	if decision != models.DocumentApproved && decision != models.DocumentRejected {
		return nil, fmt.Errorf("%w: decision must be APPROVED or REJECTED", ErrInvalidInput)
	}
	feedback = strings.TrimSpace(feedback)
	if decision == models.DocumentRejected && feedback == "" {
		return nil, ErrFeedbackRequired
	}

	doc, err := g.documents.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}

	docs, err := g.documents.ListByPartner(ctx, doc.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if latest := latestByType(docs)[doc.Type]; latest == nil || latest.ID != doc.ID {
		return nil, fmt.Errorf("%w: document was superseded by a newer submission", ErrInvalidTransition)
	}

	reviewed, err := g.documents.Review(ctx, documentID, decision, feedback, actor.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrDocumentExists
		}
		return nil, fmt.Errorf("review document: %w", err)
	}

	if _, err := g.RecomputePartnerStatus(ctx, reviewed.PartnerID); err != nil {
		return reviewed, err
	}

	message := fmt.Sprintf("Tu documento %s fue aprobado", reviewed.Type)
	if decision == models.DocumentRejected {
		message = fmt.Sprintf("Tu documento %s fue rechazado: %s", reviewed.Type, feedback)
	}
	g.notifier.Notify(ctx, models.Notification{
		PartnerID: reviewed.PartnerID,
		Title:     "Revisión de documento",
		Message:   message,
		Type:      models.NotificationDocumentReviewed,
		Data:      reviewed,
		CreatedAt: g.now(),
	})
	return reviewed, nil
}

// Eligibility derives the partner's payout eligibility from stored documents
func (g *DocumentGate) Eligibility(ctx context.Context, partnerID primitive.ObjectID) (*models.Eligibility, error) {
	docs, err := g.documents.ListByPartner(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return DeriveEligibility(partnerID, docs), nil
}

// AdminEligibility is Eligibility for administrators inspecting any partner
func (g *DocumentGate) AdminEligibility(ctx context.Context, actor Actor, partnerID primitive.ObjectID) (*models.Eligibility, error) {
	if err := requireAdmin(g.auth, actor); err != nil {
		return nil, err
	}
	return g.Eligibility(ctx, partnerID)
}

// ListDocuments returns every submission of the partner, newest first
func (g *DocumentGate) ListDocuments(ctx context.Context, partnerID primitive.ObjectID) ([]models.Document, error) {
	return g.documents.ListByPartner(ctx, partnerID)
}

// PartnerDocuments lets an administrator list every submission of a
// partner, newest first
func (g *DocumentGate) PartnerDocuments(ctx context.Context, actor Actor, partnerID primitive.ObjectID) ([]models.Document, error) {
	if err := requireAdmin(g.auth, actor); err != nil {
		return nil, err
	}
	if _, err := g.partners.FindByID(ctx, partnerID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find partner: %w", err)
	}
	return g.documents.ListByPartner(ctx, partnerID)
}

// DeriveEligibility classifies each required type by its latest submission
func DeriveEligibility(partnerID primitive.ObjectID, docs []models.Document) *models.Eligibility {
	latest := latestByType(docs)
	e := &models.Eligibility{PartnerID: partnerID, Approved: []models.DocumentType{}}
	for _, t := range models.RequiredDocumentTypes {
		doc := latest[t]
		switch {
		case doc == nil:
			e.Missing = append(e.Missing, t)
		case doc.Status == models.DocumentApproved:
			e.Approved = append(e.Approved, t)
		case doc.Status == models.DocumentRejected:
			e.Rejected = append(e.Rejected, t)
		default:
			e.Pending = append(e.Pending, t)
		}
	}
	e.AllApproved = len(e.Approved) == len(models.RequiredDocumentTypes)
	return e
}

// latestByType picks the most recent submission per type. Equal submission
// times fall back to the ObjectID order.
func latestByType(docs []models.Document) map[models.DocumentType]*models.Document {
	latest := make(map[models.DocumentType]*models.Document)
	for i := range docs {
		doc := &docs[i]
		cur, ok := latest[doc.Type]
		if !ok || doc.SubmittedAt.After(cur.SubmittedAt) ||
			(doc.SubmittedAt.Equal(cur.SubmittedAt) && doc.ID.Hex() > cur.ID.Hex()) {
			latest[doc.Type] = doc
		}
	}
	return latest
}

// RecomputePartnerStatus writes ACTIVE or PENDING from the partner's
// documents. BLOCKED and INACTIVE overrides are left untouched. When the
// documents change between the read and the write, the recompute runs again
// on a fresh snapshot; if they never settle the partner is left PENDING.
func (g *DocumentGate) RecomputePartnerStatus(ctx context.Context, partnerID primitive.ObjectID) (*models.Partner, error) {
	for attempt := 1; attempt <= recomputeAttempts; attempt++ {
		before, err := g.Eligibility(ctx, partnerID)
		if err != nil {
			return nil, err
		}

		status := models.PartnerPending
		if before.AllApproved {
			status = models.PartnerActive
		}

		partner, err := g.partners.SetDerivedStatus(ctx, partnerID, status)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("set partner status: %w", err)
		}

		after, err := g.Eligibility(ctx, partnerID)
		if err != nil {
			return nil, err
		}
		if after.AllApproved == before.AllApproved {
			eligibilityRecomputes.WithLabelValues(string(partner.Status)).Inc()
			return partner, nil
		}
		logger.Debug().
			Str(utils.LogFunc, "RecomputePartnerStatus").
			Str("partner", partnerID.Hex()).
			Int("attempt", attempt).
			Msg("documents changed during recompute")
	}

	// an unsettled snapshot never leaves the partner ACTIVE
	logger.Warn().Str("partner", partnerID.Hex()).Msg("partner status recompute did not settle")
	partner, err := g.partners.SetDerivedStatus(ctx, partnerID, models.PartnerPending)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("set partner status: %w", err)
	}
	eligibilityRecomputes.WithLabelValues(string(partner.Status)).Inc()
	return partner, nil
}

// SetPartnerStatus applies an administrative status. BLOCKED and INACTIVE
// are stored as overrides with their reason; any other status clears the
// override and restores the document-derived status.
func (g *DocumentGate) SetPartnerStatus(ctx context.Context, actor Actor, partnerID primitive.ObjectID, status models.PartnerStatus, reason string) (*models.Partner, error) {
	if err := requireAdmin(g.auth, actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown partner status %q", ErrInvalidInput, status)
	}

	var (
		partner *models.Partner
		err     error
	)
	if status.IsOverride() {
		partner, err = g.partners.SetStatus(ctx, partnerID, status, strings.TrimSpace(reason))
	} else {
		if _, err = g.partners.SetStatus(ctx, partnerID, models.PartnerPending, ""); err == nil {
			partner, err = g.RecomputePartnerStatus(ctx, partnerID)
		}
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) || errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("set partner status: %w", err)
	}

	logger.Info().
		Str(utils.LogFunc, "SetPartnerStatus").
		Str("partner", partnerID.Hex()).
		Str("requested", string(status)).
		Str("status", string(partner.Status)).
		Msg("partner status set by administrator")

	g.notifier.Notify(ctx, models.Notification{
		PartnerID: partnerID,
		Title:     "Estado de cuenta",
		Message:   fmt.Sprintf("Tu cuenta ahora está %s", partner.Status),
		Type:      models.NotificationPartnerStatus,
		Data:      partner,
		CreatedAt: g.now(),
	})
	return partner, nil
}
