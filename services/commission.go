package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/repositories"
	"github.com/goodsco/referidos_backend/utils"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var commissionRate = decimal.RequireFromString(models.CommissionRate)

// CommissionFor returns the commission earned on a transaction value,
// rounded to cents
func CommissionFor(value float64) float64 {
	amount, _ := decimal.NewFromFloat(value).Mul(commissionRate).Round(2).Float64()
	return amount
}

// EligibilityChecker reports whether a partner may be paid
type EligibilityChecker interface {
	Eligibility(ctx context.Context, partnerID primitive.ObjectID) (*models.Eligibility, error)
}

// CommissionManager moves leads through the pipeline and keeps exactly one
// commission per lead once its value is known
type CommissionManager struct {
	leads       LeadStore
	commissions CommissionStore
	gate        EligibilityChecker
	auth        Authorizer
	notifier    Notifier
	// WithdrawalPhone is the number partners message to request a payout
	WithdrawalPhone string
	now             func() time.Time
}

func NewCommissionManager(leads LeadStore, commissions CommissionStore, gate EligibilityChecker, auth Authorizer, notifier Notifier) *CommissionManager {
	return &CommissionManager{
		leads:       leads,
		commissions: commissions,
		gate:        gate,
		auth:        auth,
		notifier:    notifierOrNop(notifier),
		now:         time.Now,
	}
}

// SetLeadStatus records a pipeline transition. Reaching the value-bearing
// stage with a transaction value creates the lead's commission or
// recomputes its amount.
func (m *CommissionManager) SetLeadStatus(ctx context.Context, actor Actor, leadID primitive.ObjectID, status models.LeadStatus, value *float64) (*models.Lead, error) {
	if err := requireAdmin(m.auth, actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown lead status %q", ErrInvalidInput, status)
	}
	if value != nil && *value <= 0 {
		return nil, fmt.Errorf("%w: transaction value must be positive", ErrInvalidInput)
	}

	lead, err := m.leads.UpdateStatus(ctx, leadID, status, value)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update lead status: %w", err)
	}

	if status == models.ValueBearingStage && value != nil {
		if _, err := m.upsertCommission(ctx, lead, *value); err != nil {
			return lead, err
		}
	}
	return lead, nil
}

// upsertCommission keeps a single commission per lead. The unique lead index
// turns a lost insert race into an amount update.
func (m *CommissionManager) upsertCommission(ctx context.Context, lead *models.Lead, value float64) (*models.Commission, error) {
	amount := CommissionFor(value)

	if _, err := m.commissions.FindByLeadID(ctx, lead.ID); err == nil {
		return m.updateAmount(ctx, lead, amount, "updated")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("find commission: %w", err)
	}

	now := m.now()
	commission := &models.Commission{
		ID:        primitive.NewObjectID(),
		LeadID:    lead.ID,
		PartnerID: lead.ReferrerID,
		Amount:    amount,
		Status:    models.CommissionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := m.commissions.Insert(ctx, commission)
	if errors.Is(err, repositories.ErrDuplicateKey) {
		return m.updateAmount(ctx, lead, amount, "race_updated")
	}
	if err != nil {
		return nil, fmt.Errorf("insert commission: %w", err)
	}

	commissionUpserts.WithLabelValues("created").Inc()
	m.notifier.Notify(ctx, models.Notification{
		PartnerID: lead.ReferrerID,
		Title:     "Nueva comisión",
		Message:   fmt.Sprintf("Tu referido %s generó una comisión de %.2f", lead.Name, amount),
		Type:      models.NotificationCommissionCreated,
		Data:      commission,
		CreatedAt: now,
	})
	return commission, nil
}

func (m *CommissionManager) updateAmount(ctx context.Context, lead *models.Lead, amount float64, action string) (*models.Commission, error) {
	commission, err := m.commissions.UpdateAmount(ctx, lead.ID, amount)
	if err != nil {
		return nil, fmt.Errorf("update commission amount: %w", err)
	}
	commissionUpserts.WithLabelValues(action).Inc()
	m.notifier.Notify(ctx, models.Notification{
		PartnerID: lead.ReferrerID,
		Title:     "Comisión actualizada",
		Message:   fmt.Sprintf("La comisión de %s ahora es %.2f", lead.Name, amount),
		Type:      models.NotificationCommissionUpdated,
		Data:      commission,
		CreatedAt: m.now(),
	})
	return commission, nil
}

// SetCommissionStatus advances a commission and returns it as stored. The
// flag is false without error when the commission is already in the
// requested status. A payout for a partner whose documents are not all
// approved fails with ErrDocumentsNotApproved and changes nothing.
func (m *CommissionManager) SetCommissionStatus(ctx context.Context, actor Actor, commissionID primitive.ObjectID, status models.CommissionStatus) (*models.Commission, bool, error) {
	if err := requireAdmin(m.auth, actor); err != nil {
		return nil, false, err
	}
	if !status.Valid() {
		return nil, false, fmt.Errorf("%w: unknown commission status %q", ErrInvalidInput, status)
	}

	current, err := m.commissions.FindByID(ctx, commissionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, false, ErrNotFound
		}
		return nil, false, fmt.Errorf("find commission: %w", err)
	}
	return m.advance(ctx, current, status)
}

// SetLeadCommissionStatus advances the commission attached to a lead
func (m *CommissionManager) SetLeadCommissionStatus(ctx context.Context, actor Actor, leadID primitive.ObjectID, status models.CommissionStatus) (*models.Commission, bool, error) {
	if err := requireAdmin(m.auth, actor); err != nil {
		return nil, false, err
	}
	if !status.Valid() {
		return nil, false, fmt.Errorf("%w: unknown commission status %q", ErrInvalidInput, status)
	}

	current, err := m.commissions.FindByLeadID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, false, ErrNotFound
		}
		return nil, false, fmt.Errorf("find commission: %w", err)
	}
	return m.advance(ctx, current, status)
}

func (m *CommissionManager) advance(ctx context.Context, current *models.Commission, status models.CommissionStatus) (*models.Commission, bool, error) {
	if current.Status == status {
		return current, false, nil
	}
	if status.Rank() < current.Status.Rank() {
		return current, false, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, status)
	}

	if status == models.CommissionPaid {
		eligibility, err := m.gate.Eligibility(ctx, current.PartnerID)
		if err != nil {
			return current, false, fmt.Errorf("check eligibility: %w", err)
		}
		if !eligibility.AllApproved {
			payoutGateRejections.Inc()
			return current, false, ErrDocumentsNotApproved
		}
	}

	updated, err := m.commissions.CompareAndSetStatus(ctx, current.ID, current.Status, status)
	if errors.Is(err, repositories.ErrNotFound) {
		// moved concurrently; re-evaluate against the stored status
		latest, ferr := m.commissions.FindByID(ctx, current.ID)
		if ferr != nil {
			return nil, false, fmt.Errorf("find commission: %w", ferr)
		}
		if latest.Status == status {
			return latest, false, nil
		}
		return latest, false, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, latest.Status, status)
	}
	if err != nil {
		return nil, false, fmt.Errorf("set commission status: %w", err)
	}

	logger.Info().
		Str(utils.LogFunc, "SetCommissionStatus").
		Str("commission", current.ID.Hex()).
		Str("from", string(current.Status)).
		Str("to", string(status)).
		Msg("commission status changed")

	m.notifier.Notify(ctx, models.Notification{
		PartnerID: updated.PartnerID,
		Title:     "Estado de comisión",
		Message:   fmt.Sprintf("Tu comisión pasó a %s", status),
		Type:      models.NotificationCommissionStatus,
		Data:      updated,
		CreatedAt: m.now(),
	})
	return updated, true, nil
}

// ToggleLeadValidity flips the lead's validity flag
func (m *CommissionManager) ToggleLeadValidity(ctx context.Context, actor Actor, leadID primitive.ObjectID) (*models.Lead, error) {
	if err := requireAdmin(m.auth, actor); err != nil {
		return nil, err
	}
	lead, err := m.leads.ToggleValidity(ctx, leadID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	return lead, err
}

// PartnerLeads lists the leads owned by a partner, newest first
func (m *CommissionManager) PartnerLeads(ctx context.Context, partnerID primitive.ObjectID) ([]models.Lead, error) {
	return m.leads.ListByReferrer(ctx, partnerID)
}

// AdminLeads lists leads across partners
func (m *CommissionManager) AdminLeads(ctx context.Context, actor Actor, filter models.LeadFilter) ([]models.Lead, error) {
	if err := requireAdmin(m.auth, actor); err != nil {
		return nil, err
	}
	if filter.Phone != "" {
		filter.Phone = utils.NormalizePhone(filter.Phone)
	}
	return m.leads.List(ctx, filter)
}

// PartnerCommissions lists a partner's commissions, newest first
func (m *CommissionManager) PartnerCommissions(ctx context.Context, partnerID primitive.ObjectID) ([]models.Commission, error) {
	return m.commissions.ListByPartner(ctx, partnerID)
}

// FundsSummary aggregates a partner's commissions. Pending covers PENDING
// and RELEASED commissions; Provisional estimates leads that carry a value
// but have no commission yet.
func (m *CommissionManager) FundsSummary(ctx context.Context, partnerID primitive.ObjectID) (*models.FundsSummary, error) {
	commissions, err := m.commissions.ListByPartner(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}
	leads, err := m.leads.ListByReferrer(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	paid, pending, provisional := decimal.Zero, decimal.Zero, decimal.Zero
	withCommission := make(map[primitive.ObjectID]bool, len(commissions))
	for _, c := range commissions {
		withCommission[c.LeadID] = true
		amount := decimal.NewFromFloat(c.Amount)
		if c.Status == models.CommissionPaid {
			paid = paid.Add(amount)
		} else {
			pending = pending.Add(amount)
		}
	}
	for _, lead := range leads {
		if lead.TransactionValue == nil || withCommission[lead.ID] {
			continue
		}
		provisional = provisional.Add(decimal.NewFromFloat(*lead.TransactionValue).Mul(commissionRate))
	}

	eligibility, err := m.gate.Eligibility(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("check eligibility: %w", err)
	}

	summary := &models.FundsSummary{
		Paid:               paid.Round(2).InexactFloat64(),
		Pending:            pending.Round(2).InexactFloat64(),
		Provisional:        provisional.Round(2).InexactFloat64(),
		Total:              paid.Add(pending).Round(2).InexactFloat64(),
		DocumentsValidated: eligibility.AllApproved,
	}
	summary.MissingDocuments = append(summary.MissingDocuments, eligibility.Missing...)
	summary.MissingDocuments = append(summary.MissingDocuments, eligibility.Rejected...)
	summary.CanWithdraw = summary.DocumentsValidated && pending.IsPositive()
	if summary.CanWithdraw {
		text := fmt.Sprintf("Hola, quisiera solicitar el retiro de mis comisiones acumuladas por valor de $%s", pending.StringFixed(2))
		summary.WithdrawalURL = "https://wa.me/" + utils.NormalizePhone(m.WithdrawalPhone) + "?text=" + url.QueryEscape(text)
	}
	return summary, nil
}
