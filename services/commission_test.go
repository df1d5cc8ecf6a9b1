package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/repositories"
	"github.com/goodsco/referidos_backend/repositories/memory"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (f *fixture) newLead(t *testing.T, owner *models.Partner, phone, title string) primitive.ObjectID {
	t.Helper()
	res, err := f.intake.Submit(context.Background(), Submission{
		Channel:      models.ChannelMessaging,
		Phone:        phone,
		ReferralCode: owner.ReferralCode,
		CatalogItem:  catalog(title),
	})
	if err != nil || res.Outcome != OutcomeCreated {
		t.Fatalf("create lead: %+v, %v", res, err)
	}
	return res.LeadID
}

func (f *fixture) commissionOf(t *testing.T, leadID primitive.ObjectID) *models.Commission {
	t.Helper()
	c, err := f.store.Commissions().FindByLeadID(context.Background(), leadID)
	if err != nil {
		t.Fatalf("find commission: %v", err)
	}
	return c
}

func value(v float64) *float64 { return &v }

func TestCommissionFor(t *testing.T) {
	cases := []struct {
		value float64
		want  float64
	}{
		{100000000, 1500000},
		{200000000, 3000000},
		{1234567.89, 18518.52},
		{1, 0.02},
	}
	for _, tc := range cases {
		if got := CommissionFor(tc.value); got != tc.want {
			t.Errorf("CommissionFor(%v) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestSetLeadStatusKeepsOneCommissionPerLead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)
	leadID := f.newLead(t, p, "3001234567", "Lote A")

	for i := 0; i < 2; i++ {
		lead, err := f.commissions.SetLeadStatus(ctx, f.adminActor(), leadID, models.LeadReserved, value(100000000))
		if err != nil {
			t.Fatalf("set status #%d: %v", i+1, err)
		}
		if lead.Status != models.LeadReserved || lead.TransactionValue == nil || *lead.TransactionValue != 100000000 {
			t.Fatalf("lead = %+v", lead)
		}
	}

	commissions, err := f.store.Commissions().ListByPartner(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(commissions) != 1 {
		t.Fatalf("got %d commissions, want 1", len(commissions))
	}
	if c := commissions[0]; c.Amount != 1500000 || c.Status != models.CommissionPending || c.LeadID != leadID {
		t.Fatalf("commission = %+v", c)
	}

	if _, err := f.commissions.SetLeadStatus(ctx, f.adminActor(), leadID, models.LeadReserved, value(200000000)); err != nil {
		t.Fatal(err)
	}
	if c := f.commissionOf(t, leadID); c.Amount != 3000000 {
		t.Fatalf("amount = %v, want 3000000", c.Amount)
	}

	want := []string{models.NotificationCommissionCreated, models.NotificationCommissionUpdated, models.NotificationCommissionUpdated}
	if got := f.notifier.types(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("notifications = %v, want %v", got, want)
	}
}

func TestSetLeadStatusWithoutValueOrOutsideStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)
	leadID := f.newLead(t, p, "3001234567", "Lote A")

	if _, err := f.commissions.SetLeadStatus(ctx, f.adminActor(), leadID, models.LeadReserved, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := f.commissions.SetLeadStatus(ctx, f.adminActor(), leadID, models.LeadNegotiating, value(5000)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.Commissions().FindByLeadID(ctx, leadID); err == nil {
		t.Fatal("commission created outside the value-bearing stage")
	}
}

func TestSetLeadStatusValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)
	leadID := f.newLead(t, p, "3001234567", "Lote A")

	if _, err := f.commissions.SetLeadStatus(ctx, Actor{ID: p.ID, Role: models.RolePartner}, leadID, models.LeadReserved, value(10)); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("partner err = %v, want ErrUnauthorized", err)
	}
	if _, err := f.commissions.SetLeadStatus(ctx, f.adminActor(), leadID, "Vendido", nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown status err = %v, want ErrInvalidInput", err)
	}
	if _, err := f.commissions.SetLeadStatus(ctx, f.adminActor(), leadID, models.LeadReserved, value(0)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero value err = %v, want ErrInvalidInput", err)
	}
	if _, err := f.commissions.SetLeadStatus(ctx, f.adminActor(), primitive.NewObjectID(), models.LeadContacted, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing lead err = %v, want ErrNotFound", err)
	}
}

func TestSetCommissionStatusPayoutGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)
	leadID := f.newLead(t, p, "3001234567", "Lote A")
	if _, err := f.commissions.SetLeadStatus(ctx, f.adminActor(), leadID, models.LeadReserved, value(100000000)); err != nil {
		t.Fatal(err)
	}
	id := f.commissionOf(t, leadID).ID

	_, updated, err := f.commissions.SetCommissionStatus(ctx, f.adminActor(), id, models.CommissionPaid)
	if !errors.Is(err, ErrDocumentsNotApproved) || updated {
		t.Fatalf("paid without documents = %v, %v", updated, err)
	}
	if c := f.commissionOf(t, leadID); c.Status != models.CommissionPending {
		t.Fatalf("status = %s after refused payout", c.Status)
	}

	// releasing is not gated
	if _, updated, err := f.commissions.SetCommissionStatus(ctx, f.adminActor(), id, models.CommissionReleased); err != nil || !updated {
		t.Fatalf("release = %v, %v", updated, err)
	}

	f.approveAll(t, p.ID)
	if _, updated, err := f.commissions.SetCommissionStatus(ctx, f.adminActor(), id, models.CommissionPaid); err != nil || !updated {
		t.Fatalf("paid after approval = %v, %v", updated, err)
	}
	c := f.commissionOf(t, leadID)
	if c.Status != models.CommissionPaid || c.PaidAt == nil {
		t.Fatalf("commission = %+v", c)
	}
}

func TestSetCommissionStatusIsForwardOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)
	leadID := f.newLead(t, p, "3001234567", "Lote A")
	if _, err := f.commissions.SetLeadStatus(ctx, f.adminActor(), leadID, models.LeadReserved, value(1000000)); err != nil {
		t.Fatal(err)
	}
	id := f.commissionOf(t, leadID).ID

	if _, updated, err := f.commissions.SetCommissionStatus(ctx, f.adminActor(), id, models.CommissionPending); err != nil || updated {
		t.Fatalf("same status = %v, %v, want false without error", updated, err)
	}
	if _, updated, err := f.commissions.SetCommissionStatus(ctx, f.adminActor(), id, models.CommissionReleased); err != nil || !updated {
		t.Fatalf("release = %v, %v", updated, err)
	}
	if _, _, err := f.commissions.SetCommissionStatus(ctx, f.adminActor(), id, models.CommissionPending); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("backward err = %v, want ErrInvalidTransition", err)
	}
	if _, _, err := f.commissions.SetCommissionStatus(ctx, Actor{ID: p.ID, Role: models.RolePartner}, id, models.CommissionPaid); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("partner err = %v, want ErrUnauthorized", err)
	}
	if _, _, err := f.commissions.SetCommissionStatus(ctx, f.adminActor(), id, "VOID"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown status err = %v, want ErrInvalidInput", err)
	}
	if _, _, err := f.commissions.SetCommissionStatus(ctx, f.adminActor(), primitive.NewObjectID(), models.CommissionPaid); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing commission err = %v, want ErrNotFound", err)
	}
}

func TestSetLeadCommissionStatusReturnsCommission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)
	leadID := f.newLead(t, p, "3001234567", "Lote A")
	if _, err := f.commissions.SetLeadStatus(ctx, f.adminActor(), leadID, models.LeadReserved, value(100000000)); err != nil {
		t.Fatal(err)
	}

	c, updated, err := f.commissions.SetLeadCommissionStatus(ctx, f.adminActor(), leadID, models.CommissionReleased)
	if err != nil || !updated {
		t.Fatalf("release by lead = %v, %v", updated, err)
	}
	if c == nil || c.LeadID != leadID || c.Status != models.CommissionReleased || c.Amount != 1500000 {
		t.Fatalf("returned commission = %+v", c)
	}

	c, updated, err = f.commissions.SetLeadCommissionStatus(ctx, f.adminActor(), leadID, models.CommissionReleased)
	if err != nil || updated || c == nil || c.Status != models.CommissionReleased {
		t.Fatalf("same status = %+v, %v, %v", c, updated, err)
	}

	c, updated, err = f.commissions.SetLeadCommissionStatus(ctx, f.adminActor(), leadID, models.CommissionPaid)
	if !errors.Is(err, ErrDocumentsNotApproved) || updated || c == nil || c.Status != models.CommissionReleased {
		t.Fatalf("gated payout = %+v, %v, %v", c, updated, err)
	}

	if _, _, err := f.commissions.SetLeadCommissionStatus(ctx, f.adminActor(), primitive.NewObjectID(), models.CommissionPaid); !errors.Is(err, ErrNotFound) {
		t.Fatalf("lead without commission err = %v, want ErrNotFound", err)
	}
}

func TestFundsSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.commissions.WithdrawalPhone = "+57 300 111 2222"
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)

	paidLead := f.newLead(t, p, "3000000001", "Lote A")
	pendingLead := f.newLead(t, p, "3000000002", "Lote B")
	provisionalLead := f.newLead(t, p, "3000000003", "Lote C")

	if _, err := f.commissions.SetLeadStatus(ctx, f.adminActor(), paidLead, models.LeadReserved, value(100000000)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.commissions.SetLeadStatus(ctx, f.adminActor(), pendingLead, models.LeadReserved, value(10000000)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.commissions.SetLeadStatus(ctx, f.adminActor(), provisionalLead, models.LeadNegotiating, value(20000000)); err != nil {
		t.Fatal(err)
	}

	summary, err := f.commissions.FundsSummary(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.CanWithdraw || summary.DocumentsValidated || len(summary.MissingDocuments) != len(models.RequiredDocumentTypes) {
		t.Fatalf("summary before documents = %+v", summary)
	}

	f.approveAll(t, p.ID)
	if _, _, err := f.commissions.SetCommissionStatus(ctx, f.adminActor(), f.commissionOf(t, paidLead).ID, models.CommissionPaid); err != nil {
		t.Fatal(err)
	}

	summary, err = f.commissions.FundsSummary(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Paid != 1500000 || summary.Pending != 150000 || summary.Provisional != 300000 || summary.Total != 1650000 {
		t.Fatalf("amounts = %+v", summary)
	}
	if !summary.DocumentsValidated || !summary.CanWithdraw || len(summary.MissingDocuments) != 0 {
		t.Fatalf("eligibility = %+v", summary)
	}
	if !strings.HasPrefix(summary.WithdrawalURL, "https://wa.me/573001112222?text=") || !strings.Contains(summary.WithdrawalURL, "150000.00") {
		t.Fatalf("withdrawal url = %q", summary.WithdrawalURL)
	}
}

func TestAdminLeadsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)
	p2 := f.addPartner(t, "Beto", "BET-222222", models.RolePartner)
	f.newLead(t, p1, "3000000001", "Lote A")
	f.newLead(t, p2, "3000000002", "Lote A")

	if _, err := f.commissions.AdminLeads(ctx, Actor{ID: p1.ID, Role: models.RolePartner}, models.LeadFilter{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("partner err = %v", err)
	}

	all, err := f.commissions.AdminLeads(ctx, f.adminActor(), models.LeadFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("all = %d, %v", len(all), err)
	}
	byPhone, err := f.commissions.AdminLeads(ctx, f.adminActor(), models.LeadFilter{Phone: "300-000-0002"})
	if err != nil || len(byPhone) != 1 || byPhone[0].ReferrerID != p2.ID {
		t.Fatalf("by phone = %+v, %v", byPhone, err)
	}
	mine, err := f.commissions.PartnerLeads(ctx, p1.ID)
	if err != nil || len(mine) != 1 {
		t.Fatalf("partner leads = %d, %v", len(mine), err)
	}

	lead, err := f.commissions.ToggleLeadValidity(ctx, f.adminActor(), mine[0].ID)
	if err != nil || !lead.IsValid {
		t.Fatalf("toggle = %+v, %v", lead, err)
	}
}

func TestSetLeadStatusConcurrentUpsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)
	leadID := f.newLead(t, p, "3001234567", "Lote A")
	f.commissions.now = time.Now

	const workers = 50
	amounts := make(map[float64]bool, workers)
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		v := float64(100000000 + i*1000000)
		amounts[CommissionFor(v)] = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.commissions.SetLeadStatus(ctx, f.adminActor(), leadID, models.LeadReserved, value(v)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("SetLeadStatus: %v", err)
	}

	commissions, err := f.store.Commissions().List(ctx, models.CommissionFilter{PartnerID: &p.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(commissions) != 1 {
		t.Fatalf("got %d commissions, want 1", len(commissions))
	}
	if c := commissions[0]; c.LeadID != leadID || !amounts[c.Amount] {
		t.Fatalf("commission = %+v, amount not from a submitted value", c)
	}
}

// staleCommissions never sees an existing commission, like a reader that
// lost the race against a concurrent insert
type staleCommissions struct {
	*memory.Commissions
}

func (staleCommissions) FindByLeadID(context.Context, primitive.ObjectID) (*models.Commission, error) {
	return nil, repositories.ErrNotFound
}

func TestSetLeadStatusLostInsertUpdatesAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)
	leadID := f.newLead(t, p, "3001234567", "Lote A")

	manager := NewCommissionManager(f.store.Leads(), staleCommissions{f.store.Commissions()}, f.gate, f.auth, f.notifier)
	before := testutil.ToFloat64(commissionUpserts.WithLabelValues("race_updated"))

	if _, err := manager.SetLeadStatus(ctx, f.adminActor(), leadID, models.LeadReserved, value(100000000)); err != nil {
		t.Fatal(err)
	}
	if _, err := manager.SetLeadStatus(ctx, f.adminActor(), leadID, models.LeadReserved, value(200000000)); err != nil {
		t.Fatalf("lost insert surfaced: %v", err)
	}

	if c := f.commissionOf(t, leadID); c.Amount != 3000000 {
		t.Fatalf("amount = %v, want 3000000", c.Amount)
	}
	if got := testutil.ToFloat64(commissionUpserts.WithLabelValues("race_updated")) - before; got != 1 {
		t.Fatalf("race_updated delta = %v, want 1", got)
	}
	commissions, _ := f.store.Commissions().List(ctx, models.CommissionFilter{})
	if len(commissions) != 1 {
		t.Fatalf("got %d commissions, want 1", len(commissions))
	}
}
