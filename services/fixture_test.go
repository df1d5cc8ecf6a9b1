package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/repositories/memory"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// recordingNotifier keeps every notification it receives
type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, n := range r.sent {
		out[i] = n.Type
	}
	return out
}

type fixture struct {
	store       *memory.Store
	auth        *RoleAuthorizer
	notifier    *recordingNotifier
	gate        *DocumentGate
	commissions *CommissionManager
	intake      *LeadIntake
	admin       *models.Partner
	clock       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.NewStore(),
		auth:     NewRoleAuthorizer(),
		notifier: &recordingNotifier{},
		clock:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.admin = f.addPartner(t, "Admin", "ADM-000001", models.RoleAdmin)

	f.gate = NewDocumentGate(f.store.Documents(), f.store.Partners(), f.auth, f.notifier)
	f.gate.now = f.tick
	f.commissions = NewCommissionManager(f.store.Leads(), f.store.Commissions(), f.gate, f.auth, f.notifier)
	f.commissions.now = f.tick
	f.intake = NewLeadIntake(f.store.Partners(), f.store.Leads(), f.store.PhoneClaims(), f.store.Inbox(),
		&EarliestAdminResolver{Partners: f.store.Partners()}, f.auth, DedupOwnerScoped)
	f.intake.now = f.tick
	return f
}

// tick advances the fixture clock by one second per call
func (f *fixture) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fixture) addPartner(t *testing.T, name, code string, role models.Role) *models.Partner {
	t.Helper()
	p := &models.Partner{
		ID:           primitive.NewObjectID(),
		Name:         name,
		Email:        code + "@example.com",
		ReferralCode: code,
		Role:         role,
		Status:       models.PartnerPending,
		CreatedAt:    f.tick(),
	}
	if err := f.store.Partners().Create(context.Background(), p); err != nil {
		t.Fatalf("create partner: %v", err)
	}
	return p
}

func (f *fixture) adminActor() Actor {
	return Actor{ID: f.admin.ID, Role: models.RoleAdmin}
}

func (f *fixture) leadsByPhone(t *testing.T, phone string) []models.Lead {
	t.Helper()
	leads, err := f.store.Leads().FindByPhone(context.Background(), phone)
	if err != nil {
		t.Fatalf("find leads: %v", err)
	}
	return leads
}

func (f *fixture) partner(t *testing.T, id primitive.ObjectID) *models.Partner {
	t.Helper()
	p, err := f.store.Partners().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find partner: %v", err)
	}
	return p
}

// approveAll submits and approves every required document of the partner
func (f *fixture) approveAll(t *testing.T, partnerID primitive.ObjectID) {
	t.Helper()
	ctx := context.Background()
	for _, docType := range models.RequiredDocumentTypes {
		doc, err := f.gate.Submit(ctx, partnerID, docType, "https://files.example/"+string(docType))
		if err != nil {
			t.Fatalf("submit %s: %v", docType, err)
		}
		if _, err := f.gate.Review(ctx, f.adminActor(), doc.ID, models.DocumentApproved, ""); err != nil {
			t.Fatalf("approve %s: %v", docType, err)
		}
	}
}

func catalog(title string) *models.CatalogItemRef {
	return &models.CatalogItemRef{Title: title}
}
