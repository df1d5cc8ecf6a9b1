package services

import (
	"context"
	"testing"
	"time"

	"github.com/goodsco/referidos_backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// legacyLead inserts a lead the way the old global intake stored them,
// bypassing owner-scoped dedup
func (f *fixture) legacyLead(t *testing.T, owner *models.Partner, phone, interest string) models.Lead {
	t.Helper()
	now := f.tick()
	lead := models.Lead{
		ID:         primitive.NewObjectID(),
		Name:       "Cliente",
		Phone:      phone,
		Interest:   interest,
		Status:     models.LeadRegistered,
		ReferrerID: owner.ID,
		Channel:    models.ChannelForm,
		DedupKey:   models.LeadDedupKey(phone, owner.ID, interest),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := f.store.Leads().Insert(context.Background(), &lead); err != nil {
		t.Fatalf("insert lead: %v", err)
	}
	return lead
}

func (f *fixture) legacyCommission(t *testing.T, lead models.Lead, amount float64) {
	t.Helper()
	c := &models.Commission{
		ID:        primitive.NewObjectID(),
		LeadID:    lead.ID,
		PartnerID: lead.ReferrerID,
		Amount:    amount,
		Status:    models.CommissionPending,
		CreatedAt: time.Now(),
	}
	if err := f.store.Commissions().Insert(context.Background(), c); err != nil {
		t.Fatalf("insert commission: %v", err)
	}
}

func TestLeadDeduplicatorRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)
	p2 := f.addPartner(t, "Beto", "BET-222222", models.RolePartner)

	// group A: p1 registered the phone first
	ownerLead := f.legacyLead(t, p1, "3001234567", "lote a")
	foreignPaid := f.legacyLead(t, p2, "300-123-4567", "lote b")
	f.legacyCommission(t, foreignPaid, 1500)
	otherInterest := f.legacyLead(t, p1, "(300) 123 4567", "lote c")
	f.legacyCommission(t, otherInterest, 900)
	sameInterest := f.legacyLead(t, p1, "300.123.4567", "lote a")

	// group B: a later partner without commission loses the phone
	keep := f.legacyLead(t, p2, "3110000000", "")
	foreign := f.legacyLead(t, p1, "311 000 0000", "lote z")

	// same owner, two interests: not duplicates
	for _, title := range []string{"Lote A", "Lote B"} {
		res, err := f.intake.Submit(ctx, Submission{Channel: models.ChannelMessaging, Phone: "3001112222", ReferralCode: p1.ReferralCode, CatalogItem: catalog(title)})
		if err != nil || res.Outcome != OutcomeCreated {
			t.Fatalf("submit %s = %+v, %v", title, res, err)
		}
	}

	// group D: the newer duplicate's commission moves to the oldest lead
	oldest := f.legacyLead(t, p2, "3205556666", "lote x")
	newer := f.legacyLead(t, p2, "320 555 6666", "lote x")
	f.legacyCommission(t, newer, 700)

	// the country code makes this a different key
	single := f.legacyLead(t, p1, "+57 300 123 4567", "")

	dedup := NewLeadDeduplicator(f.store.Leads(), f.store.Commissions(), f.store.PhoneClaims())
	dry, err := dedup.Run(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	want := DedupReport{DryRun: true, Groups: 3, Deleted: 3, Reassigned: 1, Skipped: 1}
	if *dry != want {
		t.Fatalf("dry run report = %+v, want %+v", *dry, want)
	}
	all, _ := f.store.Leads().ListAll(ctx)
	if len(all) != 11 {
		t.Fatalf("dry run changed data: %d leads", len(all))
	}

	report, err := dedup.Run(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	want.DryRun = false
	if *report != want {
		t.Fatalf("report = %+v, want %+v", *report, want)
	}

	remaining := map[primitive.ObjectID]bool{}
	all, _ = f.store.Leads().ListAll(ctx)
	for _, l := range all {
		remaining[l.ID] = true
	}
	for name, want := range map[string]struct {
		id   primitive.ObjectID
		kept bool
	}{
		"first owner lead":                  {ownerLead.ID, true},
		"other partner with commission":     {foreignPaid.ID, true},
		"first owner, other interest":       {otherInterest.ID, true},
		"first owner, same interest":        {sameInterest.ID, false},
		"group B first owner":               {keep.ID, true},
		"group B other partner":             {foreign.ID, false},
		"oldest of same owner and interest": {oldest.ID, true},
		"newer of same owner and interest":  {newer.ID, false},
		"single":                            {single.ID, true},
	} {
		if remaining[want.id] != want.kept {
			t.Errorf("%s: kept = %v, want %v", name, remaining[want.id], want.kept)
		}
	}
	if n := len(f.leadsByPhone(t, "3001112222")); n != 2 {
		t.Errorf("second-interest leads = %d, want 2", n)
	}

	moved := f.commissionOf(t, oldest.ID)
	if moved.PartnerID != p2.ID || moved.Amount != 700 {
		t.Errorf("moved commission = %+v", moved)
	}
	if c := f.commissionOf(t, foreignPaid.ID); c.PartnerID != p2.ID {
		t.Errorf("commission of the other partner moved to %s", c.PartnerID.Hex())
	}

	for phone, owner := range map[string]*models.Partner{"3001234567": p1, "3110000000": p2, "3205556666": p2} {
		got, err := f.store.PhoneClaims().Claim(ctx, phone, primitive.NewObjectID())
		if err != nil || got != owner.ID {
			t.Errorf("claim owner of %s = %s, %v, want %s", phone, got.Hex(), err, owner.ID.Hex())
		}
	}

	again, err := dedup.Run(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if *again != (DedupReport{Groups: 1, Skipped: 1}) {
		t.Errorf("second run = %+v, want only the kept commission holder", *again)
	}
}
