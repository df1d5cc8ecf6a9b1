package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goodsco/referidos_backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSubmitMessagingDefaultOwnerIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := Submission{
		Channel:     models.ChannelMessaging,
		Phone:       "3001234567",
		CatalogItem: catalog("Lote A"),
	}

	first, err := f.intake.Submit(ctx, sub)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if first.Outcome != OutcomeCreated || !first.Accepted {
		t.Fatalf("first outcome = %+v, want created", first)
	}
	if first.OwnerID != f.admin.ID {
		t.Fatalf("owner = %s, want fallback admin %s", first.OwnerID.Hex(), f.admin.ID.Hex())
	}

	second, err := f.intake.Submit(ctx, sub)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if second.Outcome != OutcomeDuplicate || !second.Accepted || second.LeadID != first.LeadID {
		t.Fatalf("second outcome = %+v, want duplicate of %s", second, first.LeadID.Hex())
	}

	leads := f.leadsByPhone(t, "3001234567")
	if len(leads) != 1 {
		t.Fatalf("got %d leads, want 1", len(leads))
	}
	lead := leads[0]
	if lead.Status != models.LeadRegistered || lead.IsValid {
		t.Errorf("new lead status=%s valid=%v", lead.Status, lead.IsValid)
	}
	if lead.Name != "WhatsApp 3001234567" || lead.Email != "whatsapp+3001234567@lead.local" {
		t.Errorf("synthesized contact = %q %q", lead.Name, lead.Email)
	}
	if lead.ProjectInterest != "Lote A" {
		t.Errorf("project interest = %q", lead.ProjectInterest)
	}

	if inbox := f.store.InboxMessages(); len(inbox) != 2 {
		t.Errorf("inbox has %d messages, want 2", len(inbox))
	}
}

func TestSubmitRequiresPhone(t *testing.T) {
	f := newFixture(t)
	_, err := f.intake.Submit(context.Background(), Submission{Channel: models.ChannelMessaging, Phone: " -- "})
	if !errors.Is(err, ErrPhoneRequired) || !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrPhoneRequired", err)
	}
}

func TestSubmitOwnershipIsStable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)
	p2 := f.addPartner(t, "Beto", "BET-222222", models.RolePartner)

	res, err := f.intake.Submit(ctx, Submission{Channel: models.ChannelForm, Phone: "+57 300 555 0000", Name: "Cliente", Email: "c@example.com", ReferralCode: p1.ReferralCode, CatalogItem: catalog("Lote A")})
	if err != nil || res.Outcome != OutcomeCreated {
		t.Fatalf("first submit = %+v, %v", res, err)
	}

	for _, title := range []string{"Lote A", "Lote B"} {
		res, err := f.intake.Submit(ctx, Submission{Channel: models.ChannelMessaging, Phone: "573005550000", ReferralCode: p2.ReferralCode, CatalogItem: catalog(title)})
		if err != nil {
			t.Fatalf("submit by second partner: %v", err)
		}
		if res.Outcome != OutcomePhoneOwned || res.Accepted || res.OwnerID != p1.ID {
			t.Fatalf("second partner outcome = %+v, want phone owned by %s", res, p1.ID.Hex())
		}
	}

	leads := f.leadsByPhone(t, "573005550000")
	if len(leads) != 1 || leads[0].ReferrerID != p1.ID {
		t.Fatalf("leads = %+v, want one lead owned by first partner", leads)
	}
}

func TestSubmitSameOwnerInterestRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)

	submit := func(title string) IntakeResult {
		t.Helper()
		res, err := f.intake.Submit(ctx, Submission{Channel: models.ChannelMessaging, Phone: "3009998888", ReferralCode: p.ReferralCode, CatalogItem: catalog(title)})
		if err != nil {
			t.Fatalf("submit %q: %v", title, err)
		}
		return res
	}

	if res := submit("Lote A"); res.Outcome != OutcomeCreated {
		t.Fatalf("first = %s", res.Outcome)
	}
	if res := submit("lote a "); res.Outcome != OutcomeDuplicate {
		t.Fatalf("same interest, different case = %s, want duplicate", res.Outcome)
	}
	if res := submit("Lote B"); res.Outcome != OutcomeCreated {
		t.Fatalf("different interest = %s, want created", res.Outcome)
	}
	if n := len(f.leadsByPhone(t, "3009998888")); n != 2 {
		t.Fatalf("got %d leads, want 2", n)
	}
}

func TestSubmitCatalogIDOnlyInterests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)

	submit := func(id int) IntakeResult {
		t.Helper()
		item := &models.CatalogItemRef{ID: &id}
		res, err := f.intake.Submit(ctx, Submission{Channel: models.ChannelMessaging, Phone: "3007776666", ReferralCode: p.ReferralCode, CatalogItem: item})
		if err != nil {
			t.Fatalf("submit item %d: %v", id, err)
		}
		return res
	}

	if res := submit(1); res.Outcome != OutcomeCreated {
		t.Fatalf("item 1 = %s, want created", res.Outcome)
	}
	if res := submit(2); res.Outcome != OutcomeCreated {
		t.Fatalf("item 2 = %s, want created", res.Outcome)
	}
	if res := submit(1); res.Outcome != OutcomeDuplicate {
		t.Fatalf("item 1 again = %s, want duplicate", res.Outcome)
	}
	if n := len(f.leadsByPhone(t, "3007776666")); n != 2 {
		t.Fatalf("got %d leads, want 2", n)
	}
}

func TestInterestKey(t *testing.T) {
	seven := 7
	tests := []struct {
		name string
		item *models.CatalogItemRef
		want string
	}{
		{"nil", nil, ""},
		{"title wins", &models.CatalogItemRef{ID: &seven, Title: " Lote A ", Slug: "lote-b"}, "lote a"},
		{"slug before id", &models.CatalogItemRef{ID: &seven, Slug: "Lote-B"}, "lote-b"},
		{"bare id", &models.CatalogItemRef{ID: &seven}, "id:7"},
		{"empty", &models.CatalogItemRef{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.InterestKey(); got != tt.want {
				t.Errorf("InterestKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSubmitReferralCodeResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)

	t.Run("unknown explicit code on interactive channel", func(t *testing.T) {
		_, err := f.intake.Submit(ctx, Submission{Channel: models.ChannelForm, Phone: "3001110000", ReferralCode: "NOPE-000000", FallbackReferralCode: p.ReferralCode})
		if !errors.Is(err, ErrUnknownReferralCode) {
			t.Fatalf("err = %v, want ErrUnknownReferralCode", err)
		}
	})

	t.Run("interactive without any code", func(t *testing.T) {
		_, err := f.intake.Submit(ctx, Submission{Channel: models.ChannelForm, Phone: "3001110001"})
		if !errors.Is(err, ErrUnknownReferralCode) {
			t.Fatalf("err = %v, want ErrUnknownReferralCode", err)
		}
	})

	t.Run("fallback code from session", func(t *testing.T) {
		res, err := f.intake.Submit(ctx, Submission{Channel: models.ChannelMessaging, Phone: "3001110002", FallbackReferralCode: p.ReferralCode})
		if err != nil || res.OwnerID != p.ID {
			t.Fatalf("res = %+v, err = %v, want owner %s", res, err, p.ID.Hex())
		}
	})

	t.Run("unknown code on messaging falls back to default owner", func(t *testing.T) {
		res, err := f.intake.Submit(ctx, Submission{Channel: models.ChannelMessaging, Phone: "3001110003", ReferralCode: "NOPE-000000"})
		if err != nil || res.OwnerID != f.admin.ID {
			t.Fatalf("res = %+v, err = %v, want default owner", res, err)
		}
	})
}

func TestSubmitUnattributedIsRecordedOnly(t *testing.T) {
	f := newFixture(t)
	f.intake.defaultOwner = DefaultOwnerFunc(func(context.Context) (*models.Partner, error) { return nil, nil })

	res, err := f.intake.Submit(context.Background(), Submission{Channel: models.ChannelMessaging, Phone: "3002223333", DeliveryID: "d-1"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Outcome != OutcomeUnattributed || res.Accepted {
		t.Fatalf("outcome = %+v, want unattributed", res)
	}
	if n := len(f.leadsByPhone(t, "3002223333")); n != 0 {
		t.Fatalf("got %d leads, want none", n)
	}
	inbox := f.store.InboxMessages()
	if len(inbox) != 1 || inbox[0].DeliveryID != "d-1" || inbox[0].Outcome != string(OutcomeUnattributed) || inbox[0].ReferrerID != nil {
		t.Fatalf("inbox = %+v", inbox)
	}
}

func TestSubmitLegacyGlobalPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.intake.policy = DedupLegacyGlobal
	p1 := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)
	p2 := f.addPartner(t, "Beto", "BET-222222", models.RolePartner)

	first, err := f.intake.Submit(ctx, Submission{Channel: models.ChannelForm, Phone: "3004445555", Email: "Cliente@Example.com", Name: "Cliente", ReferralCode: p1.ReferralCode})
	if err != nil || first.Outcome != OutcomeCreated {
		t.Fatalf("first = %+v, %v", first, err)
	}

	// same email, different phone: the legacy rule treats it as registered
	res, err := f.intake.Submit(ctx, Submission{Channel: models.ChannelManual, Phone: "3007776666", Email: "cliente@example.com", Name: "Cliente", ReferralCode: p2.ReferralCode})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if res.Outcome != OutcomeDuplicate || !res.Accepted || res.LeadID != first.LeadID {
		t.Fatalf("second = %+v, want duplicate of first lead", res)
	}
	if n := len(f.leadsByPhone(t, "3007776666")); n != 0 {
		t.Fatalf("legacy duplicate created %d leads", n)
	}
}

func TestSubmitManualRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)
	sub := Submission{Phone: "3001231231", Name: "Cliente", ReferralCode: p.ReferralCode}

	if _, err := f.intake.SubmitManual(context.Background(), Actor{ID: p.ID, Role: models.RolePartner}, sub); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("partner err = %v, want ErrUnauthorized", err)
	}
	if n := len(f.leadsByPhone(t, "3001231231")); n != 0 {
		t.Fatalf("unauthorized call created %d leads", n)
	}

	res, err := f.intake.SubmitManual(context.Background(), f.adminActor(), sub)
	if err != nil || res.Outcome != OutcomeCreated {
		t.Fatalf("admin = %+v, %v", res, err)
	}
	lead := f.leadsByPhone(t, "3001231231")[0]
	if lead.Channel != models.ChannelManual || lead.ReferrerID != p.ID {
		t.Errorf("lead channel=%s owner=%s", lead.Channel, lead.ReferrerID.Hex())
	}
}

func TestSubmitConcurrentPartnersClaimOnce(t *testing.T) {
	f := newFixture(t)
	f.intake.now = time.Now
	ctx := context.Background()

	partners := make([]*models.Partner, 8)
	for i := range partners {
		partners[i] = f.addPartner(t, "Partner", "PAR-"+primitive.NewObjectID().Hex()[18:], models.RolePartner)
	}

	var wg sync.WaitGroup
	results := make([]IntakeResult, len(partners)*2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := partners[i%len(partners)]
			res, err := f.intake.Submit(ctx, Submission{Channel: models.ChannelMessaging, Phone: "3000000001", ReferralCode: p.ReferralCode, CatalogItem: catalog("Lote A")})
			if err != nil {
				t.Errorf("submit: %v", err)
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	leads := f.leadsByPhone(t, "3000000001")
	if len(leads) != 1 {
		t.Fatalf("got %d leads, want exactly 1", len(leads))
	}
	owner := leads[0].ReferrerID
	for _, res := range results {
		switch res.Outcome {
		case OutcomeCreated, OutcomeDuplicate:
			if res.OwnerID != owner {
				t.Errorf("accepted result for %s, owner is %s", res.OwnerID.Hex(), owner.Hex())
			}
		case OutcomePhoneOwned:
			if res.OwnerID != owner {
				t.Errorf("phone owned reported owner %s, want %s", res.OwnerID.Hex(), owner.Hex())
			}
		default:
			t.Errorf("unexpected outcome %s", res.Outcome)
		}
	}
}

func TestParseDedupPolicy(t *testing.T) {
	if ParseDedupPolicy(" LEGACY_GLOBAL ") != DedupLegacyGlobal {
		t.Error("legacy_global not parsed")
	}
	if ParseDedupPolicy("whatever") != DedupOwnerScoped {
		t.Error("unknown policy should default to owner_scoped")
	}
}
