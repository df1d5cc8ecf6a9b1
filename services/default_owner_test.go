package services

import (
	"context"
	"errors"
	"testing"

	"github.com/goodsco/referidos_backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStaticOwnerResolver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)

	byEmail := &StaticOwnerResolver{Partners: f.store.Partners(), Email: p.Email}
	if got, err := byEmail.DefaultOwner(ctx); err != nil || got == nil || got.ID != p.ID {
		t.Fatalf("by email = %+v, %v", got, err)
	}

	byID := &StaticOwnerResolver{Partners: f.store.Partners(), ID: p.ID}
	if got, err := byID.DefaultOwner(ctx); err != nil || got == nil || got.ID != p.ID {
		t.Fatalf("by id = %+v, %v", got, err)
	}

	missing := &StaticOwnerResolver{Partners: f.store.Partners(), ID: primitive.NewObjectID()}
	if got, err := missing.DefaultOwner(ctx); err != nil || got != nil {
		t.Fatalf("missing = %+v, %v, want nil owner", got, err)
	}

	unset := &StaticOwnerResolver{Partners: f.store.Partners()}
	if got, err := unset.DefaultOwner(ctx); err != nil || got != nil {
		t.Fatalf("unset = %+v, %v, want nil owner", got, err)
	}
}

func TestChainOwnerResolver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chain := ChainOwnerResolver{
		&StaticOwnerResolver{Partners: f.store.Partners(), Email: "nobody@example.com"},
		&EarliestAdminResolver{Partners: f.store.Partners()},
	}
	got, err := chain.DefaultOwner(ctx)
	if err != nil || got == nil || got.ID != f.admin.ID {
		t.Fatalf("chain = %+v, %v, want earliest admin", got, err)
	}

	boom := errors.New("boom")
	failing := ChainOwnerResolver{
		DefaultOwnerFunc(func(context.Context) (*models.Partner, error) { return nil, boom }),
		&EarliestAdminResolver{Partners: f.store.Partners()},
	}
	if _, err := failing.DefaultOwner(ctx); !errors.Is(err, boom) {
		t.Fatalf("failing chain err = %v", err)
	}
}

func TestEarliestAdminResolverPicksOldest(t *testing.T) {
	f := newFixture(t)
	f.addPartner(t, "Later", "ADM-000002", models.RoleAdmin)
	got, err := (&EarliestAdminResolver{Partners: f.store.Partners()}).DefaultOwner(context.Background())
	if err != nil || got.ID != f.admin.ID {
		t.Fatalf("earliest = %+v, %v", got, err)
	}

	none, err := (&EarliestAdminResolver{Partners: f.store.Partners(), Roles: []models.Role{models.RoleManager}}).DefaultOwner(context.Background())
	if err != nil || none != nil {
		t.Fatalf("no managers = %+v, %v", none, err)
	}
}

func TestCachedOwnerResolverWithoutRedis(t *testing.T) {
	f := newFixture(t)
	calls := 0
	r := &CachedOwnerResolver{
		Partners: f.store.Partners(),
		Next: DefaultOwnerFunc(func(ctx context.Context) (*models.Partner, error) {
			calls++
			return f.admin, nil
		}),
	}
	for i := 0; i < 2; i++ {
		got, err := r.DefaultOwner(context.Background())
		if err != nil || got.ID != f.admin.ID {
			t.Fatalf("owner = %+v, %v", got, err)
		}
	}
	if calls != 2 {
		t.Fatalf("next called %d times, want 2 without a cache", calls)
	}
}
