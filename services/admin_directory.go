package services

import (
	"context"
	"fmt"

	"github.com/goodsco/referidos_backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminDirectory backs the admin panel listings of partners and commissions
type AdminDirectory struct {
	partners    PartnerStore
	leads       LeadStore
	commissions CommissionStore
	documents   DocumentStore
	auth        Authorizer
}

func NewAdminDirectory(partners PartnerStore, leads LeadStore, commissions CommissionStore, documents DocumentStore, auth Authorizer) *AdminDirectory {
	return &AdminDirectory{
		partners:    partners,
		leads:       leads,
		commissions: commissions,
		documents:   documents,
		auth:        auth,
	}
}

// Partners lists partners with the given role (PARTNER when empty), newest
// first, each with its lead count, the latest submission per document type
// and the derived eligibility
func (d *AdminDirectory) Partners(ctx context.Context, actor Actor, role models.Role) ([]models.PartnerOverview, error) {
	if err := requireAdmin(d.auth, actor); err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RolePartner
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	partners, err := d.partners.List(ctx, []models.Role{role})
	if err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	counts, err := d.leads.CountByReferrer(ctx)
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}

	out := make([]models.PartnerOverview, 0, len(partners))
	for _, p := range partners {
		docs, err := d.documents.ListByPartner(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		latest := latestByType(docs)
		current := []models.Document{}
		for _, t := range models.RequiredDocumentTypes {
			if doc := latest[t]; doc != nil {
				current = append(current, *doc)
			}
		}
		out = append(out, models.PartnerOverview{
			Partner:     p,
			LeadCount:   counts[p.ID],
			Documents:   current,
			Eligibility: DeriveEligibility(p.ID, docs),
		})
	}
	return out, nil
}

// Commissions lists commissions newest first with their lead and partner
func (d *AdminDirectory) Commissions(ctx context.Context, actor Actor, filter models.CommissionFilter) ([]models.CommissionView, error) {
	if err := requireAdmin(d.auth, actor); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown commission status %q", ErrInvalidInput, filter.Status)
	}

	commissions, err := d.commissions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}

	partners := make(map[primitive.ObjectID]*models.Partner)
	out := make([]models.CommissionView, 0, len(commissions))
	for _, c := range commissions {
		view := models.CommissionView{Commission: c}
		if lead, err := d.leads.FindByID(ctx, c.LeadID); err == nil {
			view.LeadName, view.LeadPhone = lead.Name, lead.Phone
		}
		p, seen := partners[c.PartnerID]
		if !seen {
			p, _ = d.partners.FindByID(ctx, c.PartnerID)
			partners[c.PartnerID] = p
		}
		if p != nil {
			view.PartnerName, view.PartnerEmail = p.Name, p.Email
		}
		out = append(out, view)
	}
	return out, nil
}
