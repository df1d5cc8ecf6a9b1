package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/repositories"
	"github.com/goodsco/referidos_backend/utils"
)

// DedupReport summarizes an offline dedup pass
type DedupReport struct {
	DryRun     bool `json:"dryRun"`
	Groups     int  `json:"groups"`
	Deleted    int  `json:"deleted"`
	Reassigned int  `json:"reassigned"`
	Skipped    int  `json:"skipped"`
}

// LeadDeduplicator merges leads that share a phone. It repairs data written
// before intake became owner-scoped and is run from the CLI.
type LeadDeduplicator struct {
	leads       LeadStore
	commissions CommissionStore
	claims      PhoneClaimStore
}

func NewLeadDeduplicator(leads LeadStore, commissions CommissionStore, claims PhoneClaimStore) *LeadDeduplicator {
	return &LeadDeduplicator{leads: leads, commissions: commissions, claims: claims}
}

// Run groups leads by phone and applies the intake rules to each group.
// The owner of the oldest lead keeps the phone. Leads of other partners are
// deleted unless they carry a commission, which is never moved across
// owners; those leads are kept and counted as skipped. The owner's leads are
// merged per catalog interest: the oldest stays, a duplicate's commission
// moves to it when it has none, and a duplicate whose commission cannot move
// is kept and counted as skipped.
func (d *LeadDeduplicator) Run(ctx context.Context, dryRun bool) (*DedupReport, error) {
	all, err := d.leads.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	groups := make(map[string][]models.Lead)
	var order []string
	for _, lead := range all {
		key := utils.PhoneKey(lead.Phone)
		if key == "" {
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], lead)
	}

	report := &DedupReport{DryRun: dryRun}
	for _, key := range order {
		if err := d.mergeGroup(ctx, key, groups[key], dryRun, report); err != nil {
			return report, err
		}
	}

	logger.Info().
		Bool("dryRun", dryRun).
		Int("groups", report.Groups).
		Int("deleted", report.Deleted).
		Int("reassigned", report.Reassigned).
		Int("skipped", report.Skipped).
		Msg("lead dedup finished")
	return report, nil
}

// mergeGroup expects the group oldest first
func (d *LeadDeduplicator) mergeGroup(ctx context.Context, phone string, group []models.Lead, dryRun bool, report *DedupReport) error {
	owner := group[0].ReferrerID
	byInterest := make(map[string][]models.Lead)
	var interests []string
	var foreign []models.Lead
	for _, lead := range group {
		if lead.ReferrerID != owner {
			foreign = append(foreign, lead)
			continue
		}
		if _, ok := byInterest[lead.Interest]; !ok {
			interests = append(interests, lead.Interest)
		}
		byInterest[lead.Interest] = append(byInterest[lead.Interest], lead)
	}

	duplicated := len(foreign) > 0
	for _, interest := range interests {
		if len(byInterest[interest]) > 1 {
			duplicated = true
		}
	}
	if !duplicated {
		return nil
	}
	report.Groups++

	for _, lead := range foreign {
		c, err := d.commissionOf(ctx, lead)
		if err != nil {
			return err
		}
		if c != nil {
			logger.Warn().
				Str("lead", lead.ID.Hex()).
				Str("owner", owner.Hex()).
				Str("referrer", lead.ReferrerID.Hex()).
				Msg("keeping lead of another partner: it carries a commission")
			report.Skipped++
			continue
		}
		if err := d.delete(ctx, lead, dryRun, report); err != nil {
			return err
		}
	}

	for _, interest := range interests {
		if err := d.mergeInterest(ctx, byInterest[interest], dryRun, report); err != nil {
			return err
		}
	}

	if dryRun || phone != utils.NormalizePhone(phone) {
		return nil
	}
	claimedBy, err := d.claims.Claim(ctx, phone, owner)
	if err != nil {
		return fmt.Errorf("claim phone: %w", err)
	}
	if claimedBy != owner {
		if err := d.claims.Reassign(ctx, phone, owner); err != nil {
			return fmt.Errorf("reassign phone claim: %w", err)
		}
	}
	return nil
}

// mergeInterest collapses one owner's leads for the same interest onto the
// oldest of them
func (d *LeadDeduplicator) mergeInterest(ctx context.Context, leads []models.Lead, dryRun bool, report *DedupReport) error {
	keep := leads[0]
	kept, err := d.commissionOf(ctx, keep)
	if err != nil {
		return err
	}
	for _, lead := range leads[1:] {
		c, err := d.commissionOf(ctx, lead)
		if err != nil {
			return err
		}
		if c != nil {
			if kept != nil {
				report.Skipped++
				continue
			}
			if !dryRun {
				if err := d.commissions.Reassign(ctx, c.ID, keep.ID, keep.ReferrerID); err != nil {
					return fmt.Errorf("reassign commission: %w", err)
				}
			}
			kept = c
			report.Reassigned++
		}
		if err := d.delete(ctx, lead, dryRun, report); err != nil {
			return err
		}
	}
	return nil
}

func (d *LeadDeduplicator) commissionOf(ctx context.Context, lead models.Lead) (*models.Commission, error) {
	c, err := d.commissions.FindByLeadID(ctx, lead.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find commission: %w", err)
	}
	return c, nil
}

func (d *LeadDeduplicator) delete(ctx context.Context, lead models.Lead, dryRun bool, report *DedupReport) error {
	if !dryRun {
		if err := d.leads.Delete(ctx, lead.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("delete lead: %w", err)
		}
	}
	report.Deleted++
	return nil
}
