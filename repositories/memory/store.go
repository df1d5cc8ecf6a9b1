// Package memory is an in-process implementation of the repositories. It
// enforces the same unique constraints as the MongoDB indexes and backs the
// tests and the STORE_BACKEND=memory development mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds every collection behind one mutex
type Store struct {
	mu          sync.Mutex
	partners    map[primitive.ObjectID]models.Partner
	leads       map[primitive.ObjectID]models.Lead
	claims      map[string]models.PhoneClaim
	commissions map[primitive.ObjectID]models.Commission
	documents   map[primitive.ObjectID]models.Document
	discounts   map[primitive.ObjectID]models.Discount
	inbox       []models.InboxMessage
}

func NewStore() *Store {
	return &Store{
		partners:    make(map[primitive.ObjectID]models.Partner),
		leads:       make(map[primitive.ObjectID]models.Lead),
		claims:      make(map[string]models.PhoneClaim),
		commissions: make(map[primitive.ObjectID]models.Commission),
		documents:   make(map[primitive.ObjectID]models.Document),
		discounts:   make(map[primitive.ObjectID]models.Discount),
	}
}

// Partners returns the partner store view
func (s *Store) Partners() *Partners { return &Partners{s} }

// Leads returns the lead store view
func (s *Store) Leads() *Leads { return &Leads{s} }

// PhoneClaims returns the phone claim store view
func (s *Store) PhoneClaims() *PhoneClaims { return &PhoneClaims{s} }

// Commissions returns the commission store view
func (s *Store) Commissions() *Commissions { return &Commissions{s} }

// Documents returns the document store view
func (s *Store) Documents() *Documents { return &Documents{s} }

// Inbox returns the inbox store view
func (s *Store) Inbox() *Inbox { return &Inbox{s} }

// Discounts returns the discount store view
func (s *Store) Discounts() *Discounts { return &Discounts{s} }

// InboxMessages returns a copy of the raw inbox log
func (s *Store) InboxMessages() []models.InboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.InboxMessage(nil), s.inbox...)
}

type Partners struct{ s *Store }

func (p *Partners) Create(ctx context.Context, partner *models.Partner) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for _, existing := range p.s.partners {
		if existing.Email == partner.Email || existing.ReferralCode == partner.ReferralCode {
			return repositories.ErrDuplicateKey
		}
	}
	if partner.ID.IsZero() {
		partner.ID = primitive.NewObjectID()
	}
	if partner.CreatedAt.IsZero() {
		partner.CreatedAt = time.Now()
	}
	p.s.partners[partner.ID] = *partner
	return nil
}

func (p *Partners) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Partner, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	partner, ok := p.s.partners[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &partner, nil
}

func (p *Partners) FindByEmail(ctx context.Context, email string) (*models.Partner, error) {
	return p.findFirst(func(m models.Partner) bool { return m.Email == email })
}

func (p *Partners) FindByReferralCode(ctx context.Context, code string) (*models.Partner, error) {
	return p.findFirst(func(m models.Partner) bool { return m.ReferralCode == code })
}

func (p *Partners) FindEarliestWithRole(ctx context.Context, roles []models.Role) (*models.Partner, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	var found *models.Partner
	for _, m := range p.s.partners {
		m := m
		if !hasRole(roles, m.Role) {
			continue
		}
		if found == nil || m.CreatedAt.Before(found.CreatedAt) ||
			(m.CreatedAt.Equal(found.CreatedAt) && m.ID.Hex() < found.ID.Hex()) {
			found = &m
		}
	}
	if found == nil {
		return nil, repositories.ErrNotFound
	}
	return found, nil
}

func (p *Partners) SetStatus(ctx context.Context, id primitive.ObjectID, status models.PartnerStatus, reason string) (*models.Partner, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	partner, ok := p.s.partners[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	partner.Status = status
	partner.BlockingReason = reason
	partner.UpdatedAt = time.Now()
	p.s.partners[id] = partner
	return &partner, nil
}

func (p *Partners) SetDerivedStatus(ctx context.Context, id primitive.ObjectID, status models.PartnerStatus) (*models.Partner, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	partner, ok := p.s.partners[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if !partner.Status.IsOverride() {
		partner.Status = status
		partner.UpdatedAt = time.Now()
		p.s.partners[id] = partner
	}
	return &partner, nil
}

func (p *Partners) SetFCMToken(ctx context.Context, id primitive.ObjectID, token string) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	partner, ok := p.s.partners[id]
	if !ok {
		return repositories.ErrNotFound
	}
	partner.FCMToken = token
	p.s.partners[id] = partner
	return nil
}

func (p *Partners) List(ctx context.Context, roles []models.Role) ([]models.Partner, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	out := []models.Partner{}
	for _, m := range p.s.partners {
		if len(roles) == 0 || hasRole(roles, m.Role) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (p *Partners) findFirst(match func(models.Partner) bool) (*models.Partner, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for _, m := range p.s.partners {
		if match(m) {
			m := m
			return &m, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type Leads struct{ s *Store }

func (l *Leads) Insert(ctx context.Context, lead *models.Lead) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	for _, existing := range l.s.leads {
		if existing.DedupKey == lead.DedupKey {
			return repositories.ErrDuplicateKey
		}
	}
	if lead.ID.IsZero() {
		lead.ID = primitive.NewObjectID()
	}
	l.s.leads[lead.ID] = *lead
	return nil
}

func (l *Leads) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Lead, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	lead, ok := l.s.leads[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &lead, nil
}

func (l *Leads) FindByPhone(ctx context.Context, phone string) ([]models.Lead, error) {
	return l.list(func(m models.Lead) bool { return m.Phone == phone }, true), nil
}

func (l *Leads) FindByContact(ctx context.Context, phones []string, emails []string) (*models.Lead, error) {
	match := func(m models.Lead) bool {
		for _, p := range phones {
			if p != "" && (m.Phone == p || m.RawPhone == p) {
				return true
			}
		}
		for _, e := range emails {
			if e != "" && m.Email == e {
				return true
			}
		}
		return false
	}
	found := l.list(match, true)
	if len(found) == 0 {
		return nil, repositories.ErrNotFound
	}
	return &found[0], nil
}

func (l *Leads) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.LeadStatus, value *float64) (*models.Lead, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	lead, ok := l.s.leads[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	lead.Status = status
	if value != nil {
		v := *value
		lead.TransactionValue = &v
	}
	lead.UpdatedAt = time.Now()
	l.s.leads[id] = lead
	return &lead, nil
}

func (l *Leads) ToggleValidity(ctx context.Context, id primitive.ObjectID) (*models.Lead, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	lead, ok := l.s.leads[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	lead.IsValid = !lead.IsValid
	lead.UpdatedAt = time.Now()
	l.s.leads[id] = lead
	return &lead, nil
}

func (l *Leads) ListByReferrer(ctx context.Context, referrerID primitive.ObjectID) ([]models.Lead, error) {
	return l.list(func(m models.Lead) bool { return m.ReferrerID == referrerID }, false), nil
}

func (l *Leads) List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, error) {
	return l.list(func(m models.Lead) bool {
		if filter.ReferrerID != nil && m.ReferrerID != *filter.ReferrerID {
			return false
		}
		if filter.Status != "" && m.Status != filter.Status {
			return false
		}
		if filter.Phone != "" && m.Phone != filter.Phone {
			return false
		}
		return true
	}, false), nil
}

func (l *Leads) ListAll(ctx context.Context) ([]models.Lead, error) {
	return l.list(func(models.Lead) bool { return true }, true), nil
}

func (l *Leads) CountByReferrer(ctx context.Context) (map[primitive.ObjectID]int, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	counts := make(map[primitive.ObjectID]int)
	for _, m := range l.s.leads {
		counts[m.ReferrerID]++
	}
	return counts, nil
}

func (l *Leads) Delete(ctx context.Context, id primitive.ObjectID) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if _, ok := l.s.leads[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(l.s.leads, id)
	return nil
}

func (l *Leads) list(match func(models.Lead) bool, oldestFirst bool) []models.Lead {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	out := []models.Lead{}
	for _, m := range l.s.leads {
		if match(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			if oldestFirst {
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		if oldestFirst {
			return out[i].ID.Hex() < out[j].ID.Hex()
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out
}

type PhoneClaims struct{ s *Store }

func (c *PhoneClaims) Claim(ctx context.Context, phone string, partnerID primitive.ObjectID) (primitive.ObjectID, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if claim, ok := c.s.claims[phone]; ok {
		return claim.PartnerID, nil
	}
	c.s.claims[phone] = models.PhoneClaim{Phone: phone, PartnerID: partnerID, ClaimedAt: time.Now()}
	return partnerID, nil
}

func (c *PhoneClaims) Reassign(ctx context.Context, phone string, partnerID primitive.ObjectID) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if claim, ok := c.s.claims[phone]; ok {
		claim.PartnerID = partnerID
		c.s.claims[phone] = claim
	}
	return nil
}

type Commissions struct{ s *Store }

func (c *Commissions) Insert(ctx context.Context, commission *models.Commission) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, existing := range c.s.commissions {
		if existing.LeadID == commission.LeadID {
			return repositories.ErrDuplicateKey
		}
	}
	if commission.ID.IsZero() {
		commission.ID = primitive.NewObjectID()
	}
	c.s.commissions[commission.ID] = *commission
	return nil
}

func (c *Commissions) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	commission, ok := c.s.commissions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &commission, nil
}

func (c *Commissions) FindByLeadID(ctx context.Context, leadID primitive.ObjectID) (*models.Commission, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, commission := range c.s.commissions {
		if commission.LeadID == leadID {
			return &commission, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (c *Commissions) UpdateAmount(ctx context.Context, leadID primitive.ObjectID, amount float64) (*models.Commission, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for id, commission := range c.s.commissions {
		if commission.LeadID == leadID {
			commission.Amount = amount
			commission.UpdatedAt = time.Now()
			c.s.commissions[id] = commission
			return &commission, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (c *Commissions) CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, from, to models.CommissionStatus) (*models.Commission, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	commission, ok := c.s.commissions[id]
	if !ok || commission.Status != from {
		return nil, repositories.ErrNotFound
	}
	now := time.Now()
	commission.Status = to
	commission.UpdatedAt = now
	if to == models.CommissionPaid {
		commission.PaidAt = &now
	}
	c.s.commissions[id] = commission
	return &commission, nil
}

func (c *Commissions) Reassign(ctx context.Context, id, leadID, partnerID primitive.ObjectID) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	commission, ok := c.s.commissions[id]
	if !ok {
		return repositories.ErrNotFound
	}
	for otherID, other := range c.s.commissions {
		if otherID != id && other.LeadID == leadID {
			return repositories.ErrDuplicateKey
		}
	}
	commission.LeadID = leadID
	commission.PartnerID = partnerID
	c.s.commissions[id] = commission
	return nil
}

func (c *Commissions) ListByPartner(ctx context.Context, partnerID primitive.ObjectID) ([]models.Commission, error) {
	return c.List(ctx, models.CommissionFilter{PartnerID: &partnerID})
}

func (c *Commissions) List(ctx context.Context, filter models.CommissionFilter) ([]models.Commission, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := []models.Commission{}
	for _, commission := range c.s.commissions {
		if filter.PartnerID != nil && commission.PartnerID != *filter.PartnerID {
			continue
		}
		if filter.Status != "" && commission.Status != filter.Status {
			continue
		}
		out = append(out, commission)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

type Documents struct{ s *Store }

func (d *Documents) Insert(ctx context.Context, doc *models.Document) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if doc.Open {
		for _, existing := range d.s.documents {
			if existing.Open && existing.PartnerID == doc.PartnerID && existing.Type == doc.Type {
				return repositories.ErrDuplicateKey
			}
		}
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	d.s.documents[doc.ID] = *doc
	return nil
}

func (d *Documents) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Document, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	doc, ok := d.s.documents[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &doc, nil
}

func (d *Documents) ListByPartner(ctx context.Context, partnerID primitive.ObjectID) ([]models.Document, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	out := []models.Document{}
	for _, doc := range d.s.documents {
		if doc.PartnerID == partnerID {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (d *Documents) Review(ctx context.Context, id primitive.ObjectID, status models.DocumentStatus, feedback string, reviewer primitive.ObjectID) (*models.Document, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	doc, ok := d.s.documents[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	open := status != models.DocumentRejected
	if open && !doc.Open {
		for otherID, other := range d.s.documents {
			if otherID != id && other.Open && other.PartnerID == doc.PartnerID && other.Type == doc.Type {
				return nil, repositories.ErrDuplicateKey
			}
		}
	}
	now := time.Now()
	doc.Status = status
	doc.Feedback = feedback
	doc.Open = open
	doc.ReviewerID = &reviewer
	doc.ReviewedAt = &now
	d.s.documents[id] = doc
	return &doc, nil
}

type Inbox struct{ s *Store }

func (i *Inbox) Append(ctx context.Context, msg *models.InboxMessage) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	i.s.inbox = append(i.s.inbox, *msg)
	return nil
}

type Discounts struct{ s *Store }

func (d *Discounts) Insert(ctx context.Context, discount *models.Discount) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if discount.ID.IsZero() {
		discount.ID = primitive.NewObjectID()
	}
	d.s.discounts[discount.ID] = *discount
	return nil
}

func (d *Discounts) List(ctx context.Context, activeOnly bool) ([]models.Discount, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	out := []models.Discount{}
	for _, discount := range d.s.discounts {
		if !activeOnly || discount.IsActive {
			out = append(out, discount)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (d *Discounts) SetActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.Discount, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	discount, ok := d.s.discounts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	discount.IsActive = active
	discount.UpdatedAt = time.Now()
	d.s.discounts[id] = discount
	return &discount, nil
}

func hasRole(roles []models.Role, role models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
