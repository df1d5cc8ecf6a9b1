package services

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/goodsco/referidos_backend/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gopkg.in/gomail.v2"
)

type fakeMailSender struct {
	sent []*gomail.Message
	err  error
}

func (s *fakeMailSender) DialAndSend(m ...*gomail.Message) error {
	s.sent = append(s.sent, m...)
	return s.err
}

type fakePushSender struct {
	sent []*messaging.Message
}

func (s *fakePushSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	s.sent = append(s.sent, m)
	return "projects/test/messages/1", nil
}

func TestMailNotifierFiltersTypes(t *testing.T) {
	f := newFixture(t)
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)
	sender := &fakeMailSender{}
	n := NewMailNotifier(f.store.Partners(), "smtp.example.com", 587, "bot@example.com", "pw", "")
	n.Sender = sender

	ctx := context.Background()
	n.Notify(ctx, models.Notification{PartnerID: p.ID, Type: models.NotificationCommissionCreated, Title: "x"})
	n.Notify(ctx, models.Notification{PartnerID: p.ID, Type: models.NotificationDocumentReviewed, Title: "Revisión", Message: "aprobado"})

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
	m := sender.sent[0]
	if to := m.GetHeader("To"); len(to) != 1 || to[0] != p.Email {
		t.Errorf("to = %v", to)
	}
	if from := m.GetHeader("From"); len(from) != 1 || from[0] != "bot@example.com" {
		t.Errorf("from = %v", from)
	}

	// delivery failures are swallowed
	sender.err = errors.New("smtp down")
	n.Notify(ctx, models.Notification{PartnerID: p.ID, Type: models.NotificationPartnerStatus})

	if NewMailNotifier(f.store.Partners(), "", 0, "", "", "") != nil {
		t.Error("mail notifier without host should be nil")
	}
}

func TestPushNotifierRequiresToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)
	sender := &fakePushSender{}
	n := &PushNotifier{Partners: f.store.Partners(), Client: sender}

	note := models.Notification{PartnerID: p.ID, Type: models.NotificationCommissionStatus, Title: "Estado", Message: "PAID"}
	n.Notify(ctx, note)
	if len(sender.sent) != 0 {
		t.Fatal("push sent without a device token")
	}

	if err := f.store.Partners().SetFCMToken(ctx, p.ID, "device-1"); err != nil {
		t.Fatal(err)
	}
	n.Notify(ctx, note)
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d pushes, want 1", len(sender.sent))
	}
	m := sender.sent[0]
	if m.Token != "device-1" || m.Data["type"] != models.NotificationCommissionStatus || m.Notification.Body != "PAID" {
		t.Errorf("message = %+v", m)
	}
}

func TestMultiNotifierSkipsNil(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	multi := MultiNotifier{a, nil, NopNotifier{}, b}
	multi.Notify(context.Background(), models.Notification{Type: "t"})
	if len(a.types()) != 1 || len(b.types()) != 1 {
		t.Fatalf("fan out = %v %v", a.types(), b.types())
	}
}

func TestPayoutGateMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := RegisterMetrics(reg); err != nil {
		t.Fatal(err)
	}
	if err := RegisterMetrics(reg); err != nil {
		t.Fatalf("second registration: %v", err)
	}

	f := newFixture(t)
	ctx := context.Background()
	p := f.addPartner(t, "Ana", "ANA-111111", models.RolePartner)
	leadID := f.newLead(t, p, "3001234567", "Lote A")
	if _, err := f.commissions.SetLeadStatus(ctx, f.adminActor(), leadID, models.LeadReserved, value(1000)); err != nil {
		t.Fatal(err)
	}

	before := testutil.ToFloat64(payoutGateRejections)
	if _, _, err := f.commissions.SetCommissionStatus(ctx, f.adminActor(), f.commissionOf(t, leadID).ID, models.CommissionPaid); !errors.Is(err, ErrDocumentsNotApproved) {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(payoutGateRejections) - before; got != 1 {
		t.Fatalf("rejections delta = %v, want 1", got)
	}
}
