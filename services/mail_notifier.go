package services

import (
	"context"
	"fmt"

	"github.com/goodsco/referidos_backend/models"
	"gopkg.in/gomail.v2"
)

// MailSender abstracts the SMTP dialer
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailNotifier emails notifications to the partner's address
type MailNotifier struct {
	Partners PartnerStore
	Sender   MailSender
	From     string
	// Types limits delivery to these notification types; empty sends all
	Types map[string]bool
}

// NewMailNotifier returns nil when SMTP is not configured
func NewMailNotifier(partners PartnerStore, host string, port int, user, pass, from string) *MailNotifier {
	if host == "" {
		return nil
	}
	if from == "" {
		from = user
	}
	return &MailNotifier{
		Partners: partners,
		Sender:   gomail.NewDialer(host, port, user, pass),
		From:     from,
		Types: map[string]bool{
			models.NotificationCommissionStatus: true,
			models.NotificationDocumentReviewed: true,
			models.NotificationPartnerStatus:    true,
		},
	}
}

func (n *MailNotifier) Notify(ctx context.Context, notification models.Notification) {
	if len(n.Types) > 0 && !n.Types[notification.Type] {
		return
	}
	partner, err := n.Partners.FindByID(ctx, notification.PartnerID)
	if err != nil {
		logger.Warn().Err(err).Str("partner", notification.PartnerID.Hex()).Msg("mail notification skipped")
		return
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.From)
	m.SetHeader("To", partner.Email)
	m.SetHeader("Subject", notification.Title)
	m.SetBody("text/plain", fmt.Sprintf("Hola %s,\n\n%s\n", partner.Name, notification.Message))
	if err := n.Sender.DialAndSend(m); err != nil {
		logger.Error().Err(err).Str("partner", partner.ID.Hex()).Msg("failed to send notification email")
	}
}
