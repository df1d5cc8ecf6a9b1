package services

import (
	"context"

	"github.com/goodsco/referidos_backend/models"
)

// Notifier delivers partner notifications. Delivery is best effort and
// never fails the operation that triggered it.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// NopNotifier drops every notification
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, models.Notification) {}

// MultiNotifier fans a notification out to every notifier
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n models.Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return NopNotifier{}
	}
	return n
}
