package services

import (
	"context"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/goodsco/referidos_backend/models"
)

// PushSender is the part of the FCM client used for notifications
type PushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushNotifier sends notifications to the partner's registered device
type PushNotifier struct {
	Partners PartnerStore
	Client   PushSender
}

func (n *PushNotifier) Notify(ctx context.Context, notification models.Notification) {
	partner, err := n.Partners.FindByID(ctx, notification.PartnerID)
	if err != nil || partner.FCMToken == "" {
		return
	}

	message := &messaging.Message{
		Token: partner.FCMToken,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Message,
		},
		Data: map[string]string{
			"type":      notification.Type,
			"partnerId": partner.ID.Hex(),
			"timestamp": notification.CreatedAt.Format(time.RFC3339),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: "referidos_fcm_channel",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: notification.Title,
						Body:  notification.Message,
					},
					Sound: "default",
				},
			},
		},
	}

	id, err := n.Client.Send(ctx, message)
	if err != nil {
		logger.Error().Err(err).Str("partner", partner.ID.Hex()).Msg("failed to send FCM notification")
		return
	}
	logger.Debug().Str("partner", partner.ID.Hex()).Str("message", id).Msg("FCM notification sent")
}
