package config

import (
	"context"
	"encoding/base64"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// InitMessaging builds an FCM client from the configured credentials. It
// returns (nil, nil) when no credentials are configured.
func InitMessaging(ctx context.Context, s *Settings) (*messaging.Client, error) {
	var opt option.ClientOption
	switch {
	case s.FirebaseCredentialsBase64 != "":
		decoded, err := base64.StdEncoding.DecodeString(s.FirebaseCredentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("decode firebase credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
	case s.FirebaseCredentialsFile != "":
		opt = option.WithCredentialsFile(s.FirebaseCredentialsFile)
	default:
		return nil, nil
	}

	var conf *firebase.Config
	if s.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: s.FirebaseProjectID}
	}
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase messaging: %w", err)
	}
	logger.Info().Msg("Firebase messaging initialized")
	return client, nil
}
