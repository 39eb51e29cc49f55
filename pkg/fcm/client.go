package fcm

import (
	"context"
	"errors"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/swifteats/swifteats-backend/pkg/config"
)

var errCredentialsRequired = errors.New("firebase credentials file is required")

// Sender pushes a notification to a single device token. Implemented by
// Client; notification dispatch treats a nil Sender as push disabled.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// Client wraps Firebase Cloud Messaging for device push delivery.
type Client struct {
	messenger *messaging.Client
}

// NewClient initializes the Firebase app and its messaging client.
func NewClient(ctx context.Context, cfg config.FirebaseConfig) (*Client, error) {
	credFile := strings.TrimSpace(cfg.CredentialsFile)
	if credFile == "" {
		return nil, errCredentialsRequired
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, option.WithCredentialsFile(credFile))
	if err != nil {
		return nil, err
	}
	messenger, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}
	return &Client{messenger: messenger}, nil
}

// Send delivers one push message. Callers treat failures as non-fatal; the
// in-app notification row is the source of truth.
func (c *Client) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	if c == nil || c.messenger == nil {
		return errors.New("fcm client not configured")
	}
	if strings.TrimSpace(token) == "" {
		return errors.New("device token is required")
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}
	_, err := c.messenger.Send(ctx, msg)
	return err
}
