package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kelechianya/complypoint-backend/pkg/config"
	"github.com/kelechianya/complypoint-backend/pkg/db/models"
	"github.com/kelechianya/complypoint-backend/pkg/enums"
)

// InAppChannel persists the notification for the bell icon.
type InAppChannel struct {
	repo Repository
}

// NewInAppChannel builds the in-app persistence channel.
func NewInAppChannel(repo Repository) (*InAppChannel, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &InAppChannel{repo: repo}, nil
}

func (c *InAppChannel) Name() enums.NotificationChannel {
	return enums.ChannelInApp
}

func (c *InAppChannel) Deliver(ctx context.Context, delivery Delivery) error {
	return c.repo.Create(ctx, &models.Notification{
		UserID:       delivery.User.ID,
		Type:         delivery.Type,
		Title:        delivery.Title,
		Message:      delivery.Message,
		SubmissionID: delivery.SubmissionID,
	})
}

// httpChannel posts a JSON body to a provider endpoint with a bearer key.
type httpChannel struct {
	name     enums.NotificationChannel
	endpoint string
	apiKey   string
	client   *http.Client
	body     func(delivery Delivery) (any, bool)
}

func (c *httpChannel) Name() enums.NotificationChannel {
	return c.name
}

func (c *httpChannel) Deliver(ctx context.Context, delivery Delivery) error {
	if c.endpoint == "" {
		return ErrChannelNotConfigured
	}
	payload, ok := c.body(delivery)
	if !ok {
		return ErrChannelNotConfigured
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", c.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build %s request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver %s notification: %w", c.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s provider responded %d", c.name, resp.StatusCode)
	}
	return nil
}

// NewPushChannel delivers via the configured push provider.
func NewPushChannel(cfg config.NotifyConfig, client *http.Client) Channel {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpChannel{
		name:     enums.ChannelPush,
		endpoint: cfg.PushEndpoint,
		apiKey:   cfg.PushAPIKey,
		client:   client,
		body: func(delivery Delivery) (any, bool) {
			return map[string]any{
				"userId": delivery.User.ID.String(),
				"title":  delivery.Title,
				"body":   delivery.Message,
			}, true
		},
	}
}

// NewEmailChannel delivers via the configured transactional email provider.
func NewEmailChannel(cfg config.NotifyConfig, client *http.Client) Channel {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpChannel{
		name:     enums.ChannelEmail,
		endpoint: cfg.EmailEndpoint,
		apiKey:   cfg.EmailAPIKey,
		client:   client,
		body: func(delivery Delivery) (any, bool) {
			if delivery.User.Email == "" {
				return nil, false
			}
			return map[string]any{
				"from":    cfg.EmailFrom,
				"to":      delivery.User.Email,
				"subject": delivery.Title,
				"text":    delivery.Message,
			}, true
		},
	}
}

// NewSMSChannel delivers via the configured SMS provider. Users without a
// phone number are skipped.
func NewSMSChannel(cfg config.NotifyConfig, client *http.Client) Channel {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpChannel{
		name:     enums.ChannelSMS,
		endpoint: cfg.SMSEndpoint,
		apiKey:   cfg.SMSAPIKey,
		client:   client,
		body: func(delivery Delivery) (any, bool) {
			if delivery.User.Phone == nil || *delivery.User.Phone == "" {
				return nil, false
			}
			return map[string]any{
				"to":      *delivery.User.Phone,
				"message": delivery.Message,
			}, true
		},
	}
}

// WebhookChannel posts the notification to the user's registered webhook URL.
type WebhookChannel struct {
	client *http.Client
}

// NewWebhookChannel builds the per-user webhook channel.
func NewWebhookChannel(client *http.Client) *WebhookChannel {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookChannel{client: client}
}

func (c *WebhookChannel) Name() enums.NotificationChannel {
	return enums.ChannelWebhook
}

func (c *WebhookChannel) Deliver(ctx context.Context, delivery Delivery) error {
	if delivery.User.WebhookURL == nil || *delivery.User.WebhookURL == "" {
		return ErrChannelNotConfigured
	}

	body := map[string]any{
		"type":    delivery.Type,
		"title":   delivery.Title,
		"message": delivery.Message,
	}
	if delivery.SubmissionID != nil {
		body["submissionId"] = delivery.SubmissionID.String()
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *delivery.User.WebhookURL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
