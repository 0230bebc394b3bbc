package escalation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"medbot-ai/internal/contextutil"
)

// Event describes an emergency detection worth human attention.
type Event struct {
	QueryText  string    `json:"query_text"`
	Trigger    string    `json:"trigger"`
	DetectedAt time.Time `json:"detected_at"`
}

// Notifier delivers escalation events to a human channel. Implementations
// must not block the caller; the pipeline never waits for acknowledgment.
//
//go:generate mockgen -destination=mocks/mock_notifier.go -package=mocks medbot-ai/internal/escalation Notifier
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// WebhookNotifier posts events to a webhook URL in the background.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier. Delivery uses its own timeout so a
// hanging webhook cannot pile up goroutines indefinitely.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Notify posts the event and returns immediately. Delivery outlives the
// request context; failures are logged and dropped.
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) {
	logger := contextutil.LoggerFromContext(ctx)
	detached := context.WithoutCancel(ctx)

	go func() {
		body, err := json.Marshal(event)
		if err != nil {
			logger.ErrorContext(detached, "failed to marshal escalation event", "error", err)
			return
		}

		req, err := http.NewRequestWithContext(detached, "POST", n.url, bytes.NewBuffer(body))
		if err != nil {
			logger.ErrorContext(detached, "failed to create escalation request", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			logger.ErrorContext(detached, "escalation delivery failed", "trigger", event.Trigger, "error", err)
			return
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode >= 300 {
			logger.ErrorContext(detached, "escalation rejected", "trigger", event.Trigger, "status", resp.StatusCode)
			return
		}
		logger.InfoContext(detached, "escalation delivered", "trigger", event.Trigger)
	}()
}

// NoopNotifier drops events. Used when no escalation channel is configured;
// the emergency response itself is unaffected.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, event Event) {
	contextutil.LoggerFromContext(ctx).WarnContext(ctx, "emergency detected with no escalation channel configured", "trigger", event.Trigger)
}
