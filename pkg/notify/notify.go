// Package notify delivers alert lifecycle events to configured channels.
// Delivery is fire-and-forget: failures are logged and never block or retry
// inline within a monitoring cycle. Message formatting beyond a plain JSON
// envelope is owned by the receiving channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/yunolab/connect_bridge/pkg/config"
)

// Event is the channel-agnostic alert payload.
type Event struct {
	PipelineID uint      `json:"pipeline_id"`
	AlertType  string    `json:"alert_type"`
	Severity   string    `json:"severity"`
	Message    string    `json:"message"`
	Resolved   bool      `json:"resolved"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Dispatcher sends alert transition events (newly created or newly resolved)
// to all configured channels.
type Dispatcher interface {
	Send(ctx context.Context, event Event)
}

// WebhookDispatcher posts events as JSON to each enabled webhook channel.
type WebhookDispatcher struct {
	channels []config.NotificationConfig
	client   *http.Client
}

// NewWebhookDispatcher builds a dispatcher over the enabled channels.
func NewWebhookDispatcher(channels []config.NotificationConfig) *WebhookDispatcher {
	enabled := make([]config.NotificationConfig, 0, len(channels))
	for _, ch := range channels {
		if ch.Enabled && ch.URL != "" {
			enabled = append(enabled, ch)
		}
	}
	return &WebhookDispatcher{
		channels: enabled,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers the event to every channel. Each delivery runs in its own
// goroutine; a slow or failing channel never blocks the caller.
func (d *WebhookDispatcher) Send(ctx context.Context, event Event) {
	if len(d.channels) == 0 {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Notify] encode event: %v", err)
		return
	}
	for _, ch := range d.channels {
		ch := ch
		go func() {
			req, err := http.NewRequest(http.MethodPost, ch.URL, bytes.NewReader(payload))
			if err != nil {
				log.Printf("[Notify] channel %s: build request: %v", ch.Name, err)
				return
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := d.client.Do(req)
			if err != nil {
				log.Printf("[Notify] channel %s: deliver: %v", ch.Name, err)
				return
			}
			resp.Body.Close()
			if resp.StatusCode >= 300 {
				log.Printf("[Notify] channel %s: status %d", ch.Name, resp.StatusCode)
			}
		}()
	}
}

// NopDispatcher discards all events. Used when no channels are configured
// and in tests that only care about side effects elsewhere.
type NopDispatcher struct{}

func (NopDispatcher) Send(ctx context.Context, event Event) {}
