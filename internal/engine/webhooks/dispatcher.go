package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

// DeliveryResult reports one delivery attempt to one subscription.
type DeliveryResult struct {
	WebhookID int64  `json:"webhook_id"`
	Status    string `json:"status"` // success | failed
	Code      int    `json:"code,omitempty"`
	Response  string `json:"response,omitempty"`
}

// Dispatcher fans fired events out to matching subscriptions. Like the
// rule registry, it holds an atomic snapshot of active subscriptions
// that Reload replaces wholesale after any mutation.
type Dispatcher struct {
	repo     *repositories.WebhookRepository
	logs     *repositories.WebhookLogRepository
	client   *http.Client
	snapshot atomic.Pointer[[]*models.WebhookSubscription]
}

func NewDispatcher(repo *repositories.WebhookRepository, logs *repositories.WebhookLogRepository, deliveryTimeout time.Duration) *Dispatcher {
	d := &Dispatcher{
		repo:   repo,
		logs:   logs,
		client: &http.Client{Timeout: deliveryTimeout},
	}
	empty := []*models.WebhookSubscription{}
	d.snapshot.Store(&empty)
	return d
}

// Reload swaps in the current active subscription list from the store.
func (d *Dispatcher) Reload() error {
	subs, err := d.repo.ListActive()
	if err != nil {
		return err
	}
	if subs == nil {
		subs = []*models.WebhookSubscription{}
	}
	d.snapshot.Store(&subs)
	return nil
}

func (d *Dispatcher) Subscriptions() []*models.WebhookSubscription {
	return *d.snapshot.Load()
}

// FireEvent delivers to every active subscription whose event list
// contains the event name or the wildcard, in load order. A failed
// delivery is captured in its result and log entry; it never aborts the
// remaining deliveries.
func (d *Dispatcher) FireEvent(ctx context.Context, event string, payload interface{}) []DeliveryResult {
	var results []DeliveryResult
	for _, sub := range d.Subscriptions() {
		if !sub.Matches(event) {
			continue
		}
		results = append(results, d.deliver(ctx, sub, event, payload))
	}
	return results
}

// TestDelivery sends a synthetic payload to one subscription so an
// operator can verify its configuration. It loads the subscription
// straight from the store, so a paused subscription can be tested too.
func (d *Dispatcher) TestDelivery(ctx context.Context, id int64) (*DeliveryResult, error) {
	sub, err := d.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, fmt.Errorf("webhook %d not found", id)
	}

	result := d.deliver(ctx, sub, "test", map[string]bool{"test": true})
	return &result, nil
}

func (d *Dispatcher) deliver(ctx context.Context, sub *models.WebhookSubscription, event string, payload interface{}) DeliveryResult {
	envelope := models.WebhookEnvelope{
		Event:     event,
		Timestamp: time.Now().Unix(),
		Data:      payload,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return d.record(sub, event, nil, DeliveryResult{WebhookID: sub.ID, Status: models.DeliveryFailed, Response: err.Error()})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return d.record(sub, event, body, DeliveryResult{WebhookID: sub.ID, Status: models.DeliveryFailed, Response: err.Error()})
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", event)
	req.Header.Set("X-Webhook-Delivery", "evt_"+uuid.New().String())
	if sub.Secret != "" {
		req.Header.Set("X-Webhook-Signature", Sign(sub.Secret, body))
	}
	for key, val := range sub.Headers {
		req.Header.Set(key, val)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return d.record(sub, event, body, DeliveryResult{WebhookID: sub.ID, Status: models.DeliveryFailed, Response: err.Error()})
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	result := DeliveryResult{
		WebhookID: sub.ID,
		Code:      resp.StatusCode,
		Response:  resp.Status,
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Status = models.DeliverySuccess
	} else {
		result.Status = models.DeliveryFailed
	}

	return d.record(sub, event, body, result)
}

// record writes the delivery log row; a broken log sink never breaks
// delivery.
func (d *Dispatcher) record(sub *models.WebhookSubscription, event string, payload []byte, result DeliveryResult) DeliveryResult {
	entry := &models.WebhookLogEntry{
		WebhookID: sub.ID,
		EventType: event,
		Payload:   string(payload),
		Status:    result.Status,
		Response:  result.Response,
	}
	if err := d.logs.Append(entry); err != nil {
		log.Warn().Err(err).Int64("webhook_id", sub.ID).Msg("failed to write webhook log")
	}

	if result.Status == models.DeliveryFailed {
		log.Warn().Int64("webhook_id", sub.ID).Str("event", event).Str("response", result.Response).Msg("webhook delivery failed")
	} else {
		log.Debug().Int64("webhook_id", sub.ID).Str("event", event).Int("code", result.Code).Msg("webhook delivered")
	}

	return result
}
