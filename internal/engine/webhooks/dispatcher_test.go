package webhooks

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

func setupDispatcher(t *testing.T) (*Dispatcher, *repositories.WebhookRepository, *repositories.WebhookLogRepository) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE webhook_subscriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL,
		events TEXT NOT NULL DEFAULT '[]',
		secret TEXT,
		headers TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_by TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE webhook_logs (
		id TEXT PRIMARY KEY,
		webhook_id INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT,
		status TEXT NOT NULL,
		response TEXT,
		executed_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := repositories.NewWebhookRepository(db)
	logs := repositories.NewWebhookLogRepository(db)
	return NewDispatcher(repo, logs, 5*time.Second), repo, logs
}

func mustSubscribe(t *testing.T, d *Dispatcher, repo *repositories.WebhookRepository, sub *models.WebhookSubscription) *models.WebhookSubscription {
	t.Helper()
	sub.IsActive = true
	if err := repo.Create(sub); err != nil {
		t.Fatalf("Failed to create subscription: %v", err)
	}
	if err := d.Reload(); err != nil {
		t.Fatalf("Failed to reload dispatcher: %v", err)
	}
	return sub
}

type capturedRequest struct {
	body    []byte
	headers http.Header
}

func captureServer(t *testing.T, status int, captured *[]capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*captured = append(*captured, capturedRequest{body: body, headers: r.Header.Clone()})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// Scenario: a subscription on lead.created with a secret gets one signed
// POST; an unrelated event produces zero deliveries.
func TestFireEventSignedDelivery(t *testing.T) {
	d, repo, logs := setupDispatcher(t)

	var captured []capturedRequest
	srv := captureServer(t, http.StatusOK, &captured)

	mustSubscribe(t, d, repo, &models.WebhookSubscription{
		Name:   "crm sink",
		URL:    srv.URL,
		Events: []string{"lead.created"},
		Secret: "abc",
	})

	results := d.FireEvent(context.Background(), "lead.created", map[string]int{"id": 1})
	if len(results) != 1 {
		t.Fatalf("Expected 1 delivery, got %d", len(results))
	}
	if results[0].Status != models.DeliverySuccess {
		t.Errorf("Expected success, got %s (%s)", results[0].Status, results[0].Response)
	}
	if len(captured) != 1 {
		t.Fatalf("Expected 1 POST, got %d", len(captured))
	}

	// Signature is HMAC-SHA256 of the serialized envelope.
	sig := captured[0].headers.Get("X-Webhook-Signature")
	if sig != Sign("abc", captured[0].body) {
		t.Errorf("Signature mismatch: got %s", sig)
	}
	if captured[0].headers.Get("X-Webhook-Event") != "lead.created" {
		t.Errorf("Unexpected event header %q", captured[0].headers.Get("X-Webhook-Event"))
	}

	var envelope models.WebhookEnvelope
	if err := json.Unmarshal(captured[0].body, &envelope); err != nil {
		t.Fatalf("Envelope is not valid JSON: %v", err)
	}
	if envelope.Event != "lead.created" || envelope.Timestamp == 0 {
		t.Errorf("Malformed envelope: %+v", envelope)
	}

	// A different event name delivers nothing to this subscription.
	results = d.FireEvent(context.Background(), "lead.updated", map[string]int{"id": 1})
	if len(results) != 0 {
		t.Errorf("Expected 0 deliveries for unrelated event, got %d", len(results))
	}
	if len(captured) != 1 {
		t.Errorf("Expected no additional POSTs, got %d", len(captured))
	}

	entries, err := logs.Recent(10)
	if err != nil {
		t.Fatalf("Failed to read delivery log: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 log entry, got %d", len(entries))
	}
}

func TestFireEventWildcardSubscription(t *testing.T) {
	d, repo, _ := setupDispatcher(t)

	var captured []capturedRequest
	srv := captureServer(t, http.StatusOK, &captured)

	mustSubscribe(t, d, repo, &models.WebhookSubscription{
		URL:    srv.URL,
		Events: []string{models.EventWildcard},
	})

	for _, event := range []string{"lead.created", "lead.status_changed", "lead.tag_added"} {
		results := d.FireEvent(context.Background(), event, nil)
		if len(results) != 1 {
			t.Errorf("Event %s: expected 1 delivery, got %d", event, len(results))
		}
	}
	if len(captured) != 3 {
		t.Errorf("Expected 3 POSTs, got %d", len(captured))
	}
}

func TestFireEventNoSecretNoSignature(t *testing.T) {
	d, repo, _ := setupDispatcher(t)

	var captured []capturedRequest
	srv := captureServer(t, http.StatusOK, &captured)

	mustSubscribe(t, d, repo, &models.WebhookSubscription{
		URL:    srv.URL,
		Events: []string{"lead.created"},
	})

	d.FireEvent(context.Background(), "lead.created", nil)
	if len(captured) != 1 {
		t.Fatalf("Expected 1 POST, got %d", len(captured))
	}
	if _, ok := captured[0].headers["X-Webhook-Signature"]; ok {
		t.Error("Expected no signature header without a secret")
	}
}

func TestFireEventMergesCustomHeaders(t *testing.T) {
	d, repo, _ := setupDispatcher(t)

	var captured []capturedRequest
	srv := captureServer(t, http.StatusOK, &captured)

	mustSubscribe(t, d, repo, &models.WebhookSubscription{
		URL:     srv.URL,
		Events:  []string{"lead.created"},
		Headers: map[string]string{"X-Api-Key": "k-123"},
	})

	d.FireEvent(context.Background(), "lead.created", nil)
	if len(captured) != 1 {
		t.Fatalf("Expected 1 POST, got %d", len(captured))
	}
	if captured[0].headers.Get("X-Api-Key") != "k-123" {
		t.Errorf("Expected custom header, got %q", captured[0].headers.Get("X-Api-Key"))
	}
}

// One subscription's network failure never prevents delivery to the
// rest, and every attempt gets a log row.
func TestFireEventFailureIsolation(t *testing.T) {
	d, repo, logs := setupDispatcher(t)

	var captured []capturedRequest
	srv := captureServer(t, http.StatusOK, &captured)

	mustSubscribe(t, d, repo, &models.WebhookSubscription{
		URL:    "http://127.0.0.1:1/unreachable",
		Events: []string{"lead.created"},
	})
	mustSubscribe(t, d, repo, &models.WebhookSubscription{
		URL:    srv.URL,
		Events: []string{"lead.created"},
	})

	results := d.FireEvent(context.Background(), "lead.created", nil)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Status != models.DeliveryFailed {
		t.Errorf("Expected first delivery failed, got %s", results[0].Status)
	}
	if results[1].Status != models.DeliverySuccess {
		t.Errorf("Expected second delivery success, got %s", results[1].Status)
	}
	if len(captured) != 1 {
		t.Errorf("Expected healthy endpoint to receive 1 POST, got %d", len(captured))
	}

	entries, err := logs.Recent(10)
	if err != nil {
		t.Fatalf("Failed to read delivery log: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 log entries, got %d", len(entries))
	}
}

func TestFireEventNon2xxIsFailed(t *testing.T) {
	d, repo, _ := setupDispatcher(t)

	var captured []capturedRequest
	srv := captureServer(t, http.StatusInternalServerError, &captured)

	mustSubscribe(t, d, repo, &models.WebhookSubscription{
		URL:    srv.URL,
		Events: []string{"lead.created"},
	})

	results := d.FireEvent(context.Background(), "lead.created", nil)
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Status != models.DeliveryFailed {
		t.Errorf("Expected failed for HTTP 500, got %s", results[0].Status)
	}
	if results[0].Code != http.StatusInternalServerError {
		t.Errorf("Expected code 500, got %d", results[0].Code)
	}
}

func TestFireEventSkipsInactiveSubscription(t *testing.T) {
	d, repo, _ := setupDispatcher(t)

	var captured []capturedRequest
	srv := captureServer(t, http.StatusOK, &captured)

	sub := mustSubscribe(t, d, repo, &models.WebhookSubscription{
		URL:    srv.URL,
		Events: []string{"lead.created"},
	})

	if err := repo.SetActive(sub.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	if err := d.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	results := d.FireEvent(context.Background(), "lead.created", nil)
	if len(results) != 0 {
		t.Errorf("Expected 0 deliveries for paused subscription, got %d", len(results))
	}
}

func TestTestDelivery(t *testing.T) {
	d, repo, _ := setupDispatcher(t)

	var captured []capturedRequest
	srv := captureServer(t, http.StatusOK, &captured)

	sub := mustSubscribe(t, d, repo, &models.WebhookSubscription{
		URL:    srv.URL,
		Events: []string{"lead.created"},
		Secret: "abc",
	})

	result, err := d.TestDelivery(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("TestDelivery failed: %v", err)
	}
	if result.Status != models.DeliverySuccess {
		t.Errorf("Expected success, got %s", result.Status)
	}
	if len(captured) != 1 {
		t.Fatalf("Expected 1 POST, got %d", len(captured))
	}

	var envelope struct {
		Event string          `json:"event"`
		Data  map[string]bool `json:"data"`
	}
	if err := json.Unmarshal(captured[0].body, &envelope); err != nil {
		t.Fatalf("Envelope is not valid JSON: %v", err)
	}
	if envelope.Event != "test" || !envelope.Data["test"] {
		t.Errorf("Expected synthetic test envelope, got %s", captured[0].body)
	}

	if _, err := d.TestDelivery(context.Background(), 9999); err == nil {
		t.Error("Expected error for unknown subscription id")
	}
}
