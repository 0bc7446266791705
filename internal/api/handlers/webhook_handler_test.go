package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	_ "github.com/mattn/go-sqlite3"
	apiContext "leadflow/internal/api/context"
	"leadflow/internal/engine/webhooks"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

func setupWebhookHandler(t *testing.T) (*WebhookHandler, *repositories.WebhookRepository) {
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
	dispatcher := webhooks.NewDispatcher(repo, logs, 5*time.Second)
	return NewWebhookHandler(repo, dispatcher), repo
}

func patchRequest(id int64, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPatch, "/api/v1/webhooks/"+strconv.FormatInt(id, 10), strings.NewReader(body))
	params := httprouter.Params{{Key: "webhook_id", Value: strconv.FormatInt(id, 10)}}
	return r.WithContext(context.WithValue(r.Context(), apiContext.Params, params))
}

// A subscription created without a secret stays unsigned; generation
// only happens when the caller asks for it.
func TestWebhookCreateWithoutSecretStaysUnsigned(t *testing.T) {
	h, repo := setupWebhookHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks",
		strings.NewReader(`{"url":"https://example.com/hook","events":["lead.created"]}`))
	h.Create(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created models.WebhookSubscription
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Response is not valid JSON: %v", err)
	}
	stored, err := repo.GetByID(created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Secret != "" {
		t.Errorf("Expected empty secret for an unsigned subscription, got %q", stored.Secret)
	}
}

func TestWebhookCreateGeneratesSecretOnRequest(t *testing.T) {
	h, repo := setupWebhookHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks",
		strings.NewReader(`{"url":"https://example.com/hook","events":["lead.created"],"generate_secret":true}`))
	h.Create(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created models.WebhookSubscription
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Response is not valid JSON: %v", err)
	}
	stored, err := repo.GetByID(created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !strings.HasPrefix(stored.Secret, "whsec_") {
		t.Errorf("Expected a generated whsec_ secret, got %q", stored.Secret)
	}
}

func TestWebhookUpdateClearsSecret(t *testing.T) {
	h, repo := setupWebhookHandler(t)

	sub := &models.WebhookSubscription{
		URL:      "https://example.com/hook",
		Events:   []string{"lead.created"},
		Secret:   "abc",
		IsActive: true,
	}
	if err := repo.Create(sub); err != nil {
		t.Fatalf("Failed to create subscription: %v", err)
	}

	// An omitted secret field keeps the current one.
	w := httptest.NewRecorder()
	h.Update(w, patchRequest(sub.ID, `{"name":"renamed"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	stored, err := repo.GetByID(sub.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Secret != "abc" {
		t.Errorf("Expected secret kept when omitted, got %q", stored.Secret)
	}

	// An explicit empty secret switches the subscription to unsigned.
	w = httptest.NewRecorder()
	h.Update(w, patchRequest(sub.ID, `{"secret":""}`))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	stored, err = repo.GetByID(sub.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Secret != "" {
		t.Errorf("Expected secret cleared by explicit empty value, got %q", stored.Secret)
	}
}
