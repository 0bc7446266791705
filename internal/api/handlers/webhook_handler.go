package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	apiContext "leadflow/internal/api/context"
	"leadflow/internal/engine/webhooks"
	"leadflow/internal/pkg/errors"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

// WebhookHandler is the management surface for webhook subscriptions.
// Mutations mirror the rule handler: store-first, then a full
// dispatcher reload.
type WebhookHandler struct {
	repo       *repositories.WebhookRepository
	dispatcher *webhooks.Dispatcher
}

func NewWebhookHandler(repo *repositories.WebhookRepository, dispatcher *webhooks.Dispatcher) *WebhookHandler {
	return &WebhookHandler{repo: repo, dispatcher: dispatcher}
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	// An absent secret is a valid configuration: deliveries go out
	// unsigned. Generation is opt-in via generate_secret.
	var req struct {
		models.WebhookSubscription
		GenerateSecret bool `json:"generate_secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	sub := req.WebhookSubscription
	if sub.URL == "" || len(sub.Events) == 0 {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "url and events are required", nil)
		return
	}
	if req.GenerateSecret && sub.Secret == "" {
		sub.Secret = "whsec_" + uuid.New().String()
	}
	sub.IsActive = true

	if err := h.repo.Create(&sub); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}

	if !h.reload(w) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sub)
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.repo.List()
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}
	if subs == nil {
		subs = []*models.WebhookSubscription{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(subs)
}

func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.loadSubscription(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sub)
}

func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.loadSubscription(w, r)
	if !ok {
		return
	}

	// Secret is a pointer so an explicit "" clears it (switching the
	// subscription to unsigned delivery) while an omitted field keeps
	// the current one.
	var req struct {
		Name    string            `json:"name"`
		URL     string            `json:"url"`
		Events  []string          `json:"events"`
		Secret  *string           `json:"secret"`
		Headers map[string]string `json:"headers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if req.Name != "" {
		sub.Name = req.Name
	}
	if req.URL != "" {
		sub.URL = req.URL
	}
	if len(req.Events) > 0 {
		sub.Events = req.Events
	}
	if req.Secret != nil {
		sub.Secret = *req.Secret
	}
	if req.Headers != nil {
		sub.Headers = req.Headers
	}

	if err := h.repo.Update(sub); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}

	if !h.reload(w) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sub)
}

func (h *WebhookHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.loadSubscription(w, r)
	if !ok {
		return
	}

	if err := h.repo.SetActive(sub.ID, !sub.IsActive); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}
	sub.IsActive = !sub.IsActive

	if !h.reload(w) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sub)
}

func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.loadSubscription(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(sub.ID); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}

	if !h.reload(w) {
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Test sends the synthetic {test:true} payload to one subscription and
// returns the delivery result.
func (h *WebhookHandler) Test(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.loadSubscription(w, r)
	if !ok {
		return
	}

	result, err := h.dispatcher.TestDelivery(r.Context(), sub.ID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *WebhookHandler) loadSubscription(w http.ResponseWriter, r *http.Request) (*models.WebhookSubscription, bool) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	id, err := strconv.ParseInt(params.ByName("webhook_id"), 10, 64)
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid webhook id", nil)
		return nil, false
	}

	sub, err := h.repo.GetByID(id)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return nil, false
	}
	if sub == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Webhook not found", nil)
		return nil, false
	}
	return sub, true
}

func (h *WebhookHandler) reload(w http.ResponseWriter) bool {
	if err := h.dispatcher.Reload(); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return false
	}
	return true
}
