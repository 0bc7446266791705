package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	apiContext "leadflow/internal/api/context"
	"leadflow/internal/engine/automation"
	"leadflow/internal/engine/webhooks"
	"leadflow/internal/pkg/errors"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

// Webhook event names raised by the lead surface.
const (
	EventLeadCreated       = "lead.created"
	EventLeadStatusChanged = "lead.status_changed"
	EventLeadTagAdded      = "lead.tag_added"
)

// LeadHandler is the record-mutating collaborator that feeds the engine:
// after each store write it evaluates matching rules synchronously and
// fans the event out to webhook subscribers. Engine failures are
// observed via the logs, never surfaced to the caller.
type LeadHandler struct {
	leads      *repositories.LeadRepository
	evaluator  *automation.Evaluator
	dispatcher *webhooks.Dispatcher
}

func NewLeadHandler(leads *repositories.LeadRepository, evaluator *automation.Evaluator, dispatcher *webhooks.Dispatcher) *LeadHandler {
	return &LeadHandler{leads: leads, evaluator: evaluator, dispatcher: dispatcher}
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var lead models.Lead
	if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if lead.Name == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Lead name is required", nil)
		return
	}

	if err := h.leads.Create(r.Context(), &lead); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}

	h.evaluator.EvaluateTrigger(r.Context(), models.TriggerLeadCreated, automation.Context{
		Event:  EventLeadCreated,
		LeadID: lead.ID,
		Source: lead.Source,
	})
	h.dispatcher.FireEvent(r.Context(), EventLeadCreated, lead)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(lead)
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.loadLead(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lead)
}

func (h *LeadHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.loadLead(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "status is required", nil)
		return
	}

	fromStatus := lead.Status
	if err := h.leads.UpdateStatus(r.Context(), lead.ID, req.Status); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}
	lead.Status = req.Status

	h.evaluator.EvaluateTrigger(r.Context(), models.TriggerStatusChange, automation.Context{
		Event:      EventLeadStatusChanged,
		LeadID:     lead.ID,
		FromStatus: fromStatus,
		ToStatus:   req.Status,
	})
	h.dispatcher.FireEvent(r.Context(), EventLeadStatusChanged, map[string]interface{}{
		"id":         lead.ID,
		"fromStatus": fromStatus,
		"toStatus":   req.Status,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lead)
}

func (h *LeadHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.loadLead(w, r)
	if !ok {
		return
	}

	var req struct {
		TagID int64 `json:"tagId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TagID == 0 {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "tagId is required", nil)
		return
	}

	if err := h.leads.AddTag(r.Context(), lead.ID, req.TagID); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}

	h.evaluator.EvaluateTrigger(r.Context(), models.TriggerTagAdded, automation.Context{
		Event:  EventLeadTagAdded,
		LeadID: lead.ID,
		TagID:  req.TagID,
	})
	h.dispatcher.FireEvent(r.Context(), EventLeadTagAdded, map[string]interface{}{
		"id":    lead.ID,
		"tagId": req.TagID,
	})

	w.WriteHeader(http.StatusOK)
}

func (h *LeadHandler) loadLead(w http.ResponseWriter, r *http.Request) (*models.Lead, bool) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	id, err := strconv.ParseInt(params.ByName("lead_id"), 10, 64)
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid lead id", nil)
		return nil, false
	}

	lead, err := h.leads.GetByID(r.Context(), id)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return nil, false
	}
	if lead == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Lead not found", nil)
		return nil, false
	}
	return lead, true
}
