package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	apiContext "leadflow/internal/api/context"
	"leadflow/internal/engine/automation"
	"leadflow/internal/pkg/errors"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

// RuleHandler is the management surface for automation rules. Every
// mutation goes store-first, then reloads the registry and the
// time-trigger schedule so the engine always runs the stored truth.
type RuleHandler struct {
	repo      *repositories.RuleRepository
	registry  *automation.Registry
	scheduler *automation.Scheduler
	evaluator *automation.Evaluator
}

func NewRuleHandler(repo *repositories.RuleRepository, registry *automation.Registry, scheduler *automation.Scheduler, evaluator *automation.Evaluator) *RuleHandler {
	return &RuleHandler{repo: repo, registry: registry, scheduler: scheduler, evaluator: evaluator}
}

func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rule models.AutomationRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if rule.Name == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Rule name is required", nil)
		return
	}
	if err := rule.Validate(); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}
	rule.IsActive = true

	if err := h.repo.Create(&rule); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}

	if !h.reloadEngine(w) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rule)
}

func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.repo.List()
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}
	if rules == nil {
		rules = []*models.AutomationRule{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rules)
}

func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.loadRule(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rule)
}

func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.loadRule(w, r)
	if !ok {
		return
	}

	var req models.AutomationRule
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if req.Name != "" {
		rule.Name = req.Name
	}
	if req.Description != "" {
		rule.Description = req.Description
	}
	if req.TriggerType != "" {
		rule.TriggerType = req.TriggerType
		rule.TriggerConfig = req.TriggerConfig
	}
	if req.ActionType != "" {
		rule.ActionType = req.ActionType
		rule.ActionConfig = req.ActionConfig
	}

	if err := rule.Validate(); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	if err := h.repo.Update(rule); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}

	if !h.reloadEngine(w) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rule)
}

func (h *RuleHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.loadRule(w, r)
	if !ok {
		return
	}

	if err := h.repo.SetActive(rule.ID, !rule.IsActive); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}
	rule.IsActive = !rule.IsActive

	if !h.reloadEngine(w) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rule)
}

func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.loadRule(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(rule.ID); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}

	if !h.reloadEngine(w) {
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Run executes one rule immediately against a caller-supplied context.
// This is the operator "test this rule" affordance; the attempt is
// logged like any other execution.
func (h *RuleHandler) Run(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.loadRule(w, r)
	if !ok {
		return
	}

	if rule.TriggerType == models.TriggerTimeBased {
		h.scheduler.RunNow(rule)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	var ev automation.Context
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	ev.Event = rule.TriggerType

	h.evaluator.RunRule(r.Context(), rule, ev)
	w.WriteHeader(http.StatusAccepted)
}

func (h *RuleHandler) loadRule(w http.ResponseWriter, r *http.Request) (*models.AutomationRule, bool) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	id, err := strconv.ParseInt(params.ByName("rule_id"), 10, 64)
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid rule id", nil)
		return nil, false
	}

	rule, err := h.repo.GetByID(id)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return nil, false
	}
	if rule == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Rule not found", nil)
		return nil, false
	}
	return rule, true
}

func (h *RuleHandler) reloadEngine(w http.ResponseWriter) bool {
	if err := h.registry.Reload(); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return false
	}
	if err := h.scheduler.Reload(); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return false
	}
	return true
}
