package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"leadflow/internal/pkg/errors"
	"leadflow/internal/platform/repositories"
)

// LogHandler exposes the read-only audit surfaces: recent entries and
// 30-day stats for both the execution log and the delivery log.
type LogHandler struct {
	execLogs    *repositories.ExecutionLogRepository
	webhookLogs *repositories.WebhookLogRepository
}

func NewLogHandler(execLogs *repositories.ExecutionLogRepository, webhookLogs *repositories.WebhookLogRepository) *LogHandler {
	return &LogHandler{execLogs: execLogs, webhookLogs: webhookLogs}
}

func (h *LogHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.execLogs.Recent(parseLimit(r))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (h *LogHandler) ExecutionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.execLogs.Stats()
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (h *LogHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.webhookLogs.Recent(parseLimit(r))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (h *LogHandler) DeliveryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.webhookLogs.Stats()
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, err.Error(), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func parseLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}
