package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "leadflow/internal/api/context"
	"leadflow/internal/api/handlers"
)

type Dependencies struct {
	LeadHandler    *handlers.LeadHandler
	RuleHandler    *handlers.RuleHandler
	WebhookHandler *handlers.WebhookHandler
	LogHandler     *handlers.LogHandler
	HealthHandler  *handlers.HealthHandler
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.GET("/health", wrap(deps.HealthHandler.Check))

	// Leads: the record mutations that raise engine events
	router.POST("/api/v1/leads", wrap(deps.LeadHandler.Create))
	router.GET("/api/v1/leads/:lead_id", wrap(deps.LeadHandler.Get))
	router.PATCH("/api/v1/leads/:lead_id/status", wrap(deps.LeadHandler.UpdateStatus))
	router.POST("/api/v1/leads/:lead_id/tags", wrap(deps.LeadHandler.AddTag))

	// Automation rule management
	router.POST("/api/v1/automation/rules", wrap(deps.RuleHandler.Create))
	router.GET("/api/v1/automation/rules", wrap(deps.RuleHandler.List))
	router.GET("/api/v1/automation/rules/:rule_id", wrap(deps.RuleHandler.Get))
	router.PATCH("/api/v1/automation/rules/:rule_id", wrap(deps.RuleHandler.Update))
	router.POST("/api/v1/automation/rules/:rule_id/toggle", wrap(deps.RuleHandler.Toggle))
	router.POST("/api/v1/automation/rules/:rule_id/run", wrap(deps.RuleHandler.Run))
	router.DELETE("/api/v1/automation/rules/:rule_id", wrap(deps.RuleHandler.Delete))
	router.GET("/api/v1/automation/logs", wrap(deps.LogHandler.ListExecutions))
	router.GET("/api/v1/automation/stats", wrap(deps.LogHandler.ExecutionStats))

	// Webhook subscription management
	router.POST("/api/v1/webhooks", wrap(deps.WebhookHandler.Create))
	router.GET("/api/v1/webhooks", wrap(deps.WebhookHandler.List))
	router.GET("/api/v1/webhooks/:webhook_id", wrap(deps.WebhookHandler.Get))
	router.PATCH("/api/v1/webhooks/:webhook_id", wrap(deps.WebhookHandler.Update))
	router.POST("/api/v1/webhooks/:webhook_id/toggle", wrap(deps.WebhookHandler.Toggle))
	router.POST("/api/v1/webhooks/:webhook_id/test", wrap(deps.WebhookHandler.Test))
	router.DELETE("/api/v1/webhooks/:webhook_id", wrap(deps.WebhookHandler.Delete))
	router.GET("/api/v1/webhooks-logs", wrap(deps.LogHandler.ListDeliveries))
	router.GET("/api/v1/webhooks-stats", wrap(deps.LogHandler.DeliveryStats))

	return router
}

// Convert http.HandlerFunc to httprouter.Handle, injecting params into
// the request context.
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
