package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"leadflow/internal/platform/email"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

// HandlerFunc executes one action kind against one event context.
type HandlerFunc func(ctx context.Context, cfg models.ActionConfig, ev Context) error

// Executor dispatches a matched rule to exactly one action handler. An
// unknown action type is a logged no-op, not an error.
type Executor struct {
	leads    *repositories.LeadRepository
	mailer   email.Sender
	client   *http.Client
	timeout  time.Duration
	handlers map[string]HandlerFunc
}

func NewExecutor(leads *repositories.LeadRepository, mailer email.Sender, actionTimeout time.Duration) *Executor {
	e := &Executor{
		leads:   leads,
		mailer:  mailer,
		client:  &http.Client{Timeout: actionTimeout},
		timeout: actionTimeout,
	}
	e.handlers = map[string]HandlerFunc{
		models.ActionSendEmail:        e.sendEmail,
		models.ActionAssignUser:       e.assignUser,
		models.ActionAddTag:           e.addTag,
		models.ActionChangeStatus:     e.changeStatus,
		models.ActionCreateTask:       e.createTask,
		models.ActionSendNotification: e.sendNotification,
		models.ActionWebhook:          e.callWebhook,
	}
	return e
}

// Execute runs the rule's action with a bounded deadline. Failures are
// returned to the caller (the evaluator or scheduler) for logging; they
// never propagate further.
func (e *Executor) Execute(ctx context.Context, rule *models.AutomationRule, ev Context) error {
	handler, ok := e.handlers[rule.ActionType]
	if !ok {
		log.Warn().Int64("rule_id", rule.ID).Str("action_type", rule.ActionType).Msg("unknown action type, skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	return handler(ctx, rule.ActionConfig, ev)
}

func (e *Executor) sendEmail(ctx context.Context, cfg models.ActionConfig, ev Context) error {
	if e.mailer == nil {
		return fmt.Errorf("no email transport configured")
	}

	lead, err := e.leads.GetByID(ctx, ev.LeadID)
	if err != nil {
		return err
	}
	if lead == nil {
		return fmt.Errorf("lead %d not found", ev.LeadID)
	}

	data := map[string]string{
		"name":          lead.Name,
		"email":         lead.Email,
		"business_name": lead.BusinessName,
	}
	subject := ExpandTemplate(cfg.Subject, data)
	body := ExpandTemplate(cfg.Body, data)

	to := cfg.To
	if to == "" {
		to = lead.Email
	}
	if to == "" {
		return fmt.Errorf("lead %d has no email address", ev.LeadID)
	}

	return e.mailer.Send(ctx, to, subject, body)
}

func (e *Executor) assignUser(ctx context.Context, cfg models.ActionConfig, ev Context) error {
	return e.leads.UpdateOwner(ctx, ev.LeadID, cfg.UserID)
}

func (e *Executor) addTag(ctx context.Context, cfg models.ActionConfig, ev Context) error {
	return e.leads.AddTag(ctx, ev.LeadID, cfg.TagID)
}

func (e *Executor) changeStatus(ctx context.Context, cfg models.ActionConfig, ev Context) error {
	return e.leads.UpdateStatus(ctx, ev.LeadID, cfg.Status)
}

func (e *Executor) createTask(ctx context.Context, cfg models.ActionConfig, ev Context) error {
	days := cfg.DaysFromNow
	if days <= 0 {
		days = 1
	}
	priority := cfg.Priority
	if priority == "" {
		priority = "medium"
	}

	task := &models.Task{
		LeadID:      ev.LeadID,
		Title:       cfg.Title,
		Description: cfg.Description,
		Priority:    priority,
		AssignedTo:  cfg.AssignTo,
		DueAt:       time.Now().Add(time.Duration(days) * 24 * time.Hour).Unix(),
	}
	return e.leads.CreateTask(ctx, task)
}

func (e *Executor) sendNotification(ctx context.Context, cfg models.ActionConfig, ev Context) error {
	n := &models.Notification{
		UserID:  cfg.UserID,
		LeadID:  ev.LeadID,
		Title:   cfg.Title,
		Message: cfg.Message,
	}
	return e.leads.CreateNotification(ctx, n)
}

// callWebhook posts the resolved record to the rule's own URL. The
// action fails only if the record lookup fails; the POST itself is
// fire-and-forget with the client's timeout bounding it.
func (e *Executor) callWebhook(ctx context.Context, cfg models.ActionConfig, ev Context) error {
	lead, err := e.leads.GetByID(ctx, ev.LeadID)
	if err != nil {
		return err
	}
	if lead == nil {
		return fmt.Errorf("lead %d not found", ev.LeadID)
	}

	payload := map[string]interface{}{
		"event":     ev.Event,
		"leadId":    ev.LeadID,
		"record":    lead,
		"timestamp": time.Now().Unix(),
	}
	if ev.FromStatus != "" {
		payload["fromStatus"] = ev.FromStatus
	}
	if ev.ToStatus != "" {
		payload["toStatus"] = ev.ToStatus
	}
	if ev.TagID != 0 {
		payload["tagId"] = ev.TagID
	}
	if ev.Source != "" {
		payload["source"] = ev.Source
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	go func() {
		req, err := http.NewRequest(http.MethodPost, cfg.URL, bytes.NewReader(body))
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.URL).Msg("webhook action: bad request")
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(req)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.URL).Msg("webhook action: delivery failed")
			return
		}
		resp.Body.Close()
	}()

	return nil
}
