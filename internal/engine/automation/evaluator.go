package automation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

// Evaluator matches incoming events against the registry and runs every
// matching rule. One rule's failure never prevents the next rule from
// running, and nothing raised here ever reaches the caller that
// triggered the business event.
type Evaluator struct {
	registry *Registry
	executor *Executor
	logs     *repositories.ExecutionLogRepository
}

func NewEvaluator(registry *Registry, executor *Executor, logs *repositories.ExecutionLogRepository) *Evaluator {
	return &Evaluator{registry: registry, executor: executor, logs: logs}
}

// EvaluateTrigger runs every active rule whose trigger type and
// predicate match the event, in registry order, and returns the number
// of matched rules.
func (e *Evaluator) EvaluateTrigger(ctx context.Context, triggerType string, ev Context) int {
	matched := 0
	for _, rule := range e.registry.RulesFor(triggerType) {
		if !matches(rule.TriggerConfig, ev) {
			continue
		}
		matched++
		e.RunRule(ctx, rule, ev)
	}
	return matched
}

// RunRule executes one rule, isolates its failure, and writes one
// execution log entry for the attempt. Also used by the scheduler's
// synthetic triggers and the operator test path.
func (e *Evaluator) RunRule(ctx context.Context, rule *models.AutomationRule, ev Context) {
	err := e.execute(ctx, rule, ev)

	entry := &models.ExecutionLogEntry{
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		TriggerType: rule.TriggerType,
		ActionType:  rule.ActionType,
		LeadID:      ev.LeadID,
		Status:      models.ExecSuccess,
	}
	if err != nil {
		entry.Status = models.ExecError
		entry.ErrorMessage = err.Error()
		log.Error().Err(err).Int64("rule_id", rule.ID).Str("event", ev.Event).Msg("rule execution failed")
	}

	// A broken log sink must never break automation.
	if logErr := e.logs.Append(entry); logErr != nil {
		log.Warn().Err(logErr).Int64("rule_id", rule.ID).Msg("failed to write execution log")
	}
}

func (e *Evaluator) execute(ctx context.Context, rule *models.AutomationRule, ev Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in action handler: %v", r)
		}
	}()
	return e.executor.Execute(ctx, rule, ev)
}

// matches applies the flat predicate: every set field must equal the
// context field exactly; an unset field is a wildcard. An empty config
// matches unconditionally.
func matches(cfg models.TriggerConfig, ev Context) bool {
	if cfg.FromStatus != nil && *cfg.FromStatus != ev.FromStatus {
		return false
	}
	if cfg.ToStatus != nil && *cfg.ToStatus != ev.ToStatus {
		return false
	}
	if cfg.TagID != nil && *cfg.TagID != ev.TagID {
		return false
	}
	if cfg.Source != nil && *cfg.Source != ev.Source {
		return false
	}
	return true
}
