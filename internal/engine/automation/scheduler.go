package automation

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"leadflow/internal/engine/webhooks"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

// staleBatchLimit caps how many leads one sweep of a time-based rule
// can touch.
const staleBatchLimit = 100

// EventLeadStale is fanned out to webhook subscribers for every lead a
// sweep picks up, before the rule's action runs against it.
const EventLeadStale = "lead.stale"

// Scheduler keeps one recurring cron job per active time-based rule,
// keyed by rule id. Reload is cancel-then-register: the old entry for a
// rule id is always removed before a new one is added, so there is at
// most one live job per rule at any time.
type Scheduler struct {
	registry    *Registry
	evaluator   *Evaluator
	leads       *repositories.LeadRepository
	dispatcher  *webhooks.Dispatcher // nil disables stale-event fan-out
	defaultCron string

	cron    *cron.Cron
	mu      sync.Mutex
	entries map[int64]cron.EntryID
}

func NewScheduler(registry *Registry, evaluator *Evaluator, leads *repositories.LeadRepository, dispatcher *webhooks.Dispatcher, defaultCron string) *Scheduler {
	return &Scheduler{
		registry:    registry,
		evaluator:   evaluator,
		leads:       leads,
		dispatcher:  dispatcher,
		defaultCron: defaultCron,
		cron:        cron.New(),
		entries:     make(map[int64]cron.EntryID),
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron runner and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Reload re-installs jobs for the registry's current time-based rules.
// Must be called after any time-based rule is created, updated, toggled
// or deleted (the registry itself is reloaded first). A rule that was
// deactivated or deleted loses its job here.
func (s *Scheduler) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.entries {
		s.cron.Remove(entry)
		delete(s.entries, id)
	}

	for _, rule := range s.registry.RulesFor(models.TriggerTimeBased) {
		expr := rule.TriggerConfig.Cron
		if expr == "" {
			expr = s.defaultCron
		}

		rule := rule
		entryID, err := s.cron.AddFunc(expr, func() { s.run(rule) })
		if err != nil {
			log.Warn().Err(err).Int64("rule_id", rule.ID).Str("cron", expr).Msg("invalid cron expression, skipping rule")
			continue
		}
		s.entries[rule.ID] = entryID
	}

	return nil
}

// Jobs returns the rule ids with a live job, for operators and tests.
func (s *Scheduler) Jobs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// run executes one firing of a time-based rule. Each qualifying lead
// gets its own synthetic trigger context and its own log entry rather
// than one aggregate execution.
func (s *Scheduler) run(rule *models.AutomationRule) {
	staleDays := rule.TriggerConfig.StaleDays
	if staleDays <= 0 {
		log.Debug().Int64("rule_id", rule.ID).Msg("time-based rule has no staleDays, nothing to sweep")
		return
	}

	leads, err := s.leads.ListStale(context.Background(), staleDays, staleBatchLimit)
	if err != nil {
		log.Error().Err(err).Int64("rule_id", rule.ID).Msg("stale lead query failed")
		return
	}

	log.Info().Int64("rule_id", rule.ID).Int("leads", len(leads)).Msg("time-based rule firing")

	for _, lead := range leads {
		if s.dispatcher != nil {
			s.dispatcher.FireEvent(context.Background(), EventLeadStale, lead)
		}
		ev := Context{
			Event:  models.TriggerTimeBased,
			LeadID: lead.ID,
		}
		s.evaluator.RunRule(context.Background(), rule, ev)
	}
}

// RunNow fires one rule's sweep immediately, outside its schedule. Used
// by the operator test path.
func (s *Scheduler) RunNow(rule *models.AutomationRule) {
	s.run(rule)
}
