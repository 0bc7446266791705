package automation

import (
	"sync/atomic"

	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

// Registry caches the active rule set in memory. Reload replaces the
// whole snapshot atomically, so in-flight evaluations keep iterating the
// collection they started with and readers never see a partial list.
// Rules are never mutated after load; every change goes through the
// store followed by Reload.
type Registry struct {
	repo     *repositories.RuleRepository
	snapshot atomic.Pointer[[]*models.AutomationRule]
}

func NewRegistry(repo *repositories.RuleRepository) *Registry {
	r := &Registry{repo: repo}
	empty := []*models.AutomationRule{}
	r.snapshot.Store(&empty)
	return r
}

// Reload re-reads all active rules (ordered by id, i.e. creation order)
// and swaps them in wholesale. Safe to call concurrently with reads.
func (r *Registry) Reload() error {
	rules, err := r.repo.ListActive()
	if err != nil {
		return err
	}
	if rules == nil {
		rules = []*models.AutomationRule{}
	}
	r.snapshot.Store(&rules)
	return nil
}

// Rules returns the current snapshot. Callers must not mutate it.
func (r *Registry) Rules() []*models.AutomationRule {
	return *r.snapshot.Load()
}

// RulesFor returns the snapshot filtered to one trigger type, in load
// order.
func (r *Registry) RulesFor(triggerType string) []*models.AutomationRule {
	var matched []*models.AutomationRule
	for _, rule := range r.Rules() {
		if rule.TriggerType == triggerType {
			matched = append(matched, rule)
		}
	}
	return matched
}
