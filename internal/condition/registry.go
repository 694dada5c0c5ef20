package condition

import (
	"context"
	"errors"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/cartrecovery/internal/logger"
	"github.com/roach88/cartrecovery/internal/model"
)

// Registry maps condition type identifiers to handlers. It is built once at
// startup and read-only afterwards.
type Registry struct {
	handlers map[string]Condition
	log      logger.Logger
}

// NewRegistry builds a registry. Duplicate types panic: they indicate a
// wiring bug, not a runtime condition.
func NewRegistry(log logger.Logger, conditions ...Condition) *Registry {
	r := &Registry{
		handlers: make(map[string]Condition, len(conditions)),
		log:      log,
	}
	for _, c := range conditions {
		if _, dup := r.handlers[c.Type()]; dup {
			panic(fmt.Sprintf("condition: duplicate handler for type %q", c.Type()))
		}
		r.handlers[c.Type()] = c
	}
	return r
}

// Builtins returns every built-in condition.
func Builtins(tags TagLookup, log logger.Logger) []Condition {
	return []Condition{
		CartAge{},
		CartValue{},
		AutomationCount{},
		TimeSinceLastAutomation{},
		LineItemCount{},
		CustomerTag{Tags: tags, Logger: log},
	}
}

// Get returns the handler for typ.
func (r *Registry) Get(typ string) (Condition, bool) {
	c, ok := r.handlers[typ]
	return c, ok
}

// Types returns the registered type identifiers, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Match AND-combines conds against cart in memory, stopping at the first
// false. An empty list matches. Unknown types and unusable configs count
// as false and are logged.
func (r *Registry) Match(ctx context.Context, cart *model.AbandonedCart, conds []model.Config, env Env) bool {
	for i, cfg := range conds {
		typ := cfg.Type()
		h, ok := r.handlers[typ]
		if !ok {
			r.log.Warn("unknown condition type", "index", i, "type", typ)
			return false
		}
		matched, err := h.Evaluate(ctx, cart, cfg, env)
		if err != nil {
			r.log.Warn("condition config rejected", "index", i, "type", typ, "error", err)
			return false
		}
		if !matched {
			return false
		}
	}
	return true
}

// Apply compiles conds onto q with the same semantics as Match: every
// unknown or unusable condition adds a never-true filter.
func (r *Registry) Apply(q sq.SelectBuilder, conds []model.Config, env Env) sq.SelectBuilder {
	for i, cfg := range conds {
		typ := cfg.Type()
		h, ok := r.handlers[typ]
		if !ok {
			r.log.Warn("unknown condition type", "index", i, "type", typ)
			q = q.Where(never)
			continue
		}
		next, err := h.Compile(q, cfg, env)
		if err != nil {
			var ce *ConfigError
			if !errors.As(err, &ce) {
				r.log.Error("condition compile failed", "index", i, "type", typ, "error", err)
			} else {
				r.log.Warn("condition config rejected", "index", i, "type", typ, "error", err)
			}
			q = q.Where(never)
			continue
		}
		q = next
	}
	return q
}

// Validate collects the problems of every condition in conds.
func (r *Registry) Validate(conds []model.Config) []Problem {
	var problems []Problem
	for i, cfg := range conds {
		typ := cfg.Type()
		if typ == "" {
			problems = append(problems, Problem{Index: i, Field: "type", Message: "condition type is missing", Blocking: true})
			continue
		}
		h, ok := r.handlers[typ]
		if !ok {
			problems = append(problems, Problem{Index: i, Type: typ, Field: "type", Message: fmt.Sprintf("unknown condition type %q", typ), Blocking: true})
			continue
		}
		for _, p := range h.Validate(cfg) {
			p.Index = i
			problems = append(problems, p)
		}
	}
	return problems
}
