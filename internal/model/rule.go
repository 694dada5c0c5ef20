package model

import (
	"fmt"
	"sort"
	"time"
)

// Config is one flat key-value condition or action configuration.
// The "type" key selects the handler; unknown keys are ignored.
type Config map[string]any

// Type returns the handler discriminant, or "" when missing or not a string.
func (c Config) Type() string {
	t, _ := c["type"].(string)
	return t
}

// String returns a string value, treating nil, missing and empty as absent.
func (c Config) String(key string) (string, bool) {
	switch v := c[key].(type) {
	case string:
		return v, v != ""
	case nil:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

// Has reports whether key is present with a non-nil value.
func (c Config) Has(key string) bool {
	v, ok := c[key]
	return ok && v != nil
}

// Rule is an automation: AND-combined conditions plus an ordered action pipeline.
type Rule struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Active         bool      `json:"active"`
	Priority       int       `json:"priority"`
	Conditions     []Config  `json:"conditions"`
	Actions        []Config  `json:"actions"`
	SalesChannelID *string   `json:"salesChannelId,omitempty"` // nil = all channels
	CreatedAt      time.Time `json:"createdAt"`
}

// AppliesTo reports whether the rule's scope filter admits the sales channel.
func (r *Rule) AppliesTo(salesChannelID string) bool {
	return r.SalesChannelID == nil || *r.SalesChannelID == salesChannelID
}

// SortRules orders rules for evaluation: priority descending, then creation
// time ascending, then ID ascending. The sort is stable so callers that
// already hold a deterministic order keep it on full ties.
func SortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
