package action

import (
	"context"
	"fmt"

	"github.com/roach88/cartrecovery/internal/model"
)

// Action is one typed step of a rule's action pipeline.
type Action interface {
	// Type returns the stable identifier used for dispatch.
	Type() string

	// Execute runs the step. A nil return means success or a logged skip;
	// a non-nil error is a downstream failure recorded for this step only.
	Execute(ctx context.Context, cart *model.AbandonedCart, cfg model.Config, ac *Context) error

	// Validate reports configuration problems without executing.
	Validate(cfg model.Config) []Problem
}

// Problem describes a configuration issue that makes an action skip.
type Problem struct {
	Index   int    `json:"index"`
	Type    string `json:"type"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.Field != "" {
		return fmt.Sprintf("action %d (%s): %s: %s", p.Index, p.Type, p.Field, p.Message)
	}
	return fmt.Sprintf("action %d (%s): %s", p.Index, p.Type, p.Message)
}

// ConfigError reports missing or malformed action configuration.
type ConfigError struct {
	Type    string
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("action %s: %s: %s", e.Type, e.Field, e.Message)
}

func required(typ string, cfg model.Config, key string) (string, *ConfigError) {
	v, ok := cfg.String(key)
	if !ok {
		return "", &ConfigError{Type: typ, Field: key, Message: key + " is required"}
	}
	return v, nil
}

func problems(typ string, errs ...*ConfigError) []Problem {
	var out []Problem
	for _, e := range errs {
		if e != nil {
			out = append(out, Problem{Type: typ, Field: e.Field, Message: e.Message})
		}
	}
	return out
}
