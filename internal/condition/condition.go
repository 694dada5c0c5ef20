package condition

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/cartrecovery/internal/model"
)

// Table and alias names the compiled fragments rely on.
const (
	Alias            = "cart"
	CartTable        = "abandoned_cart"
	LineItemTable    = "cart_line_item"
	CustomerTagTable = "customer_tag"
)

// never is the fragment a misconfigured condition compiles to.
const never = "1 = 0"

// Env carries the ambient inputs both evaluation modes share.
type Env struct {
	// Now is the reference time for age and rate-limit conditions.
	// Callers truncate it to milliseconds once per pass.
	Now time.Time
}

// Condition is a typed predicate over abandoned carts.
type Condition interface {
	// Type returns the stable identifier used for dispatch.
	Type() string

	// Evaluate tests the cart in memory. A *ConfigError means the config is
	// unusable; callers treat it as false.
	Evaluate(ctx context.Context, cart *model.AbandonedCart, cfg model.Config, env Env) (bool, error)

	// Compile appends the equivalent filter to q. A *ConfigError means the
	// config is unusable; callers append a never-true filter instead.
	Compile(q sq.SelectBuilder, cfg model.Config, env Env) (sq.SelectBuilder, error)

	// Validate reports configuration problems without evaluating.
	Validate(cfg model.Config) []Problem
}

// Problem describes one configuration issue found in a condition config.
type Problem struct {
	Index    int    `json:"index"`
	Type     string `json:"type"`
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
	Blocking bool   `json:"blocking"` // the condition evaluates false
}

func (p Problem) String() string {
	if p.Field != "" {
		return fmt.Sprintf("condition %d (%s): %s: %s", p.Index, p.Type, p.Field, p.Message)
	}
	return fmt.Sprintf("condition %d (%s): %s", p.Index, p.Type, p.Message)
}

// ConfigError reports a condition config that cannot be evaluated.
type ConfigError struct {
	Type    string
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("condition %s: %s: %s", e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("condition %s: %s", e.Type, e.Message)
}

func blocking(typ string, err error) []Problem {
	if err == nil {
		return nil
	}
	p := Problem{Type: typ, Message: err.Error(), Blocking: true}
	var ce *ConfigError
	if errors.As(err, &ce) {
		p.Field, p.Message = ce.Field, ce.Message
	}
	return []Problem{p}
}

func col(name string) string {
	return Alias + "." + name
}
