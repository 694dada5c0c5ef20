package action

import (
	"fmt"
	"sort"

	"github.com/roach88/cartrecovery/internal/logger"
	"github.com/roach88/cartrecovery/internal/model"
)

// Registry maps action type identifiers to handlers.
type Registry struct {
	handlers map[string]Action
}

// NewRegistry builds a registry. Duplicate types panic.
func NewRegistry(actions ...Action) *Registry {
	r := &Registry{handlers: make(map[string]Action, len(actions))}
	for _, a := range actions {
		if _, dup := r.handlers[a.Type()]; dup {
			panic(fmt.Sprintf("action: duplicate handler for type %q", a.Type()))
		}
		r.handlers[a.Type()] = a
	}
	return r
}

// Deps are the collaborators the built-in actions call.
type Deps struct {
	Customers      CustomerStore
	Tags           CustomerTagStore
	Promotions     PromotionStore
	Templates      MailTemplateStore
	Mailer         Mailer
	IDs            model.IDGenerator
	Codes          *CodeGenerator
	DefaultPattern string
}

// Builtins returns every built-in action wired to deps.
func Builtins(deps Deps, log logger.Logger) []Action {
	log = orDiscard(log)
	codes := deps.Codes
	if codes == nil {
		codes = NewCodeGenerator()
	}
	ids := deps.IDs
	if ids == nil {
		ids = model.UUIDv7Generator{}
	}
	return []Action{
		SendEmail{Templates: deps.Templates, Mailer: deps.Mailer, Logger: log},
		GenerateVoucher{Promotions: deps.Promotions, Codes: codes, IDs: ids, DefaultPattern: deps.DefaultPattern, Logger: log},
		AddCustomerTag{Tags: deps.Tags, Logger: log},
		RemoveCustomerTag{Tags: deps.Tags, Logger: log},
		SetCustomerCustomField{Customers: deps.Customers, Logger: log},
	}
}

// orDiscard lets handlers built without a logger take their skip paths.
func orDiscard(l logger.Logger) logger.Logger {
	if l == nil {
		return logger.Discard()
	}
	return l
}

func (r *Registry) Get(typ string) (Action, bool) {
	a, ok := r.handlers[typ]
	return a, ok
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

// Validate collects the problems of every action config in actions.
func (r *Registry) Validate(actions []model.Config) []Problem {
	var out []Problem
	for i, cfg := range actions {
		typ := cfg.Type()
		if typ == "" {
			out = append(out, Problem{Index: i, Field: "type", Message: "action type is missing"})
			continue
		}
		h, ok := r.handlers[typ]
		if !ok {
			out = append(out, Problem{Index: i, Type: typ, Field: "type", Message: fmt.Sprintf("unknown action type %q", typ)})
			continue
		}
		for _, p := range h.Validate(cfg) {
			p.Index = i
			out = append(out, p)
		}
	}
	return out
}
