// Package app assembles the store, the handler registries, the mail service
// and the engine into the set of services the CLI and the scenario harness
// drive. It holds no behavior of its own.
package app

import (
	"golang.org/x/text/language"

	"github.com/roach88/cartrecovery/internal/action"
	"github.com/roach88/cartrecovery/internal/compiler"
	"github.com/roach88/cartrecovery/internal/condition"
	"github.com/roach88/cartrecovery/internal/engine"
	"github.com/roach88/cartrecovery/internal/logger"
	"github.com/roach88/cartrecovery/internal/mail"
	"github.com/roach88/cartrecovery/internal/model"
	"github.com/roach88/cartrecovery/internal/store"
)

// Options tune the assembled services. Zero values select production
// defaults.
type Options struct {
	Clock          engine.Clock
	IDs            model.IDGenerator // log, voucher and outbox row IDs
	Codes          *action.CodeGenerator
	BatchSize      int
	DefaultPattern string
	Language       language.Tag
	DefaultLimit   int
	MaxLimit       int
	Logger         logger.Logger
	Metrics        *engine.Metrics
	Source         engine.RecordSource // defaults to the store
}

// App is the assembled service graph.
type App struct {
	Store      *store.Store
	Conditions *condition.Registry
	Actions    *action.Registry
	Mail       *mail.Service
	Processor  *engine.Processor
	Evaluator  *engine.Evaluator
	Validator  *compiler.Validator
}

// New wires every built-in condition and action against st.
func New(st *store.Store, opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	clock := opts.Clock
	if clock == nil {
		clock = engine.SystemClock{}
	}
	ids := opts.IDs
	if ids == nil {
		ids = model.UUIDv7Generator{}
	}
	lang := opts.Language
	if lang == language.Und {
		lang = language.English
	}

	mailer := mail.NewService(st,
		mail.WithIDGenerator(ids),
		mail.WithNow(clock.Now),
		mail.WithLanguage(lang),
		mail.WithLogger(logger.With(log, "component", "mail")),
	)

	conditions := condition.NewRegistry(log, condition.Builtins(st, log)...)
	actions := action.NewRegistry(action.Builtins(action.Deps{
		Customers:      st,
		Tags:           st,
		Promotions:     st,
		Templates:      st,
		Mailer:         mailer,
		IDs:            ids,
		Codes:          opts.Codes,
		DefaultPattern: opts.DefaultPattern,
	}, logger.With(log, "component", "action"))...)

	procOpts := []engine.ProcessorOption{
		engine.WithClock(clock),
		engine.WithIDGenerator(ids),
		engine.WithBatchSize(opts.BatchSize),
		engine.WithLogger(logger.With(log, "component", "engine")),
	}
	if opts.Metrics != nil {
		procOpts = append(procOpts, engine.WithMetrics(opts.Metrics))
	}

	source := opts.Source
	if source == nil {
		source = st
	}

	evalOpts := []engine.EvaluatorOption{
		engine.WithEvaluatorClock(clock),
		engine.WithEvaluatorLogger(logger.With(log, "component", "evaluator")),
	}
	if opts.DefaultLimit > 0 || opts.MaxLimit > 0 {
		evalOpts = append(evalOpts, engine.WithPageLimits(opts.DefaultLimit, opts.MaxLimit))
	}

	return &App{
		Store:      st,
		Conditions: conditions,
		Actions:    actions,
		Mail:       mailer,
		Processor:  engine.NewProcessor(source, conditions, actions, procOpts...),
		Evaluator:  engine.NewEvaluator(st, conditions, actions, evalOpts...),
		Validator:  compiler.NewValidator(conditions, actions),
	}
}
