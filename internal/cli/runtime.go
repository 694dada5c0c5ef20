package cli

import (
	"context"
	"errors"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/roach88/cartrecovery/internal/action"
	"github.com/roach88/cartrecovery/internal/app"
	"github.com/roach88/cartrecovery/internal/compiler"
	"github.com/roach88/cartrecovery/internal/condition"
	"github.com/roach88/cartrecovery/internal/config"
	"github.com/roach88/cartrecovery/internal/engine"
	"github.com/roach88/cartrecovery/internal/logger"
	"github.com/roach88/cartrecovery/internal/store"
)

// runtime is what a command needs once configuration has been loaded.
type runtime struct {
	cfg      *config.Config
	log      logger.Logger
	store    *store.Store
	app      *app.App
	registry *prometheus.Registry
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}
	return cfg, nil
}

func newLogger(opts *RootOptions, cfg *config.Config, w io.Writer) logger.Logger {
	level := cfg.Log.Level
	if opts.Verbose {
		level = string(logger.DebugLevel)
	}
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	return logger.New(&logger.Config{
		Level:      logger.Level(level),
		JSON:       cfg.Log.JSON,
		Output:     w,
		TimeFormat: "15:04:05",
	})
}

// newCommandLogger is the logger for commands that never open the database.
// A broken config file falls back to defaults here; commands that need the
// config report it themselves.
func newCommandLogger(opts *RootOptions, cmd *cobra.Command) logger.Logger {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		cfg = config.Default()
	}
	return newLogger(opts, cfg, cmd.ErrOrStderr())
}

// openRuntime loads configuration, opens the database and wires the app.
// Callers must Close the runtime.
func openRuntime(opts *RootOptions, cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	log := newLogger(opts, cfg, cmd.ErrOrStderr())

	lang, err := language.Parse(cfg.Mail.Language)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid mail.language", err)
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	log.Debug("database ready", "path", cfg.Database.Path)

	reg := prometheus.NewRegistry()
	return &runtime{
		cfg:      cfg,
		log:      log,
		store:    st,
		registry: reg,
		app: app.New(st, app.Options{
			BatchSize:      cfg.Engine.BatchSize,
			DefaultPattern: cfg.Voucher.DefaultPattern,
			Language:       lang,
			DefaultLimit:   cfg.Evaluate.DefaultLimit,
			MaxLimit:       cfg.Evaluate.MaxLimit,
			Logger:         log,
			Metrics:        engine.NewMetrics(reg),
		}),
	}, nil
}

func (r *runtime) Close() {
	if err := r.store.Close(); err != nil {
		r.log.Error("error closing database", "error", err)
	}
}

// offlineValidator checks rule configs without a database. Validation never
// touches the stores the handlers are wired to.
func offlineValidator(log logger.Logger) *compiler.Validator {
	conditions := condition.NewRegistry(log, condition.Builtins(nil, log)...)
	actions := action.NewRegistry(action.Builtins(action.Deps{}, log)...)
	return compiler.NewValidator(conditions, actions)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// errorCode picks the response code for err: the runtime error code when
// the sweep failed, E001 otherwise.
func errorCode(err error) string {
	var rerr *engine.RuntimeError
	if errors.As(err, &rerr) {
		return string(rerr.Code)
	}
	return "E001"
}
