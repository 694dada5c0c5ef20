package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cartrecovery/internal/compiler"
	"github.com/roach88/cartrecovery/internal/model"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Rules    int                        `json:"rules"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Imported []string                   `json:"imported,omitempty"`
}

// NewRulesCommand creates the rules command group.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage automation rules",
		Long: `Validate, import, list and delete automation rules.

Rules are authored in CUE under an automation struct keyed by rule ID:

  automation: reminder: {
      name:     "First reminder"
      priority: 10
      conditions: [{type: "cart_age", operator: "gte", value: 24, unit: "hours"}]
      actions: [{type: "send_mail", mailTemplateId: "reminder"}]
  }`,
	}

	cmd.AddCommand(newRulesValidateCommand(rootOpts))
	cmd.AddCommand(newRulesImportCommand(rootOpts))
	cmd.AddCommand(newRulesListCommand(rootOpts))
	cmd.AddCommand(newRulesDeleteCommand(rootOpts))

	return cmd
}

func newRulesValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate rule files without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			rules, problems, err := loadAndValidate(args[0], offlineValidator(newCommandLogger(rootOpts, cmd)), formatter)
			if err != nil {
				return err
			}
			if compiler.Blocking(problems) {
				return outputValidationErrors(formatter, len(rules), problems)
			}
			return outputValidateSuccess(formatter, len(rules), problems, nil)
		},
	}
}

func newRulesImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>",
		Short: "Validate rule files and store them",
		Long: `Validate rule files and insert or update every rule they define.

Nothing is written when any rule has a blocking problem. Re-importing a
rule keeps its original creation time, so evaluation order among rules
of equal priority is stable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesImport(rootOpts, args[0], cmd)
		},
	}
}

func runRulesImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	rt, err := openRuntime(opts, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	rules, problems, err := loadAndValidate(path, rt.app.Validator, formatter)
	if err != nil {
		return err
	}
	if compiler.Blocking(problems) {
		return outputValidationErrors(formatter, len(rules), problems)
	}

	ctx := commandContext(cmd)
	now := time.Now()
	imported := make([]string, 0, len(rules))
	for _, rule := range rules {
		if err := rt.store.UpsertRule(ctx, rule, now); err != nil {
			_ = formatter.Error("E001", err.Error(), map[string]any{"imported": imported})
			return WrapExitError(ExitCommandError, "failed to store rule "+rule.ID, err)
		}
		rt.log.Debug("rule stored", "rule_id", rule.ID)
		imported = append(imported, rule.ID)
	}

	return outputValidateSuccess(formatter, len(rules), problems, imported)
}

func newRulesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			rt, err := openRuntime(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			rules, err := rt.store.ListRules(commandContext(cmd))
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list rules", err)
			}

			return formatter.Emit(rules, func(w io.Writer) {
				if len(rules) == 0 {
					fmt.Fprintln(w, "No rules stored")
					return
				}
				for _, r := range rules {
					state := "active"
					if !r.Active {
						state = "inactive"
					}
					scope := "all channels"
					if r.SalesChannelID != nil {
						scope = "channel " + *r.SalesChannelID
					}
					fmt.Fprintf(w, "%-20s priority=%-4d %-8s %s, %d condition(s), %d action(s)  %s\n",
						r.ID, r.Priority, state, scope, len(r.Conditions), len(r.Actions), r.Name)
				}
			})
		},
	}
}

func newRulesDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored rule (its execution logs are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			rt, err := openRuntime(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			err = rt.store.DeleteRule(commandContext(cmd), args[0])
			if errors.Is(err, model.ErrNotFound) {
				_ = formatter.Error(compiler.ErrCodeNotFound, err.Error(), nil)
				return WrapExitError(ExitCommandError, "unknown rule", err)
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to delete rule", err)
			}

			return formatter.Emit(map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted rule %s\n", args[0])
			})
		},
	}
}

// loadAndValidate loads every rule at path and validates the set. Compile
// errors are folded into the returned problems; a returned error means the
// path itself could not be loaded.
func loadAndValidate(path string, v *compiler.Validator, formatter *OutputFormatter) ([]model.Rule, []compiler.ValidationError, error) {
	result, loadErrs := compiler.LoadRules(path, compiler.LoadModeCollectAll)
	if result == nil && len(loadErrs) > 0 {
		var loadErr *compiler.LoadError
		if errors.As(loadErrs[0], &loadErr) {
			return nil, nil, outputRulesError(formatter, loadErr.Code, loadErr.Message)
		}
		return nil, nil, outputRulesError(formatter, compiler.ErrCodeGeneric, loadErrs[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, path)

	var problems []compiler.ValidationError
	for _, err := range loadErrs {
		code := compiler.ErrCodeGeneric
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) {
			code = loadErr.Code
		}
		problems = append(problems, compiler.ValidationError{Field: "load", Message: err.Error(), Code: code})
	}
	problems = append(problems, v.ValidateAll(result.Rules)...)
	return result.Rules, problems, nil
}

func outputRulesError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func outputValidateSuccess(formatter *OutputFormatter, rules int, warnings []compiler.ValidationError, imported []string) error {
	result := ValidationResult{Valid: true, Rules: rules, Errors: warnings, Imported: imported}
	return formatter.Emit(result, func(w io.Writer) {
		for _, warn := range warnings {
			fmt.Fprintf(w, "warning %s\n", warn)
		}
		if imported != nil {
			fmt.Fprintf(w, "✓ Imported %d rule(s)\n", len(imported))
			return
		}
		fmt.Fprintf(w, "✓ All %d rule(s) valid\n", rules)
	})
}

// outputValidationErrors reports blocking problems with exit code 1.
func outputValidationErrors(formatter *OutputFormatter, rules int, errs []compiler.ValidationError) error {
	first := errs[0]
	for _, e := range errs {
		if !e.Warning {
			first = e
			break
		}
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Rules: rules, Errors: errs},
			Error:  &CLIError{Code: first.Code, Message: first.Message},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		kind := "error"
		if e.Warning {
			kind = "warning"
		}
		fmt.Fprintf(formatter.Writer, "  %s %s\n", kind, e)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(errs)))
}
