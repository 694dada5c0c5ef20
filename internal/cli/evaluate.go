package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cartrecovery/internal/engine"
	"github.com/roach88/cartrecovery/internal/model"
)

// EvaluateOptions holds flags for the evaluate command.
type EvaluateOptions struct {
	*RootOptions
	RuleID  string
	File    string
	Channel string
	Page    int
	Limit   int
}

// evaluateFile is the on-disk form of an evaluate request.
type evaluateFile struct {
	Conditions     []model.Config `yaml:"conditions"`
	Actions        []model.Config `yaml:"actions"`
	SalesChannelID *string        `yaml:"salesChannelId"`
}

// NewEvaluateCommand creates the evaluate command.
func NewEvaluateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvaluateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Preview which carts a condition set matches",
		Long: `Preview a condition set against stored carts without executing anything.

The conditions come from a stored rule (--rule) or from a YAML or JSON
file (--file) with conditions, actions and salesChannelId keys. Matching
carts are paged; the non-matching list covers the in-scope carts of the
same page window. Configuration problems and disagreements between the
SQL and in-memory evaluation are reported alongside.

Example:
  cartrecovery evaluate --rule reminder
  cartrecovery evaluate --file preview.yaml --page 2 --limit 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RuleID, "rule", "", "evaluate the conditions of a stored rule")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "evaluate a request file (YAML or JSON)")
	cmd.Flags().StringVar(&opts.Channel, "channel", "", "restrict to a sales channel (overrides the rule or file)")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number (1-based)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "page size (0 uses evaluate.default_limit)")

	return cmd
}

func runEvaluate(opts *EvaluateOptions, cmd *cobra.Command) error {
	if (opts.RuleID == "") == (opts.File == "") {
		return NewExitError(ExitCommandError, "exactly one of --rule or --file is required")
	}

	formatter := newFormatter(opts.RootOptions, cmd)

	rt, err := openRuntime(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := commandContext(cmd)

	req := engine.EvaluateRequest{Page: opts.Page, Limit: opts.Limit}
	if opts.RuleID != "" {
		rule, err := rt.store.GetRule(ctx, opts.RuleID)
		if errors.Is(err, model.ErrNotFound) {
			return WrapExitError(ExitCommandError, "unknown rule", err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load rule", err)
		}
		req.Conditions = rule.Conditions
		req.Actions = rule.Actions
		req.SalesChannelID = rule.SalesChannelID
	} else {
		f, err := readEvaluateFile(opts.File)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read request file", err)
		}
		req.Conditions = f.Conditions
		req.Actions = f.Actions
		req.SalesChannelID = f.SalesChannelID
	}
	if opts.Channel != "" {
		req.SalesChannelID = &opts.Channel
	}

	res, err := rt.app.Evaluator.Evaluate(ctx, req)
	if err != nil {
		_ = formatter.Error("E001", err.Error(), nil)
		return WrapExitError(ExitFailure, "evaluation failed", err)
	}

	return formatter.Emit(res, func(w io.Writer) {
		printEvaluation(w, res)
	})
}

// readEvaluateFile decodes a request file. JSON is a subset of YAML, so one
// decoder handles both.
func readEvaluateFile(path string) (*evaluateFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f evaluateFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

func printEvaluation(w io.Writer, res *engine.EvaluateResult) {
	fmt.Fprintf(w, "Matching: %d cart(s) (page %d of %d, limit %d)\n",
		res.MatchingCount, res.Page, max(res.TotalPages, 1), res.Limit)
	for _, c := range res.Matching {
		printCartSummary(w, c)
	}
	fmt.Fprintf(w, "Not matching in this window: %d\n", len(res.NonMatching))
	for _, c := range res.NonMatching {
		printCartSummary(w, c)
	}
	if len(res.Problems) > 0 {
		fmt.Fprintln(w, "Problems:")
		for _, p := range res.Problems {
			marker := "warning"
			if p.Blocking {
				marker = "error"
			}
			fmt.Fprintf(w, "  [%s] %s\n", marker, p)
		}
	}
	if len(res.Drift) > 0 {
		fmt.Fprintf(w, "Drift between SQL and in-memory evaluation: %v\n", res.Drift)
	}
}

func printCartSummary(w io.Writer, c engine.CartSummary) {
	fmt.Fprintf(w, "  %s  %-30s %10s %s  automations=%d items=%d\n",
		c.ID, c.CustomerEmail, c.TotalPrice.StringFixed(2), c.Currency, c.AutomationCount, c.LineItemCount)
}
