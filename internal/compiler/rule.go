package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/cartrecovery/internal/model"
)

// CompileRule parses a CUE value into a Rule.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the rule struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`automation: reminder: { ... }`)
//	rule, err := CompileRule(v.LookupPath(cue.ParsePath("automation.reminder")))
//
// Defaults: active true, priority 0, no conditions, no scope.
func CompileRule(v cue.Value) (*model.Rule, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rule := &model.Rule{Active: true}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		rule.ID = unquote(labels[len(labels)-1])
		rule.Name = rule.ID
	}

	var err error
	if rule.ID, err = optionalString(v, "id", rule.ID); err != nil {
		return nil, err
	}
	if rule.Name, err = optionalString(v, "name", rule.Name); err != nil {
		return nil, err
	}
	if rule.ID == "" {
		return nil, &CompileError{Field: "id", Message: "rule id is required", Pos: v.Pos()}
	}

	if pv := v.LookupPath(cue.ParsePath("priority")); pv.Exists() {
		p, err := pv.Int64()
		if err != nil {
			return nil, &CompileError{Field: "priority", Message: "priority must be an integer", Pos: pv.Pos()}
		}
		rule.Priority = int(p)
	}

	if av := v.LookupPath(cue.ParsePath("active")); av.Exists() {
		active, err := av.Bool()
		if err != nil {
			return nil, &CompileError{Field: "active", Message: "active must be a boolean", Pos: av.Pos()}
		}
		rule.Active = active
	}

	if sv := v.LookupPath(cue.ParsePath("salesChannelId")); sv.Exists() && sv.IsConcrete() {
		ch, err := sv.String()
		if err != nil {
			return nil, &CompileError{Field: "salesChannelId", Message: "salesChannelId must be a string", Pos: sv.Pos()}
		}
		rule.SalesChannelID = &ch
	}

	if rule.Conditions, err = parseConfigs(v, "conditions"); err != nil {
		return nil, err
	}
	if rule.Actions, err = parseConfigs(v, "actions"); err != nil {
		return nil, err
	}
	return rule, nil
}

func optionalString(v cue.Value, field, def string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: field + " must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

// parseConfigs decodes a list of flat config structs. A missing list is empty.
func parseConfigs(v cue.Value, field string) ([]model.Config, error) {
	lv := v.LookupPath(cue.ParsePath(field))
	if !lv.Exists() {
		return []model.Config{}, nil
	}

	iter, err := lv.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: field + " must be a list", Pos: lv.Pos()}
	}

	out := []model.Config{}
	for i := 0; iter.Next(); i++ {
		item := iter.Value()
		if item.IncompleteKind() != cue.StructKind {
			return nil, &CompileError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: "entry must be a struct",
				Pos:     item.Pos(),
			}
		}
		var cfg map[string]any
		if err := item.Decode(&cfg); err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, model.Config(cfg))
	}
	return out, nil
}

func unquote(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
