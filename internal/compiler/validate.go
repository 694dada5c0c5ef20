package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/cartrecovery/internal/action"
	"github.com/roach88/cartrecovery/internal/condition"
	"github.com/roach88/cartrecovery/internal/model"
)

// Validation error codes (E200-E299)
const (
	ErrRuleIDEmpty         = "E201" // rule id is required
	ErrRuleNameEmpty       = "E202" // rule name is required
	ErrRuleNoActions       = "E203" // at least one action required
	ErrDuplicateRuleID     = "E204" // duplicate rule id
	ErrEmptySalesChannel   = "E205" // salesChannelId set but empty
	ErrInvalidCondition    = "E210" // condition evaluates false
	ErrConditionWarning    = "E211" // condition works but is suspicious
	ErrInvalidAction       = "E220" // action is skipped or no-ops
	ErrInvalidRuleField    = "E230" // malformed field in the rule file
	ErrInvalidRuleListType = "E231" // conditions/actions not a list of structs
)

// ValidationError represents a rule validation problem.
type ValidationError struct {
	RuleID  string `json:"ruleId,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Warning bool   `json:"warning,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.RuleID, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validator checks rules against the registered handler types.
type Validator struct {
	conditions *condition.Registry
	actions    *action.Registry
}

// NewValidator creates a Validator.
func NewValidator(conditions *condition.Registry, actions *action.Registry) *Validator {
	return &Validator{conditions: conditions, actions: actions}
}

// Validate returns all problems of rule (does not fail-fast).
// Entries with Warning set do not stop the rule from working.
func (v *Validator) Validate(rule *model.Rule) []ValidationError {
	var errs []ValidationError
	add := func(field, code, msg string, warning bool) {
		errs = append(errs, ValidationError{RuleID: rule.ID, Field: field, Message: msg, Code: code, Warning: warning})
	}

	if strings.TrimSpace(rule.ID) == "" {
		add("id", ErrRuleIDEmpty, "rule id is required", false)
	}
	if strings.TrimSpace(rule.Name) == "" {
		add("name", ErrRuleNameEmpty, "rule name is required", false)
	}
	if rule.SalesChannelID != nil && *rule.SalesChannelID == "" {
		add("salesChannelId", ErrEmptySalesChannel, "salesChannelId must not be empty when set", false)
	}
	if len(rule.Actions) == 0 {
		add("actions", ErrRuleNoActions, "at least one action is required", true)
	}

	for _, p := range v.conditions.Validate(rule.Conditions) {
		code := ErrInvalidCondition
		if !p.Blocking {
			code = ErrConditionWarning
		}
		add(problemField("conditions", p.Index, p.Field), code, problemMessage(p.Type, p.Message), !p.Blocking)
	}
	for _, p := range v.actions.Validate(rule.Actions) {
		add(problemField("actions", p.Index, p.Field), ErrInvalidAction, problemMessage(p.Type, p.Message), false)
	}
	return errs
}

// ValidateAll validates every rule and reports duplicate IDs.
func (v *Validator) ValidateAll(rules []model.Rule) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(rules))
	for i := range rules {
		r := &rules[i]
		if r.ID != "" && seen[r.ID] {
			errs = append(errs, ValidationError{
				RuleID:  r.ID,
				Field:   "id",
				Message: fmt.Sprintf("duplicate rule id: %q", r.ID),
				Code:    ErrDuplicateRuleID,
			})
		}
		seen[r.ID] = true
		errs = append(errs, v.Validate(r)...)
	}
	return errs
}

// Blocking reports whether errs contains anything other than warnings.
func Blocking(errs []ValidationError) bool {
	for _, e := range errs {
		if !e.Warning {
			return true
		}
	}
	return false
}

func problemField(list string, index int, field string) string {
	if field == "" {
		return fmt.Sprintf("%s[%d]", list, index)
	}
	return fmt.Sprintf("%s[%d].%s", list, index, field)
}

func problemMessage(typ, msg string) string {
	if typ == "" {
		return msg
	}
	return typ + ": " + msg
}

// MapFieldToErrorCode maps a compile error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "id":
		return ErrRuleIDEmpty
	case field == "priority", field == "active", field == "salesChannelId", field == "name":
		return ErrInvalidRuleField
	case strings.HasPrefix(field, "conditions"), strings.HasPrefix(field, "actions"):
		return ErrInvalidRuleListType
	default:
		return ErrCodeGeneric
	}
}
