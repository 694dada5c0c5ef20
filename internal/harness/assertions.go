package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/cartrecovery/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] pass %d %s -> %s (%s)\n", i+1, ev.Pass, ev.Rule, ev.Cart, ev.Status)
		}
	}
	return buf.String()
}

// AssertionContext provides access to the final state.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result.Trace, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertLogCount:
		return assertLogCount(trace, a, actx)
	case AssertActionResult:
		return assertActionResult(trace, a, actx)
	case AssertCartState:
		return assertCartState(trace, a, actx)
	case AssertOutboxCount, AssertOutboxSubject:
		return assertOutbox(trace, a, actx)
	case AssertCustomerTags:
		return assertCustomerTags(trace, a, actx)
	case AssertCustomField:
		return assertCustomField(trace, a, actx)
	case AssertVoucherCount, AssertVoucherCode:
		return assertVouchers(trace, a, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertLogCount(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	logs, err := actx.Store.ListLogs(actx.Ctx, store.LogFilter{RuleID: a.Rule, CartID: a.Cart, Status: a.Status})
	if err != nil {
		return err
	}
	if len(logs) != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d logs (rule=%q cart=%q status=%q)", *a.Count, a.Rule, a.Cart, a.Status),
			Actual:   fmt.Sprintf("%d logs", len(logs)),
			Trace:    trace,
		}
	}
	return nil
}

// assertActionResult inspects the newest log of the cart.
func assertActionResult(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	logs, err := actx.Store.ListLogs(actx.Ctx, store.LogFilter{RuleID: a.Rule, CartID: a.Cart, Limit: 1})
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("a log for cart %s", a.Cart),
			Actual:   "no logs",
			Trace:    trace,
		}
	}
	res, ok := logs[0].ActionResults.Get(a.Key)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("result %s in log %s", a.Key, logs[0].ID),
			Actual:   "missing",
			Trace:    trace,
		}
	}
	if res.Status != a.Status {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s status %s", a.Key, a.Status),
			Actual:   fmt.Sprintf("%s (%s)", res.Status, res.Error),
			Trace:    trace,
		}
	}
	return nil
}

func assertCartState(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	cart, err := actx.Store.GetCart(actx.Ctx, a.Cart)
	if err != nil {
		return err
	}
	if a.Count != nil && cart.AutomationCount != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("cart %s automation_count %d", a.Cart, *a.Count),
			Actual:   fmt.Sprintf("%d", cart.AutomationCount),
			Trace:    trace,
		}
	}
	if a.Stamped != nil && (cart.LastAutomationAt != nil) != *a.Stamped {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("cart %s stamped=%t", a.Cart, *a.Stamped),
			Actual:   fmt.Sprintf("last_automation_at=%v", cart.LastAutomationAt),
			Trace:    trace,
		}
	}
	return nil
}

func assertOutbox(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	mails, err := actx.Store.Outbox(actx.Ctx)
	if err != nil {
		return err
	}
	var subjects []string
	for _, m := range mails {
		if a.Template == "" || m.TemplateID == a.Template {
			subjects = append(subjects, m.Subject)
		}
	}

	if a.Type == AssertOutboxCount {
		if len(subjects) != *a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d mails (template=%q)", *a.Count, a.Template),
				Actual:   fmt.Sprintf("%d mails", len(subjects)),
				Trace:    trace,
			}
		}
		return nil
	}

	if len(subjects) == 0 || subjects[0] != a.Subject {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("subject %q for template %s", a.Subject, a.Template),
			Actual:   fmt.Sprintf("%q", subjects),
			Trace:    trace,
		}
	}
	return nil
}

func assertCustomerTags(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	tags, err := actx.Store.CustomerTagIDs(actx.Ctx, a.Customer)
	if err != nil {
		return err
	}
	want := slices.Clone(a.Tags)
	slices.Sort(want)
	if !slices.Equal(tags, want) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("customer %s tags %v", a.Customer, want),
			Actual:   fmt.Sprintf("%v", tags),
			Trace:    trace,
		}
	}
	return nil
}

func assertCustomField(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	customer, err := actx.Store.GetCustomer(actx.Ctx, a.Customer)
	if err != nil {
		return err
	}
	got, ok := customer.CustomFields[a.Field]
	if !ok || !jsonEqual(got, a.Value) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("customer %s %s=%v", a.Customer, a.Field, a.Value),
			Actual:   fmt.Sprintf("%v (present=%t)", got, ok),
			Trace:    trace,
		}
	}
	return nil
}

func assertVouchers(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	codes, err := actx.Store.PromotionCodes(actx.Ctx, a.Promotion)
	if err != nil {
		return err
	}

	if a.Type == AssertVoucherCount {
		if len(codes) != *a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d codes for promotion %s", *a.Count, a.Promotion),
				Actual:   fmt.Sprintf("%d codes", len(codes)),
				Trace:    trace,
			}
		}
		return nil
	}

	var got []string
	for _, c := range codes {
		if c.Code == a.Code {
			return nil
		}
		got = append(got, c.Code)
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("code %s for promotion %s", a.Code, a.Promotion),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    trace,
	}
}

// jsonEqual compares values after a JSON round trip, so YAML integers
// match the float64 numbers decoded from storage.
func jsonEqual(a, b any) bool {
	na, errA := normalize(a)
	nb, errB := normalize(b)
	if errA != nil || errB != nil {
		return false
	}
	return reflect.DeepEqual(na, nb)
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	err = json.Unmarshal(data, &out)
	return out, err
}
