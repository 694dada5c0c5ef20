package harness

import (
	"github.com/roach88/cartrecovery/internal/engine"
	"github.com/roach88/cartrecovery/internal/model"
)

// TraceEvent is one execution log written during a scenario, in the order
// the engine wrote it.
type TraceEvent struct {
	Pass    int           `json:"pass"`
	LogID   string        `json:"log_id"`
	Rule    string        `json:"rule"`
	Cart    string        `json:"cart"`
	Status  string        `json:"status"`
	Actions []ActionTrace `json:"actions"`
	Error   string        `json:"error,omitempty"`
}

// ActionTrace is one pipeline step of a TraceEvent.
type ActionTrace struct {
	Key    string `json:"key"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func newTraceEvent(pass int, log model.ExecutionLog) TraceEvent {
	ev := TraceEvent{
		Pass:    pass,
		LogID:   log.ID,
		Rule:    log.RuleID,
		Cart:    log.CartID,
		Status:  log.Status,
		Actions: make([]ActionTrace, 0, len(log.ActionResults)),
		Error:   log.Error,
	}
	for _, r := range log.ActionResults {
		ev.Actions = append(ev.Actions, ActionTrace{Key: r.Key, Status: r.Status, Error: r.Error})
	}
	return ev
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every sweep finished and every assertion held.
	Pass bool `json:"pass"`

	// Summaries holds one entry per sweep.
	Summaries []engine.Summary `json:"summaries"`

	Trace []TraceEvent `json:"trace"`

	// Errors contains sweep failures and assertion messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Summaries: []engine.Summary{},
		Trace:     []TraceEvent{},
		Errors:    []string{},
	}
}

// AddError adds an error message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
