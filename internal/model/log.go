package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Execution statuses. StatusSuccess is written even when individual actions
// failed; StatusError means the orchestration itself failed.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ExecutionLog is the immutable audit row for one rule-vs-cart attempt.
type ExecutionLog struct {
	ID            string        `json:"id"`
	RuleID        string        `json:"automationId"`
	CartID        string        `json:"abandonedCartId"`
	CustomerID    string        `json:"customerId"`
	Status        string        `json:"status"`
	ActionResults ActionResults `json:"actionResults"`
	Error         string        `json:"error,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// ActionResult is the outcome of one pipeline step.
type ActionResult struct {
	Key    string `json:"-"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ActionResultKey builds the per-action key "action_{index}_{type}".
func ActionResultKey(index int, actionType string) string {
	return fmt.Sprintf("action_%d_%s", index, actionType)
}

// ActionResults is an insertion-ordered map of action key to result.
// It marshals to a JSON object whose keys keep pipeline order.
type ActionResults []ActionResult

// Get returns the result stored under key.
func (r ActionResults) Get(key string) (ActionResult, bool) {
	for _, res := range r {
		if res.Key == key {
			return res, true
		}
	}
	return ActionResult{}, false
}

// Failed counts results with error status.
func (r ActionResults) Failed() int {
	n := 0
	for _, res := range r {
		if res.Status == StatusError {
			n++
		}
	}
	return n
}

// MarshalJSON writes the results as an object in pipeline order.
func (r ActionResults) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, res := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(res.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(res)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object back, preserving the key order found in data.
func (r *ActionResults) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("action results: expected object, got %v", tok)
	}

	out := ActionResults{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("action results: expected string key, got %v", keyTok)
		}
		var res ActionResult
		if err := dec.Decode(&res); err != nil {
			return fmt.Errorf("action results: decode %q: %w", key, err)
		}
		res.Key = key
		out = append(out, res)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}
