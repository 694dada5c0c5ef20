package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an orchestration failure during a sweep.
//
// Orchestration failures are distinct from action failures: a failing
// action is recorded in the execution log and the log still reports
// success, while a RuntimeError means the engine itself could not load or
// record something.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RuleID identifies the affected rule, if any.
	RuleID string

	// CartID identifies the affected cart, if any.
	CartID string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeRulesLoad indicates the active rules could not be loaded.
	ErrCodeRulesLoad RuntimeErrorCode = "RULES_LOAD_FAILED"

	// ErrCodeBatchLoad indicates a candidate batch could not be loaded.
	ErrCodeBatchLoad RuntimeErrorCode = "BATCH_LOAD_FAILED"

	// ErrCodeRecord indicates the execution log and counter update failed.
	ErrCodeRecord RuntimeErrorCode = "RECORD_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RuleID != "" && e.CartID != "" {
		msg = fmt.Sprintf("%s (rule=%s, cart=%s)", msg, e.RuleID, e.CartID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// IsOrchestrationError reports whether err is a RuntimeError.
// Uses errors.As to handle wrapped errors.
func IsOrchestrationError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}

// HasCode reports whether err is a RuntimeError with the given code.
func HasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func newRulesLoadError(err error) *RuntimeError {
	return &RuntimeError{Code: ErrCodeRulesLoad, Message: "load active rules", Err: err}
}

func newBatchLoadError(offset int, err error) *RuntimeError {
	return &RuntimeError{Code: ErrCodeBatchLoad, Message: fmt.Sprintf("load candidate batch at offset %d", offset), Err: err}
}

func newRecordError(ruleID, cartID string, err error) *RuntimeError {
	return &RuntimeError{Code: ErrCodeRecord, Message: "record execution", RuleID: ruleID, CartID: cartID, Err: err}
}
