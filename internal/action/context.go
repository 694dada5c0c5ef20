package action

import (
	"maps"
	"time"
)

// Context is the mutable state shared by the actions of one pipeline run.
// It lives for a single (rule, cart) execution and is never persisted.
type Context struct {
	RuleID      string
	CartID      string
	ExecutionID string
	Now         time.Time

	voucherCode *string
	data        map[string]any
}

// NewContext returns an empty context for one execution.
func NewContext(ruleID, cartID, executionID string, now time.Time) *Context {
	return &Context{
		RuleID:      ruleID,
		CartID:      cartID,
		ExecutionID: executionID,
		Now:         now,
		data:        make(map[string]any),
	}
}

// VoucherCode returns the code generated earlier in the pipeline, if any.
func (c *Context) VoucherCode() (string, bool) {
	if c.voucherCode == nil {
		return "", false
	}
	return *c.voucherCode, true
}

func (c *Context) SetVoucherCode(code string) {
	c.voucherCode = &code
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

// GetOr returns the value stored under key, or def when absent.
func (c *Context) GetOr(key string, def any) any {
	if v, ok := c.data[key]; ok {
		return v
	}
	return def
}

func (c *Context) Set(key string, value any) {
	c.data[key] = value
}

// Has reports whether key was set, even to nil.
func (c *Context) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// All returns a copy of the value bag.
func (c *Context) All() map[string]any {
	return maps.Clone(c.data)
}
