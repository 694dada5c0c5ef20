// Package condition implements the predicates an automation rule combines
// to decide whether an abandoned cart matches.
//
// Every condition has two evaluation modes over the same config shape:
//   - Evaluate: an in-memory boolean test against a loaded cart
//   - Compile: a filter appended to a squirrel query over the cart table,
//     which is always aliased "cart"
//
// Both modes must classify any cart state identically. Timestamps are
// compared as Unix milliseconds on both sides, NULL handling in SQL is made
// explicit (COALESCE / IS NULL) to mirror the nil branches in Go, and float
// equality uses the same absolute tolerance in both modes.
//
// Configuration problems (missing required keys, unknown operators, values
// that do not decode) make a condition evaluate false and compile to a
// never-true fragment. They never abort an engine pass. An unknown operator
// string is one of these problems: it does not fall back to an equality
// comparison in either mode.
package condition
