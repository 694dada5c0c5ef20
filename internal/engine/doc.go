// Package engine runs automation rules against abandoned carts.
//
// A Processor performs one sweep: it loads the active rules in priority
// order, pages through the candidate carts, selects at most one rule per
// cart (first match wins) and runs that rule's action pipeline. Every
// executed pipeline produces exactly one execution log and advances the
// cart's automation counters in the same transaction.
//
// Conditions are evaluated in memory on the live path. The Evaluator exposes
// the compiled SQL form of the same conditions for previews and reports any
// cart where the two forms disagree.
//
// Thread-safety model:
//   - Processor.Process: one sweep at a time; overlapping sweeps are
//     prevented by the scheduler, not by the engine
//   - Evaluator.Evaluate: safe for concurrent use (read-only)
package engine
