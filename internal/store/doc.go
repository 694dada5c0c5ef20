// Package store provides SQLite persistence for the cart recovery engine.
//
// The store is the engine's record source (active rules, candidate cart
// batches, atomic log-and-counter writes) and also backs the collaborator
// ports the actions call: customers and tags, promotions and codes, mail
// templates and the mail outbox.
//
// All timestamps are stored as Unix milliseconds so compiled conditions
// compare exactly the values the in-memory evaluator sees. Every list query
// carries a deterministic ORDER BY.
package store
