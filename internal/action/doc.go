// Package action implements the side-effecting steps of an automation
// pipeline.
//
// Every action receives the matched cart, its flat configuration and a
// per-execution Context that carries values (such as a generated voucher
// code) forward to later actions of the same pipeline. Missing required
// configuration is logged and skipped; downstream failures are returned so
// the engine can record them against the action without aborting the
// pipeline.
package action
