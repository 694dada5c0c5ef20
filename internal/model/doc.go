// Package model provides the entity types shared by the automation engine,
// its stores and its collaborators.
//
// This package contains type definitions only. All other internal packages
// import model; model imports nothing internal.
//
// Key design constraints:
//   - Timestamps are UTC and carry millisecond precision (the store persists
//     Unix milliseconds)
//   - Rule conditions and actions are flat key-value configs tagged by "type"
//   - All JSON tags use camelCase to match the admin surface payloads
package model
