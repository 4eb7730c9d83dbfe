// Package core provides the business logic for roster and attendance
// operations.
//
// This package contains all domain logic independent of any transport
// layer. It can be used by web handlers, CLI tools, or tests without
// modification.
//
// # Architecture
//
// Two subsystems carry the real logic:
//
//   - Import reconciliation: [NormalizeRow] maps one decoded tabular
//     row to a canonical student using the ordered [ImportAliases]
//     header-matching table, [DeduplicateLast] collapses duplicate
//     enrollment numbers (last row wins), and [Service.ImportRoster]
//     upserts the survivors against the store's natural key inside one
//     transaction, collecting per-record failures without aborting
//     the batch.
//   - Session operations: [Service.CreateSession] snapshots the
//     roster's current membership as PRESENT records in one atomic
//     unit; [Service.SaveSession] applies status updates and lock
//     toggles, with the persisted lock flag re-checked by the store.
//
// # Error Handling
//
// Request-shape problems are reported as validation errors
// (errors.Is with [ErrValidation]); unknown ids surface the store's
// ErrNotFound; per-record import and save failures are collected and
// returned alongside an overall success result, never silently
// dropped.
package core
