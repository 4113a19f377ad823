// Package store provides SQLite-backed durable storage for evaluation records.
//
// The ledger is append-only. Each record holds everything needed to run an
// evaluation again and check the outcome:
//   - the canonical program bytes and the request (budgets, environment
//     version, grants)
//   - the outcome: canonical result bytes or a halt (code, message, details)
//   - budget usage and the program, manifest and result content IDs
//
// # Ordering
//
// Records are ordered by seq, a logical sequence number assigned by the
// writer, never by timestamps. All list queries use
// ORDER BY seq ASC, id ASC COLLATE BINARY so two reads of the same ledger
// return identical slices.
//
// Record IDs are UUIDv7 strings. They are host metadata only: nothing about
// an evaluation depends on them.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
