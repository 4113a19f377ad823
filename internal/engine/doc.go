// Package engine runs batches of Smarm evaluations and records them.
//
// ARCHITECTURE:
//
// Worker Pool, Single Writer:
// Jobs are evaluated concurrently on a bounded pool (WithWorkers). Each
// evaluation is independent: it owns its budget, machine and cells, and
// shares only the immutable root environment of its version. Outcomes flow
// back to one writer, which stamps and records them in submission order.
// This ensures:
// - The ledger does not depend on scheduling
// - Seq numbers are dense within a batch
// - Replay compares records in the order they were written
//
// Processing Flow:
// 1. Run(jobs) hands every job to the pool
// 2. A worker applies the quota and calls runtime.Evaluate
// 3. The writer waits for the next job in submission order
// 4. The writer assigns an ID and a seq (Clock.Next) and writes the record
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Records are stamped with seq from Clock, never wall-clock time. A
// writer that appends to an existing ledger resumes with NewClockAt.
//
// Halts Are Outcomes:
// A halted evaluation is recorded like a successful one. Only jobs that
// were never evaluated (quota, invalid request, cancellation) are left out
// of the ledger.
//
// Replay:
// Replay re-evaluates records and compares outcome and usage. A mismatch
// means the evaluator or the environment manifest changed behavior.
package engine
