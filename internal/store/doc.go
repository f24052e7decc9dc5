// Package store provides SQLite-backed run history for cconform.
//
// Every suite run is recorded with:
//   - suite_runs: run ID (UUIDv7), compiler invocation, timestamps, counts
//   - program_results: one row per attempted test case with its category
//     and a canonical JSON record of its outcome
//
// # Ordering
//
// Runs are listed newest first: ORDER BY started_at DESC, id DESC. UUIDv7
// IDs sort by creation time, so the id tiebreak keeps runs started within
// the same instant in a stable order. Programs keep report order.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: deleting a run deletes its programs
package store
