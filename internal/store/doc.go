// Package store provides a SQLite-backed journal of scenario runs.
//
// Each run is written once, in a single transaction, with one row per
// executed step:
//   - runs: one row per run (scenario, endpoint, final state, counts, times)
//   - steps: one row per executed step, keyed by (run_id, idx)
//
// # Ordering
//
// Runs carry a journal sequence number assigned at insert time. Queries
// order by seq ASC, id ASC COLLATE BINARY so listings are stable regardless
// of wall-clock skew between writers.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Step payloads are stored as canonical JSON (see ir.MarshalCanonical).
package store
