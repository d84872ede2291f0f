// Package store provides the SQLite dispatch journal.
//
// The journal records scenario runs made by the reducerx tool:
//   - runs: one row per run, with the scenario's variant and initial state
//   - dispatches: one row per reducer call, with the action, the resulting
//     state and whether the reference changed
//
// Payloads and states are stored as RFC 8785 canonical JSON so that a
// replayed run can be compared byte for byte. Rows are read back ordered
// by seq, never by wall time.
//
// The reducerx library itself has no persistence; only the tool writes
// here.
//
// The file is opened in WAL mode with a five second busy timeout and
// foreign keys on, through a single connection. PRAGMA user_version holds
// the journal version; Open migrates older files forward.
package store
