// Package grid tracks edits made to an editable data grid and shapes them into
// batched save and delete payloads for the MES backend.
//
// A grid holds a full list of rows plus two ordered pending sets:
//   - Pending-New: rows created client-side under a temporary "NEW_" id
//   - Pending-Updated: persisted rows carrying unsaved local edits
//
// All state transitions go through Reduce, which takes one State and returns a
// new one, so the full list and both pending sets always reflect the same edit.
// Tracker wraps a State for a single grid instance and serialises access to it.
//
// FormatSave and FormatDelete are pure functions that map the accumulated
// pending sets (or a selection) through caller-supplied per-row mappers.
package grid
