// Package kanban persists boards, cards, users, and the audit log in SQLite
// and exposes the atomic primitives the coordination engines build on: the
// per-board card counter, the conditional lock writes, and the
// compare-and-set stage move.
//
// Structured columns (stages, custom fields, translation steps) are stored as
// JSON; everything the engines race over (counter, lock fields, stage id)
// lives in plain columns so a single conditional UPDATE can arbitrate.
package kanban
