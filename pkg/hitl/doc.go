// Package hitl holds analyst dispositions for violations.
//
// The store is current-state only: one row per violation key, last write
// wins. PENDING is the implicit initial state for any key with no recorded
// decision, so a fresh violation needs no write to be reviewable. Any state
// may transition to any other state; re-opening a CONFIRMED item back to
// PENDING is an intentional part of the review model.
//
// Every transition appends an audit event capturing the prior state, new
// state, analyst, and notes before the current-state row is updated, so the
// full decision history stays reconstructable from the ledger even though
// this store only keeps the latest state.
package hitl
