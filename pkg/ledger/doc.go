// Package ledger implements the append-only audit ledger.
//
// Every consequential action in the system (rule ingestion, snapshot
// creation, blocked queries, execution failures, pipeline runs, review
// decisions) is recorded as an immutable Event with a strictly increasing,
// gapless sequence number. The ledger is the source of truth for "what
// happened and in what order": events are never updated or deleted through
// this package's API.
//
// Sequence numbers are assigned under a single-writer lock and advance only
// after the backing store has accepted the event, so a crash can never leave
// a hole in the sequence. A storage failure during append surfaces as a
// *WriteFault, which callers must treat as fatal to the operation in
// progress: an action whose audit event cannot be recorded must not be
// reported as successful.
package ledger
