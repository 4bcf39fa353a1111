// Package rules manages the policy rule repository for compliance monitoring.
//
// The repository holds the live set of policy rules, deduplicated by content
// fingerprint, plus the full history of immutable rule-set snapshots. A
// fingerprint is a stable hash over a rule's semantic fields (kind, field,
// operator, threshold) and deliberately excludes the identifier and
// description, so re-ingesting a semantically identical rule is detected as
// a duplicate regardless of cosmetic changes.
//
// Ingestion has partial-failure semantics: structurally invalid rules are
// rejected per-rule with a named field error while the rest of the batch
// proceeds. Duplicates are skipped and recorded as informational audit
// events, never errors. Before any batch mutates the live set, the
// repository writes exactly one snapshot of the pre-mutation set with a
// monotonically increasing version number. Snapshots are never edited or
// deleted.
//
// Storage is pluggable via the Storage interface. The storage subpackage
// provides a SQLite implementation for production use and an in-memory
// implementation for testing.
package rules
