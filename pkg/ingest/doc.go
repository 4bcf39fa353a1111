// Package ingest watches a drop directory for rule descriptor files and
// feeds them to the rule repository.
//
// Files are untrusted input: each *.json file is size-capped, parsed, and
// ingested on its own, so one malformed file never blocks the others.
// Bursts of file events are debounced into a single directory scan, and a
// file is re-ingested only when its modification time advances. Duplicate
// rules inside re-dropped files are absorbed by the repository's
// fingerprint deduplication.
package ingest
