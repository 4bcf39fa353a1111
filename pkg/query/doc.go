// Package query produces and validates candidate SQL for compliance checks.
//
// The validator is a deliberately conservative filter, not a SQL parser. It
// runs ordered, independent stages over the candidate text and rejects at
// the first failure with exactly one machine-readable reason: structural
// sanity on the raw text, comment stripping so nothing hides inside a
// comment, a SELECT-only prefix check, a standalone-token keyword blocklist,
// and a single-statement check. The design accepts false rejections to rule
// out any false acceptance.
//
// The producer side turns a policy rule into candidate text. Producers are
// interchangeable strategies behind the Producer interface; the validator
// and executor never branch on which strategy produced the text, only on
// the text itself. TemplateProducer is the deterministic built-in that
// renders a rule's field, operator, and threshold into a SELECT statement,
// merging safe extra conditions mined from the rule's query hint.
package query
