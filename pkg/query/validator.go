package query

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultMaxQueryBytes is the maximum accepted query length.
	DefaultMaxQueryBytes = 64 * 1024
)

// selectPattern matches text whose first token is the SELECT keyword.
var selectPattern = regexp.MustCompile(`(?i)^\s*SELECT\b`)

// Reason identifies why a query was rejected. The taxonomy is fixed; every
// rejection carries exactly one reason.
type Reason string

const (
	// ReasonMultiStatement marks text containing more than one statement.
	ReasonMultiStatement Reason = "MULTI_STATEMENT"

	// ReasonNotSelect marks text that does not start with SELECT.
	ReasonNotSelect Reason = "NOT_SELECT"

	// ReasonBlockedKeyword marks text containing a DDL or DML keyword as a
	// standalone token.
	ReasonBlockedKeyword Reason = "BLOCKED_KEYWORD"

	// ReasonEmptyOrOversize marks empty, comment-only, or oversize text.
	ReasonEmptyOrOversize Reason = "EMPTY_OR_OVERSIZE"
)

// Stage names the validation stage that rejected a query.
type Stage string

const (
	// StageStructural is the raw-text sanity stage (empty, oversize,
	// comment-only input).
	StageStructural Stage = "structural"

	// StageSelectOnly is the SELECT-prefix stage.
	StageSelectOnly Stage = "select_only"

	// StageBlocklist is the keyword blocklist stage.
	StageBlocklist Stage = "blocklist"

	// StageSingleStatement is the multi-statement detection stage.
	StageSingleStatement Stage = "single_statement"
)

// Outcome is the result of validating one candidate query. A failed outcome
// names exactly one stage and one reason; it never partially passes.
type Outcome struct {
	Valid  bool   `json:"valid"`
	Stage  Stage  `json:"stage,omitempty"`
	Reason Reason `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Validator checks candidate query text against the read-only allowlist.
// It is pure and safe for concurrent use.
type Validator struct {
	maxBytes int
}

// NewValidator creates a validator. maxBytes bounds the accepted query
// length; values <= 0 fall back to DefaultMaxQueryBytes.
func NewValidator(maxBytes int) *Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxQueryBytes
	}
	return &Validator{maxBytes: maxBytes}
}

// Validate runs the ordered stages over the candidate text, short-circuiting
// at the first failure. Comment stripping happens before any content
// inspection so a statement cannot hide a second statement or a forbidden
// keyword inside a comment.
func (v *Validator) Validate(text string) Outcome {
	if strings.TrimSpace(text) == "" {
		return reject(StageStructural, ReasonEmptyOrOversize, "query is empty")
	}
	if len(text) > v.maxBytes {
		return reject(StageStructural, ReasonEmptyOrOversize,
			fmt.Sprintf("query is %d bytes, limit is %d", len(text), v.maxBytes))
	}

	stripped := strings.TrimSpace(stripComments(text))
	if stripped == "" {
		return reject(StageStructural, ReasonEmptyOrOversize, "query contains only comments")
	}

	if !selectPattern.MatchString(stripped) {
		first := strings.Fields(stripped)[0]
		return reject(StageSelectOnly, ReasonNotSelect,
			fmt.Sprintf("must start with SELECT, got %q", first))
	}

	if keyword := findBlockedKeyword(stripped); keyword != "" {
		return reject(StageBlocklist, ReasonBlockedKeyword,
			fmt.Sprintf("blocked keyword: %s", keyword))
	}

	if n := countStatements(stripped); n > 1 {
		return reject(StageSingleStatement, ReasonMultiStatement,
			fmt.Sprintf("%d statements found", n))
	}

	return Outcome{Valid: true}
}

// countStatements counts non-empty statement segments. A trailing separator
// with nothing after it does not count as a second statement.
func countStatements(text string) int {
	count := 0
	for _, segment := range strings.Split(text, ";") {
		if strings.TrimSpace(segment) != "" {
			count++
		}
	}
	return count
}

func reject(stage Stage, reason Reason, detail string) Outcome {
	return Outcome{Stage: stage, Reason: reason, Detail: detail}
}
