package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"warden-hq/warden/pkg/rules"
)

// Provenance tags recorded on candidate queries. The validator and executor
// never branch on provenance; it exists for audit and reporting.
const (
	// ProvenanceTemplate marks text built by the deterministic template
	// producer.
	ProvenanceTemplate = "template"

	// ProvenanceExternal marks text supplied by an external collaborator.
	ProvenanceExternal = "external"
)

// Candidate is one unit of query text bound for validation and execution.
type Candidate struct {
	Text       string `json:"text"`
	RuleID     string `json:"rule_id"`
	Provenance string `json:"provenance"`
}

// Producer turns a policy rule into candidate query text. Implementations
// are interchangeable strategies; every candidate still passes validation
// before execution regardless of which producer made it.
type Producer interface {
	Produce(rule rules.Rule) (Candidate, error)
}

// BuildError reports that no candidate query could be built from a rule.
type BuildError struct {
	RuleID string
	Reason string
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("cannot build query for rule %s: %s", e.RuleID, e.Reason)
}

// NewBuildError creates a new BuildError.
func NewBuildError(ruleID, reason string) *BuildError {
	return &BuildError{RuleID: ruleID, Reason: reason}
}

// DefaultPreferredColumns is the projection used when the live dataset
// schema has not been inspected, in priority order.
var DefaultPreferredColumns = []string{
	"account", "counterparty", "amount", "currency",
	"country", "merchant", "channel", "status", "created_at",
}

// TemplateProducer deterministically renders a rule into a SELECT statement:
// WHERE <field> <operator> <threshold>, plus any safe extra conditions mined
// from the rule's query hint. It is pure and safe for concurrent use.
type TemplateProducer struct {
	table   string
	columns []string
}

// NewTemplateProducer creates a template producer targeting the given table.
// columns is the projection, typically DefaultPreferredColumns filtered to
// the live schema; an empty list projects *.
func NewTemplateProducer(table string, columns []string) *TemplateProducer {
	return &TemplateProducer{table: table, columns: columns}
}

// Table returns the table the producer renders queries against.
func (p *TemplateProducer) Table() string {
	return p.table
}

// Produce builds the candidate query for one rule.
func (p *TemplateProducer) Produce(rule rules.Rule) (Candidate, error) {
	if strings.TrimSpace(rule.Field) == "" {
		return Candidate{}, NewBuildError(rule.ID, "rule has no target field")
	}

	op, ok := rules.CanonicalOperator(rule.Operator)
	if !ok {
		return Candidate{}, NewBuildError(rule.ID, fmt.Sprintf("unsupported operator %q", rule.Operator))
	}

	value, isList, err := renderThreshold(rule.Threshold)
	if err != nil {
		return Candidate{}, NewBuildError(rule.ID, err.Error())
	}
	if isList && op != "IN" && op != "NOT IN" {
		// A list threshold only makes sense as a membership test.
		op = "IN"
	}

	whereParts := []string{fmt.Sprintf("%s %s %s", rule.Field, op, value)}
	whereParts = append(whereParts, mineHintConditions(rule.QueryHint, whereParts)...)

	projection := "*"
	if len(p.columns) > 0 {
		projection = strings.Join(p.columns, ", ")
	}

	text := fmt.Sprintf("SELECT %s\nFROM %s\nWHERE %s",
		projection, p.table, strings.Join(whereParts, " AND "))

	return Candidate{
		Text:       text,
		RuleID:     rule.ID,
		Provenance: ProvenanceTemplate,
	}, nil
}

// renderThreshold renders a threshold value as a SQL literal. Lists render
// as a parenthesized literal tuple and report isList true.
func renderThreshold(threshold any) (value string, isList bool, err error) {
	switch v := threshold.(type) {
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		value, err = renderTuple(items)
		return value, true, err
	case []any:
		value, err = renderTuple(v)
		return value, true, err
	default:
		value, err = renderScalar(threshold)
		return value, false, err
	}
}

func renderTuple(items []any) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("threshold list is empty")
	}
	rendered := make([]string, len(items))
	for i, item := range items {
		scalar, err := renderScalar(item)
		if err != nil {
			return "", err
		}
		rendered[i] = scalar
	}
	return "(" + strings.Join(rendered, ", ") + ")", nil
}

func renderScalar(v any) (string, error) {
	switch n := v.(type) {
	case string:
		return quoteLiteral(n), nil
	case int:
		return strconv.Itoa(n), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32), nil
	case json.Number:
		return n.String(), nil
	case bool:
		if n {
			return "1", nil
		}
		return "0", nil
	case nil:
		return "", fmt.Errorf("threshold is missing")
	default:
		return "", fmt.Errorf("threshold type %T is not renderable", v)
	}
}

// quoteLiteral renders a string as a SQL literal, doubling embedded quotes.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
