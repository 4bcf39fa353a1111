package rules

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fieldPattern matches safe dataset column identifiers. Anything else is
// rejected at validation rather than quoted into a query later.
var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// numericOperators is the operator set accepted for numeric rule kinds
// (threshold, frequency, ratio), in canonical form.
var numericOperators = map[string]bool{
	">": true, "<": true, ">=": true, "<=": true, "=": true, "<>": true,
}

// membershipOperators is the operator set accepted for text rule kinds
// (pattern, jurisdiction), in canonical form.
var membershipOperators = map[string]bool{
	"=": true, "<>": true, "IN": true, "NOT IN": true,
}

// CanonicalOperator normalizes a comparison operator to its canonical form:
// "==" becomes "=", "!=" becomes "<>", and IN / NOT IN are uppercased with
// single internal spacing. Returns false when the operator is not in the
// accepted set. Canonicalization runs before fingerprinting so that
// equivalent spellings of the same rule deduplicate.
func CanonicalOperator(op string) (string, bool) {
	normalized := strings.Join(strings.Fields(op), " ")

	switch normalized {
	case "==":
		normalized = "="
	case "!=":
		normalized = "<>"
	}

	switch upper := strings.ToUpper(normalized); upper {
	case "IN", "NOT IN":
		normalized = upper
	}

	switch normalized {
	case ">", "<", ">=", "<=", "=", "<>", "IN", "NOT IN":
		return normalized, true
	}
	return "", false
}

// validateCandidate checks one candidate against the per-kind schema and
// canonicalizes its operator in place. Returns nil when the rule is valid.
func validateCandidate(index int, rule *Rule) *RuleError {
	if !rule.Kind.IsValid() {
		return NewRuleError(index, rule.ID, "kind",
			"must be one of threshold, pattern, frequency, jurisdiction, ratio")
	}

	if strings.TrimSpace(rule.Field) == "" {
		return NewRuleError(index, rule.ID, "field", "is required")
	}
	if !fieldPattern.MatchString(rule.Field) {
		return NewRuleError(index, rule.ID, "field", "must be a plain column identifier")
	}

	op, ok := CanonicalOperator(rule.Operator)
	if !ok {
		return NewRuleError(index, rule.ID, "operator", "is not a recognized comparison operator")
	}
	rule.Operator = op

	if rule.Threshold == nil {
		return NewRuleError(index, rule.ID, "threshold", "is required")
	}
	if _, err := json.Marshal(rule.Threshold); err != nil {
		return NewRuleError(index, rule.ID, "threshold", "is not serializable")
	}

	switch rule.Kind {
	case KindThreshold, KindFrequency, KindRatio:
		if !isNumeric(rule.Threshold) {
			return NewRuleError(index, rule.ID, "threshold", "must be numeric for kind "+string(rule.Kind))
		}
		if !numericOperators[rule.Operator] {
			return NewRuleError(index, rule.ID, "operator",
				"membership operators are not valid for kind "+string(rule.Kind))
		}
	case KindPattern, KindJurisdiction:
		if !isText(rule.Threshold) && !isTextList(rule.Threshold) {
			return NewRuleError(index, rule.ID, "threshold",
				"must be a string or list of strings for kind "+string(rule.Kind))
		}
		if !membershipOperators[rule.Operator] {
			return NewRuleError(index, rule.ID, "operator",
				"ordering operators are not valid for kind "+string(rule.Kind))
		}
		if isTextList(rule.Threshold) && rule.Operator != "IN" && rule.Operator != "NOT IN" {
			return NewRuleError(index, rule.ID, "operator", "list thresholds require IN or NOT IN")
		}
	}

	return nil
}

// isNumeric reports whether the value is a number under any of the types a
// JSON or YAML decoder produces.
func isNumeric(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	case json.Number:
		_, err := n.Float64()
		return err == nil
	}
	return false
}

// isText reports whether the value is a plain string.
func isText(v any) bool {
	_, ok := v.(string)
	return ok
}

// isTextList reports whether the value is a non-empty list of strings,
// accepting both []string and the []any a JSON decoder produces.
func isTextList(v any) bool {
	switch list := v.(type) {
	case []string:
		return len(list) > 0
	case []any:
		if len(list) == 0 {
			return false
		}
		for _, item := range list {
			if _, ok := item.(string); !ok {
				return false
			}
		}
		return true
	}
	return false
}
