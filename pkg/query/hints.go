package query

import (
	"regexp"
	"strings"
)

const maxHintConditions = 3

var (
	// hintComparison matches one simple comparison of a column against a
	// quoted string, a number, or another column. Anything the pattern does
	// not cover (subqueries, functions, OR chains) is ignored rather than
	// carried into the query.
	hintComparison = regexp.MustCompile(
		`\b[A-Za-z_][A-Za-z0-9_]*\s*(?:!=|<>|>=|<=|=|>|<)\s*(?:'[^']*'|-?[0-9]+(?:\.[0-9]+)?|[A-Za-z_][A-Za-z0-9_]*\b)`)

	// hintModulo matches divisibility conditions like "amount % 1000 = 0".
	hintModulo = regexp.MustCompile(
		`\b[A-Za-z_][A-Za-z0-9_]*\s*%\s*[0-9]+\s*=\s*-?[0-9]+`)
)

// mineHintConditions extracts safe extra WHERE conditions from a rule's
// free-text query hint. Only self-contained comparison atoms are taken, so
// a hostile hint cannot smuggle arbitrary SQL; conditions already present
// in the existing WHERE parts are skipped.
func mineHintConditions(hint string, existing []string) []string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return nil
	}

	have := strings.ToUpper(strings.Join(existing, " "))
	var mined []string

	matches := hintModulo.FindAllString(hint, -1)
	matches = append(matches, hintComparison.FindAllString(hint, -1)...)
	for _, match := range matches {
		condition := strings.TrimSpace(match)
		upper := strings.ToUpper(condition)
		if strings.Contains(have, upper) {
			continue
		}
		mined = append(mined, condition)
		have += " " + upper
		if len(mined) == maxHintConditions {
			break
		}
	}

	return mined
}
