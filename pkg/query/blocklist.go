package query

import (
	"regexp"
	"strings"
)

// blockedKeywords is the DDL/DML blocklist. Matching is by standalone token,
// never by substring, so an identifier like "dropped_at" passes while the
// keyword DROP does not.
var blockedKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "CREATE", "ALTER",
	"TRUNCATE", "REPLACE", "MERGE", "EXECUTE", "EXEC", "CALL",
	"GRANT", "REVOKE", "COPY", "ATTACH", "DETACH", "LOAD", "IMPORT", "EXPORT",
}

// blockedPattern matches any blocklisted keyword on word boundaries,
// case-insensitively. EXECUTE is listed before EXEC so the longer token
// reports under its own name.
var blockedPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(blockedKeywords, "|") + `)\b`)

// findBlockedKeyword returns the first blocklisted keyword appearing as a
// standalone token in the text, uppercased, or "" when none appears.
func findBlockedKeyword(text string) string {
	match := blockedPattern.FindString(text)
	if match == "" {
		return ""
	}
	return strings.ToUpper(match)
}
