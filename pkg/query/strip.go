package query

import "strings"

// stripComments removes SQL comment sequences from the text before
// inspection. Line comments (-- to end of line) and block comments
// (/* ... */, non-nesting) are each replaced with a single space so that
// token boundaries survive and comment removal can never splice two
// fragments into a new keyword. An unterminated block comment swallows the
// rest of the text, which the structural stage then rejects as comment-only
// if nothing else remains.
func stripComments(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); {
		if text[i] == '-' && i+1 < len(text) && text[i+1] == '-' {
			for i < len(text) && text[i] != '\n' {
				i++
			}
			b.WriteByte(' ')
			continue
		}

		if text[i] == '/' && i+1 < len(text) && text[i+1] == '*' {
			i += 2
			for i < len(text) {
				if text[i] == '*' && i+1 < len(text) && text[i+1] == '/' {
					i += 2
					break
				}
				i++
			}
			b.WriteByte(' ')
			continue
		}

		b.WriteByte(text[i])
		i++
	}

	return b.String()
}
