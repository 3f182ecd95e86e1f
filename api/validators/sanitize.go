package validators

import (
	"strings"
	"unicode"
)

// SanitizeText trims input, drops control characters, collapses runs of
// whitespace and cuts the result to maxLen runes. Free-text reasons end up in
// ledger metadata and provider dashboards, so they are stored single-line.
func SanitizeText(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))
	space := false
	runes := 0
	for _, r := range strings.TrimSpace(input) {
		if maxLen > 0 && runes >= maxLen {
			break
		}
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if space && b.Len() > 0 {
			if maxLen > 0 && runes+2 > maxLen {
				break
			}
			b.WriteByte(' ')
			runes++
		}
		space = false
		b.WriteRune(r)
		runes++
	}
	return b.String()
}
