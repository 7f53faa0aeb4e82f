package feed

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var quoteAndPlus = strings.NewReplacer("'", "''", "+", " ")

func isStorable(r rune) bool {
	return (r >= 0x20 && r <= 0x7E) || r == '\t' || r == '\n' || r == '\r'
}

// Sanitize prepares a feed value for storage: single quotes are doubled,
// '+' becomes a space, and anything outside printable ASCII (plus tab,
// newline and carriage return) is dropped. Invalid UTF-8 bytes are dropped too.
func Sanitize(value string) string {
	value = quoteAndPlus.Replace(value)

	out, _, err := transform.String(runes.Remove(runes.Predicate(func(r rune) bool {
		return !isStorable(r)
	})), value)
	if err != nil {
		return stripBytes(value)
	}
	return out
}

func stripBytes(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		if c := value[i]; isStorable(rune(c)) {
			b.WriteByte(c)
		}
	}
	return b.String()
}
