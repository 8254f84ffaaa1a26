package model

import (
	"strings"
	"unicode"
)

// Slugify lowercases s, keeps letters and digits, and collapses every other
// run of characters into a single hyphen. "Hello, World!" → "hello-world".
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
