// Package normalize canonicalizes user-supplied link keys and tag names.
//
// Keys and tags follow different rules. Keys are case-sensitive identifiers
// and reject whitespace outright. Tags are case-folded and treat runs of
// whitespace as word separators. A whitespace-only tag normalizes to the
// empty string ("no tag"), which callers must tell apart from a rejected
// input.
package normalize

import (
	"regexp"
	"strings"
)

var (
	keyCharsRe = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	tagCharsRe = regexp.MustCompile(`^[a-z0-9-]*$`)
	dashRunRe  = regexp.MustCompile(`-{2,}`)
)

// Key returns the canonical form of a user-chosen link key.
//
//	"hello--there"  → "hello-there"
//	"-hello-there-" → "hello-there"
//	"HellO"         → "HellO"
//	"-", "my key", "abc123%" → rejected
func Key(raw string) (string, bool) {
	if raw == "" || !keyCharsRe.MatchString(raw) {
		return "", false
	}
	key := collapseDashes(raw)
	if key == "" {
		return "", false
	}
	return key, true
}

// Text returns the canonical tag name for raw.
//
//	"THE SKY"     → "the-sky"
//	"  tag  "     → "tag"
//	" "           → "" (valid, contributes no tag)
//	"", "tag_name_" → rejected
func Text(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	// strings.Fields splits on any Unicode whitespace run.
	s := strings.Join(strings.Fields(strings.ToLower(raw)), "-")
	s = collapseDashes(s)
	if !tagCharsRe.MatchString(s) {
		return "", false
	}
	return s, true
}

func collapseDashes(s string) string {
	return strings.Trim(dashRunRe.ReplaceAllString(s, "-"), "-")
}
