package identity

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeLogin performs case-insensitive canonicalization of a login.
func NormalizeLogin(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var (
	// Hyphen-minus, soft hyphen and the Unicode dash/hyphen family.
	dashRunRe    = regexp.MustCompile(`[\x{002D}\x{00AD}\x{058A}\x{05BE}\x{1400}\x{1806}\x{2010}-\x{2015}\x{2212}\x{2E3A}\x{2E3B}\x{301C}\x{3030}\x{30A0}\x{FF0D}]+`)
	spacedDashRe = regexp.MustCompile(`\s*-\s*`)
	dashesRe     = regexp.MustCompile(`-+`)
)

// NormalizeName maps every dash variant to "-", drops whitespace around
// dashes, collapses runs and trims leading/trailing dashes.
func NormalizeName(s string) string {
	s = strings.TrimSpace(s)
	s = dashRunRe.ReplaceAllString(s, "-")
	s = spacedDashRe.ReplaceAllString(s, "-")
	s = dashesRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// CapitalizeName normalizes s and capitalizes every hyphen-separated part:
// "иван--ПЕТР" becomes "Иван-Петр".
func CapitalizeName(s string) string {
	parts := strings.Split(NormalizeName(s), "-")
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, "-")
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[n:])
}
