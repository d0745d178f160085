package util

import "strings"

// DigitsOnly strips everything but ASCII digits
func DigitsOnly(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

var pathReplacer = strings.NewReplacer(
	" ", "_",
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizePathSegment makes s safe to use as a single directory or file name.
// Spaces become underscores, separators and reserved characters are replaced,
// and names that would escape the parent ("", ".", "..") become fallback.
func SanitizePathSegment(s, fallback string) string {
	s = pathReplacer.Replace(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	s = strings.Trim(s, ".")

	if len(s) > 100 {
		s = strings.ToValidUTF8(s[:100], "")
	}
	if s == "" {
		return fallback
	}
	return s
}
