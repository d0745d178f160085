// Package cfop normalizes tax-operation codes (CFOP) and indexes the
// reference table that describes them.
package cfop

import (
	"regexp"
	"strings"

	"github.com/ppiankov/fiscalia/internal/model"
)

var canonicalPattern = regexp.MustCompile(`^\d\.\d{3}$`)

// Normalize converts a raw code into the D.DDD form.
//
// Separators are stripped first. When what remains is not all digits, or has
// fewer than 4 digits, raw is returned unchanged so the caller can tell the
// code was not normalizable (see IsCanonical).
func Normalize(raw string) string {
	digits := strings.ReplaceAll(raw, ".", "")
	if len(digits) < 4 || !allDigits(digits) {
		return raw
	}
	return digits[:1] + "." + digits[1:]
}

// IsCanonical reports whether code is exactly one digit, a dot and three digits
func IsCanonical(code string) bool {
	return canonicalPattern.MatchString(code)
}

// DirectionOf classifies a code by its leading digit.
// The code is normalized first; an empty code is non-commercial.
func DirectionOf(code string) model.Direction {
	code = Normalize(code)
	if code == "" {
		return model.DirectionNonCommercial
	}
	switch code[0] {
	case '1', '2', '3':
		return model.DirectionInbound
	case '5', '6', '7':
		return model.DirectionOutbound
	default:
		return model.DirectionNonCommercial
	}
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
