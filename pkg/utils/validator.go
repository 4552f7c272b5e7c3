package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	rollNumberRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-/]{2,23}$`)
	controlRegex    = regexp.MustCompile(`[\x00-\x08\x0b-\x1f\x7f]`)
	lineBreakRegex  = regexp.MustCompile(`[\t\n]+`)
)

// ValidateRollNumber validates a college roll number such as "21CS001"
func ValidateRollNumber(roll string) error {
	if !rollNumberRegex.MatchString(roll) {
		return fmt.Errorf("invalid roll number format: %q", roll)
	}
	return nil
}

// SanitizeString removes control characters and trims surrounding space.
// Newlines and tabs survive so multi-line letter bodies keep their layout.
func SanitizeString(s string) string {
	return strings.TrimSpace(controlRegex.ReplaceAllString(s, ""))
}

// SanitizeLine is SanitizeString for single-line fields: tabs and newlines collapse to one space
func SanitizeLine(s string) string {
	return strings.TrimSpace(lineBreakRegex.ReplaceAllString(SanitizeString(s), " "))
}
