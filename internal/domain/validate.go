package domain

import (
	"regexp"
	"strings"
)

// local@domain.tld, no whitespace, exactly one @.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
