package util

import (
	"regexp"
	"strings"
)

var nonPhone = regexp.MustCompile(`[^\d\+]+`)

// NormalizePhone tries to normalize user input into E.164-like format.
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	s = nonPhone.ReplaceAllString(s, "")

	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	}

	return s
}
