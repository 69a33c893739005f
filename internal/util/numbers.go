package util

import (
	"regexp"
	"strconv"
	"strings"
)

var leadingIntRe = regexp.MustCompile(`^\s*[+-]?\d+`)

// LeadingInt parses the integer prefix of s, so "720p" gives 720 and "2.5" gives 2
func LeadingInt(s string) (int, bool) {
	m := leadingIntRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil {
		return 0, false
	}
	return n, true
}
