package service

import (
	"net/url"
	"strings"
	"time"
	"unicode"
)

const minDescriptionLength = 20

// isAbsoluteURL accepts http(s) URLs that carry a host.
func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// parseDueDate accepts RFC 3339 timestamps and plain dates. The second
// return value reports whether the input carried a time of day.
func parseDueDate(raw string) (time.Time, bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true, true
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, false, true
	}
	return time.Time{}, false, false
}

// isPast compares date-only values against the start of today so a due date
// of today is still accepted.
func isPast(due time.Time, hasClock bool, now time.Time) bool {
	if hasClock {
		return due.Before(now)
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return due.Before(today)
}

// isStrongPassword mirrors the sign-up rule: six or more characters with at
// least one lower-case and one upper-case letter.
func isStrongPassword(p string) bool {
	var lower, upper bool
	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		}
	}
	return lower && upper && len([]rune(p)) >= 6
}
