package services

import "strings"

// DetectBookingIntent reports whether text contains any trigger phrase,
// ignoring case. Empty triggers never match.
func DetectBookingIntent(triggers []string, text string) bool {
	lower := strings.ToLower(text)
	for _, t := range triggers {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
