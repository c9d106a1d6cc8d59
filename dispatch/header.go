package dispatch

import "strings"

// extractFirstBold scans text for the first balanced "**...**" span with
// non-empty trimmed inner text (§4.D). Returns ok=false when no closing
// "**" has been seen yet, in which case the caller retains its prior
// header (S4).
func extractFirstBold(text string) (string, bool) {
	start := strings.Index(text, "**")
	if start < 0 {
		return "", false
	}
	rest := text[start+2:]
	end := strings.Index(rest, "**")
	if end < 0 {
		return "", false
	}
	inner := strings.TrimSpace(rest[:end])
	if inner == "" {
		return "", false
	}
	return inner, true
}
