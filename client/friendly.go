package client

import "strings"

// FriendlyMessage maps a raw execution error onto a message a user can act
// on. Unrecognized errors pass through unchanged; this is a presentation
// heuristic, not error classification.
func FriendlyMessage(raw string) string {
	lower := strings.ToLower(raw)

	switch {
	case strings.Contains(lower, "configuration invalid"),
		strings.Contains(lower, "missing config"),
		strings.Contains(lower, "no usable credentials"):
		return "The data source is not configured. Check the source's API URL and key, then retry."

	case strings.Contains(lower, "template"):
		return "The dataset's query template could not be found. Re-create the dataset or restore its template."

	case strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "too many requests"),
		strings.Contains(lower, "status 429"):
		return "The external API is rate limiting requests. Wait a few minutes and retry."

	default:
		return raw
	}
}
