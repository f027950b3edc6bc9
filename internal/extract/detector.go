package extract

import (
	"regexp"
	"strings"
)

// Messages shorter than this never carry a full teaching exchange.
const minMessageLength = 50

// markerPatterns are the question marker families, tried in order. They match
// the explicit forms tutors on the upstream service actually produce:
// "Q:"/"Q1:" lines, "Quick Check", "Test Question", "Check #N", and
// checkmark-prefixed check headers.
var markerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)Q\d*:\s*[^\n]+\?`),
	regexp.MustCompile(`(?im)Quick Check[^\n]*:\s*[^\n]+\?`),
	regexp.MustCompile(`(?im)Test Question[^\n]*:\s*[^\n]+\?`),
	regexp.MustCompile(`(?im)Check #\d+[^\n]*:\s*[^\n]+\?`),
	regexp.MustCompile(`(?im)✅[^\n]*Check[^\n]*:\s*[^\n]+\?`),
	regexp.MustCompile(`(?im)\*\*Q\d*:\*\*\s*[^\n]+\?`),
}

// LooksLikeTeachingQuestion is the cheap gate in front of the LLM extractor.
// A message qualifies only when a marker match falls within its final
// quartile of lines (at least the last 10): teaching questions follow the
// explanation, while the same markers mid-message are usually FAQ headers.
// False negatives drop real questions silently; that is the accepted cost of
// bounding extraction calls.
func LooksLikeTeachingQuestion(text string) bool {
	if len(text) < minMessageLength {
		return false
	}

	lines := strings.Split(strings.TrimSpace(text), "\n")
	tailSize := len(lines) / 4
	if tailSize < 10 {
		tailSize = 10
	}
	start := len(lines) - tailSize
	if start < 0 {
		start = 0
	}
	tail := strings.Join(lines[start:], "\n")

	for _, pat := range markerPatterns {
		if pat.MatchString(text) && pat.MatchString(tail) {
			return true
		}
	}
	return false
}
