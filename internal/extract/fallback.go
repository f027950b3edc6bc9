package extract

import (
	"regexp"
	"strings"
)

// PlaceholderAnswer marks fallback candidates whose answer still needs
// generating; downstream stages treat it like any other answer text.
const PlaceholderAnswer = "[To be extracted from context]"

// fallbackPatterns capture the question text after each marker family.
var fallbackPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)\*\*Q\d*:\s*([^*\n]+)\*\*`),
	regexp.MustCompile(`(?im)Q\d*:\s*([^\n]+)`),
	regexp.MustCompile(`(?im)(?:Test Question|Quick Check)[^\n]*:\s*([^\n]+)`),
	regexp.MustCompile(`(?im)###[^\n]*(?:Check|Question)[^\n]*\n[^\n]*Q\d*:\s*([^\n]+)`),
}

// QuestionsByRegex pulls question text out of raw markers without the LLM.
// Duplicates are removed, first occurrence wins, order is otherwise
// preserved.
func QuestionsByRegex(text string) []string {
	var questions []string
	seen := make(map[string]bool)
	for _, pat := range fallbackPatterns {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			q := strings.Trim(m[1], "* \t")
			if q == "" || seen[q] {
				continue
			}
			seen[q] = true
			questions = append(questions, q)
		}
	}
	return questions
}

// fallbackCandidates wraps regex-found questions in placeholder-answer
// candidates, preserving partial recall when the LLM is unavailable.
func fallbackCandidates(questions []string, origin Origin) []Candidate {
	cands := make([]Candidate, 0, len(questions))
	for _, q := range questions {
		cands = append(cands, Candidate{
			Question: q,
			Answer:   PlaceholderAnswer,
			Origin:   origin,
		})
	}
	return cands
}
