package classify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/ankify-dev/ankify/internal/extract"
)

// Category labels a classified candidate. CategorySocratic is the only
// accepted one; the rest are diagnostics.
const (
	CategorySocratic   = "socratic_test"
	CategoryFAQ        = "faq"
	CategoryRhetorical = "rhetorical"
	CategoryMeta       = "meta"
	CategoryOther      = "other"
	CategoryTooShort   = "too_short"
	CategoryError      = "error"
)

// Classified is a candidate plus the judgment made about it.
type Classified struct {
	extract.Candidate
	Category string `json:"category"`
	Accept   bool   `json:"accept"`
}

// Rules are the local, deterministic Tier A checks. The thresholds come from
// the latest post-processing pass of the experiments: question length 15,
// case-insensitive substring matching for exclusions.
type Rules struct {
	MinQuestionLength int
	ExcludePhrases    []string
}

// DefaultRules rejects question fragments that showed up repeatedly as FAQ
// headers or meta commentary rather than comprehension checks.
func DefaultRules() Rules {
	return Rules{
		MinQuestionLength: 15,
		ExcludePhrases: []string{
			"how to obtain",
			"deck strategy",
			"duplicate handling",
			"edge cases",
			"mvp first",
			"what cellular fate",
			"checking your understanding",
			"can you explain",
		},
	}
}

// Completer is the LLM judge behind Tier B.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Classifier struct {
	llm    Completer
	rules  Rules
	logger *slog.Logger

	// Category counts, diagnostics only.
	counts map[string]int
}

func New(llm Completer, rules Rules, logger *slog.Logger) *Classifier {
	return &Classifier{
		llm:    llm,
		rules:  rules,
		logger: logger,
		counts: make(map[string]int),
	}
}

type verdict struct {
	IsSocratic bool   `json:"is_socratic"`
	Reasoning  string `json:"reasoning"`
	Category   string `json:"category"`
}

// Classify judges one candidate. Tier A rejects cheaply; survivors go to the
// Tier B rubric. If the judge is unavailable the candidate is rejected with
// category "error": precision over recall when in doubt.
func (c *Classifier) Classify(ctx context.Context, cand extract.Candidate) Classified {
	question := cand.Question

	if len(question) < c.rules.MinQuestionLength || !strings.HasSuffix(question, "?") {
		return c.record(cand, CategoryTooShort, false)
	}

	lower := strings.ToLower(question)
	for _, phrase := range c.rules.ExcludePhrases {
		if strings.Contains(lower, phrase) {
			return c.record(cand, CategoryFAQ, false)
		}
	}

	raw, err := c.llm.Complete(ctx, filterSystemPrompt, filterPrompt+"\n\n"+question)
	if err != nil {
		c.logger.Warn("classification call failed",
			"error", err,
			"question", question,
		)
		return c.record(cand, CategoryError, false)
	}

	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		c.logger.Warn("classification response did not parse",
			"error", err,
			"raw", raw,
		)
		return c.record(cand, CategoryError, false)
	}

	category := v.Category
	if category == "" {
		category = CategoryOther
	}
	return c.record(cand, category, v.IsSocratic)
}

func (c *Classifier) record(cand extract.Candidate, category string, accept bool) Classified {
	c.counts[category]++
	return Classified{Candidate: cand, Category: category, Accept: accept}
}

// Counts returns a copy of the per-category tallies seen so far.
func (c *Classifier) Counts() map[string]int {
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
