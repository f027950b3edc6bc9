package fix

// Fixer rewrites known-incomplete questions into context-complete forms.
// It is a closed, hand-maintained patch table: exact-match lookup only, no
// fuzzy matching, and rewritten questions are never themselves keys, so
// applying it twice is the same as applying it once.
type Fixer struct {
	rewrites map[string]string
}

// defaultRewrites covers questions that depend on a numeric scenario set up
// earlier in the message and are useless on a flashcard without it.
var defaultRewrites = map[string]string{
	"How many nucleotides total does that mean (considering both strands)?": "If you have a DNA strand that is 10 base pairs long, how many nucleotides total does that mean (considering both strands)?",

	"How many sugar molecules would be in those nucleotides?": "If you have 20 nucleotides total (from a 10 base pair DNA strand), how many sugar molecules would be in those nucleotides?",
}

// New builds a Fixer from the curated table plus any extra entries. Extra
// entries shadow the defaults on key collision. Entries whose rewrite is
// itself a key are dropped to keep the table idempotent.
func New(extra map[string]string) *Fixer {
	rewrites := make(map[string]string, len(defaultRewrites)+len(extra))
	for k, v := range defaultRewrites {
		rewrites[k] = v
	}
	for k, v := range extra {
		rewrites[k] = v
	}
	keys := make(map[string]bool, len(rewrites))
	for k := range rewrites {
		keys[k] = true
	}
	for k, v := range rewrites {
		if keys[v] && v != k {
			delete(rewrites, k)
		}
	}
	return &Fixer{rewrites: rewrites}
}

// Fix returns the context-complete form of a known-incomplete question, or
// the input unchanged.
func (f *Fixer) Fix(question string) string {
	if fixed, ok := f.rewrites[question]; ok {
		return fixed
	}
	return question
}

// Len reports the number of rewrite entries, for logging.
func (f *Fixer) Len() int {
	return len(f.rewrites)
}
