package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ankify-dev/ankify/internal/conversation"
)

// Character budgets sent to the LLM per call. Anything beyond is truncated;
// teaching questions sit at the end of messages, but the budgets are large
// enough that truncation is rare in practice.
const (
	messageCharBudget      = 8000
	conversationCharBudget = 25000
)

// Completer is the LLM capability the extractor delegates to: system
// instruction plus user payload in, structured text out.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Extractor struct {
	llm    Completer
	logger *slog.Logger
}

func New(llm Completer, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, logger: logger}
}

// ExtractMessage pulls candidate Q&A pairs out of a single assistant message.
// Messages failing the heuristic gate are skipped without an LLM call. LLM or
// parse failures reduce the message's contribution to zero candidates and are
// logged, never propagated.
func (e *Extractor) ExtractMessage(ctx context.Context, text string) []Candidate {
	if !LooksLikeTeachingQuestion(text) {
		return nil
	}

	raw, err := e.llm.Complete(ctx, messageSystemPrompt, messageExtractionPrompt+"\n"+truncate(text, messageCharBudget))
	if err != nil {
		e.logger.Warn("message extraction failed",
			"error", err,
			"excerpt", excerpt(text),
		)
		return nil
	}

	cands := decodeCandidates(raw)
	for i := range cands {
		cands[i].Origin = OriginMessage
	}
	return cands
}

// ExtractConversation runs a whole-conversation pass: regex-found questions
// are fed to the LLM as hints, and if the LLM is unavailable they become
// placeholder-answer candidates instead of losing the conversation entirely.
func (e *Extractor) ExtractConversation(ctx context.Context, msgs []conversation.RoleMessage) []Candidate {
	if len(msgs) == 0 {
		return nil
	}

	var turns []string
	var assistantText []string
	for _, m := range msgs {
		turns = append(turns, strings.ToUpper(m.Role)+": "+m.Text)
		if m.Role == "assistant" {
			assistantText = append(assistantText, m.Text)
		}
	}

	hints := QuestionsByRegex(strings.Join(assistantText, "\n\n"))

	prompt := conversationExtractionPrompt
	if len(hints) > 0 {
		prompt += "\nHINT: Found these questions in the text:\n- " + strings.Join(hints, "\n- ") + "\n"
	}
	payload := prompt + "\n\n" + truncate(strings.Join(turns, "\n\n"), conversationCharBudget)

	raw, err := e.llm.Complete(ctx, conversationSystemPrompt, payload)
	if err != nil {
		e.logger.Warn("conversation extraction failed, using regex fallback",
			"error", err,
			"hints", len(hints),
		)
		return fallbackCandidates(hints, OriginConversation)
	}

	cands := decodeCandidates(raw)
	for i := range cands {
		cands[i].Origin = OriginConversation
	}
	return cands
}

// wrapperKeys are the object keys the LLM wraps its list under, tried in
// order before falling back to any list-valued key.
var wrapperKeys = []string{"questions", "qa_pairs", "cards"}

// decodeCandidates tolerates the three response shapes the capability
// produces: a direct list, an object wrapping the list under a known key, or
// something unrecognized, which yields no candidates rather than an error.
func decodeCandidates(raw string) []Candidate {
	var direct []Candidate
	if err := json.Unmarshal([]byte(raw), &direct); err == nil {
		return nonEmpty(direct)
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		return nil
	}

	for _, key := range wrapperKeys {
		if v, ok := wrapped[key]; ok {
			var list []Candidate
			if err := json.Unmarshal(v, &list); err == nil {
				return nonEmpty(list)
			}
		}
	}

	// Last resort: any key holding a candidate list.
	for _, v := range wrapped {
		var list []Candidate
		if err := json.Unmarshal(v, &list); err == nil && len(list) > 0 {
			return nonEmpty(list)
		}
	}

	return nil
}

func nonEmpty(cands []Candidate) []Candidate {
	out := cands[:0]
	for _, c := range cands {
		if strings.TrimSpace(c.Question) != "" {
			out = append(out, c)
		}
	}
	return out
}

func truncate(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	return s[:budget]
}

func excerpt(s string) string {
	const n = 80
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
