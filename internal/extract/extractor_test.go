package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/ankify-dev/ankify/internal/conversation"
)

type fakeCompleter struct {
	response string
	err      error
	calls    int
	lastUser string
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, user string) (string, error) {
	f.calls++
	f.lastUser = user
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func teachingMessage(question string) string {
	return strings.Repeat("Some background text that is definitely long enough to pass the gate.\n", 12) +
		"Q: " + question
}

func TestExtractMessage_FindsCandidate(t *testing.T) {
	llm := &fakeCompleter{response: `[{"question": "What pairs with adenine?", "answer": "Thymine."}]`}
	e := New(llm, discard())

	cands := e.ExtractMessage(context.Background(), teachingMessage("What pairs with adenine?"))
	if len(cands) != 1 {
		t.Fatalf("expected exactly 1 candidate, got %d", len(cands))
	}
	if !strings.Contains(cands[0].Question, "adenine") {
		t.Errorf("question = %q, want it to mention adenine", cands[0].Question)
	}
	if cands[0].Origin != OriginMessage {
		t.Errorf("origin = %q, want message", cands[0].Origin)
	}
}

func TestExtractMessage_GateSkipsLLM(t *testing.T) {
	llm := &fakeCompleter{response: `[]`}
	e := New(llm, discard())

	cands := e.ExtractMessage(context.Background(), "An explanation with no question markers at all, but long enough.")
	if len(cands) != 0 {
		t.Fatalf("expected no candidates, got %d", len(cands))
	}
	if llm.calls != 0 {
		t.Errorf("expected no LLM calls for gated message, got %d", llm.calls)
	}
}

func TestExtractMessage_ServiceErrorYieldsNothing(t *testing.T) {
	llm := &fakeCompleter{err: errors.New("api error 500")}
	e := New(llm, discard())

	cands := e.ExtractMessage(context.Background(), teachingMessage("What pairs with adenine?"))
	if len(cands) != 0 {
		t.Fatalf("expected no candidates on service error, got %d", len(cands))
	}
}

func TestExtractMessage_TruncatesToBudget(t *testing.T) {
	llm := &fakeCompleter{response: `[]`}
	e := New(llm, discard())

	text := strings.Repeat("padding line before the real content of the message body\n", 200) +
		"Q: What pairs with adenine?"
	e.ExtractMessage(context.Background(), text)

	if len(llm.lastUser) > len(messageExtractionPrompt)+1+messageCharBudget {
		t.Errorf("payload exceeds message budget: %d chars", len(llm.lastUser))
	}
}

func TestDecodeCandidates_Shapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int
	}{
		{"direct list", `[{"question":"A?","answer":"a"},{"question":"B?","answer":"b"}]`, 2},
		{"questions key", `{"questions":[{"question":"A?","answer":"a"}]}`, 1},
		{"qa_pairs key", `{"qa_pairs":[{"question":"A?","answer":"a"}]}`, 1},
		{"cards key", `{"cards":[{"question":"A?","answer":"a"}]}`, 1},
		{"unknown list key", `{"items":[{"question":"A?","answer":"a"}]}`, 1},
		{"empty list", `[]`, 0},
		{"empty object", `{}`, 0},
		{"scalar", `42`, 0},
		{"string", `"no questions here"`, 0},
		{"not json at all", `Sorry, I could not process that.`, 0},
		{"blank questions dropped", `[{"question":"  ","answer":"a"},{"question":"B?","answer":"b"}]`, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := decodeCandidates(tc.raw)
			if len(got) != tc.want {
				t.Errorf("decodeCandidates(%s) = %d candidates, want %d", tc.raw, len(got), tc.want)
			}
		})
	}
}

func TestExtractConversation_UsesHintsAndLLM(t *testing.T) {
	llm := &fakeCompleter{response: `[{"question":"What are the three components of a DNA nucleotide?","answer":"Sugar, phosphate, base."}]`}
	e := New(llm, discard())

	msgs := []conversation.RoleMessage{
		{Role: "user", Text: "Teach me about nucleotides"},
		{Role: "assistant", Text: "A nucleotide has three parts.\n\nQ: What are the three components of a DNA nucleotide?"},
	}

	cands := e.ExtractConversation(context.Background(), msgs)
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if cands[0].Origin != OriginConversation {
		t.Errorf("origin = %q, want conversation", cands[0].Origin)
	}
	if !strings.Contains(llm.lastUser, "HINT:") {
		t.Error("expected regex hints in the LLM payload")
	}
	if !strings.Contains(llm.lastUser, "ASSISTANT: ") {
		t.Error("expected role-prefixed transcript in the LLM payload")
	}
}

func TestExtractConversation_FallsBackToRegexOnError(t *testing.T) {
	llm := &fakeCompleter{err: errors.New("timeout")}
	e := New(llm, discard())

	msgs := []conversation.RoleMessage{
		{Role: "assistant", Text: "Explanation.\n\nQ: Which bases pair together?"},
	}

	cands := e.ExtractConversation(context.Background(), msgs)
	if len(cands) != 1 {
		t.Fatalf("expected 1 fallback candidate, got %d", len(cands))
	}
	if cands[0].Question != "Which bases pair together?" {
		t.Errorf("question = %q", cands[0].Question)
	}
	if cands[0].Answer != PlaceholderAnswer {
		t.Errorf("answer = %q, want placeholder", cands[0].Answer)
	}
}

func TestExtractConversation_Empty(t *testing.T) {
	llm := &fakeCompleter{response: `[]`}
	e := New(llm, discard())

	if cands := e.ExtractConversation(context.Background(), nil); len(cands) != 0 {
		t.Fatalf("expected no candidates, got %d", len(cands))
	}
	if llm.calls != 0 {
		t.Errorf("expected no LLM calls for empty conversation, got %d", llm.calls)
	}
}

func TestQuestionsByRegex(t *testing.T) {
	text := "Intro.\n" +
		"**Q1: What is a codon?**\n" +
		"Q2: How many bases per codon?\n" +
		"Quick Check: Which bases pair together?\n" +
		"Q2: How many bases per codon?\n" // exact duplicate

	qs := QuestionsByRegex(text)
	if len(qs) != 3 {
		t.Fatalf("expected 3 unique questions, got %d: %v", len(qs), qs)
	}
	if qs[0] != "What is a codon?" {
		t.Errorf("qs[0] = %q", qs[0])
	}
}
