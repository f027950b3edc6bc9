package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const stateFileName = ".ankify-state.json"

// RunState tracks progress for resumable runs. It lives alongside the stage
// files in the data directory.
type RunState struct {
	RunID             string    `json:"run_id"`
	StartedAt         time.Time `json:"started_at"`
	LastProcessedAt   time.Time `json:"last_processed_at"`
	FetchedAt         time.Time `json:"fetched_at,omitempty"`
	ConversationsSeen []string  `json:"conversations_seen"`
	CandidatesFound   int       `json:"candidates_found"`
	CardsKept         int       `json:"cards_kept"`
	CardsUploaded     int       `json:"cards_uploaded"`
	Errors            []string  `json:"errors"`

	path string // not serialized
}

// LoadState loads the run state from the data directory, or starts fresh.
func LoadState(dataDir, runID string) (*RunState, error) {
	p := filepath.Join(dataDir, stateFileName)

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &RunState{
				RunID:     runID,
				StartedAt: time.Now().UTC(),
				path:      p,
			}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s RunState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	s.path = p
	if s.RunID == "" {
		s.RunID = runID
	}
	return &s, nil
}

// Save persists the state to disk.
func (s *RunState) Save() error {
	s.LastProcessedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Seen returns true if the conversation was already recorded this run.
func (s *RunState) Seen(conversationID string) bool {
	for _, id := range s.ConversationsSeen {
		if id == conversationID {
			return true
		}
	}
	return false
}

// MarkSeen records a conversation id.
func (s *RunState) MarkSeen(conversationID string) {
	if !s.Seen(conversationID) {
		s.ConversationsSeen = append(s.ConversationsSeen, conversationID)
	}
}

// AddError records a per-item error with enough context for a manual re-run.
func (s *RunState) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}
