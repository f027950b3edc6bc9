package pipeline

import "sync"

// Progress is the live view of a run, shared with the status API. All methods
// are safe for concurrent use.
type Progress struct {
	mu sync.Mutex
	s  Status
}

// Status is a point-in-time snapshot of pipeline counters.
type Status struct {
	RunID         string `json:"run_id"`
	Stage         string `json:"stage"`
	Conversations int    `json:"conversations"`
	Candidates    int    `json:"candidates"`
	CardsKept     int    `json:"cards_kept"`
	Errors        int    `json:"errors"`
}

func NewProgress(runID string) *Progress {
	return &Progress{s: Status{RunID: runID, Stage: "idle"}}
}

func (p *Progress) SetStage(stage string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s.Stage = stage
}

func (p *Progress) AddConversations(n int) { p.add(func(s *Status) { s.Conversations += n }) }
func (p *Progress) AddCandidates(n int)    { p.add(func(s *Status) { s.Candidates += n }) }
func (p *Progress) AddCardsKept(n int)     { p.add(func(s *Status) { s.CardsKept += n }) }
func (p *Progress) AddErrors(n int)        { p.add(func(s *Status) { s.Errors += n }) }

func (p *Progress) add(f func(*Status)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f(&p.s)
}

// Snapshot returns a copy of the current counters.
func (p *Progress) Snapshot() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.s
}
