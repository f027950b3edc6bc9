// Package pipeline orchestrates the stages that turn raw conversation trees
// into flashcard files. Every stage reads a complete input file and writes a
// complete output file; the stage files are the restart unit, so a crashed
// stage is simply rerun from its input.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/ankify-dev/ankify/internal/cards"
	"github.com/ankify-dev/ankify/internal/classify"
	"github.com/ankify-dev/ankify/internal/conversation"
	"github.com/ankify-dev/ankify/internal/events"
	"github.com/ankify-dev/ankify/internal/extract"
	"github.com/ankify-dev/ankify/internal/fix"
	"github.com/ankify-dev/ankify/internal/source"
)

// Stage file names inside the data directory. Each is the boundary between
// two stages and the input for a restart.
const (
	listFile       = "conversations_list.json"
	candidatesFile = "extracted_qa.json"
	classifiedFile = "extracted_qa_classified.json"
	finalFile      = "extracted_qa_final.json"
	statsFile      = "postprocess_stats.json"
)

// Source lists and fetches raw conversation trees.
type Source interface {
	List(ctx context.Context) ([]source.ConversationStub, error)
	Fetch(ctx context.Context, conversationID string) ([]byte, error)
}

// Extractor produces candidates from message or conversation text.
type Extractor interface {
	ExtractMessage(ctx context.Context, text string) []extract.Candidate
	ExtractConversation(ctx context.Context, msgs []conversation.RoleMessage) []extract.Candidate
}

// Classifier judges one candidate at a time.
type Classifier interface {
	Classify(ctx context.Context, cand extract.Candidate) classify.Classified
	Counts() map[string]int
}

// Uploader pushes final records to the remote flashcard store.
type Uploader interface {
	UploadAll(ctx context.Context, records []cards.FinalRecord) (created, failed int, err error)
}

// Archiver persists final records somewhere queryable (optional).
type Archiver interface {
	ArchiveRun(ctx context.Context, runID string, records []cards.FinalRecord, counts map[string]int) error
}

// Options controls a run.
type Options struct {
	DataDir       string
	FlashcardsDir string

	// WholeConversation switches extraction from per-assistant-message to a
	// single whole-conversation pass.
	WholeConversation bool

	// Dedupe drops exact-duplicate question strings within one conversation.
	Dedupe bool

	// DryRun skips uploads and archive writes.
	DryRun bool
}

type Runner struct {
	opts      Options
	source    Source
	extractor Extractor
	classify  Classifier
	fixer     *fix.Fixer
	uploader  Uploader
	archiver  Archiver
	bus       *events.Publisher
	progress  *Progress
	logger    *slog.Logger
	now       func() time.Time
}

func NewRunner(opts Options, src Source, ext Extractor, cls Classifier, fixer *fix.Fixer, logger *slog.Logger) *Runner {
	return &Runner{
		opts:      opts,
		source:    src,
		extractor: ext,
		classify:  cls,
		fixer:     fixer,
		progress:  NewProgress(""),
		logger:    logger,
		now:       time.Now,
	}
}

// WithUploader attaches the flashcard store client (optional stage).
func (r *Runner) WithUploader(u Uploader) *Runner {
	r.uploader = u
	return r
}

// WithArchiver attaches the run archive (optional).
func (r *Runner) WithArchiver(a Archiver) *Runner {
	r.archiver = a
	return r
}

// WithEvents attaches the event bus (optional).
func (r *Runner) WithEvents(bus *events.Publisher) *Runner {
	r.bus = bus
	return r
}

// WithProgress shares the runner's counters with a status server.
func (r *Runner) WithProgress(p *Progress) *Runner {
	r.progress = p
	return r
}

// Run executes every requested stage in order. A stage error is fatal for
// the run; per-item errors inside a stage never are.
func (r *Runner) Run(ctx context.Context, runID string, stages []string) error {
	r.bus.Publish(events.SubjectRunStarted, map[string]any{
		"run_id":    runID,
		"stages":    stages,
		"timestamp": r.now().UTC().Format(time.RFC3339),
	})

	for _, stage := range stages {
		r.progress.SetStage(stage)
		var items, errs int
		var err error

		switch stage {
		case "fetch":
			items, errs, err = r.Fetch(ctx, runID)
		case "extract":
			items, errs, err = r.Extract(ctx, runID)
		case "postprocess":
			items, errs, err = r.Postprocess(ctx, runID)
		case "generate":
			items, err = r.Generate(ctx, runID)
		case "upload":
			items, errs, err = r.Upload(ctx, runID)
		default:
			r.logger.Warn("unknown stage skipped", "stage", stage)
			continue
		}

		if err != nil {
			return err
		}
		r.bus.StageDone(runID, stage, items, errs)
	}

	r.progress.SetStage("done")
	r.bus.Publish(events.SubjectRunCompleted, map[string]any{
		"run_id":    runID,
		"timestamp": r.now().UTC().Format(time.RFC3339),
	})
	return nil
}
