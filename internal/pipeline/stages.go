package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ankify-dev/ankify/internal/cards"
	"github.com/ankify-dev/ankify/internal/classify"
	"github.com/ankify-dev/ankify/internal/conversation"
	"github.com/ankify-dev/ankify/internal/extract"
)

// Fetch lists every conversation from the source and saves each tree as a
// JSON file under the data directory, byte for byte as the server sent it.
// A tree already on disk is skipped so interrupted fetches resume cheaply.
func (r *Runner) Fetch(ctx context.Context, runID string) (items, errs int, err error) {
	if r.source == nil {
		return 0, 0, fmt.Errorf("fetch: no source configured")
	}
	if err := os.MkdirAll(r.opts.DataDir, 0o755); err != nil {
		return 0, 0, fmt.Errorf("fetch: %w", err)
	}

	stubs, err := r.source.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch: list conversations: %w", err)
	}
	if err := writeJSON(filepath.Join(r.opts.DataDir, listFile), stubs); err != nil {
		return 0, 0, fmt.Errorf("fetch: %w", err)
	}

	state, err := LoadState(r.opts.DataDir, runID)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch: %w", err)
	}

	for _, stub := range stubs {
		if ctx.Err() != nil {
			return items, errs, ctx.Err()
		}
		path := filepath.Join(r.opts.DataDir, stub.ID+".json")
		if _, statErr := os.Stat(path); statErr == nil {
			state.MarkSeen(stub.ID)
			continue
		}

		raw, fetchErr := r.source.Fetch(ctx, stub.ID)
		if fetchErr != nil {
			r.logger.Error("fetch conversation failed", "conversation_id", stub.ID, "error", fetchErr)
			state.AddError(fmt.Sprintf("fetch %s: %v", stub.ID, fetchErr))
			errs++
			continue
		}
		if writeErr := os.WriteFile(path, raw, 0o644); writeErr != nil {
			return items, errs, fmt.Errorf("fetch: save %s: %w", stub.ID, writeErr)
		}
		state.MarkSeen(stub.ID)
		items++
		r.progress.AddConversations(1)
	}

	state.FetchedAt = r.now().UTC()
	if err := state.Save(); err != nil {
		return items, errs, fmt.Errorf("fetch: %w", err)
	}
	r.logger.Info("fetch complete", "listed", len(stubs), "downloaded", items, "errors", errs)
	return items, errs, nil
}

// Extract walks every saved tree, selects assistant messages along the
// current branch and runs candidate extraction. Unreadable or malformed
// trees are logged and skipped, never fatal.
func (r *Runner) Extract(ctx context.Context, runID string) (items, errs int, err error) {
	paths, err := r.treeFiles()
	if err != nil {
		return 0, 0, fmt.Errorf("extract: %w", err)
	}

	state, err := LoadState(r.opts.DataDir, runID)
	if err != nil {
		return 0, 0, fmt.Errorf("extract: %w", err)
	}

	var all []extract.Candidate
	for _, path := range paths {
		if ctx.Err() != nil {
			return items, errs, ctx.Err()
		}
		tree, loadErr := conversation.LoadTree(path)
		if loadErr != nil {
			r.logger.Warn("skipping unreadable tree", "path", path, "error", loadErr)
			state.AddError(fmt.Sprintf("load %s: %v", filepath.Base(path), loadErr))
			errs++
			continue
		}

		found := r.extractTree(ctx, tree)
		if r.opts.Dedupe {
			found = dedupeQuestions(found)
		}
		all = append(all, found...)
		items++
		state.MarkSeen(tree.ID)
		state.CandidatesFound = len(all)
		state.LastProcessedAt = r.now().UTC()
		r.progress.AddConversations(1)
		r.progress.AddCandidates(len(found))

		r.logger.Info("conversation extracted",
			"conversation_id", tree.ID, "title", tree.Title, "candidates", len(found))
	}

	if err := writeJSON(filepath.Join(r.opts.DataDir, candidatesFile), all); err != nil {
		return items, errs, fmt.Errorf("extract: %w", err)
	}
	if err := state.Save(); err != nil {
		return items, errs, fmt.Errorf("extract: %w", err)
	}
	r.logger.Info("extract complete", "conversations", items, "candidates", len(all), "errors", errs)
	return items, errs, nil
}

func (r *Runner) extractTree(ctx context.Context, tree *conversation.Tree) []extract.Candidate {
	nodes := tree.Materialize()
	msgs := conversation.SelectMessages(nodes, "assistant")

	var found []extract.Candidate
	if r.opts.WholeConversation {
		turns := conversation.SelectMessages(nodes, "user", "assistant")
		found = r.extractor.ExtractConversation(ctx, turns)
	} else {
		for _, msg := range msgs {
			found = append(found, r.extractor.ExtractMessage(ctx, msg.Text)...)
		}
	}

	for i := range found {
		found[i].SourceConversation = tree.ID
		found[i].Title = tree.Title
	}
	return found
}

func dedupeQuestions(in []extract.Candidate) []extract.Candidate {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, c := range in {
		if seen[c.Question] {
			continue
		}
		seen[c.Question] = true
		out = append(out, c)
	}
	return out
}

// Stats summarises a postprocess pass. The category breakdown is
// diagnostic only and never gates a card.
type Stats struct {
	TotalProcessed    int            `json:"total_processed"`
	SocraticKept      int            `json:"socratic_kept"`
	CategoryBreakdown map[string]int `json:"category_breakdown"`
}

// Postprocess classifies every extracted candidate and records the verdicts
// alongside a stats file. Judge failures reject the single candidate and
// the pass continues.
func (r *Runner) Postprocess(ctx context.Context, runID string) (items, errs int, err error) {
	var candidates []extract.Candidate
	if err := readJSON(filepath.Join(r.opts.DataDir, candidatesFile), &candidates); err != nil {
		return 0, 0, fmt.Errorf("postprocess: %w", err)
	}

	classified := make([]classify.Classified, 0, len(candidates))
	for _, cand := range candidates {
		if ctx.Err() != nil {
			return items, errs, ctx.Err()
		}
		verdict := r.classify.Classify(ctx, cand)
		if verdict.Category == classify.CategoryError {
			errs++
			r.progress.AddErrors(1)
		}
		if verdict.Accept {
			items++
		}
		classified = append(classified, verdict)
	}

	if err := writeJSON(filepath.Join(r.opts.DataDir, classifiedFile), classified); err != nil {
		return items, errs, fmt.Errorf("postprocess: %w", err)
	}

	stats := Stats{
		TotalProcessed:    len(candidates),
		SocraticKept:      items,
		CategoryBreakdown: r.classify.Counts(),
	}
	if err := writeJSON(filepath.Join(r.opts.DataDir, statsFile), stats); err != nil {
		return items, errs, fmt.Errorf("postprocess: %w", err)
	}
	r.logger.Info("postprocess complete",
		"processed", stats.TotalProcessed, "kept", stats.SocraticKept, "errors", errs)
	return items, errs, nil
}

// Generate applies question rewrites, aggregates the accepted candidates and
// writes every output format with a shared timestamp.
func (r *Runner) Generate(ctx context.Context, runID string) (items int, err error) {
	var classified []classify.Classified
	if err := readJSON(filepath.Join(r.opts.DataDir, classifiedFile), &classified); err != nil {
		return 0, fmt.Errorf("generate: %w", err)
	}

	for i := range classified {
		classified[i].Question = r.fixer.Fix(classified[i].Question)
	}
	records := cards.Aggregate([][]classify.Classified{classified})

	if err := writeJSON(filepath.Join(r.opts.DataDir, finalFile), records); err != nil {
		return 0, fmt.Errorf("generate: %w", err)
	}
	if err := os.MkdirAll(r.opts.FlashcardsDir, 0o755); err != nil {
		return 0, fmt.Errorf("generate: %w", err)
	}

	now := r.now()
	stamp := now.Format("20060102_150405")
	writers := []struct {
		name  string
		write func(f *os.File) error
	}{
		{"anki_flashcards_" + stamp + ".txt", func(f *os.File) error { return cards.WriteAnkiTSV(f, records) }},
		{"flashcards_" + stamp + ".csv", func(f *os.File) error { return cards.WriteCSV(f, records) }},
		{"flashcards_" + stamp + ".md", func(f *os.File) error { return cards.WriteMarkdown(f, records, now) }},
		{"flashcards_" + stamp + ".jsonl", func(f *os.File) error { return cards.WriteJSONL(f, records) }},
		{"flashcards_" + stamp + ".json", func(f *os.File) error { return cards.WriteJSON(f, records, now) }},
	}
	for _, w := range writers {
		if err := writeFormat(filepath.Join(r.opts.FlashcardsDir, w.name), w.write); err != nil {
			return 0, fmt.Errorf("generate: %w", err)
		}
	}

	state, err := LoadState(r.opts.DataDir, runID)
	if err == nil {
		state.CardsKept = len(records)
		if saveErr := state.Save(); saveErr != nil {
			r.logger.Warn("state save failed", "error", saveErr)
		}
	}

	r.progress.AddCardsKept(len(records))
	r.logger.Info("generate complete", "cards", len(records), "dir", r.opts.FlashcardsDir)
	return len(records), nil
}

// Upload pushes the final records to the remote store and, when an archiver
// is attached, persists the run. Per-card failures are counted, not fatal.
func (r *Runner) Upload(ctx context.Context, runID string) (items, errs int, err error) {
	var records []cards.FinalRecord
	if err := readJSON(filepath.Join(r.opts.DataDir, finalFile), &records); err != nil {
		return 0, 0, fmt.Errorf("upload: %w", err)
	}
	if r.opts.DryRun {
		r.logger.Info("dry run, skipping upload", "cards", len(records))
		return 0, 0, nil
	}
	if r.uploader == nil {
		return 0, 0, fmt.Errorf("upload: no uploader configured")
	}

	created, failed, err := r.uploader.UploadAll(ctx, records)
	if err != nil {
		return created, failed, fmt.Errorf("upload: %w", err)
	}

	state, stateErr := LoadState(r.opts.DataDir, runID)

	// An archive failure is not a card failure; it is surfaced through the
	// progress counters and run state instead of the stage summary.
	if r.archiver != nil {
		if archErr := r.archiver.ArchiveRun(ctx, runID, records, r.classify.Counts()); archErr != nil {
			r.logger.Error("archive failed", "error", archErr)
			r.progress.AddErrors(1)
			if stateErr == nil {
				state.AddError(fmt.Sprintf("archive run %s: %v", runID, archErr))
			}
		}
	}

	if stateErr == nil {
		state.CardsUploaded = created
		if saveErr := state.Save(); saveErr != nil {
			r.logger.Warn("state save failed", "error", saveErr)
		}
	}

	r.logger.Info("upload complete", "created", created, "failed", failed)
	return created, failed, nil
}

// treeFiles lists conversation tree files in the data directory, excluding
// stage outputs and run state.
func (r *Runner) treeFiles() ([]string, error) {
	entries, err := os.ReadDir(r.opts.DataDir)
	if err != nil {
		return nil, err
	}
	skip := map[string]bool{
		listFile:       true,
		candidatesFile: true,
		classifiedFile: true,
		finalFile:      true,
		statsFile:      true,
		stateFileName:  true,
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || skip[name] || !strings.HasSuffix(name, ".json") {
			continue
		}
		paths = append(paths, filepath.Join(r.opts.DataDir, name))
	}
	return paths, nil
}

func writeFormat(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
