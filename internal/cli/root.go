// Package cli wires configuration and clients into the pipeline commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ankify-dev/ankify/internal/classify"
	"github.com/ankify-dev/ankify/internal/config"
	"github.com/ankify-dev/ankify/internal/extract"
	"github.com/ankify-dev/ankify/internal/fix"
	"github.com/ankify-dev/ankify/internal/mochi"
	"github.com/ankify-dev/ankify/internal/openai"
	"github.com/ankify-dev/ankify/internal/pipeline"
	"github.com/ankify-dev/ankify/internal/source"
)

// options carries the flags shared by every stage command.
type options struct {
	dataDir           string
	flashcardsDir     string
	wholeConversation bool
	dedupe            bool
	dryRun            bool
}

func NewRootCommand() *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:           "ankify",
		Short:         "Turn ChatGPT teaching conversations into Anki-ready flashcards",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "directory for fetched trees and stage files (default from ANKIFY_DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&opts.flashcardsDir, "out-dir", "", "directory for generated flashcard files (default from ANKIFY_FLASHCARDS_DIR)")
	rootCmd.PersistentFlags().BoolVar(&opts.wholeConversation, "whole-conversation", false, "extract from the whole conversation instead of per message")
	rootCmd.PersistentFlags().BoolVar(&opts.dedupe, "dedupe", false, "drop duplicate questions within one conversation")
	rootCmd.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "skip uploads and database writes")

	rootCmd.AddCommand(
		newStageCommand(&opts, "fetch", "Download every conversation tree from the source"),
		newStageCommand(&opts, "extract", "Extract question/answer candidates from saved trees"),
		newStageCommand(&opts, "postprocess", "Classify candidates and keep genuine teaching questions"),
		newStageCommand(&opts, "generate", "Apply rewrites and write all flashcard output formats"),
		newStageCommand(&opts, "upload", "Push final cards to Mochi"),
		newRunCommand(&opts),
	)

	return rootCmd
}

// newStageCommand builds a subcommand that runs exactly one pipeline stage.
func newStageCommand(opts *options, stage, short string) *cobra.Command {
	return &cobra.Command{
		Use:   stage,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStages(cmd, opts, []string{stage})
		},
	}
}

func runStages(cmd *cobra.Command, opts *options, stages []string) error {
	cfg := config.Load()
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if opts.flashcardsDir != "" {
		cfg.FlashcardsDir = opts.flashcardsDir
	}

	runner, cleanup, err := buildRunner(cmd, cfg, opts, stages)
	if err != nil {
		return err
	}
	defer cleanup()

	runID := uuid.New().String()
	slog.Info("run starting", "run_id", runID, "stages", stages)
	return runner.Run(cmd.Context(), runID, stages)
}

func needs(stages []string, stage string) bool {
	for _, s := range stages {
		if s == stage {
			return true
		}
	}
	return false
}

// buildRunner constructs only the clients the requested stages use, so a
// local generate pass does not demand API credentials.
func buildRunner(cmd *cobra.Command, cfg config.Config, opts *options, stages []string) (*pipeline.Runner, func(), error) {
	logger := slog.Default()
	cleanup := func() {}

	var src pipeline.Source
	if needs(stages, "fetch") {
		if cfg.SessionToken == "" {
			return nil, cleanup, fmt.Errorf("ANKIFY_SESSION_TOKEN is required for fetch")
		}
		src = source.NewClient(cfg.SourceBaseURL, cfg.SessionToken, cfg.RequestTimeout, cfg.MaxRetries)
	}

	var ext pipeline.Extractor
	var cls pipeline.Classifier
	if needs(stages, "extract") || needs(stages, "postprocess") {
		if cfg.OpenAIAPIKey == "" {
			return nil, cleanup, fmt.Errorf("OPENAI_API_KEY is required for extract and postprocess")
		}
		llm := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.RequestTimeout, cfg.MaxRetries)
		ext = extract.New(llm, logger)
		cls = classify.New(llm, classify.DefaultRules(), logger)
	} else {
		cls = classify.New(nil, classify.DefaultRules(), logger)
	}

	runner := pipeline.NewRunner(pipeline.Options{
		DataDir:           cfg.DataDir,
		FlashcardsDir:     cfg.FlashcardsDir,
		WholeConversation: opts.wholeConversation,
		Dedupe:            opts.dedupe,
		DryRun:            opts.dryRun,
	}, src, ext, cls, fix.New(nil), logger)

	if needs(stages, "upload") && !opts.dryRun {
		if cfg.MochiAPIKey == "" || cfg.MochiDeckID == "" {
			return nil, cleanup, fmt.Errorf("MOCHI_API_KEY and MOCHI_DECK_ID are required for upload")
		}
		runner.WithUploader(mochi.NewUploader(cfg.MochiAPIKey, cfg.MochiDeckID, cfg.MochiBaseURL, cfg.UploadDelay, logger))
	}

	cleanup, err := attachIntegrations(cmd, cfg, opts, runner)
	if err != nil {
		return nil, func() {}, err
	}
	return runner, cleanup, nil
}

// Execute runs the root command and reports the exit code. SIGINT and
// SIGTERM cancel the run context so a stage stops between items.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		slog.Error("run failed", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
