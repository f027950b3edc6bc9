package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ankify-dev/ankify/internal/api"
	"github.com/ankify-dev/ankify/internal/config"
	"github.com/ankify-dev/ankify/internal/events"
	"github.com/ankify-dev/ankify/internal/pipeline"
	"github.com/ankify-dev/ankify/internal/store"
)

var allStages = []string{"fetch", "extract", "postprocess", "generate", "upload"}

// newRunCommand executes the full pipeline end to end.
func newRunCommand(opts *options) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the whole pipeline: fetch, extract, postprocess, generate, upload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stages := allStages
			if from != "" {
				for i, s := range allStages {
					if s == from {
						stages = allStages[i:]
						break
					}
				}
			}
			return runStages(cmd, opts, stages)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "resume from this stage (fetch, extract, postprocess, generate, upload)")
	return cmd
}

// attachIntegrations wires the optional pieces: NATS events, the Postgres
// archive and the status server. Each is skipped when unconfigured; a
// configured one that fails to connect aborts the run.
func attachIntegrations(cmd *cobra.Command, cfg config.Config, opts *options, runner *pipeline.Runner) (func(), error) {
	logger := slog.Default()
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.NatsURL != "" {
		bus, err := events.Connect(cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			return cleanup, err
		}
		closers = append(closers, bus.Close)
		runner.WithEvents(bus)
		logger.Info("event bus connected", "url", cfg.NatsURL)
	}

	if cfg.DatabaseURL != "" && !opts.dryRun {
		db, err := store.New(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			cleanup()
			return func() {}, err
		}
		closers = append(closers, db.Close)
		runner.WithArchiver(db)
		logger.Info("card archive connected")
	}

	if cfg.StatusPort > 0 {
		progress := pipeline.NewProgress("")
		runner.WithProgress(progress)
		srv := api.NewServer(cfg.StatusPort, progress.Snapshot)
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("status server error", "error", err)
			}
		}()
	}

	return cleanup, nil
}
