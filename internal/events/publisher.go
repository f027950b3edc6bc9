// Package events announces pipeline progress on a NATS bus. The bus is
// optional: a nil Publisher swallows every call, so the pipeline never has to
// check whether one is configured.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects published during a run.
const (
	SubjectRunStarted   = "ankify.pipeline.run.started"
	SubjectStageDone    = "ankify.pipeline.stage.completed"
	SubjectRunCompleted = "ankify.pipeline.run.completed"
)

// StageSummary is the payload published after each stage.
type StageSummary struct {
	RunID     string `json:"run_id"`
	Stage     string `json:"stage"`
	Items     int    `json:"items"`
	Errors    int    `json:"errors"`
	Timestamp string `json:"timestamp"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// Connect dials the bus. Reconnects are retried in the background so a broker
// restart mid-run does not kill the pipeline.
func Connect(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: nc, logger: logger}, nil
}

// Publish sends a payload on a subject. A nil Publisher is a no-op, and
// publish failures are logged rather than returned: notifications must never
// fail a run.
func (p *Publisher) Publish(subject string, data any) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		p.logger.Warn("marshal event payload", "subject", subject, "error", err)
		return
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn("publish event", "subject", subject, "error", err)
	}
}

// StageDone publishes a stage completion summary.
func (p *Publisher) StageDone(runID, stage string, items, errors int) {
	p.Publish(SubjectStageDone, StageSummary{
		RunID:     runID,
		Stage:     stage,
		Items:     items,
		Errors:    errors,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.conn.Close()
}
