// Package store archives pipeline runs and their final cards in Postgres.
// The archive is optional; the pipeline runs fine without a database.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ankify-dev/ankify/internal/cards"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// ArchiveRun writes one run row plus one row per final card in a single
// transaction. Tables: runs, cards.
func (s *Store) ArchiveRun(ctx context.Context, runID string, records []cards.FinalRecord, counts map[string]int) error {
	breakdown, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("encode category counts: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO runs (id, card_count, category_breakdown, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET card_count = EXCLUDED.card_count,
		    category_breakdown = EXCLUDED.category_breakdown`,
		runID, len(records), breakdown,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, rec := range records {
		_, err = tx.Exec(ctx, `
			INSERT INTO cards (run_id, question, answer, source_conversation, title, created_at)
			VALUES ($1, $2, $3, $4, $5, now())`,
			runID, rec.Question, rec.Answer, rec.SourceConversation, rec.Title,
		)
		if err != nil {
			return fmt.Errorf("insert card: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RunCardCount returns how many cards a run archived.
func (s *Store) RunCardCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM cards WHERE run_id = $1`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return n, nil
}
