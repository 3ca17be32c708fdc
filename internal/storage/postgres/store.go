package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/progress"
)

type txRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// Store is the PostgreSQL progress sink and session reporter.
type Store struct {
	db DBTX
	tr txRunner
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool, tr: NewTransactor(pool)}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// ApplyProgressDelta appends the review and increments the counters in one
// transaction.
func (s *Store) ApplyProgressDelta(ctx context.Context, userID, deckID string, d progress.Delta) error {
	return s.tr.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rec := d.Review
		rec.UserID = userID
		rec.DeckID = deckID
		if err := NewReviewRepository(tx).Append(ctx, rec); err != nil {
			return err
		}
		return NewProgressRepository(tx).Increment(ctx, userID, deckID, d.Increment, rec.ReviewedAt)
	})
}

func (s *Store) AppendReview(ctx context.Context, rec domain.ReviewRecord) error {
	return NewReviewRepository(s.db).Append(ctx, rec)
}

func (s *Store) Report(ctx context.Context, summary domain.SessionSummary) error {
	return NewSummaryRepository(s.db).Insert(ctx, summary)
}

func (s *Store) Progress(ctx context.Context, userID, deckID string) (*domain.DeckProgress, error) {
	return NewProgressRepository(s.db).Get(ctx, userID, deckID)
}

func (s *Store) ReviewHistory(ctx context.Context, userID, deckID string, limit int) ([]domain.ReviewRecord, error) {
	return NewReviewRepository(s.db).List(ctx, userID, deckID, limit)
}

func (s *Store) ResetDailyXP(ctx context.Context, now time.Time) (int64, error) {
	return NewProgressRepository(s.db).ResetDailyXP(ctx, now)
}
