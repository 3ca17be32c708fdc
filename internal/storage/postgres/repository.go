package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/progress"
)

// ReviewRepository appends to and reads the review history.
type ReviewRepository struct {
	db DBTX
}

func NewReviewRepository(db DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Append(ctx context.Context, rec domain.ReviewRecord) error {
	query := `
		INSERT INTO review_history (user_id, deck_id, card_id, rating, interval_days, ease_factor, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		rec.UserID,
		rec.DeckID,
		rec.CardID,
		rec.Rating,
		rec.Interval,
		rec.EaseFactor,
		rec.ReviewedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append review: %w", err)
	}
	return nil
}

func (r *ReviewRepository) List(ctx context.Context, userID, deckID string, limit int) ([]domain.ReviewRecord, error) {
	query := `
		SELECT user_id, deck_id, card_id, rating, interval_days, ease_factor, reviewed_at
		FROM review_history
		WHERE user_id = $1 AND deck_id = $2
		ORDER BY reviewed_at DESC, id DESC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, userID, deckID, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	recs, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.ReviewRecord])
	if err != nil {
		return nil, fmt.Errorf("scan reviews: %w", err)
	}
	return recs, nil
}

// ProgressRepository maintains the per-deck counters.
type ProgressRepository struct {
	db DBTX
}

func NewProgressRepository(db DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Increment adds inc to the user's deck counters. Daily XP restarts when the
// stored reward date is not the day of at.
func (r *ProgressRepository) Increment(ctx context.Context, userID, deckID string, inc progress.Increment, at time.Time) error {
	query := `
		INSERT INTO user_progress (user_id, deck_id, cards_studied, correct_answers, daily_xp, last_reward_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, deck_id) DO UPDATE SET
			cards_studied = user_progress.cards_studied + EXCLUDED.cards_studied,
			correct_answers = user_progress.correct_answers + EXCLUDED.correct_answers,
			daily_xp = CASE
				WHEN user_progress.last_reward_date = EXCLUDED.last_reward_date
				THEN user_progress.daily_xp + EXCLUDED.daily_xp
				ELSE EXCLUDED.daily_xp
			END,
			last_reward_date = EXCLUDED.last_reward_date,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query,
		userID,
		deckID,
		inc.CardsStudied,
		inc.CorrectAnswers,
		inc.DailyXP,
		domain.RewardDate(at),
		at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("increment progress: %w", err)
	}
	return nil
}

func (r *ProgressRepository) Get(ctx context.Context, userID, deckID string) (*domain.DeckProgress, error) {
	query := `
		SELECT user_id, deck_id, cards_studied, correct_answers, daily_xp, last_reward_date, updated_at
		FROM user_progress
		WHERE user_id = $1 AND deck_id = $2
	`
	rows, err := r.db.Query(ctx, query, userID, deckID)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	p, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domain.DeckProgress])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return &p, nil
}

func (r *ProgressRepository) ResetDailyXP(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE user_progress
		SET daily_xp = 0
		WHERE daily_xp <> 0 AND last_reward_date <> $1
	`, domain.RewardDate(now))
	if err != nil {
		return 0, fmt.Errorf("reset daily xp: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SummaryRepository stores session summaries.
type SummaryRepository struct {
	db DBTX
}

func NewSummaryRepository(db DBTX) *SummaryRepository {
	return &SummaryRepository{db: db}
}

func (r *SummaryRepository) Insert(ctx context.Context, s domain.SessionSummary) error {
	query := `
		INSERT INTO session_summaries (session_id, deck_id, user_id, started_at, completed_at, cards_studied, correct_answers)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		s.SessionID,
		s.DeckID,
		s.UserID,
		s.StartedAt.UTC(),
		s.CompletedAt.UTC(),
		s.Stats.CardsStudied,
		s.Stats.CorrectAnswers,
	)
	if err != nil {
		return fmt.Errorf("insert session summary: %w", err)
	}
	return nil
}
