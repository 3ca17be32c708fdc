package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/progress"
)

const insertReview = `
	INSERT INTO review_history (user_id, deck_id, card_id, rating, interval_days, ease_factor, reviewed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

// Adds the increment to the counters; daily_xp restarts when the stored
// reward date is not the date of this review.
const upsertProgress = `
	INSERT INTO user_progress (user_id, deck_id, cards_studied, correct_answers, daily_xp, last_reward_date, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id, deck_id) DO UPDATE SET
		cards_studied = user_progress.cards_studied + excluded.cards_studied,
		correct_answers = user_progress.correct_answers + excluded.correct_answers,
		daily_xp = CASE
			WHEN user_progress.last_reward_date = excluded.last_reward_date
			THEN user_progress.daily_xp + excluded.daily_xp
			ELSE excluded.daily_xp
		END,
		last_reward_date = excluded.last_reward_date,
		updated_at = excluded.updated_at
`

// ApplyProgressDelta appends the review and increments the user's deck
// counters in one transaction.
func (db *DB) ApplyProgressDelta(ctx context.Context, userID, deckID string, d progress.Delta) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rec := d.Review
	rec.UserID = userID
	rec.DeckID = deckID
	if err := appendReview(ctx, tx, rec); err != nil {
		return err
	}

	reviewedAt := rec.ReviewedAt.UTC()
	if _, err := tx.ExecContext(ctx, upsertProgress,
		userID,
		deckID,
		d.Increment.CardsStudied,
		d.Increment.CorrectAnswers,
		d.Increment.DailyXP,
		domain.RewardDate(reviewedAt),
		reviewedAt,
	); err != nil {
		return fmt.Errorf("failed to update progress for user %s deck %s: %w", userID, deckID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit progress delta: %w", err)
	}
	return nil
}

// AppendReview adds one entry to the review history.
func (db *DB) AppendReview(ctx context.Context, rec domain.ReviewRecord) error {
	return appendReview(ctx, db.conn, rec)
}

func appendReview(ctx context.Context, ex sqlx.ExecerContext, rec domain.ReviewRecord) error {
	_, err := ex.ExecContext(ctx, insertReview,
		rec.UserID,
		rec.DeckID,
		rec.CardID,
		rec.Rating,
		rec.Interval,
		rec.EaseFactor,
		rec.ReviewedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append review of card %s: %w", rec.CardID, err)
	}
	return nil
}

// Report stores the summary of an expired session.
func (db *DB) Report(ctx context.Context, s domain.SessionSummary) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO session_summaries (session_id, deck_id, user_id, started_at, completed_at, cards_studied, correct_answers)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		s.SessionID,
		s.DeckID,
		s.UserID,
		s.StartedAt.UTC(),
		s.CompletedAt.UTC(),
		s.Stats.CardsStudied,
		s.Stats.CorrectAnswers,
	)
	if err != nil {
		return fmt.Errorf("failed to store summary of session %s: %w", s.SessionID, err)
	}
	return nil
}

// Progress returns the user's counters for a deck, or nil if the user never
// studied it.
func (db *DB) Progress(ctx context.Context, userID, deckID string) (*domain.DeckProgress, error) {
	var p domain.DeckProgress
	err := db.conn.GetContext(ctx, &p, `
		SELECT user_id, deck_id, cards_studied, correct_answers, daily_xp, last_reward_date, updated_at
		FROM user_progress
		WHERE user_id = ? AND deck_id = ?
	`, userID, deckID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get progress for user %s deck %s: %w", userID, deckID, err)
	}
	return &p, nil
}

// ReviewHistory returns up to limit reviews of a deck by the user, newest
// first.
func (db *DB) ReviewHistory(ctx context.Context, userID, deckID string, limit int) ([]domain.ReviewRecord, error) {
	var recs []domain.ReviewRecord
	if err := db.conn.SelectContext(ctx, &recs, `
		SELECT user_id, deck_id, card_id, rating, interval_days, ease_factor, reviewed_at
		FROM review_history
		WHERE user_id = ? AND deck_id = ?
		ORDER BY reviewed_at DESC, id DESC
		LIMIT ?
	`, userID, deckID, limit); err != nil {
		return nil, fmt.Errorf("failed to get review history for user %s deck %s: %w", userID, deckID, err)
	}
	return recs, nil
}

// ResetDailyXP zeroes daily XP that was earned before the day of now and
// returns how many rows changed.
func (db *DB) ResetDailyXP(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE user_progress
		SET daily_xp = 0
		WHERE daily_xp <> 0 AND last_reward_date <> ?
	`, domain.RewardDate(now))
	if err != nil {
		return 0, fmt.Errorf("failed to reset daily xp: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count reset rows: %w", err)
	}
	return n, nil
}
