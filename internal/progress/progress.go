// Package progress turns a single review into the persisted-progress changes
// it causes: a review-history entry, counter increments and daily XP.
package progress

import (
	"context"
	"time"

	"github.com/conorfennell/studydeck/internal/domain"
)

var xpRewards = [...]int{
	domain.Fail:    0,
	domain.Hard:    5,
	domain.Good:    8,
	domain.Easy:    10,
	domain.Perfect: 15,
}

// XPFor returns the experience points earned for a rating.
func XPFor(r domain.Rating) int {
	if !r.IsValid() {
		return 0
	}
	return xpRewards[r]
}

// Increment is applied on top of the stored per-deck progress counters.
type Increment struct {
	CardsStudied   int
	CorrectAnswers int
	DailyXP        int
}

// Delta is everything a single review adds to a user's stored progress. The
// sink must apply the review append and the increment together or not at all.
type Delta struct {
	Review    domain.ReviewRecord
	Increment Increment
}

//go:generate mockgen -source=progress.go -destination=mock_progress/mock_progress.go -package=mock_progress Sink

// Sink persists progress deltas.
type Sink interface {
	ApplyProgressDelta(ctx context.Context, userID, deckID string, d Delta) error
}

// BuildDelta describes the progress change caused by rating cardID with r.
// updated is the card as returned by interval.ApplyReview.
func BuildDelta(userID, deckID, cardID string, r domain.Rating, updated domain.StudyCard, now time.Time) Delta {
	correct := 0
	if r.IsCorrect() {
		correct = 1
	}
	return Delta{
		Review: domain.ReviewRecord{
			UserID:     userID,
			DeckID:     deckID,
			CardID:     cardID,
			Rating:     r,
			Interval:   updated.LastInterval,
			EaseFactor: updated.EaseFactor,
			ReviewedAt: now,
		},
		Increment: Increment{
			CardsStudied:   1,
			CorrectAnswers: correct,
			DailyXP:        XPFor(r),
		},
	}
}

// TotalXP sums the XP earned for a list of ratings.
func TotalXP(ratings []domain.Rating) int {
	total := 0
	for _, r := range ratings {
		total += XPFor(r)
	}
	return total
}
