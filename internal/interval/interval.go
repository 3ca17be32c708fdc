// Package interval computes review intervals and ease factors from a card's
// history and a quality rating.
package interval

import (
	"math"
	"sort"
	"time"

	"github.com/conorfennell/studydeck/internal/domain"
)

const (
	easeBonus   = 0.15
	easePenalty = 0.20

	// Each weight step away from GOOD scales the growth factor by 10%.
	weightStep = 0.1
)

// NextInterval returns the number of days until the card should be reviewed
// again after being rated r.
func NextInterval(card domain.StudyCard, r domain.Rating) int {
	if r == domain.Fail {
		return 1
	}

	ease := card.EaseFactor
	if ease == 0 {
		ease = domain.DefaultEaseFactor
	}
	// Zero means no interval was ever recorded: ApplyReview always stores at
	// least one day, so a stored 0 can only come from a card without history.
	lastInterval := card.LastInterval
	if lastInterval == 0 {
		lastInterval = r.BaseInterval()
	}

	var days int
	if card.Repetitions <= 0 {
		days = r.BaseInterval()
	} else {
		factor := ease * (1 + float64(r.Weight()-3)*weightStep)
		days = int(math.Round(float64(lastInterval) * factor))
	}

	return max(1, days)
}

// NextEase adjusts the ease factor for rating r and clamps it to
// [MinEaseFactor, MaxEaseFactor].
func NextEase(current float64, r domain.Rating) float64 {
	if current == 0 {
		current = domain.DefaultEaseFactor
	}

	ease := current
	switch w := r.Weight(); {
	case w >= 4:
		ease += easeBonus
	case w <= 2:
		ease -= easePenalty
	}

	return math.Min(domain.MaxEaseFactor, math.Max(domain.MinEaseFactor, ease))
}

// ApplyReview returns the card as it stands after being rated r at now.
// The input card is not modified.
func ApplyReview(card domain.StudyCard, r domain.Rating, now time.Time) domain.StudyCard {
	days := NextInterval(card, r)
	next := now.AddDate(0, 0, days)

	out := card
	out.EaseFactor = NextEase(card.EaseFactor, r)
	out.LastInterval = days
	out.NextReviewDate = &next
	if r == domain.Fail {
		out.Status = domain.StatusLearning
		out.Repetitions = 0
	} else {
		out.Status = domain.StatusReviewing
		out.Repetitions = max(0, card.Repetitions) + 1
	}
	return out
}

// IsDue reports whether the card should be reviewed at now. Cards that were
// never reviewed are always due.
func IsDue(card domain.StudyCard, now time.Time) bool {
	if card.NextReviewDate == nil {
		return true
	}
	return !now.Before(*card.NextReviewDate)
}

// DueCards returns the cards due at now, learning cards first and then by
// due date, oldest first.
func DueCards(cards []domain.StudyCard, now time.Time) []domain.StudyCard {
	due := make([]domain.StudyCard, 0, len(cards))
	for _, c := range cards {
		if IsDue(c, now) {
			due = append(due, c)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		li := due[i].Status == domain.StatusLearning
		lj := due[j].Status == domain.StatusLearning
		if li != lj {
			return li
		}
		return dueAt(due[i]).Before(dueAt(due[j]))
	})
	return due
}

func dueAt(c domain.StudyCard) time.Time {
	if c.NextReviewDate == nil {
		return time.Time{}
	}
	return *c.NextReviewDate
}
