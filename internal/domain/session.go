package domain

import (
	"fmt"
	"math"
	"time"
)

// SessionStats are the running counters of one study session.
type SessionStats struct {
	CardsStudied   int `json:"cards_studied" db:"cards_studied"`
	CorrectAnswers int `json:"correct_answers" db:"correct_answers"`
}

// Record counts one rated card.
func (s *SessionStats) Record(r Rating) {
	s.CardsStudied++
	if r.IsCorrect() {
		s.CorrectAnswers++
	}
}

// Accuracy is the rounded percentage of correct answers, 0 when no card was studied.
func (s SessionStats) Accuracy() int {
	if s.CardsStudied == 0 {
		return 0
	}
	return int(math.Round(float64(s.CorrectAnswers) / float64(s.CardsStudied) * 100))
}

// SessionSummary is the final record of a session that ran to its deadline.
type SessionSummary struct {
	SessionID   string       `json:"session_id"`
	DeckID      string       `json:"deck_id"`
	UserID      string       `json:"user_id,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	Stats       SessionStats `json:"stats"`
	CompletedAt time.Time    `json:"completed_at"`
}

// Duration is the wall-clock time between start and completion.
func (s SessionSummary) Duration() time.Duration {
	return s.CompletedAt.Sub(s.StartedAt)
}

// FormatClock renders seconds as m:ss, the way the session timer shows them.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
