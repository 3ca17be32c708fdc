package domain

import "time"

// Deck names a set of cards and how many it holds.
type Deck struct {
	ID        string `json:"id" db:"deck_id"`
	CardCount int    `json:"card_count" db:"card_count"`
}

// DeckProgress is a user's accumulated progress on one deck.
type DeckProgress struct {
	UserID         string    `json:"user_id" db:"user_id"`
	DeckID         string    `json:"deck_id" db:"deck_id"`
	CardsStudied   int       `json:"cards_studied" db:"cards_studied"`
	CorrectAnswers int       `json:"correct_answers" db:"correct_answers"`
	DailyXP        int       `json:"daily_xp" db:"daily_xp"`
	LastRewardDate string    `json:"last_reward_date" db:"last_reward_date"` // YYYY-MM-DD, UTC
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// RewardDate is the calendar day, in UTC, that XP earned at t counts towards.
func RewardDate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
