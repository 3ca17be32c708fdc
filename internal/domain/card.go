package domain

import "time"

// Card is a single front/back entry of a deck, as supplied by the catalog.
// The scheduler never modifies it.
type Card struct {
	ID         string `json:"id"`
	DeckID     string `json:"deck_id"`
	Front      string `json:"front"`
	Back       string `json:"back"`
	Context    string `json:"context,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	Difficulty int    `json:"difficulty"` // 1-5, static catalog metadata
}

// Status is the lifecycle state of a card inside a study session.
type Status string

const (
	StatusNew       Status = "new"
	StatusLearning  Status = "learning"
	StatusReviewing Status = "reviewing"
)

const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3
	MaxEaseFactor     = 2.5
)

// StudyCard is a Card extended with its scheduling state for the length of
// one session. A zero EaseFactor or LastInterval means the value was never
// recorded.
type StudyCard struct {
	Card
	Status         Status     `json:"status"`
	Repetitions    int        `json:"repetitions"`
	EaseFactor     float64    `json:"ease_factor"`
	LastInterval   int        `json:"last_interval"`              // days
	NextReviewDate *time.Time `json:"next_review_date,omitempty"` // nil before the first review
}

// NewStudyCard wraps a catalog card with fresh scheduling state.
func NewStudyCard(card Card) StudyCard {
	return StudyCard{
		Card:       card,
		Status:     StatusNew,
		EaseFactor: DefaultEaseFactor,
	}
}

// ReviewRecord is one entry of a user's review history.
type ReviewRecord struct {
	UserID     string    `json:"user_id" db:"user_id"`
	DeckID     string    `json:"deck_id" db:"deck_id"`
	CardID     string    `json:"card_id" db:"card_id"`
	Rating     Rating    `json:"rating" db:"rating"`
	Interval   int       `json:"interval_days" db:"interval_days"`
	EaseFactor float64   `json:"ease_factor" db:"ease_factor"`
	ReviewedAt time.Time `json:"reviewed_at" db:"reviewed_at"`
}
