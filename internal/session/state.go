package session

import (
	"fmt"

	"github.com/conorfennell/studydeck/internal/domain"
)

// State is the lifecycle state of a Machine.
type State int

const (
	StateIdle State = iota
	StateActive
	StateExpired
	StateAborted
)

var stateNames = [...]string{
	StateIdle:    "idle",
	StateActive:  "active",
	StateExpired: "expired",
	StateAborted: "aborted",
}

func (s State) String() string {
	if s >= StateIdle && s <= StateAborted {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Face is the visible side of the current card.
type Face int

const (
	Front Face = iota
	Back
)

func (f Face) String() string {
	if f == Back {
		return "back"
	}
	return "front"
}

// MarshalText implements encoding.TextMarshaler.
func (f Face) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// View is a point-in-time copy of a session for display.
type View struct {
	ID            string                 `json:"id"`
	DeckID        string                 `json:"deck_id"`
	State         State                  `json:"state"`
	Face          Face                   `json:"face"`
	Transitioning bool                   `json:"transitioning"`
	Index         int                    `json:"index"`
	DeckSize      int                    `json:"deck_size"`
	Current       *domain.StudyCard      `json:"current,omitempty"`
	TimeRemaining int                    `json:"time_remaining"`
	Stats         domain.SessionStats    `json:"stats"`
	Summary       *domain.SessionSummary `json:"summary,omitempty"`
}
