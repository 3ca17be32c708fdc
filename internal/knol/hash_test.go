package knol

import (
	"testing"

	"github.com/conorfennell/studydeck/internal/domain"
)

func TestNormalize(t *testing.T) {
	card := domain.Card{
		Front:   "  ¿Dónde está la BIBLIOTECA? \r\n",
		Back:    "Where is the library?",
		Context: "Directions",
	}
	expected := "¿dónde está la biblioteca?\nwhere is the library?\ndirections"
	normalized := Normalize(card)

	if normalized != expected {
		t.Errorf("Expected normalized string to be '%s', but got '%s'", expected, normalized)
	}
}

func TestHash(t *testing.T) {
	t.Run("generates correct hash", func(t *testing.T) {
		card := domain.Card{
			Front:   "Q",
			Back:    "A",
			Context: "C",
		}
		// Hash for "q\na\nc"
		expectedHash := "eb2456c1ee4f36305069dd0f63a30e92d5443129f5e8fd9a5ec490fbc4d4d8a2"
		if hash := Hash(card); hash != expectedHash {
			t.Errorf("Expected hash '%s', but got '%s'", expectedHash, hash)
		}
		if id := ID(card); id != expectedHash[:IDLength] {
			t.Errorf("Expected id '%s', but got '%s'", expectedHash[:IDLength], id)
		}
	})

	t.Run("normalization produces same hash", func(t *testing.T) {
		card1 := domain.Card{Front: "  el gato ", Back: "The cat"}
		card2 := domain.Card{Front: "El Gato", Back: "the cat"}
		if Hash(card1) != Hash(card2) {
			t.Error("Expected hashes to be the same after normalization, but they were different.")
		}
	})

	t.Run("metadata does not change identity", func(t *testing.T) {
		card1 := domain.Card{Front: "perro", Back: "dog"}
		card2 := domain.Card{Front: "perro", Back: "dog", Difficulty: 4, ImageURL: "https://example.com/dog.png"}
		if ID(card1) != ID(card2) {
			t.Error("Expected difficulty and image to be ignored by ID")
		}
	})

	t.Run("different cards have different hashes", func(t *testing.T) {
		if Hash(domain.Card{Front: "Card 1"}) == Hash(domain.Card{Front: "Card 2"}) {
			t.Error("Expected hashes for different cards to be different")
		}
	})
}

func TestAssign(t *testing.T) {
	cards := []domain.Card{
		{Front: "uno", Back: "one"},
		{ID: "fixed", Front: "dos", Back: "two"},
	}
	Assign("spanish", cards)

	if cards[0].DeckID != "spanish" || cards[1].DeckID != "spanish" {
		t.Errorf("Expected deck id to be set on every card, got %+v", cards)
	}
	if cards[0].ID != ID(domain.Card{Front: "uno", Back: "one"}) {
		t.Errorf("Expected content id, got '%s'", cards[0].ID)
	}
	if cards[1].ID != "fixed" {
		t.Errorf("Expected existing id to be kept, got '%s'", cards[1].ID)
	}
}
