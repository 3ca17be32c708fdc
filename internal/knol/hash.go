// Package knol derives stable identities for cards from their content.
package knol

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/conorfennell/studydeck/internal/domain"
)

// IDLength is the number of hex characters kept for a card ID.
const IDLength = 16

// Normalize concatenates the card's content after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each field
// before joining them. Difficulty and image are metadata and do not change
// a card's identity.
func Normalize(card domain.Card) string {
	normalizePart := func(part string) string {
		p := strings.ReplaceAll(part, "\r\n", "\n")
		p = strings.ToLower(p)
		return strings.TrimSpace(p)
	}

	// Joined with a newline so that "ab" + "c" and "a" + "bc" differ.
	return strings.Join([]string{
		normalizePart(card.Front),
		normalizePart(card.Back),
		normalizePart(card.Context),
	}, "\n")
}

// Hash returns the SHA-256 of the normalized card as a hex string.
func Hash(card domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return hex.EncodeToString(sum[:])
}

// ID is the short content hash used as a card's identifier within a deck.
func ID(card domain.Card) string {
	return Hash(card)[:IDLength]
}

// Assign sets DeckID and a content ID on every card that lacks one.
func Assign(deckID string, cards []domain.Card) {
	for i := range cards {
		cards[i].DeckID = deckID
		if cards[i].ID == "" {
			cards[i].ID = ID(cards[i])
		}
	}
}
