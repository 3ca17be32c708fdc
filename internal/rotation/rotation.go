// Package rotation decides the order in which cards are shown in a session.
package rotation

import (
	"math/rand"
	"time"

	"github.com/conorfennell/studydeck/internal/domain"
)

// Shuffle returns a uniformly random permutation of items using
// Fisher-Yates. The input slice is left untouched; nil input yields an empty
// slice. A nil rng falls back to a time-seeded source.
func Shuffle[T any](items []T, rng *rand.Rand) []T {
	if items == nil {
		return []T{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// NextIndex returns the position of the card to show after the card at
// current was rated r. Low ratings bring the card back sooner: the rotation
// distance is the rating weight clamped to [1, length-1].
//
// An empty sequence or an out-of-range current index yields (0, false); the
// caller decides how to report it.
func NextIndex(length, current int, r domain.Rating) (int, bool) {
	if length <= 0 || current < 0 || current >= length {
		return 0, false
	}
	distance := max(1, min(length-1, r.Weight()))
	return (current + distance) % length, true
}
