package interval

import (
	"math"
	"testing"
	"time"

	"github.com/conorfennell/studydeck/internal/domain"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func reviewed(reps int, ease float64, last int) domain.StudyCard {
	sc := domain.NewStudyCard(domain.Card{ID: "c1"})
	sc.Repetitions = reps
	sc.EaseFactor = ease
	sc.LastInterval = last
	return sc
}

func TestNextIntervalFail(t *testing.T) {
	cards := []domain.StudyCard{
		reviewed(0, 2.5, 0),
		reviewed(4, 1.3, 90),
		reviewed(12, 2.5, 365),
		{},
	}
	for _, c := range cards {
		if got := NextInterval(c, domain.Fail); got != 1 {
			t.Errorf("Expected FAIL interval to be 1, but got %d for %+v", got, c)
		}
	}
}

func TestNextIntervalFirstReview(t *testing.T) {
	want := map[domain.Rating]int{
		domain.Hard:    3,
		domain.Good:    7,
		domain.Easy:    14,
		domain.Perfect: 30,
	}
	for r, days := range want {
		t.Run(r.String(), func(t *testing.T) {
			if got := NextInterval(reviewed(0, 2.5, 0), r); got != days {
				t.Errorf("Expected base interval %d, but got %d", days, got)
			}
		})
	}
}

func TestNextIntervalWithHistory(t *testing.T) {
	testCases := []struct {
		name string
		card domain.StudyCard
		r    domain.Rating
		want int
	}{
		// 7 * 2.5 * 1.0 = 17.5
		{"good grows by ease", reviewed(1, 2.5, 7), domain.Good, 18},
		// 10 * 2.0 * 0.9 = 18
		{"hard shrinks factor", reviewed(2, 2.0, 10), domain.Hard, 18},
		// 10 * 1.3 * 1.2 = 15.6
		{"perfect boosts factor", reviewed(3, 1.3, 10), domain.Perfect, 16},
		// 1 * 1.3 * 0.9 = 1.17
		{"short interval", reviewed(1, 1.3, 1), domain.Hard, 1},
		// missing ease -> 2.5, missing last interval -> base interval of GOOD (7)
		{"missing history", domain.StudyCard{Repetitions: 2}, domain.Good, 18},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextInterval(tc.card, tc.r); got != tc.want {
				t.Errorf("Expected interval %d, but got %d", tc.want, got)
			}
		})
	}
}

func TestNextEase(t *testing.T) {
	testCases := []struct {
		current float64
		r       domain.Rating
		want    float64
	}{
		{2.5, domain.Good, 2.5},
		{2.5, domain.Fail, 2.3},
		{2.5, domain.Hard, 2.3},
		{2.0, domain.Easy, 2.15},
		{2.4, domain.Perfect, 2.5},
		{1.4, domain.Fail, 1.3},
		{0, domain.Good, 2.5},
	}
	for _, tc := range testCases {
		got := NextEase(tc.current, tc.r)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("NextEase(%.2f, %v): expected %.2f, but got %.4f", tc.current, tc.r, tc.want, got)
		}
	}
}

func TestNextEaseBounds(t *testing.T) {
	for ease := domain.MinEaseFactor; ease <= domain.MaxEaseFactor; ease += 0.05 {
		for _, r := range domain.Ratings {
			got := NextEase(ease, r)
			if got < domain.MinEaseFactor || got > domain.MaxEaseFactor {
				t.Errorf("NextEase(%.2f, %v) = %.4f is outside [1.3, 2.5]", ease, r, got)
			}
		}
	}
}

func TestApplyReview(t *testing.T) {
	t.Run("first review rated GOOD", func(t *testing.T) {
		got := ApplyReview(domain.NewStudyCard(domain.Card{ID: "c1"}), domain.Good, t0)
		if got.Repetitions != 1 || got.LastInterval != 7 || got.Status != domain.StatusReviewing {
			t.Errorf("Unexpected card after GOOD: %+v", got)
		}
		if got.EaseFactor != 2.5 {
			t.Errorf("Expected ease to stay 2.5, but got %.2f", got.EaseFactor)
		}
		want := t0.AddDate(0, 0, 7)
		if got.NextReviewDate == nil || !got.NextReviewDate.Equal(want) {
			t.Errorf("Expected next review %v, but got %v", want, got.NextReviewDate)
		}
	})

	t.Run("first review rated FAIL", func(t *testing.T) {
		got := ApplyReview(domain.NewStudyCard(domain.Card{ID: "c1"}), domain.Fail, t0)
		if got.Repetitions != 0 || got.LastInterval != 1 || got.Status != domain.StatusLearning {
			t.Errorf("Unexpected card after FAIL: %+v", got)
		}
		if math.Abs(got.EaseFactor-2.3) > 1e-9 {
			t.Errorf("Expected ease 2.3, but got %.4f", got.EaseFactor)
		}
	})

	t.Run("fail resets repetitions", func(t *testing.T) {
		got := ApplyReview(reviewed(5, 2.0, 40), domain.Fail, t0)
		if got.Repetitions != 0 {
			t.Errorf("Expected repetitions to reset, but got %d", got.Repetitions)
		}
	})

	t.Run("input is not modified", func(t *testing.T) {
		in := reviewed(2, 2.0, 10)
		_ = ApplyReview(in, domain.Easy, t0)
		if in.Repetitions != 2 || in.LastInterval != 10 || in.NextReviewDate != nil {
			t.Errorf("Input card was modified: %+v", in)
		}
	})

	t.Run("same input gives same output", func(t *testing.T) {
		in := reviewed(3, 1.8, 12)
		for _, r := range domain.Ratings {
			a := ApplyReview(in, r, t0)
			b := ApplyReview(in, r, t0)
			if a.Repetitions != b.Repetitions || a.EaseFactor != b.EaseFactor ||
				a.LastInterval != b.LastInterval || a.Status != b.Status ||
				!a.NextReviewDate.Equal(*b.NextReviewDate) {
				t.Errorf("ApplyReview is not deterministic for %v: %+v vs %+v", r, a, b)
			}
		}
	})

	t.Run("interval is at least one day", func(t *testing.T) {
		for _, r := range domain.Ratings {
			if got := ApplyReview(reviewed(1, 1.3, 1), r, t0); got.LastInterval < 1 {
				t.Errorf("Expected interval >= 1 for %v, but got %d", r, got.LastInterval)
			}
		}
	})
}

func TestDueCards(t *testing.T) {
	past := t0.Add(-48 * time.Hour)
	older := t0.Add(-72 * time.Hour)
	future := t0.Add(24 * time.Hour)

	cards := []domain.StudyCard{
		{Card: domain.Card{ID: "future"}, Status: domain.StatusReviewing, NextReviewDate: &future},
		{Card: domain.Card{ID: "review-past"}, Status: domain.StatusReviewing, NextReviewDate: &past},
		{Card: domain.Card{ID: "learning"}, Status: domain.StatusLearning, NextReviewDate: &past},
		{Card: domain.Card{ID: "review-older"}, Status: domain.StatusReviewing, NextReviewDate: &older},
		{Card: domain.Card{ID: "new"}, Status: domain.StatusNew},
	}

	due := DueCards(cards, t0)
	var ids []string
	for _, c := range due {
		ids = append(ids, c.ID)
	}
	want := []string{"learning", "new", "review-older", "review-past"}
	if len(ids) != len(want) {
		t.Fatalf("Expected %v, but got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Expected %v, but got %v", want, ids)
			break
		}
	}

	if IsDue(cards[0], t0) {
		t.Error("Expected a card due tomorrow not to be due")
	}
}
