package domain

import (
	"database/sql/driver"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRating is returned when a value cannot be interpreted as a Rating.
var ErrInvalidRating = errors.New("domain: invalid rating")

// Rating is the user's judgment of how well a card was recalled.
type Rating int

const (
	Fail    Rating = iota + 1 // Not recalled, review again tomorrow.
	Hard                      // Recalled with difficulty.
	Good                      // Recalled with some effort.
	Easy                      // Recalled easily.
	Perfect                   // Perfect recall.
)

// Ratings lists every valid rating in ascending order.
var Ratings = []Rating{Fail, Hard, Good, Easy, Perfect}

var (
	ratingNames = [...]string{Fail: "FAIL", Hard: "HARD", Good: "GOOD", Easy: "EASY", Perfect: "PERFECT"}
	// Days until the next review when a card has no repetition history.
	baseIntervals = [...]int{Fail: 1, Hard: 3, Good: 7, Easy: 14, Perfect: 30}
)

var (
	_ fmt.Stringer             = Rating(0)
	_ json.Marshaler           = Rating(0)
	_ json.Unmarshaler         = (*Rating)(nil)
	_ encoding.TextMarshaler   = Rating(0)
	_ encoding.TextUnmarshaler = (*Rating)(nil)
	_ driver.Valuer            = Rating(0)
)

// IsValid reports whether r is one of the five defined ratings.
func (r Rating) IsValid() bool {
	return r >= Fail && r <= Perfect
}

// Weight is the numeric weight 1-5 of the rating.
func (r Rating) Weight() int {
	return int(r)
}

// BaseInterval returns the interval in days used for a card without history.
func (r Rating) BaseInterval() int {
	if !r.IsValid() {
		return 1
	}
	return baseIntervals[r]
}

// IsCorrect reports whether the rating counts as a correct answer.
func (r Rating) IsCorrect() bool {
	return r.IsValid() && r != Fail
}

func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// ParseRating accepts a rating name in any case ("good", "GOOD") or its
// weight as a digit ("3").
func ParseRating(s string) (Rating, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		r := Rating(n)
		if !r.IsValid() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidRating, n)
		}
		return r, nil
	}
	upper := strings.ToUpper(s)
	for _, r := range Ratings {
		if ratingNames[r] == upper {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
}

func (r Rating) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRating, int(r))
	}
	return []byte(ratingNames[r]), nil
}

func (r *Rating) UnmarshalText(text []byte) error {
	v, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// MarshalJSON encodes the rating as its name.
func (r Rating) MarshalJSON() ([]byte, error) {
	text, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON accepts either a name string or a weight number.
func (r *Rating) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidRating, data)
		}
		s = strconv.Itoa(n)
	}
	return r.UnmarshalText([]byte(s))
}

// Value stores the rating by name.
func (r Rating) Value() (driver.Value, error) {
	text, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(text), nil
}

// Scan implements sql.Scanner.
func (r *Rating) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	case int64:
		return r.UnmarshalText([]byte(strconv.FormatInt(v, 10)))
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidRating, src)
	}
}
