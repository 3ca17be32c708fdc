// Package parser reads flashcards from markdown files.
//
// A card is a run of prefixed blocks:
//
//	Q: front text, may continue on following lines
//	A: back text
//	C: optional context
//	D: optional difficulty, 1-5
//	I: optional image URL
//
// A new Q: line or a line consisting of --- ends the current card. F: and B:
// are accepted as aliases for Q: and A:.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/conorfennell/studydeck/internal/domain"
)

type field int

const (
	none field = iota
	front
	back
	context
	difficulty
	image
)

var prefixes = []struct {
	prefix string
	field  field
}{
	{"Q:", front},
	{"F:", front},
	{"A:", back},
	{"B:", back},
	{"C:", context},
	{"D:", difficulty},
	{"I:", image},
}

const separator = "---"

// LineError reports a malformed card. Parsing continues past it.
type LineError struct {
	Line int
	Msg  string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

type builder struct {
	card      domain.Card
	startLine int
	field     field
	fieldLine int
	block     []string
	problems  []error
	cards     []domain.Card
}

func (b *builder) flushField() {
	if b.field == none {
		return
	}
	content := strings.TrimSpace(strings.Join(b.block, "\n"))
	switch b.field {
	case front:
		b.card.Front = content
	case back:
		b.card.Back = content
	case context:
		b.card.Context = content
	case image:
		b.card.ImageURL = content
	case difficulty:
		d, err := strconv.Atoi(content)
		if err != nil || d < 1 || d > 5 {
			b.problems = append(b.problems, &LineError{Line: b.fieldLine, Msg: fmt.Sprintf("difficulty %q is not between 1 and 5", content)})
		} else {
			b.card.Difficulty = d
		}
	}
	b.field = none
	b.block = nil
}

func (b *builder) finishCard() {
	b.flushField()
	switch {
	case b.card.Front == "" && b.card.Back == "":
	case b.card.Front == "":
		b.problems = append(b.problems, &LineError{Line: b.startLine, Msg: "card has no front"})
	case b.card.Back == "":
		b.problems = append(b.problems, &LineError{Line: b.startLine, Msg: fmt.Sprintf("card %q has no back", b.card.Front)})
	default:
		b.cards = append(b.cards, b.card)
	}
	b.card = domain.Card{}
	b.startLine = 0
}

// Parse reads from an io.Reader and extracts all cards. Malformed cards are
// skipped and reported together in the returned error; the well-formed cards
// are returned either way.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	b := &builder{}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if strings.TrimSpace(line) == separator {
			b.finishCard()
			continue
		}

		f, rest, ok := splitPrefix(line)
		if !ok {
			if b.field != none {
				b.block = append(b.block, line)
			}
			continue
		}

		if f == front && (b.card.Front != "" || b.field != none) {
			b.finishCard()
		}
		b.flushField()
		if b.startLine == 0 {
			b.startLine = lineNo
		}
		b.field = f
		b.fieldLine = lineNo
		b.block = []string{rest}
	}
	b.finishCard()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return b.cards, errors.Join(b.problems...)
}

func splitPrefix(line string) (field, string, bool) {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(line, p.prefix); ok {
			return p.field, strings.TrimPrefix(rest, " "), true
		}
	}
	return none, "", false
}
