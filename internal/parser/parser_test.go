package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedFront string
		expectedBack  string
		expectedCtx   string
	}{
		{
			name:          "Simple Q&A",
			input:         "Q: What is the capital of France?\nA: Paris",
			expectedCards: 1,
			expectedFront: "What is the capital of France?",
			expectedBack:  "Paris",
		},
		{
			name:          "Front, back and context",
			input:         "Q: ¿Cómo estás?\nA: How are you?\nC: Informal greeting",
			expectedCards: 1,
			expectedFront: "¿Cómo estás?",
			expectedBack:  "How are you?",
			expectedCtx:   "Informal greeting",
		},
		{
			name: "Multiline back",
			input: `
Q: What are the primary colors?
A: Red
Blue
Yellow
`,
			expectedCards: 1,
			expectedFront: "What are the primary colors?",
			expectedBack:  "Red\nBlue\nYellow",
		},
		{
			name: "Two cards",
			input: `
Q: First question
A: First answer

Q: Second question
A: Second answer
`,
			expectedCards: 2,
		},
		{
			name: "Separator ends a card",
			input: `
Q: uno
A: one
---
Q: dos
A: two
`,
			expectedCards: 2,
		},
		{
			name:          "F and B aliases",
			input:         "F: gato\nB: cat",
			expectedCards: 1,
			expectedFront: "gato",
			expectedBack:  "cat",
		},
		{
			name:          "No cards, just text",
			input:         "This is a file with no questions.",
			expectedCards: 0,
		},
		{
			name:          "Prefixes with no space",
			input:         "Q:Question\nA:Answer",
			expectedCards: 1,
			expectedFront: "Question",
			expectedBack:  "Answer",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(cards) != tc.expectedCards {
				t.Fatalf("Expected %d cards, but got %d", tc.expectedCards, len(cards))
			}

			if tc.expectedCards == 1 {
				card := cards[0]
				if card.Front != tc.expectedFront {
					t.Errorf("Expected Front to be '%s', but got '%s'", tc.expectedFront, card.Front)
				}
				if card.Back != tc.expectedBack {
					t.Errorf("Expected Back to be '%s', but got '%s'", tc.expectedBack, card.Back)
				}
				if card.Context != tc.expectedCtx {
					t.Errorf("Expected Context to be '%s', but got '%s'", tc.expectedCtx, card.Context)
				}
			}
		})
	}
}

func TestParseMetadata(t *testing.T) {
	input := `
Q: el perro
A: the dog
D: 2
I: https://example.com/dog.png
`
	cards, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() returned an unexpected error: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("Expected 1 card, but got %d", len(cards))
	}
	if cards[0].Difficulty != 2 {
		t.Errorf("Expected Difficulty 2, but got %d", cards[0].Difficulty)
	}
	if cards[0].ImageURL != "https://example.com/dog.png" {
		t.Errorf("Expected ImageURL, but got '%s'", cards[0].ImageURL)
	}
}

func TestParseReportsMalformedCards(t *testing.T) {
	input := `Q: no answer here
---
Q: good
A: card
D: 9
---
A: orphan answer
---
Q: fine
A: too
`
	cards, err := Parse(strings.NewReader(input))
	if err == nil {
		t.Fatal("Expected an error for malformed cards, got nil")
	}
	if len(cards) != 2 {
		t.Fatalf("Expected the 2 well-formed cards, but got %d", len(cards))
	}
	if cards[0].Difficulty != 0 {
		t.Errorf("Expected invalid difficulty to be dropped, but got %d", cards[0].Difficulty)
	}

	var lineErr *LineError
	if !errors.As(err, &lineErr) {
		t.Fatalf("Expected a *LineError, got %T", err)
	}
	if lineErr.Line != 1 {
		t.Errorf("Expected first problem on line 1, but got line %d", lineErr.Line)
	}
	for _, want := range []string{"no back", "difficulty", "no front"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to mention %q, got: %v", want, err)
		}
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spanish.md")
	if err := os.WriteFile(path, []byte("Q: hola\nA: hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cards, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() returned an unexpected error: %v", err)
	}
	if len(cards) != 1 || cards[0].Front != "hola" {
		t.Fatalf("Expected one card 'hola', got %+v", cards)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
