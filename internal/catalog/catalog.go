// Package catalog supplies the cards of a deck to study sessions.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/knol"
	"github.com/conorfennell/studydeck/internal/parser"
)

var ErrDeckNotFound = errors.New("catalog: deck not found")

// Source lists decks and their cards. storage.DB implements it for synced
// decks; Dir reads markdown files directly.
type Source interface {
	Decks(ctx context.Context) ([]domain.Deck, error)
	Cards(ctx context.Context, deckID string) ([]domain.Card, error)
}

// Dir is a directory of markdown decks. Every .md file below the root is a
// deck whose ID is its slash-separated path without the extension.
type Dir struct {
	root   string
	logger *zap.Logger
}

func NewDir(root string, logger *zap.Logger) *Dir {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dir{root: root, logger: logger}
}

// Decks walks the directory and counts the cards of every deck.
func (d *Dir) Decks(ctx context.Context) ([]domain.Deck, error) {
	var decks []domain.Deck
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			if path != d.root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsDeckFile(entry.Name()) {
			return nil
		}

		cards, err := d.parse(path)
		if err != nil {
			return err
		}
		decks = append(decks, domain.Deck{ID: DeckID(d.root, path), CardCount: len(cards)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list decks in %s: %w", d.root, err)
	}

	sort.Slice(decks, func(i, j int) bool { return decks[i].ID < decks[j].ID })
	return decks, nil
}

// Cards parses the deck's file. Malformed cards are logged and skipped.
func (d *Dir) Cards(ctx context.Context, deckID string) ([]domain.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !fs.ValidPath(deckID) {
		return nil, fmt.Errorf("%w: %q", ErrDeckNotFound, deckID)
	}

	path := filepath.Join(d.root, filepath.FromSlash(deckID)+".md")
	cards, err := d.parse(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrDeckNotFound, deckID)
	}
	if err != nil {
		return nil, err
	}

	knol.Assign(deckID, cards)
	return cards, nil
}

func (d *Dir) parse(path string) ([]domain.Card, error) {
	cards, err := parser.ParseFile(path)
	if cards == nil && err != nil {
		var lineErr *parser.LineError
		if !errors.As(err, &lineErr) {
			return nil, err
		}
	}
	if err != nil {
		d.logger.Warn("skipped malformed cards", zap.String("path", path), zap.Error(err))
	}
	return cards, nil
}

// IsDeckFile reports whether name is a markdown deck.
func IsDeckFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".md")
}

// DeckID derives the deck ID of a markdown file below root.
func DeckID(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.ToSlash(rel)
}

// Exists reports whether root is a readable directory.
func Exists(root string) bool {
	info, err := os.Stat(root)
	return err == nil && info.IsDir()
}
