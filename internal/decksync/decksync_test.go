package decksync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/studydeck/internal/storage"
)

type fakeGit struct {
	files map[string]string
	err   error
	urls  []string
}

func (f *fakeGit) Sync(_ context.Context, url, localPath string) error {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return f.err
	}
	if err := os.MkdirAll(localPath, 0o755); err != nil {
		return err
	}
	for name, content := range f.files {
		if err := os.WriteFile(filepath.Join(localPath, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func openStore(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunLocalSource(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	decks := t.TempDir()
	deckFile := filepath.Join(decks, "spanish.md")
	require.NoError(t, os.WriteFile(deckFile, []byte("Q: hola\nA: hello\n---\nQ: gato\nA: cat\n"), 0o644))

	s := New(db, nil, t.TempDir(), nil)
	require.NoError(t, s.Register(ctx, []string{decks}, nil))
	require.NoError(t, s.Register(ctx, []string{decks}, nil))

	res, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sources)
	assert.Equal(t, 2, res.Cards)
	assert.NoError(t, res.Err())

	cards, err := db.Cards(ctx, "spanish")
	require.NoError(t, err)
	assert.Len(t, cards, 2)

	// Removing a card from the file deletes it on the next run.
	require.NoError(t, os.WriteFile(deckFile, []byte("Q: hola\nA: hello\n"), 0o644))
	res, err = s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)

	cards, err = db.Cards(ctx, "spanish")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "hola", cards[0].Front)
}

func TestRunGitSource(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	git := &fakeGit{files: map[string]string{"german.md": "Q: hallo\nA: hello\n"}}
	reposDir := t.TempDir()

	s := New(db, git, reposDir, nil)
	require.NoError(t, s.Register(ctx, nil, []string{"https://github.com/me/decks.git"}))

	res, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://github.com/me/decks.git"}, git.urls)
	assert.Equal(t, 1, res.Cards)

	decks, err := db.Decks(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "german", decks[0].ID)
}

func TestRunKeepsGoingAfterFailure(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	decks := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(decks, "a.md"), []byte("Q: x\nA: y\n---\nQ: no back\n"), 0o644))

	git := &fakeGit{err: errors.New("authentication required")}
	s := New(db, git, t.TempDir(), nil)
	require.NoError(t, s.Register(ctx, []string{decks}, []string{"git@github.com:me/private.git"}))

	res, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sources)
	assert.Equal(t, 1, res.Cards)
	require.Len(t, res.Errors, 2)
	assert.ErrorContains(t, res.Err(), "authentication required")
	assert.ErrorContains(t, res.Err(), "no back")
}

func TestRunWithoutSources(t *testing.T) {
	s := New(openStore(t), nil, t.TempDir(), nil)
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Sources)
}
