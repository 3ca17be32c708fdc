package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"study", "serve", "sync", "decks"})
}

func TestSyncAndDecks(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "decks", "lang"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "decks", "lang", "spanish.md"),
		[]byte("Q: hola\nA: hello\n---\nQ: adios\nA: goodbye\n"), 0o644))

	out, err := run(t, "sync", "--dsn", filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "Synced 1 sources: 2 cards, 0 removed, 0 errors.")

	out, err = run(t, "decks", "--dsn", filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "lang/spanish")
	assert.Contains(t, out, "2 cards")
}

func TestInvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := run(t, "decks", "--minutes", "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestStudyUnknownDeck(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "decks"), 0o755))

	_, err := run(t, "study", "french", "--dsn", filepath.Join(dir, "test.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `deck "french" not found`)
}
