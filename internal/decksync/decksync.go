// Package decksync indexes the cards of every configured deck source into
// storage, pulling git sources first.
package decksync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/conorfennell/studydeck/internal/catalog"
	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/gitsource"
	"github.com/conorfennell/studydeck/internal/knol"
	"github.com/conorfennell/studydeck/internal/parser"
	"github.com/conorfennell/studydeck/internal/storage"
)

// Store is the part of storage.DB the syncer writes to.
type Store interface {
	EnsureSource(ctx context.Context, path, sourceType string) (int64, error)
	GetAllSources(ctx context.Context) ([]storage.Source, error)
	UpsertCard(ctx context.Context, card domain.Card, sourceID int64) error
	GetCardsBySourceID(ctx context.Context, sourceID int64) ([]domain.Card, error)
	DeleteCard(ctx context.Context, deckID, id string) error
	UpdateSourceLastScanned(ctx context.Context, sourceID int64) error
}

// Git fetches a repository into a local directory.
type Git interface {
	Sync(ctx context.Context, url, localPath string) error
}

// Result counts what a run changed.
type Result struct {
	Sources int
	Cards   int
	Deleted int
	Errors  []error
}

type Syncer struct {
	store    Store
	git      Git
	reposDir string
	logger   *zap.Logger
}

func New(store Store, git Git, reposDir string, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{store: store, git: git, reposDir: reposDir, logger: logger}
}

// Register records a local deck directory and git URLs as sources. Known
// sources are left as they are.
func (s *Syncer) Register(ctx context.Context, localDirs, gitURLs []string) error {
	for _, dir := range localDirs {
		if _, err := s.store.EnsureSource(ctx, dir, storage.SourceLocal); err != nil {
			return err
		}
	}
	for _, u := range gitURLs {
		if _, err := s.store.EnsureSource(ctx, u, storage.SourceGit); err != nil {
			return err
		}
	}
	return nil
}

// Run iterates over all sources and reconciles them. A failing source is
// logged and recorded in the result; the others still sync.
func (s *Syncer) Run(ctx context.Context) (Result, error) {
	var res Result

	sources, err := s.store.GetAllSources(ctx)
	if err != nil {
		return res, err
	}
	if len(sources) == 0 {
		s.logger.Info("no sources configured")
		return res, nil
	}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		s.logger.Info("syncing source",
			zap.Int64("id", source.ID),
			zap.String("type", source.Type),
			zap.String("path", source.Path),
		)

		root := source.Path
		if source.Type == storage.SourceGit {
			if s.git == nil {
				res.Errors = append(res.Errors, fmt.Errorf("git source %s: no git client", source.Path))
				continue
			}
			localPath, err := gitsource.LocalPath(s.reposDir, source.Path)
			if err != nil {
				res.Errors = append(res.Errors, err)
				continue
			}
			if err := os.MkdirAll(filepath.Dir(localPath), os.ModePerm); err != nil {
				res.Errors = append(res.Errors, fmt.Errorf("failed to create repos directory: %w", err))
				continue
			}
			if err := s.git.Sync(ctx, source.Path, localPath); err != nil {
				s.logger.Error("error syncing git repo", zap.String("url", source.Path), zap.Error(err))
				res.Errors = append(res.Errors, err)
				continue
			}
			root = localPath
		}

		cards, deleted, errs := s.reconcile(ctx, source.ID, root)
		res.Sources++
		res.Cards += cards
		res.Deleted += deleted
		res.Errors = append(res.Errors, errs...)
	}

	s.logger.Info("sync complete",
		zap.Int("sources", res.Sources),
		zap.Int("cards", res.Cards),
		zap.Int("deleted", res.Deleted),
		zap.Int("errors", len(res.Errors)),
	)
	return res, nil
}

type cardKey struct{ deckID, id string }

func (s *Syncer) reconcile(ctx context.Context, sourceID int64, root string) (int, int, []error) {
	var problems []error
	found := make(map[cardKey]bool)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !catalog.IsDeckFile(d.Name()) {
			return nil
		}

		cards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			problems = append(problems, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		deckID := catalog.DeckID(root, path)
		knol.Assign(deckID, cards)
		for _, card := range cards {
			key := cardKey{deckID, card.ID}
			if found[key] {
				continue
			}
			found[key] = true
			if err := s.store.UpsertCard(ctx, card, sourceID); err != nil {
				problems = append(problems, err)
			}
		}
		return nil
	})
	if walkErr != nil {
		s.logger.Error("error walking directory", zap.String("path", root), zap.Error(walkErr))
		return 0, 0, append(problems, walkErr)
	}

	stored, err := s.store.GetCardsBySourceID(ctx, sourceID)
	if err != nil {
		return len(found), 0, append(problems, err)
	}

	deleted := 0
	for _, card := range stored {
		if found[cardKey{card.DeckID, card.ID}] {
			continue
		}
		s.logger.Info("orphaned card, deleting", zap.String("deck_id", card.DeckID), zap.String("card_id", card.ID))
		if err := s.store.DeleteCard(ctx, card.DeckID, card.ID); err != nil {
			s.logger.Warn("failed to delete orphaned card", zap.String("card_id", card.ID), zap.Error(err))
			problems = append(problems, err)
			continue
		}
		deleted++
	}

	if err := s.store.UpdateSourceLastScanned(ctx, sourceID); err != nil {
		s.logger.Warn("failed to update last scanned for source", zap.Int64("source_id", sourceID), zap.Error(err))
	}

	s.logger.Info("reconciliation complete",
		zap.String("path", root),
		zap.Int("cards", len(found)),
		zap.Int("orphaned_deleted", deleted),
		zap.Int("errors", len(problems)),
	)
	return len(found), deleted, problems
}

// Err joins the per-source problems of a run.
func (r Result) Err() error {
	return errors.Join(r.Errors...)
}
