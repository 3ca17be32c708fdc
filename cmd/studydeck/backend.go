package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/conorfennell/studydeck/internal/catalog"
	"github.com/conorfennell/studydeck/internal/decksync"
	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/gitsource"
	"github.com/conorfennell/studydeck/internal/progress"
	"github.com/conorfennell/studydeck/internal/session"
	"github.com/conorfennell/studydeck/internal/storage"
	"github.com/conorfennell/studydeck/internal/storage/postgres"
)

// store is what the commands need from a storage driver.
type store interface {
	progress.Sink
	session.Reporter
	Progress(ctx context.Context, userID, deckID string) (*domain.DeckProgress, error)
	ReviewHistory(ctx context.Context, userID, deckID string, limit int) ([]domain.ReviewRecord, error)
	ResetDailyXP(ctx context.Context, now time.Time) (int64, error)
}

// backend bundles the configured storage. The card index always lives in
// SQLite; progress goes to PostgreSQL when that driver is selected.
type backend struct {
	index   *storage.DB
	store   store
	catalog catalog.Source
	syncer  *decksync.Syncer
	close   func()
}

func (a *app) openBackend(ctx context.Context) (*backend, error) {
	cfg := a.cfg
	b := &backend{}

	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Storage.DSN, postgres.PoolConfig{
			MaxConns:        int32(cfg.Storage.MaxConns),
			MaxConnLifetime: cfg.Storage.MaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		pg := postgres.New(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}
		a.logger.Info("connected to postgres")
		b.store = pg
		b.catalog = catalog.NewDir(cfg.DecksDir, a.logger)
		b.close = pool.Close

	default:
		db, err := storage.Open(cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.logger.Info("database opened", zap.String("dsn", cfg.Storage.DSN))

		b.index = db
		b.store = db
		b.catalog = db
		b.syncer = decksync.New(db, gitsource.New(a.logger, nil), cfg.ReposDir, a.logger)
		b.close = func() { _ = db.Close() }
	}
	return b, nil
}

// sync registers the configured sources and reconciles the card index.
// Without an index it does nothing.
func (a *app) sync(ctx context.Context, b *backend) (decksync.Result, error) {
	if b.syncer == nil {
		return decksync.Result{}, nil
	}

	var local []string
	if catalog.Exists(a.cfg.DecksDir) {
		local = append(local, a.cfg.DecksDir)
	} else {
		a.logger.Warn("decks directory not found", zap.String("path", a.cfg.DecksDir))
	}
	if err := b.syncer.Register(ctx, local, a.cfg.Sources); err != nil {
		return decksync.Result{}, fmt.Errorf("failed to register sources: %w", err)
	}

	res, err := b.syncer.Run(ctx)
	if err != nil {
		return res, err
	}
	for _, e := range res.Errors {
		a.logger.Warn("sync problem", zap.Error(e))
	}
	return res, nil
}

func (a *app) sessionOptions() []session.Option {
	return []session.Option{
		session.WithTransitionDelay(a.cfg.Session.TransitionDelay),
		session.WithPersistAttempts(a.cfg.Session.PersistAttempts),
	}
}

var errNoIndex = errors.New("syncing needs the sqlite driver")

func warnNoDecks(decks int) {
	if decks == 0 {
		fmt.Fprintln(os.Stderr, "No decks found. Add .md files to the decks directory or configure a git source.")
	}
}
