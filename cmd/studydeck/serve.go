package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conorfennell/studydeck/internal/clock"
	"github.com/conorfennell/studydeck/internal/decksync"
	"github.com/conorfennell/studydeck/internal/session"
	"github.com/conorfennell/studydeck/internal/web"
)

const shutdownTimeout = 10 * time.Second

type syncFunc func(ctx context.Context) (decksync.Result, error)

func (f syncFunc) Run(ctx context.Context) (decksync.Result, error) {
	return f(ctx)
}

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve study sessions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			b, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			if _, err := a.sync(ctx, b); err != nil {
				return fmt.Errorf("failed to sync decks: %w", err)
			}

			reset, err := clock.NewDaily(a.cfg.Storage.ResetSchedule, func(ctx context.Context) error {
				n, err := b.store.ResetDailyXP(ctx, time.Now())
				if err != nil {
					return err
				}
				a.logger.Info("daily xp reset", zap.Int64("rows", n))
				return nil
			}, a.logger)
			if err != nil {
				return err
			}

			deps := web.Deps{
				Catalog: b.catalog,
				NewMachine: func(identity session.Identity, notifier session.Notifier) *session.Machine {
					return session.New(session.Deps{
						Identity: identity,
						Sink:     b.store,
						Reporter: b.store,
						Notifier: notifier,
						Clock:    clock.NewTicker(),
						Logger:   a.logger,
					}, a.sessionOptions()...)
				},
				Progress:       b.store,
				Logger:         a.logger,
				DefaultMinutes: a.cfg.Session.Minutes,
			}
			if b.index != nil {
				deps.Sources = b.index
				deps.Sync = syncFunc(func(ctx context.Context) (decksync.Result, error) {
					return a.sync(ctx, b)
				})
			}
			srv := web.NewServer(deps)

			httpServer := &http.Server{
				Addr:              a.cfg.HTTP.Addr,
				Handler:           srv,
				ReadHeaderTimeout: 5 * time.Second,
			}

			p := pool.New().WithContext(ctx).WithCancelOnError()
			p.Go(func(ctx context.Context) error {
				return reset.Run(ctx)
			})
			p.Go(func(context.Context) error {
				a.logger.Info("starting server", zap.String("addr", httpServer.Addr))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			})
			p.Go(func(ctx context.Context) error {
				<-ctx.Done()
				a.logger.Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				err := httpServer.Shutdown(shutdownCtx)
				srv.Shutdown()
				return err
			})
			return p.Wait()
		},
	}
}
