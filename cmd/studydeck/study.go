package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conorfennell/studydeck/internal/catalog"
	"github.com/conorfennell/studydeck/internal/cli"
	"github.com/conorfennell/studydeck/internal/clock"
	"github.com/conorfennell/studydeck/internal/session"
)

func newStudyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "study <deck>",
		Short: "Study a deck in the terminal until the timer runs out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deckID := args[0]

			b, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			if _, err := a.sync(ctx, b); err != nil {
				return fmt.Errorf("failed to sync decks: %w", err)
			}

			cards, err := b.catalog.Cards(ctx, deckID)
			if errors.Is(err, catalog.ErrDeckNotFound) {
				return fmt.Errorf("deck %q not found, run `studydeck decks` to list them", deckID)
			}
			if err != nil {
				return err
			}

			console := cli.NewConsole(cmd.OutOrStdout())
			m := session.New(session.Deps{
				Identity: session.StaticIdentity(a.cfg.User.ID),
				Sink:     b.store,
				Reporter: cli.NewReporter(console, b.store),
				Notifier: cli.NewNotifier(console),
				Clock:    clock.NewTicker(),
				Logger:   a.logger,
			}, a.sessionOptions()...)

			if err := m.Start(ctx, deckID, cards, a.cfg.Session.Minutes); err != nil {
				return err
			}
			defer m.Wait()

			err = cli.NewStudy(m, os.Stdin, console).Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
