package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDecksCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decks",
		Short: "List the decks available for study",
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

			decks, err := b.catalog.Decks(ctx)
			if err != nil {
				return err
			}
			warnNoDecks(len(decks))

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, d := range decks {
				fmt.Fprintf(w, "%s\t%d cards\n", d.ID, d.CardCount)
			}
			return w.Flush()
		},
	}
}
