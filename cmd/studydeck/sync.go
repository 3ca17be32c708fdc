package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull git sources and re-index every deck",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			b, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			if b.syncer == nil {
				return errNoIndex
			}

			res, err := a.sync(ctx, b)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Synced %d sources: %d cards, %d removed, %d errors.\n",
				res.Sources, res.Cards, res.Deleted, len(res.Errors))
			for _, e := range res.Errors {
				fmt.Fprintf(out, "- %s\n", e)
			}
			return nil
		},
	}
}
