package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func undoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Restore the roster to the previous snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.history.Undo(a.store); err != nil {
				return err
			}
			if err := a.save(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Undone. Active: %s.\n", a.store.ActiveCharacter().Name)
			return nil
		},
	}
}

func redoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "redo",
		Short: "Reapply the snapshot undone last",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.history.Redo(a.store); err != nil {
				return err
			}
			if err := a.save(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Redone. Active: %s.\n", a.store.ActiveCharacter().Name)
			return nil
		},
	}
}
