package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/turn"
)

func endTurnCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "end-turn",
		Short: "Regenerate resources and age timed effects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()

			var report turn.Report
			if err := a.edit(ctx, func(c *character.Character) error {
				report, err = a.turns.EndTurn(c)
				return err
			}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			resources := make([]string, 0, len(report.Regenerated))
			for name := range report.Regenerated {
				resources = append(resources, name)
			}
			slices.Sort(resources)
			for _, name := range resources {
				fmt.Fprintf(out, "%s +%.2f\n", name, report.Regenerated[name])
			}
			for _, expired := range report.Expired {
				fmt.Fprintf(out, "expired %s\n", expired)
			}
			return nil
		},
	}
}
