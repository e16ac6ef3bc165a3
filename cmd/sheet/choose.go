package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
)

func chooseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "choose <category> <option> <slot> <stat>",
		Short: "Place a passive option from a race or class into a slot",
		Long: "Place a passive option from a race or class into a slot. A slot already\n" +
			"holding a choice is reverted first. The choice is refused when another slot\n" +
			"of the same conflict group already claims the stat.",
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()

			category, option, slot, stat := args[0], args[1], args[2], args[3]
			if err := a.edit(ctx, func(c *character.Character) error {
				return a.passives.Choose(c, category, option, slot, stat)
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s/%s now holds %s on %s.\n",
				a.store.ActiveCharacter().Name, category, slot, option, stat)
			return nil
		},
	}
}
