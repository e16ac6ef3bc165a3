package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
)

func raceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "race <race>",
		Short: "Change the active character's race",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.edit(ctx, func(c *character.Character) error {
				return a.passives.ChangeRace(c, args[0])
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s.\n", a.store.ActiveCharacter().Name, args[0])
			return nil
		},
	}
}

func classCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "class [class]",
		Short: "Change the active character's class, or clear it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()

			class := ""
			if len(args) == 1 {
				class = args[0]
			}
			if err := a.edit(ctx, func(c *character.Character) error {
				return a.passives.ChangeClass(c, class)
			}); err != nil {
				return err
			}
			if class == "" {
				class = "no class"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now has %s.\n", a.store.ActiveCharacter().Name, class)
			return nil
		},
	}
}

func levelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "level <n>",
		Short: "Set the active character's level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("level %q: %w", args[0], err)
			}
			ctx := context.Background()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.edit(ctx, func(c *character.Character) error {
				return a.passives.ChangeLevel(c, level)
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now level %d.\n", a.store.ActiveCharacter().Name, level)
			return nil
		},
	}
}
