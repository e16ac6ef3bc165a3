package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCmd(opts *rootOptions) *cobra.Command {
	var (
		race  string
		class string
		roll  bool
	)
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Add a character to the roster and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()

			if race == "" {
				race = a.registry.Rules().DefaultRace
			}
			c, err := a.createCharacter(args[0], race, class, roll)
			if err != nil {
				return err
			}
			if err := a.record(ctx, func() error {
				a.store.Add(c)
				return nil
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s) as roster entry %d.\n", c.Name, c.ID, a.store.ActiveIndex())
			return nil
		},
	}
	cmd.Flags().StringVar(&race, "race", "", "race id (defaults to the ruleset's default race)")
	cmd.Flags().StringVar(&class, "class", "", "class id")
	cmd.Flags().BoolVar(&roll, "roll", false, "roll base values with the ruleset's dice expression")
	return cmd
}

func listCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(context.Background(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			if a.store.Len() == 0 {
				fmt.Fprintln(out, "Roster is empty.")
				return nil
			}
			for i, c := range a.store.Characters() {
				marker := " "
				if i == a.store.ActiveIndex() {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %d  %-20s %-10s level %d  %s\n", marker, i, c.Name, c.Race, c.Level, c.ID)
			}
			return nil
		},
	}
}
