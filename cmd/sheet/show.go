package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/ruleset"
)

func showCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the active character's sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(context.Background(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			c := a.store.ActiveCharacter()
			if c == nil {
				return errNoActive
			}
			printSheet(cmd.OutOrStdout(), a.registry.Rules(), c)
			return nil
		},
	}
}

func printSheet(out io.Writer, rules *ruleset.Rules, c *character.Character) {
	class := c.Class
	if class == "" {
		class = "-"
	}
	fmt.Fprintf(out, "%s  [%s]\n", c.Name, c.ID)
	fmt.Fprintf(out, "Race: %s  Class: %s  Level: %d (%d/%d xp)  Purse: %d\n",
		c.Race, class, c.Level, c.LevelExperience, c.LevelMaxExperience, c.Purse)

	fmt.Fprintln(out, "Attributes:")
	for _, name := range rules.RollStats {
		rs := c.RollStats[name]
		fmt.Fprintf(out, "  %-14s %6.2f  (base %d, x%.2f, xp %d/%d)\n",
			name, rs.Total, rs.BaseValue, rs.RacialChange, rs.Experience, rs.MaxExperience)
	}

	fmt.Fprintln(out, "Resources:")
	for _, name := range []string{ruleset.Health, ruleset.Mana, ruleset.RacialPower} {
		ds := c.Other(name)
		fmt.Fprintf(out, "  %-14s %6.2f / %.2f\n", name, ds.Value, ds.Max)
	}
	fmt.Fprintf(out, "  %-14s %6.2f\n", "Defense", c.Other(ruleset.TotalDefense).Value)

	if len(c.UniqueIdentifiers) > 0 {
		names := make([]string, 0, len(c.UniqueIdentifiers))
		for _, rec := range c.UniqueIdentifiers {
			names = append(names, rec.Name)
		}
		slices.Sort(names)
		fmt.Fprintf(out, "Abilities: %s\n", strings.Join(names, ", "))
	}

	var states []string
	for state, on := range c.States {
		if on {
			states = append(states, state)
		}
	}
	if len(states) > 0 {
		slices.Sort(states)
		fmt.Fprintf(out, "States: %s\n", strings.Join(states, ", "))
	}

	if len(c.Inventory) > 0 {
		fmt.Fprintln(out, "Inventory:")
		for _, item := range c.Inventory {
			equipped := ""
			if item.Equipped {
				equipped = " (equipped)"
			}
			fmt.Fprintf(out, "  %dx %s%s\n", item.Quantity, item.Name, equipped)
		}
	}
}
