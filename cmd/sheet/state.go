package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/game/character"
)

var knownStates = []string{
	character.StateBleeding,
	character.StateTakingDamage,
	character.StateInFight,
	character.StateSleeping,
}

func stateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state <state> <on|off>",
		Short: "Set or clear a status flag that gates regeneration",
		Long:  fmt.Sprintf("Set or clear a status flag. Known states: %q.", knownStates),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			state := args[0]
			var on bool
			switch args[1] {
			case "on":
				on = true
			case "off":
			default:
				return fmt.Errorf("state value %q: must be on or off", args[1])
			}
			ctx := context.Background()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()

			return a.edit(ctx, func(c *character.Character) error {
				if on {
					c.States[state] = true
				} else {
					delete(c.States, state)
				}
				return nil
			})
		},
	}
}
