// Package main provides the sheet command-line tool for editing a character roster.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	file       string
	rosterID   string
	character  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "sheet",
		Short:         "Derived-stat engine for RPG character sheets",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "configs/dev.yaml", "path to configuration file")
	flags.StringVar(&opts.file, "file", "roster.json", "roster file used when --roster is not set")
	flags.StringVar(&opts.rosterID, "roster", "", "roster id stored in PostgreSQL")
	flags.StringVar(&opts.character, "character", "", "id or name of the character to act on")

	root.AddCommand(newCmd(opts))
	root.AddCommand(listCmd(opts))
	root.AddCommand(showCmd(opts))
	root.AddCommand(endTurnCmd(opts))
	root.AddCommand(chooseCmd(opts))
	root.AddCommand(raceCmd(opts))
	root.AddCommand(classCmd(opts))
	root.AddCommand(levelCmd(opts))
	root.AddCommand(stateCmd(opts))
	root.AddCommand(undoCmd(opts))
	root.AddCommand(redoCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
