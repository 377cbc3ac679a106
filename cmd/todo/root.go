package main

import (
	"os"

	"github.com/spf13/cobra"

	"todo-htmx/core"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the todo server CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "todo",
		Short:        "htmx todo list server",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (defaults to $CONFIG_FILE)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewGenKeyCmd())

	return cmd
}

func loadConfig() (core.Config, error) {
	path := configFile
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	return core.LoadWithFile(path)
}
