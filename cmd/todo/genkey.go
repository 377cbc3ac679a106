package main

import (
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"todo-htmx/core"
)

// NewGenKeyCmd creates the genkey subcommand.
func NewGenKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genkey",
		Short: "Print a fresh random SESSION_KEY",
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := core.GenerateSessionKey()
			if err != nil {
				return oops.Code("KEYGEN_FAILED").Wrap(err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}
}
