package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"qconv/repl"
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session that prints the circuit after each statement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err := resolveConfig(cmd, filepath.Join(wd, "repl"))
			if err != nil {
				report(cmd.ErrOrStderr(), nil, err)
				return errReported
			}
			return repl.Start(cmd.InOrStdin(), cmd.OutOrStdout(), cfg)
		},
	}
}
