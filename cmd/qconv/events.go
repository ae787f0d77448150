package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qconv/internal/events"
)

func newEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events <file.qc>",
		Short: "Print the structural events recorded from a host program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := parse(args[0])
			if err != nil {
				report(cmd.ErrOrStderr(), u, err)
				return errReported
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), events.Dump(u.events))
			return err
		},
	}
}
