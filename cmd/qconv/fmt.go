package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qconv/grammar"
)

func newFmtCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fmt [flags] <file.qc>",
		Short: "Print a host program in canonical layout",
		Args:  cobra.ExactArgs(1),
		RunE:  runFmt,
	}
	cmd.Flags().BoolP("write", "w", false, "rewrite the file in place")
	return cmd
}

func runFmt(cmd *cobra.Command, args []string) error {
	path := args[0]
	write, err := cmd.Flags().GetBool("write")
	if err != nil {
		return fmt.Errorf("failed to get write flag: %w", err)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	script, err := grammar.ParseString(path, string(src))
	if err != nil {
		report(cmd.ErrOrStderr(), &unit{path: path, source: string(src)}, err)
		return errReported
	}

	formatted := script.String()
	if !write {
		_, err = fmt.Fprint(cmd.OutOrStdout(), formatted)
		return err
	}
	if formatted == string(src) {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(formatted), info.Mode().Perm())
}
