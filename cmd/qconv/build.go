package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qconv/internal/config"
	"qconv/internal/ir"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [flags] <file.qc>",
		Short: "Build a host program into an OpenQASM 3 circuit",
		Args:  cobra.ExactArgs(1),
		RunE:  runBuild,
	}
	cmd.Flags().String("emit", "qasm", "output format (qasm|msgpack)")
	cmd.Flags().StringP("output", "o", "", "write the result to a file instead of stdout")
	cmd.Flags().Bool("strict-measure", false, "reject measurements that resolve to no qubits")
	cmd.Flags().String("hoisting", "", "override the hoisting policy (aliases|rebound)")
	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	path := args[0]

	emit, err := cmd.Flags().GetString("emit")
	if err != nil {
		return fmt.Errorf("failed to get emit flag: %w", err)
	}
	if emit != "qasm" && emit != "msgpack" {
		return fmt.Errorf("unknown emit format %q (want qasm or msgpack)", emit)
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}

	cfg, err := resolveConfig(cmd, path)
	if err != nil {
		report(cmd.ErrOrStderr(), nil, err)
		return errReported
	}
	if cmd.Flags().Changed("strict-measure") {
		cfg.StrictMeasure, _ = cmd.Flags().GetBool("strict-measure")
	}
	if cmd.Flags().Changed("hoisting") {
		policy, _ := cmd.Flags().GetString("hoisting")
		cfg.Hoisting = config.HoistPolicy(policy)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	u, err := compile(cfg, path)
	if err != nil {
		report(cmd.ErrOrStderr(), u, err)
		return errReported
	}

	var data []byte
	switch emit {
	case "msgpack":
		data, err = ir.Marshal(u.prog)
		if err != nil {
			return fmt.Errorf("failed to encode program: %w", err)
		}
	default:
		data = []byte(ir.Print(u.prog) + "\n")
	}

	if output == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	return nil
}
