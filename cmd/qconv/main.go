// SPDX-License-Identifier: Apache-2.0
package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"golang.org/x/term"

	"qconv/grammar"
	"qconv/internal/config"
	"qconv/internal/convert"
	"qconv/internal/errors"
	"qconv/internal/events"
	"qconv/internal/ir"
	"qconv/internal/program"
	"qconv/internal/source"
)

var version = "0.1.0"

// errReported marks a failure whose diagnostic was already printed
var errReported = stderrors.New("build failed")

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if !stderrors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "qconv",
		Short:         "Convert host programs into OpenQASM 3 circuits",
		Long:          `qconv records the structure of a host program and builds an OpenQASM 3 circuit from it`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			mode, err := cmd.Flags().GetString("color")
			if err != nil {
				return fmt.Errorf("failed to get color flag: %w", err)
			}
			if err := setColor(mode, cmd.OutOrStdout()); err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetCount("verbose")
			if err != nil {
				return fmt.Errorf("failed to get verbose flag: %w", err)
			}
			commonlog.Configure(verbose, nil)
			return nil
		},
	}

	root.PersistentFlags().String("config", "", "path to qconv.toml (default: nearest one above the input)")
	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().CountP("verbose", "v", "increase log verbosity")

	root.AddCommand(newBuildCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newEventsCmd())
	root.AddCommand(newFmtCmd())
	root.AddCommand(newReplCmd())
	return root
}

func setColor(mode string, out io.Writer) error {
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		f, ok := out.(*os.File)
		color.NoColor = !ok || !isTerminal(f)
	default:
		return fmt.Errorf("unknown color mode %q (want auto, on or off)", mode)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// unit is one host file on its way through the pipeline
type unit struct {
	path   string
	source string
	events []events.Event
	prog   *ir.Program
}

func resolveConfig(cmd *cobra.Command, path string) (config.Config, error) {
	explicit, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Resolve(explicit, filepath.Dir(path))
	if err != nil {
		return config.Config{}, errors.New(errors.KindConfig, err.Error(), source.Position{Filename: path}).Build()
	}
	return cfg, nil
}

// parse reads and lowers one host file
func parse(path string) (*unit, error) {
	evs, src, err := grammar.ParseFile(path)
	if err != nil {
		return &unit{path: path, source: src}, err
	}
	return &unit{path: path, source: src, events: evs}, nil
}

// compile parses and builds one host file in its own scope
func compile(cfg config.Config, path string) (*unit, error) {
	u, err := parse(path)
	if err != nil {
		return u, err
	}
	u.prog, err = convert.Build(program.NewScope(cfg), u.events)
	return u, err
}

// report prints err with a source excerpt when it carries a position
func report(w io.Writer, u *unit, err error) {
	var be *errors.Error
	if u != nil && stderrors.As(err, &be) {
		fmt.Fprint(w, errors.NewReporter(u.path, u.source).Format(be))
		return
	}
	fmt.Fprintln(w, color.RedString("error:"), err)
}
