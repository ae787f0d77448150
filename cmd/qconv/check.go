package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] <file.qc>...",
		Short: "Build host programs and report errors without writing output",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheck,
	}
	cmd.Flags().Int("jobs", 0, "max parallel builds (0=auto)")
	return cmd
}

// checkResult is the outcome of one file
type checkResult struct {
	unit *unit
	err  error
}

func runCheck(cmd *cobra.Command, args []string) error {
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}

	start := time.Now()
	results, err := checkFiles(cmd.Context(), cmd, args, jobs)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			report(cmd.ErrOrStderr(), r.unit, r.err)
		}
	}

	elapsed := formatDuration(time.Since(start))
	if failed > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), color.RedString("%d of %d file(s) failed after %s", failed, len(results), elapsed))
		return errReported
	}
	fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Checked %d file(s) in %s", len(results), elapsed))
	return nil
}

// checkFiles builds every path concurrently, each in its own scope. Results
// keep the order of paths.
func checkFiles(ctx context.Context, cmd *cobra.Command, paths []string, jobs int) ([]checkResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]checkResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))

	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			cfg, err := resolveConfig(cmd, path)
			if err != nil {
				results[i] = checkResult{unit: nil, err: err}
				return nil
			}
			u, err := compile(cfg, path)
			results[i] = checkResult{unit: u, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
