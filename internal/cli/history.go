package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/lkparity/internal/ledger"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// RunDetail is the history command's payload for a single run.
type RunDetail struct {
	Run   ledger.Run    `json:"run"`
	Cases []ledger.Case `json:"cases"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `Show runs recorded in the ledger.

Without an argument, lists the most recent runs. With a run id, shows
every fixture outcome of that run.

Examples:
  lkparity history
  lkparity history --limit 5
  lkparity history 0192f3c4-8a1b-7c2d-9e3f-4a5b6c7d8e9f --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runHistory(opts, runID, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of runs to list")

	return cmd
}

func runHistory(opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Ledger.Path == "" {
		return NewExitError(ExitCommandError, "the ledger is disabled (ledger.path is empty)")
	}
	// Opening would create an empty ledger; a missing file is a user error.
	if _, err := os.Stat(cfg.Ledger.Path); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("ledger not found: %s", cfg.Ledger.Path))
	}

	l, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer l.Close()

	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	if runID == "" {
		runs, err := l.ListRuns(ctx, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if out.IsJSON() {
			return out.Success(runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(out.Writer, "No runs recorded.")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(out.Writer, "%s  %s  %-7s  %d/%d passed  %s\n",
				r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, r.Passed, r.Total, r.FixtureDir)
		}
		return nil
	}

	run, err := l.GetRun(ctx, runID)
	if errors.Is(err, ledger.ErrRunNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	cases, err := l.ReadCases(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read cases", err)
	}

	if out.IsJSON() {
		return out.Success(RunDetail{Run: run, Cases: cases})
	}
	w := out.Writer
	fmt.Fprintf(w, "Run %s (%s)\n", run.ID, run.Status)
	fmt.Fprintf(w, "  started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(w, "  finished: %s\n", run.FinishedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintf(w, "  fixtures: %s\n\n", run.FixtureDir)
	for _, c := range cases {
		if c.Status == ledger.CasePass {
			fmt.Fprintf(w, "✓ %s\n", c.CaseKey)
			continue
		}
		fmt.Fprintf(w, "✗ %s  %s: %s\n", c.CaseKey, c.Kind, c.Message)
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", run.Passed, run.Failed, run.Total)
	return nil
}
