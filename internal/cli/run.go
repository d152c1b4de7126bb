package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/lkparity/internal/bench"
	"github.com/roach88/lkparity/internal/build"
	"github.com/roach88/lkparity/internal/config"
	"github.com/roach88/lkparity/internal/failure"
	"github.com/roach88/lkparity/internal/harness"
	"github.com/roach88/lkparity/internal/invoke"
	"github.com/roach88/lkparity/internal/ledger"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Filter    string
	Workers   int
	Samples   int
	NoBench   bool
	SkipBuild bool
	NoLedger  bool

	// Candidate, Builder and Clock override the configured collaborators
	// (for testing). nil uses the configured ones.
	Candidate invoke.Invoker
	Builder   harness.Builder
	Clock     bench.Clock
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the candidate and check every fixture",
		Long: `Build the candidate once, then check every fixture against the reference.

Each fixture is parsed by both sides. Both outputs are canonicalized and
written to <output>/candidate/<case>.json and <output>/reference/<case>.json,
then compared for structural equality. With benchmarking on, each side is
sampled repeatedly and the candidate's median must be strictly lower.

Exit codes:
  0 - Every fixture passed
  1 - One or more fixtures failed
  2 - Configuration error (missing fixtures, bad config, etc.)
  3 - The candidate build failed; no fixture ran

Examples:
  lkparity run
  lkparity run --filter "order*" --no-bench
  lkparity run --config ci.yaml --workers 8 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarness(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only check fixtures whose file name matches this glob")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "fixtures checked concurrently (default from config)")
	cmd.Flags().IntVar(&opts.Samples, "samples", 0, "benchmark samples per side (default from config)")
	cmd.Flags().BoolVar(&opts.NoBench, "no-bench", false, "skip the latency comparison")
	cmd.Flags().BoolVar(&opts.SkipBuild, "skip-build", false, "trust an existing candidate artifact")
	cmd.Flags().BoolVar(&opts.NoLedger, "no-ledger", false, "do not record this run in the ledger")

	return cmd
}

func runHarness(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if err := opts.applyFlags(cmd, cfg); err != nil {
		return err
	}

	logger := opts.logger(cmd)
	out := opts.formatter(cmd)

	deps, cleanup, err := opts.deps(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := harness.New(cfg, deps).Run(ctx)

	var exitErr *ExitError
	switch {
	case runErr != nil:
		exitErr = classify("run aborted", runErr)
	case !report.OK():
		exitErr = NewExitError(ExitFailure,
			fmt.Sprintf("%d of %d fixtures failed", report.Failed, report.Total))
	}

	if out.IsJSON() {
		var reported error
		switch {
		case runErr != nil:
			reported = runErr
		case exitErr != nil:
			reported = exitErr
		}
		if err := out.Result(report, reported); err != nil {
			return err
		}
	} else {
		writeReport(out.Writer, report, opts.Verbose)
		if runErr != nil {
			fmt.Fprintf(out.Writer, "\n✗ %v\n", runErr)
		}
	}

	if exitErr != nil {
		return exitErr
	}
	return nil
}

// applyFlags overrides config values with the flags that were set.
func (o *RunOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("filter") {
		cfg.Fixtures.Filter = o.Filter
	}
	if flags.Changed("workers") {
		cfg.Workers = o.Workers
	}
	if flags.Changed("samples") {
		cfg.Benchmark.Samples = o.Samples
	}
	if o.NoBench {
		cfg.Benchmark.Enabled = false
	}
	if o.SkipBuild {
		cfg.Candidate.Build.Skip = true
	}
	if o.NoLedger {
		cfg.Ledger.Path = ""
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	return nil
}

// deps assembles the harness collaborators from cfg. The returned cleanup
// closes the ledger.
func (o *RunOptions) deps(cfg *config.Config, logger *slog.Logger) (harness.Deps, func(), error) {
	parser, err := invoke.LookupParser(cfg.Reference.Parser)
	if err != nil {
		return harness.Deps{}, nil, classify("invalid reference", err)
	}

	deps := harness.Deps{
		Candidate: o.Candidate,
		Reference: invoke.NewReference(parser),
		Builder:   o.Builder,
		Clock:     o.Clock,
		Logger:    logger,
	}
	if deps.Candidate == nil {
		deps.Candidate = invoke.NewCandidate(cfg.Candidate.Command, cfg.Candidate.Timeout, logger)
	}
	if deps.Builder == nil {
		deps.Builder = &build.Verifier{
			Command:  cfg.Candidate.Build.Command,
			Dir:      cfg.Candidate.Build.Dir,
			Timeout:  cfg.Candidate.Build.Timeout,
			Artifact: cfg.Artifact(),
			Skip:     cfg.Candidate.Build.Skip,
			Logger:   logger,
		}
	}

	cleanup := func() {}
	if cfg.Ledger.Path != "" {
		l, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			// History is optional; the run goes on without it.
			logger.Warn("cannot open ledger", "path", cfg.Ledger.Path, "error", err)
		} else {
			deps.Ledger = l
			cleanup = func() {
				if err := l.Close(); err != nil {
					logger.Error("error closing ledger", "error", err)
				}
			}
		}
	}
	return deps, cleanup, nil
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// writeReport prints one line per fixture and a summary.
func writeReport(w io.Writer, r *harness.Report, verbose bool) {
	for _, c := range r.Cases {
		if c.Pass {
			fmt.Fprintf(w, "✓ %s", c.CaseKey)
			if c.Benchmark != nil {
				fmt.Fprintf(w, "  %s", c.Benchmark)
			}
			fmt.Fprintln(w)
			if verbose {
				fmt.Fprintf(w, "  digest %s\n", c.CandidateDigest)
			}
			continue
		}

		fmt.Fprintf(w, "✗ %s\n", c.CaseKey)
		for _, f := range c.Failures {
			fmt.Fprintf(w, "  %s\n", f)
		}
		for _, d := range c.Differences {
			fmt.Fprintf(w, "    %s\n", d)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d passed, %d failed, %d total (%s)\n",
		r.Passed, r.Failed, r.Total, r.Duration.Round(time.Millisecond))

	if byKind := r.FailuresByKind(); len(byKind) > 0 {
		kinds := make([]string, 0, len(byKind))
		for k := range byKind {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			label := k
			if label == "" {
				label = "OTHER"
			}
			fmt.Fprintf(w, "  %-12s %d\n", label, byKind[failure.Kind(k)])
		}
	}

	if r.Total > 0 && r.Failed == 0 {
		fmt.Fprintln(w, "✓ All fixtures passed")
	}
	if r.RunID != "" {
		fmt.Fprintf(w, "Run %s recorded\n", r.RunID)
	}
}
