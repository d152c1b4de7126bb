package harness

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/roach88/lkparity/internal/bench"
	"github.com/roach88/lkparity/internal/config"
	"github.com/roach88/lkparity/internal/failure"
	"github.com/roach88/lkparity/internal/fixture"
	"github.com/roach88/lkparity/internal/invoke"
	"github.com/roach88/lkparity/internal/ledger"
	"github.com/roach88/lkparity/internal/snapshot"
	"github.com/roach88/lkparity/internal/tree"
)

// Builder is the one-time build barrier.
type Builder interface {
	Verify(ctx context.Context) error
}

// Deps are the collaborators of a Harness.
type Deps struct {
	Candidate invoke.Invoker
	Reference invoke.Invoker

	// Builder may be nil when there is nothing to build.
	Builder Builder

	// Ledger may be nil to skip run history.
	Ledger *ledger.Ledger

	// Clock defaults to bench.SystemClock.
	Clock bench.Clock

	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

// Harness checks every fixture of a configuration.
type Harness struct {
	cfg       *config.Config
	candidate invoke.Invoker
	reference invoke.Invoker
	builder   Builder
	ledger    *ledger.Ledger
	clock     bench.Clock
	logger    *slog.Logger
}

// New creates a Harness. cfg must already be validated.
func New(cfg *config.Config, deps Deps) *Harness {
	h := &Harness{
		cfg:       cfg,
		candidate: deps.Candidate,
		reference: deps.Reference,
		builder:   deps.Builder,
		ledger:    deps.Ledger,
		clock:     deps.Clock,
		logger:    deps.Logger,
	}
	if h.clock == nil {
		h.clock = bench.SystemClock{}
	}
	if h.logger == nil {
		h.logger = slog.New(slog.DiscardHandler)
	}
	return h
}

// Run executes one harness run.
//
// A fatal failure (Configuration or Build) is returned as the error, with
// whatever report exists so far. Per-fixture failures are only recorded in
// the report; Run then returns a nil error and the caller inspects
// Report.OK.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		FixtureDir: h.cfg.Fixtures.Dir,
		OutputRoot: h.cfg.Output.Root,
		StartedAt:  h.clock.Now(),
		Cases:      []CaseResult{},
	}

	runID := h.beginRun(ctx)
	report.RunID = runID

	cases, err := h.run(ctx)
	report.Cases = cases
	report.tally()
	report.Duration = h.clock.Now().Sub(report.StartedAt)

	h.finishRun(ctx, report, err)
	if err == nil {
		h.logger.Info("run finished",
			"run", report.RunID,
			"passed", report.Passed,
			"failed", report.Failed,
			"duration", elapsed(report.Duration))
	}
	return report, err
}

func (h *Harness) run(ctx context.Context) ([]CaseResult, error) {
	store, err := snapshot.Setup(h.cfg.Output.Root)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	fixtures, err := fixture.Locate(h.cfg.Fixtures.Dir, h.cfg.Fixtures.Suffix, h.cfg.Fixtures.Filter)
	if err != nil {
		return nil, err
	}
	if len(fixtures) == 0 {
		msg := fmt.Sprintf("no fixtures matching *%s in %s", h.cfg.Fixtures.Suffix, h.cfg.Fixtures.Dir)
		if h.cfg.Fixtures.Filter != "" {
			msg += fmt.Sprintf(" (filter %q)", h.cfg.Fixtures.Filter)
		}
		return nil, failure.New(failure.Configuration, msg)
	}
	h.logger.Info("fixtures located", "count", len(fixtures), "dir", h.cfg.Fixtures.Dir)

	if h.builder != nil {
		if err := h.builder.Verify(ctx); err != nil {
			h.logger.Error("build failed, no fixture will run", "error", err)
			return nil, err
		}
	}

	workers := h.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]CaseResult, len(fixtures))
	p := pool.New().WithMaxGoroutines(workers)
	for i, f := range fixtures {
		p.Go(func() {
			results[i] = h.check(ctx, store, f)
		})
	}
	p.Wait()

	slices.SortFunc(results, func(a, b CaseResult) int {
		return strings.Compare(a.CaseKey, b.CaseKey)
	})

	if err := ctx.Err(); err != nil {
		return results, err
	}
	// A candidate that cannot even be started fails every fixture the same
	// way; surface it as the run's error.
	for _, r := range results {
		for _, f := range r.Failures {
			if f.Kind.Fatal() {
				return results, failure.New(f.Kind, f.Message).WithCase(r.CaseKey)
			}
		}
	}
	return results, nil
}

// check runs every step for one fixture. It never returns an error: every
// problem becomes a Failure on the result.
func (h *Harness) check(ctx context.Context, store *snapshot.Store, f fixture.Fixture) CaseResult {
	res := NewCaseResult(f.CaseKey, f.Path)
	log := h.logger.With("case", f.CaseKey)

	var cand, ref tree.Value
	candTime, candErr := bench.Time(h.clock, func() (err error) {
		cand, err = h.candidate.Invoke(ctx, f.Path)
		return err
	})
	refTime, refErr := bench.Time(h.clock, func() (err error) {
		ref, err = h.reference.Invoke(ctx, f.Path)
		return err
	})
	res.CandidateTime, res.ReferenceTime = candTime, refTime

	// Any decoded document is snapshotted, even one that fails the shape
	// check, so it can be inspected.
	var candCanon, refCanon tree.Value
	var candShape, refShape error
	if candErr == nil {
		if err := invoke.CheckShape(cand); err != nil {
			candShape = failure.Wrap(failure.Decode, "candidate output is not a view document", err)
		}
		candCanon = tree.Canonicalize(cand)
		res.CandidatePath, res.CandidateDigest, candErr = h.persist(store, candCanon, f.CaseKey, snapshot.Candidate)
	}
	if refErr == nil {
		if err := invoke.CheckShape(ref); err != nil {
			refShape = failure.Wrap(failure.Parse, "reference output is not a view document", err)
		}
		refCanon = tree.Canonicalize(ref)
		res.ReferencePath, res.ReferenceDigest, refErr = h.persist(store, refCanon, f.CaseKey, snapshot.Reference)
	}

	for _, err := range []error{candErr, refErr, candShape, refShape} {
		if err != nil {
			res.AddFailure(attribute(err, f.CaseKey))
		}
	}
	if !res.Pass {
		log.Warn("fixture failed before comparison", "failures", len(res.Failures))
		return res
	}

	// Snapshots are always read back; the flag only decides whether the
	// reloaded pair or the in-memory pair is compared.
	candBack, err := h.reload(store, candCanon, f.CaseKey, snapshot.Candidate)
	if err != nil {
		res.AddFailure(err)
	}
	refBack, err := h.reload(store, refCanon, f.CaseKey, snapshot.Reference)
	if err != nil {
		res.AddFailure(err)
	}
	if !res.Pass {
		return res
	}
	left, right := candCanon, refCanon
	if h.cfg.Compare.Roundtrip {
		left, right = candBack, refBack
	}

	if !tree.Equal(left, right) {
		diffs := tree.Diff(left, right, h.cfg.Compare.DiffLimit)
		for _, d := range diffs {
			res.Differences = append(res.Differences, d.String())
		}
		msg := "candidate and reference differ"
		if len(diffs) > 0 {
			msg = fmt.Sprintf("candidate and reference differ at %s", diffs[0].Path)
		}
		res.AddFailure(failure.New(failure.Mismatch, msg).
			WithCase(f.CaseKey).
			WithPaths(res.CandidatePath, res.ReferencePath))
		log.Warn("outputs differ", "first", msg, "candidate", res.CandidatePath, "reference", res.ReferencePath)
	}

	if h.cfg.Benchmark.Enabled && res.Pass {
		h.benchmark(ctx, f, &res)
	}

	if res.Pass {
		log.Info("fixture passed", "candidate_time", candTime, "reference_time", refTime)
	}
	return res
}

// persist writes a canonical form and returns its path and digest.
func (h *Harness) persist(store *snapshot.Store, v tree.Value, key string, ns snapshot.Namespace) (string, string, error) {
	path, err := store.Write(v, key, ns)
	if err != nil {
		return "", "", err
	}
	digest, err := tree.Digest(v)
	if err != nil {
		// The snapshot is already on disk; a missing digest only affects the ledger.
		h.logger.Debug("digest failed", "case", key, "namespace", ns, "error", err)
		return path, "", nil
	}
	return path, digest, nil
}

// reload reads a snapshot back and checks it against what was written.
func (h *Harness) reload(store *snapshot.Store, written tree.Value, key string, ns snapshot.Namespace) (tree.Value, error) {
	back, err := store.Read(key, ns)
	if err != nil {
		return nil, err
	}
	if !tree.Equal(written, back) {
		diffs := tree.Diff(written, back, 1)
		where := "root"
		if len(diffs) > 0 {
			where = diffs[0].String()
		}
		return nil, failure.Newf(failure.Snapshot, "%s snapshot did not survive a round trip: %s", ns, where).
			WithCase(key).
			WithPaths(store.Path(key, ns))
	}
	return back, nil
}

func (h *Harness) benchmark(ctx context.Context, f fixture.Fixture, res *CaseResult) {
	samples, warmup := h.cfg.Benchmark.Samples, h.cfg.Benchmark.Warmup

	candSample, err := bench.Measure(ctx, h.clock, samples, warmup, func(ctx context.Context) error {
		_, err := h.candidate.Invoke(ctx, f.Path)
		return err
	})
	if err != nil {
		res.AddFailure(failure.Wrap(failure.Performance, "candidate benchmark aborted", err).WithCase(f.CaseKey))
		return
	}
	refSample, err := bench.Measure(ctx, h.clock, samples, warmup, func(ctx context.Context) error {
		_, err := h.reference.Invoke(ctx, f.Path)
		return err
	})
	if err != nil {
		res.AddFailure(failure.Wrap(failure.Performance, "reference benchmark aborted", err).WithCase(f.CaseKey))
		return
	}

	verdict := bench.Compare(candSample, refSample)
	res.Benchmark = &verdict
	if !verdict.Faster {
		res.AddFailure(failure.Newf(failure.Performance,
			"candidate median %s is not lower than reference median %s", verdict.Candidate, verdict.Reference).
			WithCase(f.CaseKey))
	}
	h.logger.Debug("benchmark", "case", f.CaseKey, "verdict", verdict.String())
}

// attribute tags err with the fixture's case key.
func attribute(err error, caseKey string) error {
	if fe, ok := failure.As(err); ok {
		if fe.CaseKey == "" {
			return fe.WithCase(caseKey)
		}
		return fe
	}
	return err
}

func (h *Harness) beginRun(ctx context.Context) string {
	if h.ledger == nil {
		return ""
	}
	id, err := h.ledger.BeginRun(ctx, h.cfg.Fixtures.Dir)
	if err != nil {
		h.logger.Warn("ledger unavailable, run will not be recorded", "error", err)
		return ""
	}
	return id
}

// finishRun records the report. Ledger errors are logged, never returned:
// history is an aid, not part of the verdict.
func (h *Harness) finishRun(ctx context.Context, report *Report, runErr error) {
	if h.ledger == nil || report.RunID == "" {
		return
	}
	// Record even when ctx was cancelled mid-run.
	ctx = context.WithoutCancel(ctx)

	for _, c := range report.Cases {
		rec := ledger.Case{
			RunID:           report.RunID,
			CaseKey:         c.CaseKey,
			Fixture:         c.Fixture,
			Status:          ledger.CasePass,
			CandidatePath:   c.CandidatePath,
			ReferencePath:   c.ReferencePath,
			CandidateDigest: c.CandidateDigest,
			ReferenceDigest: c.ReferenceDigest,
		}
		if !c.Pass {
			rec.Status = ledger.CaseFail
			rec.Kind = string(c.Failures[0].Kind)
			rec.Message = c.Failures[0].Message
		}
		if c.Benchmark != nil {
			rec.CandidateMedian = c.Benchmark.Candidate
			rec.ReferenceMedian = c.Benchmark.Reference
		}
		if err := h.ledger.RecordCase(ctx, rec); err != nil {
			h.logger.Warn("ledger write failed", "case", c.CaseKey, "error", err)
		}
	}

	status := ledger.StatusPassed
	switch {
	case runErr != nil:
		status = ledger.StatusAborted
	case !report.OK():
		status = ledger.StatusFailed
	}
	if err := h.ledger.FinishRun(ctx, report.RunID, status, report.Total, report.Passed, report.Failed); err != nil {
		h.logger.Warn("ledger write failed", "run", report.RunID, "error", err)
	}
}

func elapsed(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
