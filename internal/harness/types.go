package harness

import (
	"strings"
	"time"

	"github.com/roach88/lkparity/internal/bench"
	"github.com/roach88/lkparity/internal/failure"
)

// Failure is one reason a fixture did not pass.
type Failure struct {
	Kind    failure.Kind `json:"kind"`
	Message string       `json:"message"`
	Paths   []string     `json:"paths,omitempty"`
}

// String renders the failure like a failure.Error without the case key.
func (f Failure) String() string {
	s := f.Message
	if f.Kind != "" {
		s = string(f.Kind) + ": " + s
	}
	if len(f.Paths) > 0 {
		s += " (see " + strings.Join(f.Paths, ", ") + ")"
	}
	return s
}

// CaseResult is the outcome for one fixture.
type CaseResult struct {
	CaseKey string `json:"case_key"`
	Fixture string `json:"fixture"`

	// Pass is true when the fixture has no failures.
	Pass bool `json:"pass"`

	Failures []Failure `json:"failures,omitempty"`

	// Differences lists the first mismatching paths, e.g.
	// `views[0].dimensions[1].sql: "a" != "b"`.
	Differences []string `json:"differences,omitempty"`

	CandidatePath   string `json:"candidate_snapshot,omitempty"`
	ReferencePath   string `json:"reference_snapshot,omitempty"`
	CandidateDigest string `json:"candidate_digest,omitempty"`
	ReferenceDigest string `json:"reference_digest,omitempty"`

	// CandidateTime and ReferenceTime time the first invocation of each side.
	CandidateTime time.Duration `json:"candidate_time"`
	ReferenceTime time.Duration `json:"reference_time"`

	Benchmark *bench.Verdict `json:"benchmark,omitempty"`
}

// NewCaseResult creates a passing result.
func NewCaseResult(caseKey, fixture string) CaseResult {
	return CaseResult{CaseKey: caseKey, Fixture: fixture, Pass: true}
}

// AddFailure records err and marks the result as failed. Errors that are
// not a *failure.Error are recorded without a kind.
func (r *CaseResult) AddFailure(err error) {
	f := Failure{Message: err.Error()}
	if fe, ok := failure.As(err); ok {
		f = Failure{Kind: fe.Kind, Message: fe.Message, Paths: fe.Paths}
		if fe.Cause != nil {
			f.Message += ": " + fe.Cause.Error()
		}
	}
	r.Failures = append(r.Failures, f)
	r.Pass = false
}

// HasKind reports whether the result failed with the given kind.
func (r CaseResult) HasKind(kind failure.Kind) bool {
	for _, f := range r.Failures {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

// Report is the outcome of one run.
type Report struct {
	RunID      string        `json:"run_id,omitempty"`
	FixtureDir string        `json:"fixture_dir"`
	OutputRoot string        `json:"output_root"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`

	// Cases is sorted by case key.
	Cases []CaseResult `json:"cases"`

	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// OK reports whether at least one fixture ran and none failed.
func (r *Report) OK() bool {
	return r.Total > 0 && r.Failed == 0
}

// FailuresByKind counts failures across all cases.
func (r *Report) FailuresByKind() map[failure.Kind]int {
	counts := make(map[failure.Kind]int)
	for _, c := range r.Cases {
		for _, f := range c.Failures {
			counts[f.Kind]++
		}
	}
	return counts
}

func (r *Report) tally() {
	r.Total, r.Passed, r.Failed = len(r.Cases), 0, 0
	for _, c := range r.Cases {
		if c.Pass {
			r.Passed++
		} else {
			r.Failed++
		}
	}
}
