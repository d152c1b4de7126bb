package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/roach88/lkparity/internal/failure"
	"github.com/roach88/lkparity/internal/tree"
)

// DefaultTimeout bounds a single candidate process.
const DefaultTimeout = 30 * time.Second

// waitDelay is how long Wait keeps reading pipes after the process is
// killed, in case the candidate left children holding stdout open.
const waitDelay = 2 * time.Second

// stderrTail is how much of the candidate's stderr is kept in errors.
const stderrTail = 2048

// Candidate runs the external parser under test.
//
// Each call starts a fresh process as "<Command...> <fixture-path>" and
// decodes everything it wrote to stdout. Nothing is cached: the process
// start-up cost is part of what the benchmark measures.
type Candidate struct {
	// Command is the argv prefix, e.g. ["./main"].
	Command []string

	// Dir is the working directory; empty means the harness's own.
	Dir string

	// Timeout bounds one process; zero means DefaultTimeout.
	Timeout time.Duration

	logger *slog.Logger
}

// NewCandidate creates a Candidate. A nil logger discards output.
func NewCandidate(command []string, timeout time.Duration, logger *slog.Logger) *Candidate {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Candidate{
		Command: slices.Clone(command),
		Timeout: timeout,
		logger:  logger,
	}
}

// Invoke runs the candidate on path.
//
// The exit code is not a verdict on its own: a process that exits non-zero
// but prints a valid document still passes this layer. Output that does not
// decode is a Decode failure, a process that outlives its bound is a Timeout
// failure, and a command that cannot be started is a Configuration failure.
func (c *Candidate) Invoke(ctx context.Context, path string) (tree.Value, error) {
	if len(c.Command) == 0 {
		return nil, failure.New(failure.Configuration, "candidate command is empty")
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := append(slices.Clone(c.Command), path)
	// #nosec G204 -- argv comes from the harness configuration.
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, failure.Newf(failure.Timeout, "candidate did not finish within %s", timeout)
	}

	// Process is only set once Start succeeded.
	if runErr != nil && cmd.Process == nil {
		return nil, failure.Wrap(failure.Configuration, "cannot start candidate", runErr)
	}
	if runErr != nil {
		c.logger.Debug("candidate exited with error",
			"path", path,
			"error", runErr,
			"stderr", tail(stderr.String()))
	}

	v, err := tree.Decode(stdout.Bytes())
	if err != nil {
		msg := "candidate output is not a valid document"
		if s := tail(stderr.String()); s != "" {
			msg = fmt.Sprintf("%s (stderr: %s)", msg, s)
		}
		return nil, failure.Wrap(failure.Decode, msg, err)
	}
	return v, nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return s
}
