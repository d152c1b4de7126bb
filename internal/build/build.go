// Package build compiles the candidate artifact before any fixture runs.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/roach88/lkparity/internal/failure"
)

// DefaultTimeout bounds one build.
const DefaultTimeout = 5 * time.Minute

// outputTail is how much build output is kept in a Build failure.
const outputTail = 4096

// CommandRunner abstracts command execution so tests can script builds.
type CommandRunner interface {
	Run(ctx context.Context, dir string, argv []string) (string, error)
}

// OSRunner executes commands on the host with combined output capture.
type OSRunner struct{}

// Run executes argv in dir.
func (OSRunner) Run(ctx context.Context, dir string, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("empty argv")
	}
	// #nosec G204 -- argv comes from the harness configuration.
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("run %q failed: %w", argv, err)
	}
	return out.String(), nil
}

// Verifier runs the build command once and remembers the outcome.
//
// Verify is the barrier in front of the worker pool: every caller after the
// first gets the same result without building again.
type Verifier struct {
	// Command is the build argv, e.g. ["zig", "build-exe", "./main.zig", "-O", "ReleaseFast"].
	Command []string

	// Dir is the working directory for the build.
	Dir string

	// Timeout bounds the build; zero means DefaultTimeout.
	Timeout time.Duration

	// Artifact, if set, must exist once the build has succeeded.
	Artifact string

	// Skip trusts a pre-built artifact and runs no command.
	Skip bool

	Runner CommandRunner
	Logger *slog.Logger

	once     sync.Once
	err      error
	duration time.Duration
}

// Verify builds the candidate. A failed build, a build that exceeds its
// timeout and a missing artifact are all Build failures.
func (v *Verifier) Verify(ctx context.Context) error {
	v.once.Do(func() {
		start := time.Now()
		v.err = v.verify(ctx)
		v.duration = time.Since(start)
	})
	return v.err
}

// Duration reports how long the one build took.
func (v *Verifier) Duration() time.Duration {
	return v.duration
}

func (v *Verifier) verify(ctx context.Context) error {
	logger := v.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if v.Skip {
		logger.Info("build skipped", "artifact", v.Artifact)
		return v.checkArtifact()
	}
	if len(v.Command) == 0 {
		return failure.New(failure.Configuration, "build command is empty")
	}

	runner := v.Runner
	if runner == nil {
		runner = OSRunner{}
	}
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Info("building candidate", "command", strings.Join(v.Command, " "), "dir", v.Dir)
	out, err := runner.Run(runCtx, v.Dir, v.Command)
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return failure.Newf(failure.Build, "build did not finish within %s", timeout)
	}
	if err != nil {
		msg := "candidate build failed"
		if s := tail(out); s != "" {
			msg = msg + ":\n" + s
		}
		return failure.Wrap(failure.Build, msg, err)
	}
	logger.Debug("build output", "output", tail(out))
	return v.checkArtifact()
}

func (v *Verifier) checkArtifact() error {
	if v.Artifact == "" {
		return nil
	}
	info, err := os.Stat(v.Artifact)
	if err != nil {
		return failure.Wrap(failure.Build, "candidate artifact not found", err)
	}
	if info.IsDir() {
		return failure.Newf(failure.Build, "candidate artifact %s is a directory", v.Artifact)
	}
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > outputTail {
		s = "..." + s[len(s)-outputTail:]
	}
	return s
}
