package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/lkparity/internal/build"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions

	// Runner overrides the host command runner (for testing).
	Runner build.CommandRunner
}

// BuildResult is the build command's JSON payload.
type BuildResult struct {
	Command  []string      `json:"command"`
	Dir      string        `json:"dir,omitempty"`
	Artifact string        `json:"artifact,omitempty"`
	Duration time.Duration `json:"duration"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	return newBuildCommand(&BuildOptions{RootOptions: rootOpts})
}

func newBuildCommand(opts *BuildOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the candidate without checking fixtures",
		Long: `Run the configured build command once and check that the candidate
artifact exists afterwards.

Exit codes:
  0 - The candidate was built
  2 - Configuration error
  3 - The build failed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, cmd)
		},
	}
	return cmd
}

func runBuild(opts *BuildOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	out := opts.formatter(cmd)

	v := &build.Verifier{
		Command:  cfg.Candidate.Build.Command,
		Dir:      cfg.Candidate.Build.Dir,
		Timeout:  cfg.Candidate.Build.Timeout,
		Artifact: cfg.Artifact(),
		Runner:   opts.Runner,
		Logger:   opts.logger(cmd),
	}
	if err := v.Verify(commandContext(cmd)); err != nil {
		exitErr := classify("build failed", err)
		if ferr := out.Error(errorCode(err), err.Error(), cfg.Candidate.Build.Command.String()); ferr != nil {
			return ferr
		}
		return exitErr
	}

	result := BuildResult{
		Command:  cfg.Candidate.Build.Command,
		Dir:      cfg.Candidate.Build.Dir,
		Artifact: v.Artifact,
		Duration: v.Duration(),
	}
	if out.IsJSON() {
		return out.Success(result)
	}
	msg := fmt.Sprintf("✓ Built candidate in %s", result.Duration.Round(time.Millisecond))
	if result.Artifact != "" {
		msg += fmt.Sprintf(" (%s)", result.Artifact)
	}
	return out.Success(msg)
}
