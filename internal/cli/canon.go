package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/roach88/lkparity/internal/tree"
)

// CanonOptions holds flags for the canon command.
type CanonOptions struct {
	*RootOptions
	DigestOnly bool
}

// CanonResult is the canon command's JSON payload.
type CanonResult struct {
	Digest    string          `json:"digest"`
	Canonical json.RawMessage `json:"canonical,omitempty"`
}

// NewCanonCommand creates the canon command.
func NewCanonCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CanonOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "canon <file>",
		Short: "Print the canonical form of a JSON document",
		Long: `Decode a JSON document, canonicalize it and print it the way snapshots
are written, followed by its digest.

Two documents are equal for the harness exactly when their digests match.

Examples:
  lkparity canon out.json
  lkparity canon --digest-only tests/output_files/candidate/users.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCanon(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DigestOnly, "digest-only", false, "print only the digest")

	return cmd
}

func runCanon(opts *CanonOptions, path string, cmd *cobra.Command) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot read document", err)
	}
	v, err := tree.Decode(data)
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("%s is not a valid document", path), err)
	}

	canon := tree.Canonicalize(v)
	digest, err := tree.Digest(canon)
	if err != nil {
		return WrapExitError(ExitFailure, "cannot digest document", err)
	}

	out := opts.formatter(cmd)
	if out.IsJSON() {
		result := CanonResult{Digest: digest}
		if !opts.DigestOnly {
			compact, err := tree.Marshal(canon)
			if err != nil {
				return err
			}
			result.Canonical = compact
		}
		return out.Success(result)
	}

	if !opts.DigestOnly {
		indented, err := tree.MarshalIndent(canon)
		if err != nil {
			return err
		}
		fmt.Fprintln(out.Writer, string(indented))
	}
	fmt.Fprintln(out.Writer, digest)
	return nil
}

// InspectResult is the inspect command's JSON payload.
type InspectResult struct {
	Snapshot string          `json:"snapshot"`
	Path     string          `json:"path,omitempty"`
	Exists   bool            `json:"exists"`
	Value    json.RawMessage `json:"value,omitempty"`
	Views    []string        `json:"views,omitempty"`
	Digest   string          `json:"digest,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <snapshot> [path]",
		Short: "Query a snapshot",
		Long: `Inspect a snapshot written by a run.

Without a path, prints the snapshot's views and digest. With a path, prints
the value at that path using gjson syntax.

Examples:
  lkparity inspect tests/output_files/candidate/users.json
  lkparity inspect tests/output_files/candidate/users.json views.0.dimensions.#.name
  lkparity inspect tests/output_files/reference/users.json 'views.0.dimensions.#(name=="id").sql'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 2 {
				query = args[1]
			}
			return runInspect(rootOpts, args[0], query, cmd)
		},
	}
	return cmd
}

func runInspect(opts *RootOptions, path, query string, cmd *cobra.Command) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot read snapshot", err)
	}
	// gjson tolerates malformed input; decode first so it never has to.
	v, err := tree.Decode(data)
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("%s is not a valid snapshot", path), err)
	}

	out := opts.formatter(cmd)
	result := InspectResult{Snapshot: path, Path: query}

	if query == "" {
		result.Exists = true
		for _, name := range gjson.GetBytes(data, "views.#.name").Array() {
			result.Views = append(result.Views, name.String())
		}
		if result.Digest, err = tree.Digest(tree.Canonicalize(v)); err != nil {
			return WrapExitError(ExitFailure, "cannot digest snapshot", err)
		}
		if out.IsJSON() {
			return out.Success(result)
		}
		fmt.Fprintf(out.Writer, "%s\n", path)
		fmt.Fprintf(out.Writer, "  views:  %d\n", len(result.Views))
		for _, name := range result.Views {
			fmt.Fprintf(out.Writer, "    %s\n", name)
		}
		fmt.Fprintf(out.Writer, "  digest: %s\n", result.Digest)
		return nil
	}

	res := gjson.GetBytes(data, query)
	result.Exists = res.Exists()
	if !result.Exists {
		if out.IsJSON() {
			if err := out.Result(result, NewExitError(ExitFailure, fmt.Sprintf("no value at %s", query))); err != nil {
				return err
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("no value at %s", query))
	}
	result.Value = json.RawMessage(res.Raw)

	if out.IsJSON() {
		return out.Success(result)
	}
	if res.Type == gjson.String {
		fmt.Fprintln(out.Writer, res.String())
		return nil
	}
	fmt.Fprintln(out.Writer, res.Raw)
	return nil
}
