package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lkparity/internal/invoke"
	"github.com/roach88/lkparity/internal/tree"
)

// ReferenceOptions holds flags for the reference command.
type ReferenceOptions struct {
	*RootOptions
	Parser string
	Raw    bool
}

// NewReferenceCommand creates the reference command.
func NewReferenceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReferenceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reference <fixture>",
		Short: "Print what the reference parser makes of a fixture",
		Long: `Parse one fixture with the reference parser and print the result.

By default the output is canonical, exactly as it would be snapshotted.
With --raw, members stay in declaration order.

Examples:
  lkparity reference tests/input_files/views/users.view.lkml
  lkparity reference --raw --format json users.view.lkml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReference(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Parser, "parser", "",
		fmt.Sprintf("reference parser to use (one of %s; default from config)", strings.Join(invoke.ParserNames(), ", ")))
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "keep declaration order instead of canonicalizing")

	return cmd
}

func runReference(opts *ReferenceOptions, path string, cmd *cobra.Command) error {
	name := opts.Parser
	if name == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return err
		}
		name = cfg.Reference.Parser
	}
	parser, err := invoke.LookupParser(name)
	if err != nil {
		return classify("invalid reference", err)
	}

	v, err := invoke.NewReference(parser).Invoke(commandContext(cmd), path)
	if err != nil {
		return classify("reference parser rejected the fixture", err)
	}
	if err := invoke.CheckShape(v); err != nil {
		opts.formatter(cmd).VerboseLog("warning: %v", err)
	}
	if !opts.Raw {
		v = tree.Canonicalize(v)
	}

	out := opts.formatter(cmd)
	if out.IsJSON() {
		compact, err := tree.Marshal(v)
		if err != nil {
			return err
		}
		return out.Success(json.RawMessage(compact))
	}
	indented, err := tree.MarshalIndent(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(out.Writer, string(indented))
	return nil
}
