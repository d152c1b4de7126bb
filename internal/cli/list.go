package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/lkparity/internal/fixture"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Filter string
}

// ListResult is the list command's JSON payload.
type ListResult struct {
	Dir      string            `json:"dir"`
	Suffix   string            `json:"suffix"`
	Fixtures []fixture.Fixture `json:"fixtures"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the fixtures a run would check",
		Long: `List the fixtures in the configured directory with their case keys.

Examples:
  lkparity list
  lkparity list --filter "order*" --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only list fixtures whose file name matches this glob")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	filter := cfg.Fixtures.Filter
	if cmd.Flags().Changed("filter") {
		filter = opts.Filter
	}

	fixtures, err := fixture.Locate(cfg.Fixtures.Dir, cfg.Fixtures.Suffix, filter)
	if err != nil {
		return classify("cannot list fixtures", err)
	}

	out := opts.formatter(cmd)
	if out.IsJSON() {
		if fixtures == nil {
			fixtures = []fixture.Fixture{}
		}
		return out.Success(ListResult{Dir: cfg.Fixtures.Dir, Suffix: cfg.Fixtures.Suffix, Fixtures: fixtures})
	}

	w := out.Writer
	if len(fixtures) == 0 {
		fmt.Fprintf(w, "No fixtures matching *%s in %s\n", cfg.Fixtures.Suffix, cfg.Fixtures.Dir)
		return nil
	}
	for _, f := range fixtures {
		fmt.Fprintf(w, "%-40s %s\n", f.Name, f.CaseKey)
	}
	fmt.Fprintf(w, "\n%d fixtures in %s\n", len(fixtures), cfg.Fixtures.Dir)
	return nil
}
