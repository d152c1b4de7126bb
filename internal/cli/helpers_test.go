package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/lkparity/internal/invoke"
	"github.com/roach88/lkparity/internal/lookml"
	"github.com/roach88/lkparity/internal/tree"
)

const usersView = `view: users {
  label: "Users"
  description: "Registered users"
  dimension: id {
    type: number
  }
  dimension: name {
    type: string
  }
}
`

const ordersView = `view: orders {
  label: "Orders"
  dimension: id {
    type: number
    sql: ${TABLE}.id ;;
  }
}
`

// workspace is a fixture directory, an output root and a config file
// pointing at both.
type workspace struct {
	dir        string
	fixtures   string
	output     string
	ledger     string
	configPath string
}

func newWorkspace(t *testing.T, fixtures map[string]string, extra string) *workspace {
	t.Helper()
	dir := t.TempDir()
	ws := &workspace{
		dir:      dir,
		fixtures: filepath.Join(dir, "views"),
		output:   filepath.Join(dir, "output_files"),
		ledger:   filepath.Join(dir, "lkparity.db"),
	}
	require.NoError(t, os.MkdirAll(ws.fixtures, 0755))
	for name, content := range fixtures {
		require.NoError(t, os.WriteFile(filepath.Join(ws.fixtures, name), []byte(content), 0644))
	}

	cfg := fmt.Sprintf(`fixtures:
  dir: %q
output:
  root: %q
candidate:
  command: [fake-candidate]
  build:
    command: ["true"]
benchmark:
  enabled: false
workers: 2
ledger:
  path: %q
%s`, ws.fixtures, ws.output, ws.ledger, extra)
	ws.configPath = filepath.Join(dir, "lkparity.yaml")
	require.NoError(t, os.WriteFile(ws.configPath, []byte(cfg), 0644))
	return ws
}

// patchConfig replaces old with new in the config file.
func (ws *workspace) patchConfig(t *testing.T, old, new string) {
	t.Helper()
	data, err := os.ReadFile(ws.configPath)
	require.NoError(t, err)
	require.Contains(t, string(data), old)
	require.NoError(t, os.WriteFile(ws.configPath, []byte(strings.Replace(string(data), old, new, 1)), 0644))
}

func (ws *workspace) rootOptions(format string) *RootOptions {
	return &RootOptions{Format: format, ConfigPath: ws.configPath, configExplicit: true}
}

// execute runs the full command tree against the workspace config.
func (ws *workspace) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", ws.configPath}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

// lookmlCandidate parses fixtures in-process, optionally altering the
// result for one file name.
type lookmlCandidate struct {
	calls  atomic.Int32
	mutate map[string]func(tree.Object)
}

func (c *lookmlCandidate) Invoke(ctx context.Context, path string) (tree.Value, error) {
	c.calls.Add(1)
	v, err := invoke.NewReference(lookml.Parser{}).Invoke(ctx, path)
	if err != nil {
		return nil, err
	}
	if fn, ok := c.mutate[filepath.Base(path)]; ok {
		views, _ := v.(tree.Object).Get("views")
		fn(views.(tree.Array)[0].(tree.Object))
	}
	return v, nil
}

func relabel(label string) func(tree.Object) {
	return func(view tree.Object) {
		for i := range view {
			if view[i].Key == "label" {
				view[i].Value = tree.String(label)
			}
		}
	}
}

type fakeBuilder struct {
	err   error
	calls atomic.Int32
}

func (b *fakeBuilder) Verify(context.Context) error {
	b.calls.Add(1)
	return b.err
}

// fakeRunner scripts build command results.
type fakeRunner struct {
	output string
	err    error
	argv   []string
}

func (r *fakeRunner) Run(_ context.Context, _ string, argv []string) (string, error) {
	r.argv = argv
	return r.output, r.err
}
