// Package config loads the harness configuration.
//
// A config file is YAML, decoded strictly onto the built-in defaults and
// then checked against an embedded CUE schema. Every field is optional; an
// empty file reproduces the default layout:
//
//	fixtures:
//	  dir: tests/input_files/views
//	  suffix: .view.lkml
//	output:
//	  root: tests/output_files
//	candidate:
//	  command: ./main
//	  timeout: 30s
//	  build:
//	    command: zig build-exe ./main.zig -O ReleaseFast
//	reference:
//	  parser: lookml
//	benchmark:
//	  enabled: true
//	  samples: 5
//	  warmup: 1
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/lkparity/internal/failure"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "lkparity.yaml"

//go:embed schema.cue
var schemaSource string

// Config is the complete harness configuration.
type Config struct {
	Fixtures  Fixtures  `yaml:"fixtures" json:"fixtures"`
	Output    Output    `yaml:"output" json:"output"`
	Candidate Candidate `yaml:"candidate" json:"candidate"`
	Reference Reference `yaml:"reference" json:"reference"`
	Benchmark Benchmark `yaml:"benchmark" json:"benchmark"`
	Compare   Compare   `yaml:"compare" json:"compare"`

	// Workers is the number of fixtures checked concurrently.
	Workers int `yaml:"workers" json:"workers"`

	Ledger Ledger `yaml:"ledger" json:"ledger"`
}

// Fixtures selects the input documents.
type Fixtures struct {
	Dir    string `yaml:"dir" json:"dir"`
	Suffix string `yaml:"suffix" json:"suffix"`

	// Filter is an optional glob matched against fixture file names.
	Filter string `yaml:"filter" json:"filter"`
}

// Output locates the snapshot tree.
type Output struct {
	Root string `yaml:"root" json:"root"`
}

// Candidate describes the parser under test.
type Candidate struct {
	// Command is the argv prefix; the fixture path is appended.
	Command Argv          `yaml:"command" json:"command"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	Build   Build         `yaml:"build" json:"build"`
}

// Build describes how the candidate artifact is compiled.
type Build struct {
	Command Argv          `yaml:"command" json:"command"`
	Dir     string        `yaml:"dir" json:"dir"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Skip trusts an existing artifact.
	Skip bool `yaml:"skip" json:"skip"`
}

// Reference selects the in-process reference parser by name.
type Reference struct {
	Parser string `yaml:"parser" json:"parser"`
}

// Benchmark controls latency sampling.
type Benchmark struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Samples int  `yaml:"samples" json:"samples"`
	Warmup  int  `yaml:"warmup" json:"warmup"`
}

// Compare controls the equality check.
type Compare struct {
	// Roundtrip compares the snapshots as re-read from disk rather than the
	// in-memory canonical forms. Snapshots are read back either way.
	Roundtrip bool `yaml:"roundtrip" json:"roundtrip"`

	// DiffLimit caps the differences reported per mismatch; 0 reports all.
	DiffLimit int `yaml:"diff_limit" json:"diff_limit"`
}

// Ledger locates the run history database. An empty path disables it.
type Ledger struct {
	Path string `yaml:"path" json:"path"`
}

// Argv is a command line. In YAML it may be a sequence of arguments or a
// single string split on whitespace.
type Argv []string

// UnmarshalYAML accepts both "zig build-exe x" and [zig, build-exe, x].
func (a *Argv) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*a = strings.Fields(node.Value)
		return nil
	case yaml.SequenceNode:
		var args []string
		if err := node.Decode(&args); err != nil {
			return err
		}
		*a = args
		return nil
	default:
		return fmt.Errorf("line %d: command must be a string or a list of strings", node.Line)
	}
}

// String joins the arguments with spaces.
func (a Argv) String() string {
	return strings.Join(a, " ")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Fixtures: Fixtures{
			Dir:    filepath.Join("tests", "input_files", "views"),
			Suffix: ".view.lkml",
		},
		Output: Output{
			Root: filepath.Join("tests", "output_files"),
		},
		Candidate: Candidate{
			Command: Argv{"./main"},
			Timeout: 30 * time.Second,
			Build: Build{
				Command: Argv{"zig", "build-exe", "./main.zig", "-O", "ReleaseFast"},
				Timeout: 5 * time.Minute,
			},
		},
		Reference: Reference{Parser: "lookml"},
		Benchmark: Benchmark{Enabled: true, Samples: 5, Warmup: 1},
		Compare:   Compare{Roundtrip: true, DiffLimit: 20},
		Workers:   runtime.GOMAXPROCS(0),
		Ledger: Ledger{
			Path: filepath.Join("tests", "output_files", "lkparity.db"),
		},
	}
}

// Load reads the config at path.
//
// When explicit is false and path does not exist, the defaults are
// returned; this is how the default lkparity.yaml stays optional. Any other
// problem is a Configuration failure.
func Load(path string, explicit bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return nil, failure.Wrap(failure.Configuration, "failed to read config file", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, failure.Wrap(failure.Configuration, fmt.Sprintf("invalid config %s", path), err)
	}
	return cfg, nil
}

// Parse decodes YAML onto the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	// Strict decoding catches typos like "sample:" vs "samples:".
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg against the embedded CUE schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := ctx.Encode(c.normalized())
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// normalized returns a copy whose nil command lists encode as empty lists.
func (c *Config) normalized() Config {
	cp := *c
	if cp.Candidate.Command == nil {
		cp.Candidate.Command = Argv{}
	}
	if cp.Candidate.Build.Command == nil {
		cp.Candidate.Build.Command = Argv{}
	}
	return cp
}

// Artifact returns the file the build is expected to produce, when the
// candidate command names one by path. A bare command name resolved
// through PATH has no artifact to check.
func (c *Config) Artifact() string {
	if len(c.Candidate.Command) == 0 {
		return ""
	}
	bin := c.Candidate.Command[0]
	if !strings.ContainsRune(bin, filepath.Separator) && !strings.ContainsRune(bin, '/') {
		return ""
	}
	return bin
}
