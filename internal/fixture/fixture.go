// Package fixture discovers input documents for a harness run.
package fixture

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/lkparity/internal/failure"
)

// DefaultSuffix marks LookML view files.
const DefaultSuffix = ".view.lkml"

// SnapshotExt replaces the fixture suffix in a Case Key.
const SnapshotExt = ".json"

// Fixture is one input document. Fixtures are immutable once located.
type Fixture struct {
	// Path is the fixture location, joined from the search directory.
	Path string `json:"path"`

	// Name is the file's base name.
	Name string `json:"name"`

	// CaseKey names the fixture's snapshots, e.g. "users.json".
	CaseKey string `json:"case_key"`
}

// Locate lists the files in dir whose names end with suffix.
//
// Only the top level of dir is scanned, matching the flat fixture layout.
// If filter is non-empty it is a doublestar pattern matched against the file
// name (e.g. "order*" or "{users,orders}*"). Results are sorted by name so
// repeated runs enumerate fixtures identically.
//
// A missing or non-directory dir is a Configuration failure.
func Locate(dir, suffix, filter string) ([]Fixture, error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	if filter != "" && !doublestar.ValidatePattern(filter) {
		return nil, failure.Newf(failure.Configuration, "invalid fixture filter %q", filter)
	}

	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, failure.Newf(failure.Configuration, "fixture directory not found: %s", dir)
	}
	if err != nil {
		return nil, failure.Wrap(failure.Configuration, "error accessing fixture directory", err)
	}
	if !info.IsDir() {
		return nil, failure.Newf(failure.Configuration, "fixture path is not a directory: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, failure.Wrap(failure.Configuration, "error reading fixture directory", err)
	}

	var fixtures []Fixture
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		// "x.view.lkml" with suffix ".view.lkml" must still name something.
		if len(e.Name()) == len(suffix) {
			continue
		}
		if filter != "" {
			matched, err := doublestar.Match(filter, e.Name())
			if err != nil {
				return nil, failure.Wrap(failure.Configuration, "invalid fixture filter", err)
			}
			if !matched {
				continue
			}
		}
		fixtures = append(fixtures, Fixture{
			Path:    filepath.Join(dir, e.Name()),
			Name:    e.Name(),
			CaseKey: CaseKey(e.Name(), suffix),
		})
	}

	slices.SortFunc(fixtures, func(a, b Fixture) int {
		return strings.Compare(a.Name, b.Name)
	})

	if err := checkUniqueKeys(fixtures); err != nil {
		return nil, err
	}
	return fixtures, nil
}

// CaseKey derives the snapshot name for a fixture file name: the suffix is
// replaced by ".json". Names are NFC-normalized so the same fixture keeps the
// same key on filesystems that store decomposed Unicode.
func CaseKey(name, suffix string) string {
	base := strings.TrimSuffix(norm.NFC.String(name), suffix)
	return base + SnapshotExt
}

// checkUniqueKeys guards the one-to-one fixture-to-snapshot mapping that lets
// workers write snapshots without locking.
func checkUniqueKeys(fixtures []Fixture) error {
	seen := make(map[string]string, len(fixtures))
	for _, f := range fixtures {
		if prev, ok := seen[f.CaseKey]; ok {
			return failure.Newf(failure.Configuration,
				"fixtures %q and %q map to the same case key %q", prev, f.Name, f.CaseKey)
		}
		seen[f.CaseKey] = f.Name
	}
	return nil
}
