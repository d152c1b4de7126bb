// Package snapshot persists canonical forms for audit and round-trip checks.
//
// Layout under the output root:
//
//	<root>/candidate/<case_key>
//	<root>/reference/<case_key>
//	<root>/.lkparity.lock
//
// Snapshots are overwritten on every run and never deleted. The lock file
// keeps two harness processes from writing the same tree at once; within a
// process, concurrent writers are safe because every (namespace, case key)
// pair belongs to exactly one fixture.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/roach88/lkparity/internal/failure"
	"github.com/roach88/lkparity/internal/tree"
)

// Namespace separates the two sides of a comparison on disk.
type Namespace string

const (
	Candidate Namespace = "candidate"
	Reference Namespace = "reference"
)

// Namespaces lists every namespace Setup creates.
var Namespaces = []Namespace{Candidate, Reference}

const lockName = ".lkparity.lock"

// Store is a handle on an initialized output root.
type Store struct {
	root string
	lock *flock.Flock
}

// Setup creates root and its namespace directories and locks root.
//
// It is the single setup step of a run: callers pass the returned Store to
// every worker and Close it after the last write. An unusable root, or one
// already locked by another process, is a Configuration failure.
func Setup(root string) (*Store, error) {
	if root == "" {
		return nil, failure.New(failure.Configuration, "output root is empty")
	}
	for _, ns := range Namespaces {
		if err := os.MkdirAll(filepath.Join(root, string(ns)), 0755); err != nil {
			return nil, failure.Wrap(failure.Configuration, "cannot create snapshot directory", err)
		}
	}

	lock := flock.New(filepath.Join(root, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		_ = lock.Close()
		return nil, failure.Wrap(failure.Configuration, "cannot lock output root", err)
	}
	if !ok {
		_ = lock.Close()
		return nil, failure.Newf(failure.Configuration, "output root %s is in use by another run", root)
	}
	return &Store{root: root, lock: lock}, nil
}

// Root returns the output root.
func (s *Store) Root() string {
	return s.root
}

// Path returns where the snapshot for key in ns lives.
func (s *Store) Path(key string, ns Namespace) string {
	return filepath.Join(s.root, string(ns), key)
}

// Write serializes v as indented JSON with a trailing newline and stores it
// at Path(key, ns), replacing any previous content.
func (s *Store) Write(v tree.Value, key string, ns Namespace) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	if !knownNamespace(ns) {
		return "", failure.Newf(failure.Snapshot, "unknown namespace %q", ns).WithCase(key)
	}
	data, err := tree.MarshalIndent(v)
	if err != nil {
		return "", failure.Wrap(failure.Snapshot, "cannot serialize snapshot", err).WithCase(key)
	}
	data = append(data, '\n')

	path := s.Path(key, ns)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", failure.Wrap(failure.Snapshot, "cannot write snapshot", err).WithCase(key)
	}
	return path, nil
}

// Read loads a snapshot written by Write, or any JSON document.
func Read(path string) (tree.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.Wrap(failure.Snapshot, "cannot read snapshot", err)
	}
	v, err := tree.Decode(data)
	if err != nil {
		return nil, failure.Wrap(failure.Snapshot, fmt.Sprintf("snapshot %s is not valid JSON", path), err)
	}
	return v, nil
}

// Read loads the snapshot for key in ns.
func (s *Store) Read(key string, ns Namespace) (tree.Value, error) {
	v, err := Read(s.Path(key, ns))
	if err != nil {
		if fe, ok := failure.As(err); ok {
			return nil, fe.WithCase(key)
		}
		return nil, err
	}
	return v, nil
}

// Close releases the output root lock. Snapshots stay on disk.
func (s *Store) Close() error {
	if s == nil || s.lock == nil {
		return nil
	}
	return s.lock.Close()
}

// validKey rejects keys that would escape their namespace directory.
func validKey(key string) error {
	if key == "" || key == "." || key == ".." ||
		strings.ContainsAny(key, `/\`) || key != filepath.Base(key) {
		return failure.Newf(failure.Snapshot, "invalid case key %q", key)
	}
	return nil
}

func knownNamespace(ns Namespace) bool {
	for _, n := range Namespaces {
		if n == ns {
			return true
		}
	}
	return false
}
