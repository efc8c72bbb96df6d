// Package store implements the Blob Store: a bounded filesystem-like
// interface. Each Store is rooted at one directory; the listener keeps one
// Store for RRQ reads and a separate one for WRQ writes. Grounded on the
// teacher's direct os.Open/os.OpenFile calls in pkg/server/sender.go and
// pkg/server/receiver.go, with opened files returned behind the Blob
// interface. The session engine takes a concrete *Store, so its tests run
// against real files in a temporary directory.
package store

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Blob is an open file handle: sequential read or write, then Close.
type Blob interface {
	io.Reader
	io.Writer
	io.Closer
}

// Store opens files rooted at dir. It performs no path-traversal
// sanitization: a filename containing "../" escapes the root, matching
// the original C++ implementation's strcat(file_path, filename) behavior
// (nuTftpServer.cc) — see DESIGN.md for the rationale.
type Store struct {
	root string
}

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

func (s *Store) path(filename string) string {
	root := s.root
	if root != "" && !strings.HasSuffix(root, "/") {
		root += "/"
	}

	return root + filename
}

// Size is returned alongside an opened-for-read Blob so the caller knows
// the total transfer length up front.
type Size int64

// OpenRead opens filename for sequential read. When the file is absent it
// returns os.Stat's *os.PathError as is, so both os.IsNotExist and
// errors.Is(err, os.ErrNotExist) hold and callers can map it to
// FILE_NOT_FOUND without a string comparison.
func (s *Store) OpenRead(filename string) (Blob, Size, error) {
	path := s.path(filename)

	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("store: open %s: %w", path, err)
	}

	return f, Size(info.Size()), nil
}

// OpenWrite opens filename for write, truncating any existing file —
// this Store uses overwrite semantics, never FILE_ALREADY_EXISTS,
// matching nuTftpServer.cc's fopen(file_path, "w+b").
func (s *Store) OpenWrite(filename string) (Blob, error) {
	path := s.path(filename)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: create %s: %w", path, err)
	}

	return f, nil
}
