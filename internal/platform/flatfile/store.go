// Package flatfile provides line-oriented access to the delimiter-separated
// master files and the free-text per-entity ledger files that make up the
// persistence layer. All files live under a single data directory.
//
// Reads treat a missing or unreadable file as empty data rather than an
// error. Appends create the file on first write. Full rewrites go through
// a temp file and an atomic rename so a crash mid-write never leaves a
// half-written master file behind. A per-file mutex serializes writers to
// the same file within this process; cross-process access is still governed
// by the single-operator assumption.
package flatfile

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Delimiter separates fields within a master-file record.
const Delimiter = ","

var (
	// ErrNotFound is returned by ReadLines when the file does not exist.
	ErrNotFound = errors.New("flatfile: file not found")

	// ErrBadName is returned for file names that escape the data directory.
	ErrBadName = errors.New("flatfile: invalid file name")
)

// Store reads and writes flat files under a single directory.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates the data directory if needed and returns a store over it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// Dir returns the data directory the store operates on.
func (s *Store) Dir() string { return s.dir }

// fileLock returns the mutex guarding writes to name, creating it on demand.
func (s *Store) fileLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", ErrBadName
	}
	return filepath.Join(s.dir, name), nil
}

// ReadRecords reads every non-empty line of a master file and splits it on
// the delimiter. A missing or unreadable file yields no records.
func (s *Store) ReadRecords(name string) [][]string {
	lines, err := s.ReadLines(name)
	if err != nil {
		return nil
	}
	var records [][]string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, strings.Split(line, Delimiter))
	}
	return records
}

// ReadLines returns every line of the file, without trailing newlines.
// Returns ErrNotFound when the file does not exist so callers can surface
// a "no data" condition instead of an error.
func (s *Store) ReadLines(name string) ([]string, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return lines, nil
}

// Exists reports whether the file is present in the data directory.
func (s *Store) Exists(name string) bool {
	path, err := s.path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Append writes text plus a trailing newline to the end of the file,
// creating it if absent.
func (s *Store) Append(name, text string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	lock := s.fileLock(name)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", name, err)
	}
	defer f.Close()

	if _, err := f.WriteString(text + "\n"); err != nil {
		return fmt.Errorf("append to %s: %w", name, err)
	}
	return nil
}

// AppendRecord joins fields with the delimiter and appends the line.
func (s *Store) AppendRecord(name string, fields []string) error {
	return s.Append(name, strings.Join(fields, Delimiter))
}

// RewriteLines replaces the entire file content with the given lines. The
// new content is written to a temp file in the same directory and renamed
// over the original so readers never observe a partial rewrite.
func (s *Store) RewriteLines(name string, lines []string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	lock := s.fileLock(name)
	lock.Lock()
	defer lock.Unlock()

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("write temp for %s: %w", name, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flush temp for %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp for %s: %w", name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp over %s: %w", name, err)
	}
	return nil
}

// RewriteRecords replaces the entire master file with the given records.
func (s *Store) RewriteRecords(name string, records [][]string) error {
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		lines = append(lines, strings.Join(rec, Delimiter))
	}
	return s.RewriteLines(name, lines)
}
