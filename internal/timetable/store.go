package timetable

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	apperrors "github.com/campussathi/campussathi-go/internal/errors"
)

// Parse decodes a structured timetable. Files named *.yaml or *.yml are
// read as YAML, everything else as JSON.
func Parse(data []byte, filename string) (Timetable, error) {
	var tt Timetable
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &tt); err != nil {
			return nil, apperrors.NewValidationError("timetable", fmt.Sprintf("invalid YAML: %v", err))
		}
	default:
		if err := json.Unmarshal(data, &tt); err != nil {
			return nil, apperrors.NewValidationError("timetable", fmt.Sprintf("invalid JSON: %v", err))
		}
	}
	if tt == nil {
		tt = Timetable{}
	}
	return normalize(tt), nil
}

// Store holds the structured timetable loaded from path.
// Readers get an immutable snapshot; reloads swap it atomically.
type Store struct {
	path    string
	current atomic.Pointer[Timetable]
}

// NewStore creates a store backed by path. It starts empty until Reload.
func NewStore(path string) *Store {
	s := &Store{path: path}
	empty := Timetable{}
	s.current.Store(&empty)
	return s
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the backing file. A missing file yields an empty timetable.
// On a parse error the previous snapshot is kept.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		empty := Timetable{}
		s.current.Store(&empty)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read structured timetable: %w", err)
	}
	tt, err := Parse(data, s.path)
	if err != nil {
		return err
	}
	s.current.Store(&tt)
	return nil
}

// Replace writes tt to the backing file as JSON and makes it current.
func (s *Store) Replace(tt Timetable) error {
	tt = normalize(tt)
	data, err := json.MarshalIndent(tt, "", "  ")
	if err != nil {
		return fmt.Errorf("encode structured timetable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create timetable dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write structured timetable: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace structured timetable: %w", err)
	}
	s.current.Store(&tt)
	return nil
}

// Snapshot returns the current timetable. Callers must not modify it.
func (s *Store) Snapshot() Timetable {
	return *s.current.Load()
}

// Schedule returns the weekly schedule of a section.
func (s *Store) Schedule(section string) (Schedule, bool) {
	schedule, ok := s.Snapshot()[section]
	return schedule, ok
}
