// Package incremental tracks which files changed since the last
// analysis pass, so a re-analysis only re-parses and re-projects what
// actually needs it (SPEC_FULL.md §4.8).
package incremental

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileRecord is one file's tracked state as of its last analysis.
type FileRecord struct {
	Path           string    `yaml:"path"`
	ContentHash    uint64    `yaml:"content_hash"`
	ModifiedAt     time.Time `yaml:"modified_at"`
	LastAnalyzedAt time.Time `yaml:"last_analyzed_at"`
	Functions      []string  `yaml:"functions"`
	Types          []string  `yaml:"types"`
}

// State is the persisted snapshot of every tracked file. It is kept as
// plain YAML rather than a binary format deliberately — unlike the
// symbol index, operators are expected to read this file directly when
// diagnosing why a change wasn't picked up.
type State struct {
	Files map[string]FileRecord `yaml:"files"`
}

func newState() *State {
	return &State{Files: map[string]FileRecord{}}
}

// LoadOrFresh reads the snapshot at path. A missing file is a cold
// start; a malformed one is treated identically — logged and
// discarded — rather than surfaced as an error, since losing
// incremental state only costs a slower next run, never correctness
// (§4.8, §7).
func LoadOrFresh(path string, log *zap.SugaredLogger) *State {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return newState()
	}
	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		log.Warnw("incremental state snapshot is corrupt, starting fresh", "path", path, "error", err)
		return newState()
	}
	if s.Files == nil {
		s.Files = map[string]FileRecord{}
	}
	return &s
}

// Save writes the snapshot atomically: encode to a temp file in the
// same directory, then rename over the target, so a crash mid-write
// never leaves a half-written snapshot for the next LoadOrFresh to
// choke on.
func (s *State) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Changed reports whether path's current content hash differs from
// (or has no) recorded state.
func (s *State) Changed(path string, hash uint64) bool {
	rec, ok := s.Files[path]
	return !ok || rec.ContentHash != hash
}

// Record upserts path's tracked state after a (re-)analysis.
func (s *State) Record(path string, hash uint64, modifiedAt time.Time, functions, types []string) {
	s.Files[path] = FileRecord{
		Path:           path,
		ContentHash:    hash,
		ModifiedAt:     modifiedAt,
		LastAnalyzedAt: time.Now(),
		Functions:      functions,
		Types:          types,
	}
}

// Delete removes a file's tracked state, e.g. after it is deleted from
// disk.
func (s *State) Delete(path string) {
	delete(s.Files, path)
}
