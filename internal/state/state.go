// Package state remembers which fragments an earlier collect run produced
// so unchanged sources can be skipped.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mcgtools/mcg/internal/fileutil"
)

const (
	StateFile           = ".mcg-collect.json"
	CurrentStateVersion = "1"
)

// SourceState tracks the fragment produced for one source file.
type SourceState struct {
	Hash         string    `json:"hash"`
	Fragment     string    `json:"fragment"`
	FragmentHash string    `json:"fragment_hash"`
	Collector    string    `json:"collector"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// State is the collect state of one build directory.
type State struct {
	Version   string                 `json:"version"`
	UpdatedAt time.Time              `json:"updated_at"`
	Sources   map[string]SourceState `json:"sources"`
}

// NewState creates a new empty state
func NewState() *State {
	return &State{
		Version: CurrentStateVersion,
		Sources: make(map[string]SourceState),
	}
}

// Load reads the state file in dir. A missing file, or one written by an
// unknown version, yields an empty state.
func Load(dir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(dir, StateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.Version != CurrentStateVersion {
		return NewState(), nil
	}
	if state.Sources == nil {
		state.Sources = make(map[string]SourceState)
	}
	return &state, nil
}

// Save writes the state file into dir.
func (s *State) Save(dir string) error {
	s.Version = CurrentStateVersion
	s.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteIfChanged(filepath.Join(dir, StateFile), data)
}

// Record stores the fragment a source produced. The fragment is hashed as
// it is on disk now.
func (s *State) Record(source, hash, fragment, collector string) error {
	fragmentHash, err := fileutil.HashFile(fragment)
	if err != nil {
		return err
	}
	s.Sources[source] = SourceState{
		Hash:         hash,
		Fragment:     fragment,
		FragmentHash: fragmentHash,
		Collector:    collector,
		UpdatedAt:    time.Now(),
	}
	return nil
}

// Fresh reports whether source still has hash, was collected the same way
// and its fragment is untouched.
func (s *State) Fresh(source, hash, collector string) bool {
	stored, ok := s.Sources[source]
	if !ok || stored.Hash != hash || stored.Collector != collector {
		return false
	}
	current, err := fileutil.HashFile(stored.Fragment)
	return err == nil && current == stored.FragmentHash
}

// Forget removes a source from state tracking
func (s *State) Forget(source string) {
	delete(s.Sources, source)
}

// Prune drops sources not in current and returns them sorted.
func (s *State) Prune(current map[string]bool) []string {
	removed := make([]string, 0)
	for source := range s.Sources {
		if !current[source] {
			removed = append(removed, source)
		}
	}
	sort.Strings(removed)
	for _, source := range removed {
		delete(s.Sources, source)
	}
	return removed
}
