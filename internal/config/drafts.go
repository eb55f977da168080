package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rshade/mesgrid/internal/grid"
)

// ErrStoreCorrupted indicates the draft file exists but contains invalid data.
// Callers should abort unless the user explicitly discards the drafts.
var ErrStoreCorrupted = errors.New("draft state file corrupted")

// DraftStoreVersion is the current schema version for the draft file.
const DraftStoreVersion = 1

// Draft is the unsaved state of one grid between CLI invocations.
type Draft struct {
	Grid      string     `json:"grid"`
	State     grid.State `json:"state"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// draftStoreData is the serialized form of the draft store.
type draftStoreData struct {
	Version int               `json:"version"`
	Drafts  map[string]*Draft `json:"drafts"`
}

// DraftStore persists grid drafts as a JSON file.
type DraftStore struct {
	mu       sync.RWMutex
	filePath string
	drafts   map[string]*Draft
	dirty    map[string]struct{}
	now      func() time.Time
}

// NewDraftStore creates a DraftStore backed by filePath.
func NewDraftStore(filePath string) (*DraftStore, error) {
	if filePath == "" {
		return nil, errors.New("draft store path cannot be empty")
	}

	return &DraftStore{
		filePath: filePath,
		drafts:   make(map[string]*Draft),
		dirty:    make(map[string]struct{}),
		now:      time.Now,
	}, nil
}

// lockFilePath returns the path to the lockfile for cross-process coordination.
func (s *DraftStore) lockFilePath() string {
	return s.filePath + ".lock"
}

// acquireFileLock acquires a cross-process advisory lockfile.
// Returns a cleanup function that releases the lock.
func (s *DraftStore) acquireFileLock() (func(), error) {
	return acquireLock(s.lockFilePath())
}

// readFile decodes the draft file. A missing file yields no drafts. Numbers
// are kept as json.Number so integers beyond 2^53 survive a round trip.
func (s *DraftStore) readFile() (map[string]*Draft, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*Draft), nil
		}
		return nil, fmt.Errorf("reading draft state file: %w", err)
	}

	var storeData draftStoreData
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if decodeErr := dec.Decode(&storeData); decodeErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreCorrupted, decodeErr)
	}

	if storeData.Version != DraftStoreVersion {
		return nil, fmt.Errorf("%w: unsupported version %d (expected %d)",
			ErrStoreCorrupted, storeData.Version, DraftStoreVersion)
	}

	if storeData.Drafts == nil {
		storeData.Drafts = make(map[string]*Draft)
	}
	for name, d := range storeData.Drafts {
		if d == nil {
			delete(storeData.Drafts, name)
			continue
		}
		d.State = normalizeState(d.State)
	}
	return storeData.Drafts, nil
}

// Load reads drafts from the JSON file. A missing file leaves the store empty;
// a corrupted one returns ErrStoreCorrupted.
func (s *DraftStore) Load() error {
	unlock, lockErr := s.acquireFileLock()
	if lockErr != nil {
		return fmt.Errorf("acquiring file lock: %w", lockErr)
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty = make(map[string]struct{})
	drafts, err := s.readFile()
	if err != nil {
		s.drafts = make(map[string]*Draft)
		return err
	}
	s.drafts = drafts
	return nil
}

// Save writes the drafts to the JSON file atomically. The file is re-read
// under the lock and only grids changed through Put or Delete since the last
// Load or Save are replaced, so invocations working on other grids keep their
// drafts.
func (s *DraftStore) Save() error {
	unlock, lockErr := s.acquireFileLock()
	if lockErr != nil {
		return fmt.Errorf("acquiring file lock: %w", lockErr)
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	merged, err := s.readFile()
	if err != nil {
		return err
	}
	for name := range s.dirty {
		if d, ok := s.drafts[name]; ok {
			merged[name] = d
		} else {
			delete(merged, name)
		}
	}

	data, err := json.MarshalIndent(draftStoreData{Version: DraftStoreVersion, Drafts: merged}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling draft state: %w", err)
	}

	if mkdirErr := os.MkdirAll(filepath.Dir(s.filePath), 0o750); mkdirErr != nil {
		return fmt.Errorf("creating draft state directory: %w", mkdirErr)
	}

	tmpPath := s.filePath + ".tmp"
	if writeErr := os.WriteFile(tmpPath, data, 0o600); writeErr != nil {
		return fmt.Errorf("writing draft state temp file: %w", writeErr)
	}

	if renameErr := os.Rename(tmpPath, s.filePath); renameErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming draft state temp file: %w", renameErr)
	}

	s.drafts = merged
	s.dirty = make(map[string]struct{})
	return nil
}

// Get returns the draft state of gridName, or an empty state when none exists.
func (s *DraftStore) Get(gridName string) (grid.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drafts[gridName]
	if !ok {
		return grid.NewState(), false
	}
	return copyState(d.State), true
}

// Put records the state of gridName.
func (s *DraftStore) Put(gridName string, state grid.State) error {
	if gridName == "" {
		return errors.New("grid name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.drafts[gridName] = &Draft{
		Grid:      gridName,
		State:     copyState(state),
		UpdatedAt: s.now().UTC(),
	}
	s.dirty[gridName] = struct{}{}
	return nil
}

// Delete removes the draft of gridName.
func (s *DraftStore) Delete(gridName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, gridName)
	s.dirty[gridName] = struct{}{}
}

// Drafts returns a copy of every draft sorted by grid name.
func (s *DraftStore) Drafts() []Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Draft, 0, len(s.drafts))
	for _, d := range s.drafts {
		c := *d
		c.State = copyState(d.State)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Grid < out[j].Grid })
	return out
}

// FilePath returns the file path of the draft store.
func (s *DraftStore) FilePath() string {
	return s.filePath
}

// Count returns the number of stored drafts.
func (s *DraftStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}

// copyState copies the collections of a state. Rows are shared; grid states
// never mutate rows in place.
func copyState(st grid.State) grid.State {
	return normalizeState(grid.State{
		Rows:           append([]grid.Row(nil), st.Rows...),
		PendingNew:     append([]grid.Row(nil), st.PendingNew...),
		PendingUpdated: append([]grid.Row(nil), st.PendingUpdated...),
		Selected:       append([]string(nil), st.Selected...),
	})
}

// normalizeState replaces nil collections with empty ones.
func normalizeState(st grid.State) grid.State {
	if st.Rows == nil {
		st.Rows = []grid.Row{}
	}
	if st.PendingNew == nil {
		st.PendingNew = []grid.Row{}
	}
	if st.PendingUpdated == nil {
		st.PendingUpdated = []grid.Row{}
	}
	return st
}
