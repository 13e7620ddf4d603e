package library

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/ajfletch/draftsmith/models"
)

// StorageKey is the single fixed key under which the library aggregate is
// persisted. The serialized form is the three-key JSON shape
// {"sources":[...],"drafts":[...],"notes":[...]} and must stay compatible
// with prior saves.
const StorageKey = "draftsmith:library"

// KV is the opaque persistence substrate: best-effort get/set of one string
// value per key.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// PersistenceError wraps a failed load or save. It is always recovered
// locally and never surfaced to the end user.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("library %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Store owns the persisted library. All mutations are whole-structure
// replace-and-persist; the in-memory copy remains authoritative for the
// session when persistence degrades.
type Store struct {
	kv     KV
	logger *log.Logger

	mu      sync.Mutex
	current Library
	loaded  bool
}

// NewStore creates a library store over the given KV backend.
func NewStore(kv KV, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.Writer(), "[LIBRARY] ", log.LstdFlags)
	}
	return &Store{kv: kv, logger: logger}
}

// Load returns the persisted library. Missing or unparsable data yields an
// empty library; corruption is treated as "no data", never as an error.
func (s *Store) Load(ctx context.Context) Library {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) Library {
	if s.loaded {
		return s.current
	}
	lib := Empty()
	raw, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		s.logger.Printf("load failed, starting empty: %v", &PersistenceError{Op: "load", Err: err})
	} else if ok {
		if err := json.Unmarshal([]byte(raw), &lib); err != nil {
			s.logger.Printf("persisted library unparsable, starting empty: %v", err)
			lib = Empty()
		}
	}
	if lib.Sources == nil {
		lib.Sources = []models.Source{}
	}
	if lib.Drafts == nil {
		lib.Drafts = []models.Draft{}
	}
	if lib.Notes == nil {
		lib.Notes = []models.Source{}
	}
	s.current = lib
	s.loaded = true
	return s.current
}

// Save persists the given library, replacing the in-memory copy. A
// persistence failure is logged, not propagated.
func (s *Store) Save(ctx context.Context, lib Library) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = lib
	s.loaded = true
	s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(s.current)
	if err != nil {
		s.logger.Printf("save skipped: %v", &PersistenceError{Op: "save", Err: err})
		return
	}
	if err := s.kv.Set(ctx, StorageKey, string(raw)); err != nil {
		s.logger.Printf("save failed, in-memory copy remains authoritative: %v",
			&PersistenceError{Op: "save", Err: err})
	}
}

// SaveSources merges the working source set into the library and persists.
func (s *Store) SaveSources(ctx context.Context, incoming []models.Source) Library {
	s.mu.Lock()
	defer s.mu.Unlock()
	lib := s.loadLocked(ctx)
	lib.Sources = MergeSources(lib.Sources, incoming)
	s.current = lib
	s.persistLocked(ctx)
	return s.current
}

// SaveDraft appends a frozen draft snapshot (dropped if the id exists).
func (s *Store) SaveDraft(ctx context.Context, d models.Draft) Library {
	s.mu.Lock()
	defer s.mu.Unlock()
	lib := s.loadLocked(ctx)
	lib.Drafts = MergeDrafts(lib.Drafts, []models.Draft{d})
	s.current = lib
	s.persistLocked(ctx)
	return s.current
}

// SaveNote merges a note into the notes list and persists. Notes are
// durable-by-default: the note ingestion path calls this immediately.
func (s *Store) SaveNote(ctx context.Context, n models.Source) Library {
	s.mu.Lock()
	defer s.mu.Unlock()
	lib := s.loadLocked(ctx)
	lib.Notes = MergeSources(lib.Notes, []models.Source{n})
	s.current = lib
	s.persistLocked(ctx)
	return s.current
}

// Remove deletes the record with the given id from one category and persists.
func (s *Store) Remove(ctx context.Context, category Category, id string) (Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lib, err := Delete(s.loadLocked(ctx), category, id)
	if err != nil {
		return s.current, err
	}
	s.current = lib
	s.persistLocked(ctx)
	return s.current, nil
}
