package ingest

import (
	"sync"

	"github.com/ajfletch/draftsmith/models"
)

// Workspace is the ephemeral working source set feeding a pipeline run. It is
// single-writer within a session; the mutex only guards against concurrent
// reads from the API layer.
type Workspace struct {
	mu      sync.RWMutex
	sources []models.Source
}

func NewWorkspace() *Workspace { return &Workspace{} }

// Add appends a source to the working set.
func (w *Workspace) Add(s models.Source) {
	w.mu.Lock()
	w.sources = append(w.sources, s)
	w.mu.Unlock()
}

// Remove deletes the source with the given id; removal does not cascade to
// the library. It reports whether a record was removed.
func (w *Workspace) Remove(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for idx, s := range w.sources {
		if s.ID == id {
			w.sources = append(w.sources[:idx], w.sources[idx+1:]...)
			return true
		}
	}
	return false
}

// List returns a copy of the working set in insertion order.
func (w *Workspace) List() []models.Source {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]models.Source, len(w.sources))
	copy(out, w.sources)
	return out
}

// Len reports the number of sources in the working set.
func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.sources)
}
