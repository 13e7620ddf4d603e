package library

import (
	"fmt"

	"github.com/ajfletch/draftsmith/models"
)

// Category names one of the three library lists.
type Category string

const (
	CategorySources Category = "sources"
	CategoryDrafts  Category = "drafts"
	CategoryNotes   Category = "notes"
)

// Library is the durable, deduplicated aggregate of saved research material.
// Within each list ids are unique; merges preserve that invariant by dropping
// incoming records whose id already exists.
type Library struct {
	Sources []models.Source `json:"sources"`
	Drafts  []models.Draft  `json:"drafts"`
	Notes   []models.Source `json:"notes"`
}

// Empty returns a library with all three lists allocated, the shape returned
// whenever nothing (or nothing parsable) has been persisted.
func Empty() Library {
	return Library{
		Sources: []models.Source{},
		Drafts:  []models.Draft{},
		Notes:   []models.Source{},
	}
}

// MergeSources unions incoming into existing keyed by id: existing order is
// preserved, new records are appended, incoming duplicates are dropped.
func MergeSources(existing, incoming []models.Source) []models.Source {
	merged := make([]models.Source, len(existing))
	copy(merged, existing)
	seen := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		seen[s.ID] = struct{}{}
	}
	for _, s := range incoming {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		merged = append(merged, s)
	}
	return merged
}

// MergeDrafts is MergeSources for the drafts list.
func MergeDrafts(existing, incoming []models.Draft) []models.Draft {
	merged := make([]models.Draft, len(existing))
	copy(merged, existing)
	seen := make(map[string]struct{}, len(existing))
	for _, d := range existing {
		seen[d.ID] = struct{}{}
	}
	for _, d := range incoming {
		if _, ok := seen[d.ID]; ok {
			continue
		}
		seen[d.ID] = struct{}{}
		merged = append(merged, d)
	}
	return merged
}

// Delete removes the record with the given id from exactly one list. Unknown
// categories are rejected; deleting a missing id is a no-op.
func Delete(lib Library, category Category, id string) (Library, error) {
	switch category {
	case CategorySources:
		lib.Sources = dropSource(lib.Sources, id)
	case CategoryNotes:
		lib.Notes = dropSource(lib.Notes, id)
	case CategoryDrafts:
		out := make([]models.Draft, 0, len(lib.Drafts))
		for _, d := range lib.Drafts {
			if d.ID != id {
				out = append(out, d)
			}
		}
		lib.Drafts = out
	default:
		return lib, fmt.Errorf("unknown library category: %s", category)
	}
	return lib, nil
}

func dropSource(list []models.Source, id string) []models.Source {
	out := make([]models.Source, 0, len(list))
	for _, s := range list {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}
