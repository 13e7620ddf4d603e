package library

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/ajfletch/draftsmith/models"
)

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func src(id, title string) models.Source {
	return models.Source{ID: id, Type: models.SourceTypeText, Title: title, Content: "body of " + id}
}

func TestMergeSourcesUnionByID(t *testing.T) {
	existing := []models.Source{src("a", "first"), src("b", "second")}
	incoming := []models.Source{src("b", "second again"), src("c", "third")}

	merged := MergeSources(existing, incoming)
	if len(merged) != 3 {
		t.Fatalf("expected 3 sources after merge, got %d", len(merged))
	}
	for i, want := range []string{"a", "b", "c"} {
		if merged[i].ID != want {
			t.Errorf("position %d: expected %q, got %q", i, want, merged[i].ID)
		}
	}
	// the first occurrence wins
	if merged[1].Title != "second" {
		t.Errorf("duplicate id should keep the existing record, got title %q", merged[1].Title)
	}
}

func TestMergeSourcesIdempotent(t *testing.T) {
	existing := []models.Source{src("a", "first")}
	incoming := []models.Source{src("a", "first"), src("b", "second")}

	once := MergeSources(existing, incoming)
	twice := MergeSources(once, incoming)
	if len(once) != len(twice) {
		t.Fatalf("merge is not idempotent: %d then %d", len(once), len(twice))
	}
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	lib := Library{
		Sources: []models.Source{src("a", "one"), src("b", "two")},
		Drafts:  []models.Draft{{ID: "d1", Title: "draft"}},
		Notes:   []models.Source{src("n1", "note")},
	}

	out, err := Delete(lib, CategorySources, "a")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(out.Sources) != 1 || out.Sources[0].ID != "b" {
		t.Fatalf("expected only source b to remain, got %+v", out.Sources)
	}
	if len(out.Drafts) != 1 || len(out.Notes) != 1 {
		t.Fatalf("delete touched unrelated categories: %+v", out)
	}

	// deleting a missing id is a no-op
	out, err = Delete(out, CategoryNotes, "does-not-exist")
	if err != nil {
		t.Fatalf("delete missing id: %v", err)
	}
	if len(out.Notes) != 1 {
		t.Fatalf("missing id should leave notes untouched, got %+v", out.Notes)
	}

	out, err = Delete(out, CategoryDrafts, "d1")
	if err != nil {
		t.Fatalf("delete draft: %v", err)
	}
	if len(out.Drafts) != 0 || len(out.Sources) != 1 || len(out.Notes) != 1 {
		t.Fatalf("draft deletion must leave sources and notes untouched: %+v", out)
	}

	if _, err := Delete(out, Category("attachments"), "a"); err == nil {
		t.Fatal("expected an error for an unknown category")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewStore(kv, testLogger())

	store.SaveSources(ctx, []models.Source{src("a", "one"), src("b", "two")})
	store.SaveDraft(ctx, models.Draft{ID: "d1", Title: "essay", Content: "text", Format: models.FormatBlog})
	store.SaveNote(ctx, src("n1", "note"))

	// a fresh store over the same KV must see the same library
	reloaded := NewStore(kv, testLogger()).Load(ctx)
	if len(reloaded.Sources) != 2 || len(reloaded.Drafts) != 1 || len(reloaded.Notes) != 1 {
		t.Fatalf("unexpected reload shape: %d sources, %d drafts, %d notes",
			len(reloaded.Sources), len(reloaded.Drafts), len(reloaded.Notes))
	}
	if reloaded.Drafts[0].Title != "essay" {
		t.Errorf("draft title lost in round trip: %q", reloaded.Drafts[0].Title)
	}
}

func TestStoreLoadCorruptPayload(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	if err := kv.Set(ctx, StorageKey, "{not json"); err != nil {
		t.Fatal(err)
	}

	lib := NewStore(kv, testLogger()).Load(ctx)
	if len(lib.Sources) != 0 || len(lib.Drafts) != 0 || len(lib.Notes) != 0 {
		t.Fatalf("corrupt payload should load as an empty library, got %+v", lib)
	}
}

func TestStoreLoadMissingKey(t *testing.T) {
	lib := NewStore(NewMemoryKV(), testLogger()).Load(context.Background())
	if lib.Sources == nil || lib.Drafts == nil || lib.Notes == nil {
		t.Fatal("empty library must keep all three lists non-nil")
	}
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) { return "", false, io.ErrClosedPipe }
func (failingKV) Set(context.Context, string, string) error         { return io.ErrClosedPipe }

func TestStoreSaveFailureDoesNotPropagate(t *testing.T) {
	ctx := context.Background()
	store := NewStore(failingKV{}, testLogger())

	// persistence trouble is logged, never surfaced to the caller
	lib := store.SaveSources(ctx, []models.Source{src("a", "one")})
	if len(lib.Sources) != 1 {
		t.Fatalf("in-memory state should still hold the merge, got %+v", lib.Sources)
	}
}

func TestRemovePersists(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewStore(kv, testLogger())
	store.SaveSources(ctx, []models.Source{src("a", "one"), src("b", "two")})

	if _, err := store.Remove(ctx, CategorySources, "a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	reloaded := NewStore(kv, testLogger()).Load(ctx)
	if len(reloaded.Sources) != 1 || reloaded.Sources[0].ID != "b" {
		t.Fatalf("removal did not persist: %+v", reloaded.Sources)
	}
}
