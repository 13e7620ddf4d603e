package ingest

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/ajfletch/draftsmith/internal/agent"
	"github.com/ajfletch/draftsmith/internal/library"
	"github.com/ajfletch/draftsmith/models"
)

type stubProvider struct {
	reply string
	err   error
	calls int
}

func (p *stubProvider) Invoke(context.Context, string, []agent.Turn, []agent.ToolSpec) (string, error) {
	p.calls++
	return p.reply, p.err
}

func (p *stubProvider) Invoke1(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return p.Invoke(ctx, systemPrompt, nil, nil)
}

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func newTestIngestor(p agent.Provider) (*Ingestor, *library.Store, *Workspace) {
	lib := library.NewStore(library.NewMemoryKV(), testLogger())
	ws := NewWorkspace()
	return New(p, nil, nil, lib, ws, testLogger()), lib, ws
}

func TestFromURL(t *testing.T) {
	provider := &stubProvider{reply: "a thorough summary of the page"}
	ing, _, ws := newTestIngestor(provider)

	src, err := ing.FromURL(context.Background(), "https://example.com/post")
	if err != nil {
		t.Fatalf("from url: %v", err)
	}
	if src.Type != models.SourceTypeURL {
		t.Fatalf("expected url source, got %q", src.Type)
	}
	if src.Title != "https://example.com/post" {
		t.Fatalf("the literal url should be the title, got %q", src.Title)
	}
	if src.Content != "a thorough summary of the page" {
		t.Fatalf("agent summary should be the content, got %q", src.Content)
	}
	if ws.Len() != 1 {
		t.Fatalf("source should join the working set, got %d", ws.Len())
	}
}

func TestFromURLFailureLeavesWorkspaceUnchanged(t *testing.T) {
	provider := &stubProvider{err: &agent.TransportError{Status: 502, Err: errors.New("bad gateway")}}
	ing, _, ws := newTestIngestor(provider)

	_, err := ing.FromURL(context.Background(), "https://example.com/post")
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected a fetch error, got %v", err)
	}
	if ferr.URL != "https://example.com/post" {
		t.Fatalf("fetch error should name the url, got %q", ferr.URL)
	}
	var terr *agent.TransportError
	if !errors.As(err, &terr) {
		t.Fatal("fetch error should wrap the transport failure")
	}
	if ws.Len() != 0 {
		t.Fatalf("failed ingestion must not touch the working set, got %d", ws.Len())
	}
}

func TestFromURLEmpty(t *testing.T) {
	provider := &stubProvider{}
	ing, _, _ := newTestIngestor(provider)

	if _, err := ing.FromURL(context.Background(), "   "); err == nil {
		t.Fatal("blank url must be rejected")
	}
	if provider.calls != 0 {
		t.Fatalf("blank url must not reach the provider, got %d calls", provider.calls)
	}
}

func TestFromText(t *testing.T) {
	ing, _, ws := newTestIngestor(&stubProvider{})

	src, ok := ing.FromText("", "pasted body")
	if !ok {
		t.Fatal("expected a source")
	}
	if src.Title != DefaultTextTitle {
		t.Fatalf("blank title should fall back to the default, got %q", src.Title)
	}
	if ws.Len() != 1 {
		t.Fatalf("expected one working source, got %d", ws.Len())
	}
}

func TestFromTextWhitespaceNoOp(t *testing.T) {
	ing, _, ws := newTestIngestor(&stubProvider{})

	if _, ok := ing.FromText("title", "  \n\t "); ok {
		t.Fatal("whitespace-only content must be a no-op")
	}
	if ws.Len() != 0 {
		t.Fatalf("no-op must not touch the working set, got %d", ws.Len())
	}
}

func TestFromNoteIsDurable(t *testing.T) {
	ctx := context.Background()
	ing, lib, ws := newTestIngestor(&stubProvider{})

	note, ok := ing.FromNote(ctx, "", "remember this")
	if !ok {
		t.Fatal("expected a note")
	}
	if note.Type != models.SourceTypeNote || note.Title != DefaultNoteTitle {
		t.Fatalf("unexpected note shape: %+v", note)
	}
	if ws.Len() != 1 {
		t.Fatalf("note should join the working set, got %d", ws.Len())
	}
	saved := lib.Load(ctx)
	if len(saved.Notes) != 1 || saved.Notes[0].ID != note.ID {
		t.Fatalf("note must be persisted immediately, library notes: %+v", saved.Notes)
	}
	if len(saved.Sources) != 0 {
		t.Fatalf("note must land in notes, not sources: %+v", saved.Sources)
	}
}

func TestWorkspaceRemove(t *testing.T) {
	ws := NewWorkspace()
	a := models.NewSource(models.SourceTypeText, "a", "one")
	b := models.NewSource(models.SourceTypeText, "b", "two")
	ws.Add(a)
	ws.Add(b)

	if !ws.Remove(a.ID) {
		t.Fatal("expected removal of a known id to succeed")
	}
	if ws.Remove("missing") {
		t.Fatal("removal of an unknown id must report false")
	}
	list := ws.List()
	if len(list) != 1 || list[0].ID != b.ID {
		t.Fatalf("unexpected working set after removal: %+v", list)
	}
}
