package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/ajfletch/draftsmith/internal/agent"
	"github.com/ajfletch/draftsmith/models"
)

type scriptedProvider struct {
	calls     int
	responses []string
	failAt    int // 1-based call number to fail on, 0 for never
}

func (p *scriptedProvider) Invoke(_ context.Context, systemPrompt string, conversation []agent.Turn, _ []agent.ToolSpec) (string, error) {
	p.calls++
	if p.failAt == p.calls {
		return "", &agent.TransportError{Status: 503, Err: errors.New("upstream unavailable")}
	}
	if p.calls <= len(p.responses) {
		return p.responses[p.calls-1], nil
	}
	return fmt.Sprintf("response %d", p.calls), nil
}

func (p *scriptedProvider) Invoke1(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return p.Invoke(ctx, systemPrompt, []agent.Turn{{Role: agent.RoleUser, Content: userMessage}}, nil)
}

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func testSources() []models.Source {
	return []models.Source{
		models.NewSource(models.SourceTypeText, "notes", "raw material one"),
		models.NewSource(models.SourceTypeURL, "https://example.com", "raw material two"),
	}
}

func TestExecuteFullRun(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"the analysis", "the outline", "the draft"}}
	pipe := New(provider, nil, testLogger())

	run := pipe.NewRun(models.FormatBlog, "a specific angle")
	if err := pipe.Execute(context.Background(), run, testSources()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if provider.calls != 3 {
		t.Fatalf("expected exactly 3 agent calls, got %d", provider.calls)
	}
	if got := run.Phase(); got != PhaseComplete {
		t.Fatalf("expected complete, got %q", got)
	}
	if run.Analysis() != "the analysis" || run.Outline() != "the outline" || run.Draft() != "the draft" {
		t.Fatalf("artifacts mismatched: %q / %q / %q", run.Analysis(), run.Outline(), run.Draft())
	}
}

func TestExecuteEmptySources(t *testing.T) {
	provider := &scriptedProvider{}
	pipe := New(provider, nil, testLogger())

	run := pipe.NewRun(models.FormatBlog, "")
	err := pipe.Execute(context.Background(), run, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("empty source set must not reach the provider, got %d calls", provider.calls)
	}
	if run.Phase() != PhaseIdle {
		t.Fatalf("expected idle after refusal, got %q", run.Phase())
	}
}

func TestExecuteOutlineFailureKeepsAnalysis(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"the analysis"}, failAt: 2}
	pipe := New(provider, nil, testLogger())

	run := pipe.NewRun(models.FormatNewsletter, "")
	err := pipe.Execute(context.Background(), run, testSources())
	if err == nil {
		t.Fatal("expected the outline stage to fail")
	}
	var serr *StageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected a stage error, got %T", err)
	}
	if serr.Phase != PhaseOutlining {
		t.Fatalf("expected failure at outlining, got %q", serr.Phase)
	}
	var terr *agent.TransportError
	if !errors.As(err, &terr) || terr.Status != 503 {
		t.Fatalf("underlying transport error lost: %v", err)
	}
	if run.Analysis() != "the analysis" {
		t.Fatalf("completed stage artifact must survive a later failure, got %q", run.Analysis())
	}
	if run.Outline() != "" || run.Draft() != "" {
		t.Fatalf("failed and unreached stages must stay empty: %q / %q", run.Outline(), run.Draft())
	}
	if run.Phase() != PhaseIdle {
		t.Fatalf("expected idle after failure, got %q", run.Phase())
	}
}

func TestExecuteResearchFailureLeavesNothing(t *testing.T) {
	provider := &scriptedProvider{failAt: 1}
	pipe := New(provider, nil, testLogger())

	run := pipe.NewRun(models.FormatThread, "")
	err := pipe.Execute(context.Background(), run, testSources())
	if err == nil {
		t.Fatal("expected the research stage to fail")
	}
	if provider.calls != 1 {
		t.Fatalf("a failed stage must stop the sequence, got %d calls", provider.calls)
	}
	if run.Analysis() != "" {
		t.Fatalf("no artifact should exist, got analysis %q", run.Analysis())
	}
}

func TestSnapshotCarriesArtifacts(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"the analysis", "the outline", "the draft"}}
	pipe := New(provider, nil, testLogger())

	run := pipe.NewRun(models.FormatBlog, "")
	if err := pipe.Execute(context.Background(), run, testSources()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	d := run.Snapshot("My title")
	if d.ID == "" {
		t.Fatal("snapshot must assign an id")
	}
	if d.Title != "My title" || d.Content != "the draft" || d.Outline != "the outline" || d.Analysis != "the analysis" {
		t.Fatalf("snapshot dropped artifacts: %+v", d)
	}
	if d.Format != models.FormatBlog {
		t.Fatalf("snapshot format mismatch: %q", d.Format)
	}
}

func TestBuildCorpus(t *testing.T) {
	sources := []models.Source{
		{ID: "1", Title: "Alpha", Content: "first body"},
		{ID: "2", Title: "Beta", Content: "second body"},
	}
	corpus := buildCorpus(sources, "the angle")
	for _, want := range []string{"SOURCE 1: Alpha", "SOURCE 2: Beta", "first body", "second body", "the angle"} {
		if !strings.Contains(corpus, want) {
			t.Errorf("corpus missing %q:\n%s", want, corpus)
		}
	}
	noAngle := buildCorpus(sources, "")
	if strings.Contains(noAngle, "Angle") {
		t.Errorf("corpus without angle should not mention one:\n%s", noAngle)
	}
}
