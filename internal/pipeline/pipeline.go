package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ajfletch/draftsmith/internal/agent"
	"github.com/ajfletch/draftsmith/internal/telemetry"
	"github.com/ajfletch/draftsmith/models"
)

// Phase is the explicit tagged state of a pipeline run.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseResearching Phase = "researching"
	PhaseOutlining   Phase = "outlining"
	PhaseDrafting    Phase = "drafting"
	PhaseComplete    Phase = "complete"
)

// ValidationError reports a refused run precondition, e.g. an empty working
// source set.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// StageError wraps a failed stage, naming the phase that was in flight.
type StageError struct {
	Phase Phase
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage failed: %v", e.Phase, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Run holds the state of one pipeline invocation. Runs are recreated fresh
// each invocation; no cross-run state survives except what the caller saves
// to the library. Artifacts from completed stages are preserved on failure so
// a failed run remains inspectable and re-drivable.
type Run struct {
	mu sync.RWMutex

	phase    Phase
	failedAt Phase
	err      error

	analysis string
	outline  string
	draft    string

	format models.Format
	angle  string
}

// Status is a point-in-time snapshot of a run, shaped for JSON status
// responses.
type Status struct {
	Phase    Phase  `json:"phase"`
	FailedAt Phase  `json:"failed_at,omitempty"`
	Error    string `json:"error,omitempty"`
	Analysis string `json:"analysis,omitempty"`
	Outline  string `json:"outline,omitempty"`
	Draft    string `json:"draft,omitempty"`
}

// Status returns a snapshot of the run.
func (r *Run) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := Status{
		Phase:    r.phase,
		FailedAt: r.failedAt,
		Analysis: r.analysis,
		Outline:  r.outline,
		Draft:    r.draft,
	}
	if r.err != nil {
		st.Error = r.err.Error()
	}
	return st
}

// Analysis returns the research-stage artifact, empty until produced.
func (r *Run) Analysis() string { r.mu.RLock(); defer r.mu.RUnlock(); return r.analysis }

// Outline returns the outline-stage artifact, empty until produced.
func (r *Run) Outline() string { r.mu.RLock(); defer r.mu.RUnlock(); return r.outline }

// Draft returns the writing-stage artifact, empty until produced.
func (r *Run) Draft() string { r.mu.RLock(); defer r.mu.RUnlock(); return r.draft }

// Phase returns the current state marker.
func (r *Run) Phase() Phase { r.mu.RLock(); defer r.mu.RUnlock(); return r.phase }

// Format returns the output format the run was started with.
func (r *Run) Format() models.Format { return r.format }

func (r *Run) setPhase(p Phase) {
	r.mu.Lock()
	r.phase = p
	r.mu.Unlock()
}

func (r *Run) fail(at Phase, err error) {
	r.mu.Lock()
	r.phase = PhaseIdle
	r.failedAt = at
	r.err = err
	r.mu.Unlock()
}

// Snapshot freezes a completed run into a library draft entity.
func (r *Run) Snapshot(title string) models.Draft {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.Draft{
		ID:       uuid.NewString(),
		Title:    title,
		Content:  r.draft,
		Outline:  r.outline,
		Analysis: r.analysis,
		Date:     time.Now(),
		Format:   r.format,
	}
}

// Pipeline drives the strictly sequential Research -> Outline -> Writing
// sequence. At most one agent call is in flight at a time.
type Pipeline struct {
	provider  agent.Provider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// New creates a pipeline over the given provider.
func New(provider agent.Provider, tele *telemetry.Telemetry, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	}
	return &Pipeline{provider: provider, telemetry: tele, logger: logger}
}

// NewRun creates an idle run with the given output settings. Callers hand the
// run to Execute and may observe its phase and artifacts concurrently while
// the stages are in flight.
func (p *Pipeline) NewRun(format models.Format, angle string) *Run {
	return &Run{phase: PhaseIdle, format: format, angle: angle}
}

// Execute drives the run over the working source set. It refuses to start on
// an empty set without issuing any network call. On a stage failure the run
// carries the error, the phase resets to idle, and artifacts from completed
// stages remain populated.
func (p *Pipeline) Execute(ctx context.Context, run *Run, sources []models.Source) error {
	format, angle := run.format, run.angle
	if len(sources) == 0 {
		err := &ValidationError{Reason: "no sources in the working set"}
		run.fail(PhaseIdle, err)
		return err
	}

	// Research
	run.setPhase(PhaseResearching)
	p.logger.Printf("research stage: %d sources", len(sources))
	analysis, err := p.invokeStage(ctx, PhaseResearching, researchSystemPrompt, buildCorpus(sources, angle))
	if err != nil {
		run.fail(PhaseResearching, err)
		return err
	}
	run.mu.Lock()
	run.analysis = analysis
	run.mu.Unlock()

	// Outline
	run.setPhase(PhaseOutlining)
	outline, err := p.invokeStage(ctx, PhaseOutlining, outlineSystemPrompt, outlineUserMessage(analysis, format, angle))
	if err != nil {
		run.fail(PhaseOutlining, err)
		return err
	}
	run.mu.Lock()
	run.outline = outline
	run.mu.Unlock()

	// Writing
	run.setPhase(PhaseDrafting)
	draft, err := p.invokeStage(ctx, PhaseDrafting, writingSystemPrompt, writingUserMessage(analysis, outline, format, angle))
	if err != nil {
		run.fail(PhaseDrafting, err)
		return err
	}
	run.mu.Lock()
	run.draft = draft
	run.phase = PhaseComplete
	run.mu.Unlock()

	p.logger.Printf("pipeline complete: draft %d chars", len(draft))
	return nil
}

func (p *Pipeline) invokeStage(ctx context.Context, phase Phase, systemPrompt, userMessage string) (string, error) {
	start := time.Now()
	out, err := p.provider.Invoke1(ctx, systemPrompt, userMessage)
	p.telemetry.RecordLLMRequest(string(phase), err)
	p.telemetry.RecordStage(string(phase), time.Since(start))
	if err != nil {
		p.logger.Printf("%s stage failed after %v: %v", phase, time.Since(start), err)
		return "", &StageError{Phase: phase, Err: err}
	}
	return out, nil
}
