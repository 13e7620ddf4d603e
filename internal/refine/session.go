package refine

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/ajfletch/draftsmith/internal/agent"
	"github.com/ajfletch/draftsmith/internal/telemetry"
)

const editorSystemPrompt = `You are an editor collaborating on a draft the user has shared with you. For each request, either answer with commentary (suggestions, clarifying questions, short excerpts) or, when the request calls for changes to the text, respond with the complete revised draft. When you rewrite, output the entire draft, not just the changed parts, and no meta-commentary.`

// Session is the post-pipeline conversational loop that iteratively edits a
// draft. The session takes exclusive write ownership of the draft at start;
// the pipeline must not mutate it afterwards.
type Session struct {
	provider  agent.Provider
	telemetry *telemetry.Telemetry
	logger    *log.Logger

	// sendMu serializes turns: at most one request/reply exchange is in
	// flight, so transcript order and the rewrite comparison stay coherent.
	sendMu sync.Mutex

	mu         sync.RWMutex
	draft      string
	preamble   []agent.Turn
	transcript []agent.Turn
}

// NewSession seeds a session with the current draft. The synthetic two-turn
// preamble presents the draft as ground truth and acknowledges receipt; it is
// prepended to every request but never appears in the live transcript.
func NewSession(provider agent.Provider, draft string, tele *telemetry.Telemetry, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(log.Writer(), "[REFINE] ", log.LstdFlags)
	}
	return &Session{
		provider:  provider,
		telemetry: tele,
		logger:    logger,
		draft:     draft,
		preamble: []agent.Turn{
			{Role: agent.RoleUser, Content: "Here is the current draft we are working on:\n\n" + draft},
			{Role: agent.RoleAssistant, Content: "Got it. I have the draft. What would you like to change?"},
		},
	}
}

// Draft returns the current draft text.
func (s *Session) Draft() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft
}

// Transcript returns a copy of the live transcript (preamble excluded).
func (s *Session) Transcript() []agent.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]agent.Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Send appends the user request, invokes the editorial agent with preamble
// plus transcript, and appends the reply. A reply longer than half the
// current draft is taken as a full rewrite and atomically replaces the draft;
// shorter replies are commentary. A transport failure is recorded as an
// assistant-authored error note and the session stays usable. Turns are
// serialized: a concurrent Send blocks until the in-flight turn completes.
func (s *Session) Send(ctx context.Context, message string) (reply string, rewrote bool) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	s.transcript = append(s.transcript, agent.Turn{Role: agent.RoleUser, Content: message})
	conversation := make([]agent.Turn, 0, len(s.preamble)+len(s.transcript))
	conversation = append(conversation, s.preamble...)
	conversation = append(conversation, s.transcript...)
	s.mu.Unlock()

	resp, err := s.provider.Invoke(ctx, editorSystemPrompt, conversation, nil)
	s.telemetry.RecordLLMRequest("refine", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		note := fmt.Sprintf("Sorry, that request failed: %v. You can try again.", err)
		s.transcript = append(s.transcript, agent.Turn{Role: agent.RoleAssistant, Content: note})
		s.logger.Printf("turn failed: %v", err)
		return note, false
	}

	s.transcript = append(s.transcript, agent.Turn{Role: agent.RoleAssistant, Content: resp})
	// Full-rewrite heuristic: anything longer than half the draft replaces it.
	if len(resp) > len(s.draft)/2 {
		s.draft = resp
		rewrote = true
	}
	s.telemetry.RecordRefineTurn(rewrote)
	return resp, rewrote
}
