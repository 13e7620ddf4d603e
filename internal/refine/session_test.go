package refine

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/ajfletch/draftsmith/internal/agent"
)

type stubProvider struct {
	reply string
	err   error

	lastConversation []agent.Turn
}

func (p *stubProvider) Invoke(_ context.Context, _ string, conversation []agent.Turn, _ []agent.ToolSpec) (string, error) {
	p.lastConversation = conversation
	return p.reply, p.err
}

func (p *stubProvider) Invoke1(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return p.Invoke(ctx, systemPrompt, []agent.Turn{{Role: agent.RoleUser, Content: userMessage}}, nil)
}

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestSendRewriteThreshold(t *testing.T) {
	draft := strings.Repeat("x", 1000)
	cases := []struct {
		name     string
		replyLen int
		rewrote  bool
	}{
		{"long reply replaces the draft", 600, true},
		{"short reply is commentary", 400, false},
		{"exactly half is commentary", 500, false},
		{"one past half replaces", 501, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &stubProvider{reply: strings.Repeat("y", tc.replyLen)}
			s := NewSession(provider, draft, nil, testLogger())

			reply, rewrote := s.Send(context.Background(), "tighten the intro")
			if rewrote != tc.rewrote {
				t.Fatalf("reply of %d chars against a %d char draft: rewrote=%v, want %v",
					tc.replyLen, len(draft), rewrote, tc.rewrote)
			}
			if tc.rewrote && s.Draft() != reply {
				t.Fatal("rewrite must replace the draft with the reply")
			}
			if !tc.rewrote && s.Draft() != draft {
				t.Fatal("commentary must leave the draft untouched")
			}
		})
	}
}

func TestSendThresholdTracksCurrentDraft(t *testing.T) {
	provider := &stubProvider{reply: strings.Repeat("y", 600)}
	s := NewSession(provider, strings.Repeat("x", 1000), nil, testLogger())

	if _, rewrote := s.Send(context.Background(), "rewrite it"); !rewrote {
		t.Fatal("first reply should rewrite")
	}
	// the draft is now 600 chars, so 400 clears the new half-length bar
	provider.reply = strings.Repeat("z", 400)
	if _, rewrote := s.Send(context.Background(), "again"); !rewrote {
		t.Fatal("threshold must follow the updated draft length")
	}
}

func TestSendErrorKeepsSessionAlive(t *testing.T) {
	provider := &stubProvider{err: &agent.TransportError{Status: 500, Err: errors.New("boom")}}
	s := NewSession(provider, "the draft", nil, testLogger())

	reply, rewrote := s.Send(context.Background(), "shorten it")
	if rewrote {
		t.Fatal("a failed turn must never rewrite")
	}
	if !strings.Contains(reply, "failed") {
		t.Fatalf("expected an apologetic error note, got %q", reply)
	}
	transcript := s.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("expected user turn plus assistant error note, got %d turns", len(transcript))
	}
	if transcript[1].Role != agent.RoleAssistant {
		t.Fatalf("error note must be assistant-authored, got %q", transcript[1].Role)
	}
	if s.Draft() != "the draft" {
		t.Fatal("draft must survive a failed turn")
	}

	// the next turn still goes through
	provider.err = nil
	provider.reply = "Consider a stronger opening sentence."
	if _, _ = s.Send(context.Background(), "any ideas?"); len(s.Transcript()) != 4 {
		t.Fatalf("session should accept turns after a failure, transcript has %d turns", len(s.Transcript()))
	}
}

type gatedProvider struct {
	entered chan struct{}
	release chan struct{}
	reply   string
}

func (p *gatedProvider) Invoke(context.Context, string, []agent.Turn, []agent.ToolSpec) (string, error) {
	p.entered <- struct{}{}
	<-p.release
	return p.reply, nil
}

func (p *gatedProvider) Invoke1(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return p.Invoke(ctx, systemPrompt, nil, nil)
}

func TestSendSerializesTurns(t *testing.T) {
	provider := &gatedProvider{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		reply:   "noted",
	}
	s := NewSession(provider, strings.Repeat("x", 1000), nil, testLogger())

	firstDone := make(chan struct{})
	go func() {
		s.Send(context.Background(), "first")
		close(firstDone)
	}()
	<-provider.entered // first turn is inside the provider

	secondDone := make(chan struct{})
	go func() {
		s.Send(context.Background(), "second")
		close(secondDone)
	}()

	// the second turn must wait for the first; its user turn may not appear yet
	time.Sleep(50 * time.Millisecond)
	if got := len(s.Transcript()); got != 1 {
		t.Fatalf("expected only the in-flight user turn in the transcript, got %d turns", got)
	}

	provider.release <- struct{}{}
	<-firstDone
	<-provider.entered
	provider.release <- struct{}{}
	<-secondDone

	transcript := s.Transcript()
	if len(transcript) != 4 {
		t.Fatalf("expected two complete exchanges, got %d turns", len(transcript))
	}
	wantRoles := []string{agent.RoleUser, agent.RoleAssistant, agent.RoleUser, agent.RoleAssistant}
	wantContent := []string{"first", "noted", "second", "noted"}
	for i, turn := range transcript {
		if turn.Role != wantRoles[i] || turn.Content != wantContent[i] {
			t.Fatalf("turn %d out of order: %+v", i, turn)
		}
	}
}

func TestSendPrependsPreamble(t *testing.T) {
	provider := &stubProvider{reply: "ok"}
	s := NewSession(provider, "the draft", nil, testLogger())

	s.Send(context.Background(), "first request")
	conv := provider.lastConversation
	if len(conv) != 3 {
		t.Fatalf("expected preamble plus one user turn, got %d", len(conv))
	}
	if !strings.Contains(conv[0].Content, "the draft") || conv[0].Role != agent.RoleUser {
		t.Fatalf("preamble must open with the draft as a user turn: %+v", conv[0])
	}
	if conv[1].Role != agent.RoleAssistant {
		t.Fatalf("preamble acknowledgement must be assistant-authored: %+v", conv[1])
	}
	if s.Transcript()[0].Content != "first request" {
		t.Fatal("preamble must not leak into the live transcript")
	}
}
