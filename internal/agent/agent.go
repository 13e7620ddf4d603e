package agent

import (
	"context"
	"fmt"
)

// Role identifies the author of a conversation turn.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single message in a conversation transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolSpec describes a capability the model may call during an invocation.
// Parameters is a JSON-schema object in the shape the chat-completions API
// expects; Handler executes the call locally and returns the tool output.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Handler     func(ctx context.Context, args map[string]interface{}) (string, error)
}

// Provider is a single request/response exchange with an LLM backend. The
// caller owns retry policy; implementations must not retry or cache.
type Provider interface {
	// Invoke sends systemPrompt plus the conversation and returns the
	// assistant text. A well-formed but empty completion resolves to "".
	Invoke(ctx context.Context, systemPrompt string, conversation []Turn, tools []ToolSpec) (string, error)

	// Invoke1 is sugar for a one-turn conversation without tools.
	Invoke1(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// TransportError reports a failed backend call: a non-2xx response or a
// network-level failure. Status is zero when no response was received.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("llm backend returned status %d", e.Status)
	}
	return fmt.Sprintf("llm backend unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
