package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

// maxToolRounds caps how many tool-execution round trips a single logical
// invocation may perform before the model must answer with text.
const maxToolRounds = 4

// OpenAIProvider implements Provider over the chat-completions API.
type OpenAIProvider struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	client      *http.Client
}

// NewOpenAIProvider creates an OpenAI-backed provider.
func NewOpenAIProvider(apiKey, model, baseURL string, temperature float64, maxTokens int, timeout time.Duration) *OpenAIProvider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OpenAIProvider{
		apiKey:      apiKey,
		model:       model,
		baseURL:     baseURL,
		temperature: temperature,
		maxTokens:   maxTokens,
		client:      &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type toolDef struct {
	Type     string `json:"type"`
	Function struct {
		Name        string                 `json:"name"`
		Description string                 `json:"description"`
		Parameters  map[string]interface{} `json:"parameters"`
	} `json:"function"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Tools       []toolDef     `json:"tools,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Invoke1 implements Provider.
func (p *OpenAIProvider) Invoke1(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return p.Invoke(ctx, systemPrompt, []Turn{{Role: RoleUser, Content: userMessage}}, nil)
}

// Invoke implements Provider. When tools are supplied the model may request
// tool calls; each requested call is executed locally and its output fed back
// until the model answers with text or maxToolRounds is reached.
func (p *OpenAIProvider) Invoke(ctx context.Context, systemPrompt string, conversation []Turn, tools []ToolSpec) (string, error) {
	messages := make([]chatMessage, 0, len(conversation)+1)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: RoleSystem, Content: systemPrompt})
	}
	for _, t := range conversation {
		messages = append(messages, chatMessage{Role: t.Role, Content: t.Content})
	}

	defs := make([]toolDef, 0, len(tools))
	byName := make(map[string]ToolSpec, len(tools))
	for _, spec := range tools {
		var d toolDef
		d.Type = "function"
		d.Function.Name = spec.Name
		d.Function.Description = spec.Description
		d.Function.Parameters = spec.Parameters
		defs = append(defs, d)
		byName[spec.Name] = spec
	}

	for round := 0; ; round++ {
		msg, err := p.complete(ctx, messages, defs)
		if err != nil {
			return "", err
		}
		if len(msg.ToolCalls) == 0 || round >= maxToolRounds {
			return msg.Content, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			spec, ok := byName[call.Function.Name]
			output := ""
			if !ok {
				output = fmt.Sprintf("unknown tool: %s", call.Function.Name)
			} else {
				var args map[string]interface{}
				if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
					output = fmt.Sprintf("invalid tool arguments: %v", err)
				} else if out, err := spec.Handler(ctx, args); err != nil {
					output = fmt.Sprintf("tool error: %v", err)
				} else {
					output = out
				}
			}
			messages = append(messages, chatMessage{
				Role:       "tool",
				Content:    output,
				ToolCallID: call.ID,
			})
		}
	}
}

func (p *OpenAIProvider) complete(ctx context.Context, messages []chatMessage, tools []toolDef) (chatMessage, error) {
	body, err := json.Marshal(chatRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		Tools:       tools,
	})
	if err != nil {
		return chatMessage{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return chatMessage{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return chatMessage{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return chatMessage{}, &TransportError{Status: resp.StatusCode}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return chatMessage{}, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		// Well-formed but empty completions resolve to an empty message.
		return chatMessage{}, nil
	}
	return out.Choices[0].Message, nil
}
