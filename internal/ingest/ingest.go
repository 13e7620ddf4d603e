package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/ajfletch/draftsmith/internal/agent"
	"github.com/ajfletch/draftsmith/internal/library"
	"github.com/ajfletch/draftsmith/internal/tools/webfetch"
	"github.com/ajfletch/draftsmith/internal/tools/websearch"
	"github.com/ajfletch/draftsmith/models"
)

// DefaultTextTitle is used when the caller pastes text without a title.
const DefaultTextTitle = "Pasted text"

// DefaultNoteTitle is used when a note is authored without a title.
const DefaultNoteTitle = "Note"

const fetchSystemPrompt = `You are a research assistant. The user will give you a URL. Use the web_fetch tool to retrieve the page, then produce a thorough summary of its content: the key claims, data points, quotes worth keeping, and the overall argument. If the page references other material you can discover with the web_search tool, you may use it for context, but summarize only the requested page. Respond with the summary text only.`

// FetchError reports a failed URL ingestion, distinguishable from a plain
// transport failure so callers can render a targeted message.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetching %s: %v", e.URL, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// Ingestor normalizes raw input into Source records and appends them to the
// working set.
type Ingestor struct {
	provider agent.Provider
	tools    []agent.ToolSpec
	lib      *library.Store
	ws       *Workspace
	logger   *log.Logger
}

// New creates an ingestor. fetcher is required for the URL path; searcher is
// an optional extra capability offered to the fetch agent.
func New(provider agent.Provider, fetcher *webfetch.Fetcher, searcher websearch.Searcher, lib *library.Store, ws *Workspace, logger *log.Logger) *Ingestor {
	if logger == nil {
		logger = log.New(log.Writer(), "[INGEST] ", log.LstdFlags)
	}
	ing := &Ingestor{provider: provider, lib: lib, ws: ws, logger: logger}
	if fetcher != nil {
		ing.tools = append(ing.tools, fetchTool(fetcher))
	}
	if searcher != nil {
		ing.tools = append(ing.tools, searchTool(searcher))
	}
	return ing
}

// Workspace returns the working source set this ingestor appends to.
func (i *Ingestor) Workspace() *Workspace { return i.ws }

// FromURL ingests a remote page: the agent fetches and summarizes it via the
// web_fetch tool, the returned text becomes the content and the literal URL
// the title. On failure the working set is left unchanged.
func (i *Ingestor) FromURL(ctx context.Context, rawURL string) (models.Source, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return models.Source{}, &FetchError{URL: rawURL, Err: fmt.Errorf("empty url")}
	}
	content, err := i.provider.Invoke(ctx, fetchSystemPrompt,
		[]agent.Turn{{Role: agent.RoleUser, Content: rawURL}}, i.tools)
	if err != nil {
		return models.Source{}, &FetchError{URL: rawURL, Err: err}
	}
	src := models.NewSource(models.SourceTypeURL, rawURL, content)
	i.ws.Add(src)
	i.logger.Printf("ingested url source %s (%d chars)", src.ID, len(content))
	return src, nil
}

// FromText ingests pasted text synchronously. Whitespace-only content is a
// no-op, not an error; ok reports whether a source was created.
func (i *Ingestor) FromText(title, content string) (models.Source, bool) {
	if strings.TrimSpace(content) == "" {
		return models.Source{}, false
	}
	if strings.TrimSpace(title) == "" {
		title = DefaultTextTitle
	}
	src := models.NewSource(models.SourceTypeText, title, content)
	i.ws.Add(src)
	return src, true
}

// FromNote ingests an authored note. Notes are durable-by-default: the note
// joins the working set and is merged into the library's notes list
// immediately, without a separate save action.
func (i *Ingestor) FromNote(ctx context.Context, title, content string) (models.Source, bool) {
	if strings.TrimSpace(content) == "" {
		return models.Source{}, false
	}
	if strings.TrimSpace(title) == "" {
		title = DefaultNoteTitle
	}
	note := models.NewSource(models.SourceTypeNote, title, content)
	i.ws.Add(note)
	if i.lib != nil {
		i.lib.SaveNote(ctx, note)
	}
	return note, true
}

func fetchTool(f *webfetch.Fetcher) agent.ToolSpec {
	return agent.ToolSpec{
		Name:        "web_fetch",
		Description: "Fetch a web page and return its readable text content.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "The absolute URL to fetch.",
				},
			},
			"required": []string{"url"},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			rawURL, _ := args["url"].(string)
			res, err := f.Fetch(ctx, rawURL)
			if err != nil {
				return "", err
			}
			b, err := json.Marshal(res)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
	}
}

func searchTool(s websearch.Searcher) agent.ToolSpec {
	return agent.ToolSpec{
		Name:        "web_search",
		Description: "Search the web and return result titles, URLs and snippets.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "The search query.",
				},
				"k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results.",
				},
			},
			"required": []string{"query"},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			q, _ := args["query"].(string)
			k := 5
			if n, ok := args["k"].(float64); ok && n > 0 {
				k = int(n)
			}
			results, err := s.Discover(ctx, q, k)
			if err != nil {
				return "", err
			}
			b, err := json.Marshal(results)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
	}
}
