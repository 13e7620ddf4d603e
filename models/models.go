package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourceType classifies how a piece of research material entered the system.
type SourceType string

const (
	SourceTypeURL  SourceType = "url"
	SourceTypeText SourceType = "text"
	SourceTypeNote SourceType = "note"
)

// Source is a unit of raw research material with a stable identity. Sources
// are immutable once created; edits create a new record.
type Source struct {
	ID      string     `json:"id"`
	Type    SourceType `json:"type"`
	Title   string     `json:"title"`
	Content string     `json:"content"`
	Date    time.Time  `json:"date"`
}

// NewSource mints a source record with a fresh id and timestamp.
func NewSource(typ SourceType, title, content string) Source {
	return Source{
		ID:      uuid.NewString(),
		Type:    typ,
		Title:   title,
		Content: content,
		Date:    time.Now(),
	}
}

// Draft is a frozen snapshot of a completed pipeline run plus the requested
// output format. It is never mutated after creation, only deleted.
type Draft struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Outline  string    `json:"outline"`
	Analysis string    `json:"analysis"`
	Date     time.Time `json:"date"`
	Format   Format    `json:"format"`
}

// Format selects the publication shape the Outline and Writing stages aim for.
type Format string

const (
	FormatBlog        Format = "blog"
	FormatThread      Format = "thread"
	FormatNewsletter  Format = "newsletter"
	FormatOutlineOnly Format = "outline-only"
)

// ParseFormat normalizes a user-supplied format string, defaulting to blog.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatThread:
		return FormatThread
	case FormatNewsletter:
		return FormatNewsletter
	case FormatOutlineOnly:
		return FormatOutlineOnly
	default:
		return FormatBlog
	}
}
