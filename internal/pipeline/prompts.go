package pipeline

import (
	"fmt"
	"strings"

	"github.com/ajfletch/draftsmith/models"
)

// The three agent prompts are configuration, not logic: each is a fixed
// specification of one analytical task.

const researchSystemPrompt = `You are a research analyst. You will receive a corpus of raw source material. Produce a structured research analysis covering:
- Key insights: the most important findings across all sources
- Patterns: recurring themes, agreements and tensions between sources
- Data: concrete numbers, dates, and facts worth citing
- Contrarian angles: where the sources disagree or where conventional wisdom looks wrong
- Gaps: questions the sources leave unanswered
Be thorough and specific. Cite which source each point comes from.`

const outlineSystemPrompt = `You are an editorial planner. You will receive a research analysis. Produce a complete piece outline containing:
- Three candidate title options
- A hook for the opening
- A per-section structure: heading, the argument the section makes, and which findings it draws on
- A conclusion that lands the core takeaway
- Metadata: target length, tone, intended audience
Follow the requested output format directive exactly.`

const writingSystemPrompt = `You are a professional writer. You will receive a research analysis and an approved outline. Write the full publication-ready piece: follow the outline's structure, work the analysis's findings and data into the prose, and honor the requested output format directive. Produce finished prose only, no meta-commentary.`

// formatDirective renders the output-format selector as the directive string
// handed to the Outline and Writing stages.
func formatDirective(f models.Format) string {
	switch f {
	case models.FormatThread:
		return "Output format: a social-media thread of numbered posts, each under 280 characters."
	case models.FormatNewsletter:
		return "Output format: an email newsletter issue with a subject line, greeting, and short scannable sections."
	case models.FormatOutlineOnly:
		return "Output format: a detailed outline only; do not write full prose."
	default:
		return "Output format: a long-form blog post with headings."
	}
}

// buildCorpus concatenates the working source set into the single user
// message handed to the Research agent.
func buildCorpus(sources []models.Source, angle string) string {
	var b strings.Builder
	for i, s := range sources {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- SOURCE %d: %s ---\n%s", i+1, s.Title, s.Content)
	}
	if strings.TrimSpace(angle) != "" {
		fmt.Fprintf(&b, "\n\nAngle/topic to focus on: %s", angle)
	}
	return b.String()
}

func outlineUserMessage(analysis string, format models.Format, angle string) string {
	var b strings.Builder
	b.WriteString("RESEARCH ANALYSIS:\n")
	b.WriteString(analysis)
	b.WriteString("\n\n")
	b.WriteString(formatDirective(format))
	if strings.TrimSpace(angle) != "" {
		fmt.Fprintf(&b, "\nAngle/topic to focus on: %s", angle)
	}
	return b.String()
}

func writingUserMessage(analysis, outline string, format models.Format, angle string) string {
	var b strings.Builder
	b.WriteString("RESEARCH ANALYSIS:\n")
	b.WriteString(analysis)
	b.WriteString("\n\nOUTLINE:\n")
	b.WriteString(outline)
	b.WriteString("\n\n")
	b.WriteString(formatDirective(format))
	if strings.TrimSpace(angle) != "" {
		fmt.Fprintf(&b, "\nAngle/topic to focus on: %s", angle)
	}
	return b.String()
}
