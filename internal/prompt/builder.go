// Package prompt renders the section-based prompts for each generation
// phase. Prompt text is deterministic; the phase input travels separately as
// the interpolated input of the generation call.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
)

// Spec defines the sections of one structured prompt.
type Spec struct {
	Purpose      string
	Background   string
	Rules        []string
	Constraints  []string
	OutputFormat string
}

// Build renders the prompt. attempt is 1-based; attempts after the first get
// a [RETRY] section carrying the previous failure verbatim plus stricter
// phrasing, mirroring the retry-flagged prompt variant of the pipeline.
func (s Spec) Build(attempt int, lastErr error) string {
	var buf bytes.Buffer
	writeSection(&buf, "PURPOSE", s.Purpose)
	writeSection(&buf, "BACKGROUND", s.Background)
	writeSection(&buf, "RULES", formatList(s.Rules))
	writeSection(&buf, "CONSTRAINTS", formatList(s.Constraints))
	writeSection(&buf, "OUTPUT_FORMAT", s.OutputFormat)
	if attempt > 1 {
		writeSection(&buf, "RETRY", retrySection(attempt, lastErr))
	}
	return strings.TrimSpace(buf.String()) + "\n"
}

func retrySection(attempt int, lastErr error) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "This is attempt %d. The previous output was rejected.\n", attempt)
	if lastErr != nil {
		fmt.Fprintf(&buf, "Previous failure:\n%s\n", lastErr.Error())
	}
	buf.WriteString("STRICT MODE: output a single JSON object that satisfies every rule above. " +
		"No markdown fences, no commentary, no missing or empty fields.")
	return buf.String()
}

func formatList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var buf strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	buf.WriteString("[")
	buf.WriteString(title)
	buf.WriteString("]\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
}
