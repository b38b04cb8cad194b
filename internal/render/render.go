// Package render turns a finalized design document into a word-processor
// file. Renderers only read the snapshot they are given; they never touch
// session state.
package render

import (
	"designengine/internal/schema"
)

// Renderer consumes the validated phase-3 document and writes it to dest.
// Implementations must handle partially-populated documents defensively:
// the schema forbids emptiness upstream, but rendering a degraded document
// with fallback text beats failing after generation already succeeded.
type Renderer interface {
	Render(doc *schema.Phase3SystemDesign, dest string) error
}

// RenderError is a rendering-stage failure. It is fatal and never retried by
// the orchestrator; the generated document stays intact in session state so
// the caller may retry rendering alone.
type RenderError struct {
	Dest string
	Err  error
}

func (e *RenderError) Error() string {
	return "render: " + e.Dest + ": " + e.Err.Error()
}

func (e *RenderError) Unwrap() error { return e.Err }
