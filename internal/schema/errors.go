package schema

import (
	"fmt"
	"strings"
)

// ValidationError collects every violated field path instead of stopping at
// the first one, so retry prompts can feed the full list back to the model.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	switch len(e.Violations) {
	case 0:
		return "schema: validation failed"
	case 1:
		return "schema: " + e.Violations[0]
	default:
		return fmt.Sprintf("schema: %d violations: %s", len(e.Violations), strings.Join(e.Violations, "; "))
	}
}

// Add records a violation at the given field path.
func (e *ValidationError) Add(path, msg string) {
	e.Violations = append(e.Violations, path+": "+msg)
}

// Addf records a formatted violation at the given field path.
func (e *ValidationError) Addf(path, format string, args ...any) {
	e.Add(path, fmt.Sprintf(format, args...))
}

// OrNil returns the error when at least one violation was recorded.
// Returning a typed nil would defeat errors.As at the call sites.
func (e *ValidationError) OrNil() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}
