// Package normalize converts the question payload shapes emitted by
// different LLM backends into the canonical order-preserving mapping.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"designengine/internal/schema"
	"designengine/internal/util/jsonutil"
)

// NormalizationError marks an output whose shape could not be converted.
// It usually stems from the same transient generation issue a validation
// failure does, so the orchestrator treats it as retryable.
type NormalizationError struct {
	Reason string
}

func (e *NormalizationError) Error() string {
	return "normalize: " + e.Reason
}

func failf(format string, args ...any) error {
	return &NormalizationError{Reason: fmt.Sprintf(format, args...)}
}

// listShape is the record form some backends emit:
// {"questions": [{"question_text": ..., "type": ..., "options": [...]}]}.
type listShape struct {
	Questions []listItem `json:"questions"`
}

type listItem struct {
	QuestionText string   `json:"question_text"`
	Type         string   `json:"type"`
	Options      []string `json:"options"`
}

// mappingShape is the canonical form:
// {"questions": {"question text": {"type": ..., "options": [...]}}}.
// Detection only looks at the first token of the questions value; decoding
// goes through schema.QuestionSet to keep key order.
type mappingShape struct {
	Questions json.RawMessage `json:"questions"`
}

// Normalize reshapes a raw clarification payload into the canonical mapping.
// Order is preserved by first occurrence and keys are case-sensitive.
// Duplicate question texts are never dropped: the later spec wins, the
// original position stays, deterministically. An entry whose type is not
// "multi_choice" fails.
func Normalize(raw json.RawMessage) (*schema.QuestionSet, error) {
	data := jsonutil.StripFences(raw)

	var probe mappingShape
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, failf("payload is not a JSON object: %v", err)
	}
	if len(probe.Questions) == 0 {
		return nil, failf(`payload has no "questions" field`)
	}

	switch firstToken(probe.Questions) {
	case '[':
		var ls listShape
		if err := jsonutil.UnmarshalStrict(data, &ls); err != nil {
			return nil, failf("list shape: %v", err)
		}
		return fromList(ls)
	case '{':
		qs := schema.NewQuestionSet()
		if err := qs.UnmarshalJSON(data); err != nil {
			return nil, failf("mapping shape: %v", err)
		}
		return checkTypes(qs)
	default:
		return nil, failf(`"questions" must be an array or an object`)
	}
}

func fromList(ls listShape) (*schema.QuestionSet, error) {
	qs := schema.NewQuestionSet()
	for i, item := range ls.Questions {
		if item.QuestionText == "" {
			return nil, failf("questions[%d]: question_text is empty", i)
		}
		if item.Type != schema.QuestionTypeMultiChoice {
			return nil, failf("questions[%d]: type must be %q, got %q", i, schema.QuestionTypeMultiChoice, item.Type)
		}
		qs.Set(item.QuestionText, schema.Question{Type: item.Type, Options: item.Options})
	}
	return qs, nil
}

func checkTypes(qs *schema.QuestionSet) (*schema.QuestionSet, error) {
	for _, text := range qs.Texts() {
		q, _ := qs.Get(text)
		if q.Type != schema.QuestionTypeMultiChoice {
			return nil, failf("questions[%q]: type must be %q, got %q", text, schema.QuestionTypeMultiChoice, q.Type)
		}
	}
	return qs, nil
}

func firstToken(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
