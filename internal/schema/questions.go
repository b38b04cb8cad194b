package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// QuestionTypeMultiChoice is the only question type phase 2 supports.
	QuestionTypeMultiChoice = "multi_choice"

	// OtherSentinel is the reserved last option of every clarification
	// question. Selecting it triggers a free-text follow-up.
	OtherSentinel = "Other"

	// QuestionOptionCount is the exact number of options per question.
	QuestionOptionCount = 6
)

// Question is the per-question spec inside the canonical mapping.
type Question struct {
	Type    string   `json:"type"`
	Options []string `json:"options"`
}

// QuestionSet is the canonical order-preserving mapping of question text to
// question spec. JSON form is {"questions": {"text": {type, options}, ...}}
// with object keys kept in insertion order, which encoding/json maps cannot
// do on their own.
type QuestionSet struct {
	order  []string
	byText map[string]Question
}

func NewQuestionSet() *QuestionSet {
	return &QuestionSet{byText: make(map[string]Question)}
}

// Set inserts or overwrites a question. A duplicate text keeps its original
// position and takes the new spec (deterministic last-write-wins).
func (qs *QuestionSet) Set(text string, q Question) {
	if qs.byText == nil {
		qs.byText = make(map[string]Question)
	}
	if _, ok := qs.byText[text]; !ok {
		qs.order = append(qs.order, text)
	}
	qs.byText[text] = q
}

func (qs *QuestionSet) Get(text string) (Question, bool) {
	q, ok := qs.byText[text]
	return q, ok
}

// Texts returns the question texts in first-occurrence order.
func (qs *QuestionSet) Texts() []string {
	out := make([]string, len(qs.order))
	copy(out, qs.order)
	return out
}

func (qs *QuestionSet) Len() int { return len(qs.order) }

func (qs *QuestionSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"questions":{`)
	for i, text := range qs.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(text)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(qs.byText[text])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the canonical mapping shape, preserving object key
// order via token-level decoding.
func (qs *QuestionSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return fmt.Errorf("question set: %w", err)
	}
	qs.order = nil
	qs.byText = make(map[string]Question)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		if key != "questions" {
			return fmt.Errorf("question set: unrecognized field %q", key)
		}
		if err := expectDelim(dec, '{'); err != nil {
			return fmt.Errorf("question set: questions: %w", err)
		}
		for dec.More() {
			textTok, err := dec.Token()
			if err != nil {
				return err
			}
			text, _ := textTok.(string)
			var q Question
			if err := dec.Decode(&q); err != nil {
				return fmt.Errorf("question set: %q: %w", text, err)
			}
			qs.Set(text, q)
		}
		if _, err := dec.Token(); err != nil { // closing '}'
			return err
		}
	}
	_, err := dec.Token() // closing '}'
	return err
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// ValidateQuestionSet enforces the clarification-question contract: at least
// one question, type multi_choice, exactly six non-empty options per question
// with the literal "Other" last.
func ValidateQuestionSet(qs *QuestionSet) error {
	v := &ValidationError{}
	if qs == nil || qs.Len() == 0 {
		v.Add("questions", "must not be empty")
		return v.OrNil()
	}
	for _, text := range qs.order {
		q := qs.byText[text]
		path := fmt.Sprintf("questions[%q]", text)
		if strings.TrimSpace(text) == "" {
			v.Add("questions", "question text must not be empty")
			continue
		}
		if q.Type != QuestionTypeMultiChoice {
			v.Addf(path+".type", "must be %q, got %q", QuestionTypeMultiChoice, q.Type)
		}
		if len(q.Options) != QuestionOptionCount {
			v.Addf(path+".options", "need exactly %d options, got %d", QuestionOptionCount, len(q.Options))
		}
		for i, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				v.Addf(path+".options", "option %d is empty", i)
			}
		}
		if n := len(q.Options); n > 0 && q.Options[n-1] != OtherSentinel {
			v.Addf(path+".options", "last option must be %q, got %q", OtherSentinel, q.Options[n-1])
		}
	}
	return v.OrNil()
}

// AnswerSet maps question text to the selected options. Stored answers never
// contain the "Other" sentinel; the front end resolves it to free text first.
type AnswerSet map[string][]string

// IsOtherChoice reports whether a selected option stands for the free-text
// sentinel. Matching is a case-insensitive substring test, kept bug-for-bug
// with the source pipeline even though options containing the word "other"
// incidentally would also match.
func IsOtherChoice(option string) bool {
	return strings.Contains(strings.ToLower(option), "other")
}
