package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func sixOptions(prefix string) []string {
	return []string{prefix + " A", prefix + " B", prefix + " C", prefix + " D", prefix + " E", "Other"}
}

func TestQuestionSetMarshalPreservesOrder(t *testing.T) {
	qs := NewQuestionSet()
	qs.Set("Zulu?", Question{Type: QuestionTypeMultiChoice, Options: sixOptions("z")})
	qs.Set("Alpha?", Question{Type: QuestionTypeMultiChoice, Options: sixOptions("a")})
	qs.Set("Mike?", Question{Type: QuestionTypeMultiChoice, Options: sixOptions("m")})

	data, err := json.Marshal(qs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	zi := strings.Index(s, "Zulu?")
	ai := strings.Index(s, "Alpha?")
	mi := strings.Index(s, "Mike?")
	if zi < 0 || ai < 0 || mi < 0 {
		t.Fatalf("missing question in output: %s", s)
	}
	if !(zi < ai && ai < mi) {
		t.Fatalf("insertion order lost: %s", s)
	}
}

func TestQuestionSetUnmarshalRoundTrip(t *testing.T) {
	qs := NewQuestionSet()
	qs.Set("First?", Question{Type: QuestionTypeMultiChoice, Options: sixOptions("f")})
	qs.Set("Second?", Question{Type: QuestionTypeMultiChoice, Options: sixOptions("s")})

	data, err := json.Marshal(qs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := NewQuestionSet()
	if err := json.Unmarshal(data, got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("expected 2 questions, got %d", got.Len())
	}
	texts := got.Texts()
	if texts[0] != "First?" || texts[1] != "Second?" {
		t.Fatalf("order changed: %v", texts)
	}
	q, ok := got.Get("Second?")
	if !ok || len(q.Options) != 6 {
		t.Fatalf("question lost in round trip: %+v", q)
	}
}

func TestQuestionSetUnmarshalRejectsUnknownTopLevelKey(t *testing.T) {
	raw := `{"questions":{},"extra":1}`
	if err := json.Unmarshal([]byte(raw), NewQuestionSet()); err == nil {
		t.Fatal("expected error for unknown top-level key")
	}
}

func TestQuestionSetDuplicateKeepsFirstPosition(t *testing.T) {
	qs := NewQuestionSet()
	qs.Set("Dup?", Question{Type: QuestionTypeMultiChoice, Options: sixOptions("one")})
	qs.Set("Solo?", Question{Type: QuestionTypeMultiChoice, Options: sixOptions("solo")})
	qs.Set("Dup?", Question{Type: QuestionTypeMultiChoice, Options: sixOptions("two")})

	if qs.Len() != 2 {
		t.Fatalf("expected 2 questions, got %d", qs.Len())
	}
	if qs.Texts()[0] != "Dup?" {
		t.Fatalf("duplicate lost its original position: %v", qs.Texts())
	}
	q, _ := qs.Get("Dup?")
	if q.Options[0] != "two A" {
		t.Fatalf("last write should win for the value, got %v", q.Options)
	}
}

func TestValidateQuestionSet(t *testing.T) {
	valid := func() *QuestionSet {
		qs := NewQuestionSet()
		qs.Set("Which auth?", Question{Type: QuestionTypeMultiChoice, Options: sixOptions("auth")})
		return qs
	}

	if err := ValidateQuestionSet(valid()); err != nil {
		t.Fatalf("valid set rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*QuestionSet)
	}{
		{"empty set", func(qs *QuestionSet) { *qs = *NewQuestionSet() }},
		{"wrong type", func(qs *QuestionSet) {
			qs.Set("Which auth?", Question{Type: "single_choice", Options: sixOptions("auth")})
		}},
		{"five options", func(qs *QuestionSet) {
			qs.Set("Which auth?", Question{Type: QuestionTypeMultiChoice, Options: sixOptions("auth")[:5]})
		}},
		{"last not Other", func(qs *QuestionSet) {
			opts := sixOptions("auth")
			opts[5] = "None"
			qs.Set("Which auth?", Question{Type: QuestionTypeMultiChoice, Options: opts})
		}},
		{"blank option", func(qs *QuestionSet) {
			opts := sixOptions("auth")
			opts[2] = "  "
			qs.Set("Which auth?", Question{Type: QuestionTypeMultiChoice, Options: opts})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			qs := valid()
			tc.mutate(qs)
			err := ValidateQuestionSet(qs)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var v *ValidationError
			if !errors.As(err, &v) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestIsOtherChoice(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"Other", true},
		{"other", true},
		{"OTHER (please specify)", true},
		{"Brotherhood auth", true}, // substring match, known quirk
		{"None", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsOtherChoice(tc.in); got != tc.want {
			t.Errorf("IsOtherChoice(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
