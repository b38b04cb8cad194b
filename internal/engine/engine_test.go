package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"designengine/internal/engine"
	"designengine/internal/llmclient"
	"designengine/internal/registry"
	"designengine/internal/render"
	"designengine/internal/schema"
	"designengine/internal/schema/schematest"
	"designengine/internal/session"
)

type recordedNotice struct {
	SessionID string
	State     string
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []recordedNotice
}

func (n *recordingNotifier) Notify(sessionID, state, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, recordedNotice{SessionID: sessionID, State: state})
}

func (n *recordingNotifier) states() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.notices))
	for i, rec := range n.notices {
		out[i] = rec.State
	}
	return out
}

func validInputs() schema.Phase1Inputs {
	return schema.Phase1Inputs{
		ProjectName:       "Inventory System",
		ProjectType:       "Web Application",
		Platform:          "Web",
		Description:       "Track stock levels and purchase orders.",
		CoreFeatures:      []string{"Stock tracking", "Purchase orders", "Low-stock alerts"},
		ExpectedUserScale: "Up to 10k users",
		Constraints:       []string{"Cost", "Security"},
	}
}

func questionsJSON(t *testing.T) string {
	t.Helper()
	return `{
  "questions": [
    {
      "question_text": "Which authentication approach fits best?",
      "type": "multi_choice",
      "options": ["OIDC via company SSO", "Email and password", "Magic links", "API keys only", "SAML", "Other"]
    },
    {
      "question_text": "Where should the system be hosted?",
      "type": "multi_choice",
      "options": ["AWS", "GCP", "Azure", "On-premises", "Hybrid", "Other"]
    }
  ]
}`
}

func designJSON(t *testing.T) string {
	t.Helper()
	raw, err := json.Marshal(schematest.ValidDesign())
	require.NoError(t, err)
	return string(raw)
}

func validAnswers() schema.AnswerSet {
	return schema.AnswerSet{
		"Which authentication approach fits best?": {"OIDC via company SSO"},
		"Where should the system be hosted?":       {"AWS", "Self-hosted colo rack"},
	}
}

type testRig struct {
	engine   *engine.Engine
	client   *llmclient.ScriptedClient
	store    *session.MemoryStore
	registry *registry.Registry
	notifier *recordingNotifier
	docsDir  string
}

func newRig(t *testing.T, replies ...llmclient.ScriptedReply) *testRig {
	t.Helper()
	rig := &testRig{
		client:   llmclient.NewScriptedClient(replies...),
		store:    session.NewMemoryStore(),
		registry: registry.New(),
		notifier: &recordingNotifier{},
		docsDir:  t.TempDir(),
	}
	eng, err := engine.New(engine.Config{
		LLM:          rig.client,
		Store:        rig.store,
		Registry:     rig.registry,
		Renderer:     render.NewDocxRenderer(),
		Notifier:     rig.notifier,
		Retry:        engine.RetryPolicy{MaxAttempts: 5},
		DocumentsDir: rig.docsDir,
	})
	require.NoError(t, err)
	rig.engine = eng
	return rig
}

func (r *testRig) state(t *testing.T, ref session.Ref) engine.State {
	t.Helper()
	sess, err := r.store.Get(context.Background(), ref)
	require.NoError(t, err)
	var s engine.State
	require.NoError(t, sess.Get(engine.KeyWorkflowState, &s))
	return s
}

func TestStartSessionRejectsInvalidInputs(t *testing.T) {
	rig := newRig(t)
	bad := validInputs()
	bad.ProjectType = "Spaceship"

	_, err := rig.engine.StartSession(context.Background(), "design_engine", "alice", bad)
	var v *schema.ValidationError
	require.ErrorAs(t, err, &v)
	require.Zero(t, rig.client.CallCount())
}

func TestFullWorkflowInventorySystem(t *testing.T) {
	ctx := context.Background()
	rig := newRig(t,
		llmclient.ScriptedReply{JSON: questionsJSON(t)},
		llmclient.ScriptedReply{JSON: designJSON(t)},
	)

	ref, err := rig.engine.StartSession(ctx, "design_engine", "alice", validInputs())
	require.NoError(t, err)
	require.NotEmpty(t, ref.ID)

	qs, err := rig.engine.GenerateQuestions(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, 2, qs.Len())
	require.Equal(t, engine.StateAwaitingPhase2Answers, rig.state(t, ref))

	// The asked questions must be answered in full before phase 3.
	require.Error(t, rig.engine.SubmitAnswers(ctx, ref, schema.AnswerSet{
		"Which authentication approach fits best?": {"OIDC via company SSO"},
	}))
	require.NoError(t, rig.engine.SubmitAnswers(ctx, ref, validAnswers()))

	doc, err := rig.engine.GenerateDesign(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, "Inventory System Design", doc.ExecutiveSummary.Title)
	require.Equal(t, engine.StateComplete, rig.state(t, ref))

	// Completed document is registered and rendered.
	entries := rig.engine.Documents("alice")
	require.Len(t, entries, 1)
	require.Equal(t, "Inventory System", entries[0].Project)
	require.Equal(t, filepath.Join(rig.docsDir, "alice", "Inventory_System.docx"), entries[0].Location)

	data, err := os.ReadFile(entries[0].Location)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	require.Equal(t, "PK", string(data[:2]))

	cached, ok := rig.registry.CachedDocument("alice", "Inventory System")
	require.True(t, ok)
	require.Equal(t, doc.ExecutiveSummary.Title, cached.ExecutiveSummary.Title)

	// State transitions were broadcast in order.
	require.Equal(t, []string{
		string(engine.StateAwaitingPhase1),
		string(engine.StateGeneratingPhase2),
		string(engine.StateAwaitingPhase2Answers),
		string(engine.StateAwaitingPhase2Answers),
		string(engine.StateGeneratingPhase3),
		string(engine.StateComplete),
	}, rig.notifier.states())

	// Forward phases run exactly once.
	_, err = rig.engine.GenerateDesign(ctx, ref)
	require.ErrorContains(t, err, "already generated")
	_, err = rig.engine.GenerateQuestions(ctx, ref)
	require.ErrorContains(t, err, "already generated")
}

func TestGenerateQuestionsRetriesUntilFifthAttempt(t *testing.T) {
	ctx := context.Background()
	bad := llmclient.ScriptedReply{JSON: `{"questions": []}`}
	rig := newRig(t, bad, bad, bad, bad, llmclient.ScriptedReply{JSON: questionsJSON(t)})

	ref, err := rig.engine.StartSession(ctx, "design_engine", "alice", validInputs())
	require.NoError(t, err)

	qs, err := rig.engine.GenerateQuestions(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, 2, qs.Len())
	require.Equal(t, 5, rig.client.CallCount())

	// Retry prompts carry the previous failure back to the model.
	calls := rig.client.Calls()
	require.NotContains(t, calls[0].Prompt, "[RETRY]")
	require.Contains(t, calls[4].Prompt, "[RETRY]")
	require.Contains(t, calls[4].Prompt, "questions")
}

func TestGenerateQuestionsAbortsAfterBudgetExhaustion(t *testing.T) {
	ctx := context.Background()
	bad := llmclient.ScriptedReply{JSON: `{"questions": []}`}
	rig := newRig(t, bad, bad, bad, bad, bad)

	ref, err := rig.engine.StartSession(ctx, "design_engine", "alice", validInputs())
	require.NoError(t, err)

	_, err = rig.engine.GenerateQuestions(ctx, ref)
	var v *schema.ValidationError
	require.ErrorAs(t, err, &v)
	require.Equal(t, 5, rig.client.CallCount())
	require.Equal(t, engine.StateAborted, rig.state(t, ref))

	sess, getErr := rig.store.Get(ctx, ref)
	require.NoError(t, getErr)
	var reason string
	require.NoError(t, sess.Get(engine.KeyAbortReason, &reason))
	require.Contains(t, reason, "after 5 attempts")

	// An aborted session accepts no further work.
	_, err = rig.engine.GenerateDesign(ctx, ref)
	require.Error(t, err)
}

func TestGenerateQuestionsFatalErrorDoesNotRetry(t *testing.T) {
	ctx := context.Background()
	fatal := errors.New("backend unreachable")
	rig := newRig(t, llmclient.ScriptedReply{Err: fatal})

	ref, err := rig.engine.StartSession(ctx, "design_engine", "alice", validInputs())
	require.NoError(t, err)

	_, err = rig.engine.GenerateQuestions(ctx, ref)
	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, rig.client.CallCount())
	require.Equal(t, engine.StateAborted, rig.state(t, ref))
}

func TestSubmitAnswersGates(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*testRig, session.Ref) {
		rig := newRig(t, llmclient.ScriptedReply{JSON: questionsJSON(t)})
		ref, err := rig.engine.StartSession(ctx, "design_engine", "alice", validInputs())
		require.NoError(t, err)
		_, err = rig.engine.GenerateQuestions(ctx, ref)
		require.NoError(t, err)
		return rig, ref
	}

	t.Run("unresolved other selection", func(t *testing.T) {
		rig, ref := setup(t)
		answers := validAnswers()
		answers["Where should the system be hosted?"] = []string{"Other"}
		err := rig.engine.SubmitAnswers(ctx, ref, answers)
		var v *schema.ValidationError
		require.ErrorAs(t, err, &v)
		require.Contains(t, v.Error(), "free text")
	})

	t.Run("empty selection", func(t *testing.T) {
		rig, ref := setup(t)
		answers := validAnswers()
		answers["Where should the system be hosted?"] = nil
		require.Error(t, rig.engine.SubmitAnswers(ctx, ref, answers))
	})

	t.Run("answer to unasked question", func(t *testing.T) {
		rig, ref := setup(t)
		answers := validAnswers()
		answers["What color is the bikeshed?"] = []string{"Blue"}
		err := rig.engine.SubmitAnswers(ctx, ref, answers)
		var v *schema.ValidationError
		require.ErrorAs(t, err, &v)
	})

	t.Run("free text replaces the catch-all", func(t *testing.T) {
		rig, ref := setup(t)
		answers := validAnswers()
		answers["Where should the system be hosted?"] = []string{"Raspberry Pi cluster in the office"}
		require.NoError(t, rig.engine.SubmitAnswers(ctx, ref, answers))
	})

	t.Run("design requires answers", func(t *testing.T) {
		rig, ref := setup(t)
		_, err := rig.engine.GenerateDesign(ctx, ref)
		require.ErrorContains(t, err, "answers not submitted")
	})
}

func TestRefineDesignReplacesDocument(t *testing.T) {
	ctx := context.Background()

	refined := schematest.ValidDesign()
	refined.ExecutiveSummary.Purpose = "Track stock levels with multi-warehouse support."
	refinedJSON, err := json.Marshal(refined)
	require.NoError(t, err)

	rig := newRig(t,
		llmclient.ScriptedReply{JSON: questionsJSON(t)},
		llmclient.ScriptedReply{JSON: designJSON(t)},
		llmclient.ScriptedReply{JSON: string(refinedJSON)},
	)

	ref, err := rig.engine.StartSession(ctx, "design_engine", "alice", validInputs())
	require.NoError(t, err)
	_, err = rig.engine.GenerateQuestions(ctx, ref)
	require.NoError(t, err)
	require.NoError(t, rig.engine.SubmitAnswers(ctx, ref, validAnswers()))
	_, err = rig.engine.GenerateDesign(ctx, ref)
	require.NoError(t, err)

	doc, err := rig.engine.RefineDesign(ctx, ref, "Please account for multiple warehouses.")
	require.NoError(t, err)
	require.Contains(t, doc.ExecutiveSummary.Purpose, "multi-warehouse")
	require.Equal(t, engine.StateComplete, rig.state(t, ref))

	// The refined document fully replaces the stored one.
	sess, err := rig.store.Get(ctx, ref)
	require.NoError(t, err)
	var stored schema.Phase3SystemDesign
	require.NoError(t, sess.Get(engine.KeyPhase3Design, &stored))
	require.Contains(t, stored.ExecutiveSummary.Purpose, "multi-warehouse")

	// The refinement input carried the prior design and the feedback.
	calls := rig.client.Calls()
	input, ok := calls[len(calls)-1].Input.(map[string]any)
	require.True(t, ok)
	require.Contains(t, input, engine.KeyPhase3Design)
	require.Equal(t, "Please account for multiple warehouses.", input["latest_feedback"])

	// Refinement does not add a second registry entry.
	require.Len(t, rig.engine.Documents("alice"), 1)
}

func TestRefineDesignFailureKeepsPreviousDocument(t *testing.T) {
	ctx := context.Background()
	bad := llmclient.ScriptedReply{JSON: `{"executive_summary": {}}`}
	rig := newRig(t,
		llmclient.ScriptedReply{JSON: questionsJSON(t)},
		llmclient.ScriptedReply{JSON: designJSON(t)},
		bad, bad, bad, bad, bad,
	)

	ref, err := rig.engine.StartSession(ctx, "design_engine", "alice", validInputs())
	require.NoError(t, err)
	_, err = rig.engine.GenerateQuestions(ctx, ref)
	require.NoError(t, err)
	require.NoError(t, rig.engine.SubmitAnswers(ctx, ref, validAnswers()))
	_, err = rig.engine.GenerateDesign(ctx, ref)
	require.NoError(t, err)

	_, err = rig.engine.RefineDesign(ctx, ref, "Make it worse, apparently.")
	require.Error(t, err)
	require.Equal(t, engine.StateComplete, rig.state(t, ref))

	sess, err := rig.store.Get(ctx, ref)
	require.NoError(t, err)
	var stored schema.Phase3SystemDesign
	require.NoError(t, sess.Get(engine.KeyPhase3Design, &stored))
	require.Equal(t, "Inventory System Design", stored.ExecutiveSummary.Title)
}

func TestRefineDesignRejectsEmptyFeedback(t *testing.T) {
	rig := newRig(t)
	ref := session.Ref{Scope: "design_engine", User: "alice", ID: "missing"}
	_, err := rig.engine.RefineDesign(context.Background(), ref, "   ")
	require.ErrorContains(t, err, "empty feedback")
}

func TestWorkflowEventLogRecordsAuthors(t *testing.T) {
	ctx := context.Background()
	rig := newRig(t,
		llmclient.ScriptedReply{JSON: questionsJSON(t)},
		llmclient.ScriptedReply{JSON: designJSON(t)},
	)

	ref, err := rig.engine.StartSession(ctx, "design_engine", "alice", validInputs())
	require.NoError(t, err)
	_, err = rig.engine.GenerateQuestions(ctx, ref)
	require.NoError(t, err)
	require.NoError(t, rig.engine.SubmitAnswers(ctx, ref, validAnswers()))
	_, err = rig.engine.GenerateDesign(ctx, ref)
	require.NoError(t, err)

	sess, err := rig.store.Get(ctx, ref)
	require.NoError(t, err)

	var sawUser, sawOrchestrator bool
	for _, ev := range sess.Events {
		require.NotEmpty(t, ev.ID)
		switch ev.Author {
		case engine.AuthorUser:
			sawUser = true
			require.Contains(t, ev.Delta, engine.KeyPhase2Answers)
		case engine.AuthorOrchestrator:
			sawOrchestrator = true
		}
	}
	require.True(t, sawUser)
	require.True(t, sawOrchestrator)
}
