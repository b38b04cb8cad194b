// Package engine drives the phased design workflow: requirement intake,
// clarification question generation, system design generation, and
// feedback-driven refinement. Every generation step runs under the retry
// policy and persists its result as a session event before it is observable.
package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"designengine/internal/llmclient"
	"designengine/internal/normalize"
	"designengine/internal/prompt"
	"designengine/internal/registry"
	"designengine/internal/render"
	"designengine/internal/schema"
	"designengine/internal/session"
)

// Author labels on session events, mirroring who produced the delta.
const (
	AuthorUser         = "user"
	AuthorOrchestrator = "orchestrator"
)

// Notifier receives phase transition notices. Implementations must not
// block; the orchestrator calls them inline.
type Notifier interface {
	Notify(sessionID, state, detail string)
}

// Archiver uploads rendered documents to durable storage. Archival is best
// effort; a failed upload never fails the workflow.
type Archiver interface {
	Put(ctx context.Context, user, project string, content []byte) (string, error)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, string) {}

// Config wires an Engine. LLM and Store are required; the rest default to
// inert implementations.
type Config struct {
	LLM      llmclient.Client
	Store    session.Store
	Registry *registry.Registry
	Renderer render.Renderer
	Notifier Notifier
	Archive  Archiver
	Retry    RetryPolicy

	// DocumentsDir is where rendered documents land, laid out as
	// <dir>/<user>/<project>.docx. Empty disables rendering.
	DocumentsDir string
}

// Engine is the phase orchestrator. It is safe for concurrent use; writer
// serialization per session is delegated to the Store.
type Engine struct {
	llm      llmclient.Client
	store    session.Store
	registry *registry.Registry
	renderer render.Renderer
	notifier Notifier
	archive  Archiver
	retry    RetryPolicy
	docsDir  string
}

func New(cfg Config) (*Engine, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("engine: LLM client is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine: session store is required")
	}
	e := &Engine{
		llm:      cfg.LLM,
		store:    cfg.Store,
		registry: cfg.Registry,
		renderer: cfg.Renderer,
		notifier: cfg.Notifier,
		archive:  cfg.Archive,
		retry:    cfg.Retry,
		docsDir:  cfg.DocumentsDir,
	}
	if e.notifier == nil {
		e.notifier = nopNotifier{}
	}
	if e.retry.MaxAttempts == 0 {
		e.retry = DefaultRetryPolicy()
	}
	return e, nil
}

// StartSession validates the collected requirements and opens a session
// holding them. The session starts ready for question generation.
func (e *Engine) StartSession(ctx context.Context, scope, user string, in schema.Phase1Inputs) (session.Ref, error) {
	if err := schema.ValidatePhase1(in); err != nil {
		return session.Ref{}, err
	}
	ref := session.Ref{Scope: scope, User: user, ID: uuid.NewString()}
	initial, err := session.MarshalDelta(map[string]any{
		KeyWorkflowState: StateAwaitingPhase1,
		KeyPhase1Inputs:  in,
	})
	if err != nil {
		return session.Ref{}, err
	}
	if _, err := e.store.Create(ctx, ref, initial); err != nil {
		return session.Ref{}, err
	}
	e.notifier.Notify(ref.ID, string(StateAwaitingPhase1), "session created")
	return ref, nil
}

// GenerateQuestions runs the phase-2 generation loop: prompt, normalize,
// validate, with feedback-carrying retries. On success the question set and
// the AwaitingPhase2Answers state land in a single event.
func (e *Engine) GenerateQuestions(ctx context.Context, ref session.Ref) (*schema.QuestionSet, error) {
	sess, err := e.store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	state, err := currentState(sess)
	if err != nil {
		return nil, err
	}
	if sess.Has(KeyPhase2Questions) {
		return nil, fmt.Errorf("engine: session %s: questions already generated", ref)
	}
	if !state.CanTransition(StateGeneratingPhase2) {
		return nil, invalidTransition(ref, state, StateGeneratingPhase2)
	}
	var inputs schema.Phase1Inputs
	if err := sess.Get(KeyPhase1Inputs, &inputs); err != nil {
		return nil, err
	}
	if err := e.setState(ctx, ref, StateGeneratingPhase2, "generating clarification questions"); err != nil {
		return nil, err
	}

	var qs *schema.QuestionSet
	attempts, err := e.retry.Do(ctx, func(ctx context.Context, attempt int, lastErr error) error {
		raw, genErr := e.llm.GenerateJSON(ctx, prompt.Phase2(attempt, lastErr), map[string]any{
			KeyPhase1Inputs: inputs,
		})
		if genErr != nil {
			return genErr
		}
		normalized, normErr := normalize.Normalize(raw)
		if normErr != nil {
			return normErr
		}
		if valErr := schema.ValidateQuestionSet(normalized); valErr != nil {
			return valErr
		}
		qs = normalized
		return nil
	})
	if err != nil {
		return nil, e.abort(ctx, ref, fmt.Sprintf("question generation failed after %d attempts: %v", attempts, err), err)
	}

	if err := e.append(ctx, ref, AuthorOrchestrator, map[string]any{
		KeyPhase2Questions: qs,
		KeyWorkflowState:   StateAwaitingPhase2Answers,
	}); err != nil {
		return nil, err
	}
	e.notifier.Notify(ref.ID, string(StateAwaitingPhase2Answers), fmt.Sprintf("%d questions ready", qs.Len()))
	return qs, nil
}

// SubmitAnswers records the user's answers once they cover every asked
// question. Selections that still carry the literal "Other" option are
// rejected; callers must substitute free text before submitting.
func (e *Engine) SubmitAnswers(ctx context.Context, ref session.Ref, answers schema.AnswerSet) error {
	sess, err := e.store.Get(ctx, ref)
	if err != nil {
		return err
	}
	state, err := currentState(sess)
	if err != nil {
		return err
	}
	if state != StateAwaitingPhase2Answers {
		return invalidTransition(ref, state, StateGeneratingPhase3)
	}
	var qs schema.QuestionSet
	if err := sess.Get(KeyPhase2Questions, &qs); err != nil {
		return fmt.Errorf("engine: session %s: no questions to answer: %w", ref, err)
	}
	if err := checkAnswers(&qs, answers); err != nil {
		return err
	}
	if err := e.append(ctx, ref, AuthorUser, map[string]any{
		KeyPhase2Answers:     answers,
		KeyPhase2CompletedAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}
	e.notifier.Notify(ref.ID, string(StateAwaitingPhase2Answers), "answers recorded")
	return nil
}

// checkAnswers enforces the completeness gate: the answered set must equal
// the asked set, every selected option must belong to its question, and no
// unresolved "Other" selection may remain.
func checkAnswers(qs *schema.QuestionSet, answers schema.AnswerSet) error {
	v := &schema.ValidationError{}
	for _, text := range qs.Texts() {
		selections, ok := answers[text]
		if !ok {
			v.Addf(text, "question not answered")
			continue
		}
		if len(selections) == 0 {
			v.Addf(text, "empty selection")
			continue
		}
		q, _ := qs.Get(text)
		for _, sel := range selections {
			if containsString(q.Options, sel) {
				if schema.IsOtherChoice(sel) {
					v.Addf(text, "selection %q must be replaced with free text", sel)
				}
				continue
			}
			// Free text standing in for the catch-all option.
		}
	}
	extras := make([]string, 0)
	for text := range answers {
		if _, ok := qs.Get(text); !ok {
			extras = append(extras, text)
		}
	}
	sort.Strings(extras)
	for _, text := range extras {
		v.Addf(text, "answer does not match any asked question")
	}
	return v.OrNil()
}

// GenerateDesign runs the phase-3 generation loop against the recorded
// inputs and answers, persists the validated document, registers it, and
// renders it when a documents directory is configured.
func (e *Engine) GenerateDesign(ctx context.Context, ref session.Ref) (*schema.Phase3SystemDesign, error) {
	sess, err := e.store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	state, err := currentState(sess)
	if err != nil {
		return nil, err
	}
	if sess.Has(KeyPhase3Design) {
		return nil, fmt.Errorf("engine: session %s: design already generated", ref)
	}
	if !sess.Has(KeyPhase2Answers) {
		return nil, fmt.Errorf("engine: session %s: answers not submitted", ref)
	}
	if !state.CanTransition(StateGeneratingPhase3) {
		return nil, invalidTransition(ref, state, StateGeneratingPhase3)
	}
	var inputs schema.Phase1Inputs
	if err := sess.Get(KeyPhase1Inputs, &inputs); err != nil {
		return nil, err
	}
	var answers schema.AnswerSet
	if err := sess.Get(KeyPhase2Answers, &answers); err != nil {
		return nil, err
	}
	if err := e.setState(ctx, ref, StateGeneratingPhase3, "generating system design"); err != nil {
		return nil, err
	}

	var doc *schema.Phase3SystemDesign
	attempts, err := e.retry.Do(ctx, func(ctx context.Context, attempt int, lastErr error) error {
		raw, genErr := e.llm.GenerateJSON(ctx, prompt.Phase3(attempt, lastErr), map[string]any{
			KeyPhase1Inputs:  inputs,
			KeyPhase2Answers: answers,
		})
		if genErr != nil {
			return genErr
		}
		validated, valErr := schema.ValidateDesign(raw)
		if valErr != nil {
			return valErr
		}
		doc = validated
		return nil
	})
	if err != nil {
		return nil, e.abort(ctx, ref, fmt.Sprintf("design generation failed after %d attempts: %v", attempts, err), err)
	}
	if missing := schema.CheckDiagramConsistency(doc); len(missing) > 0 {
		log.Printf("[engine] session %s: diagrams omit: %s", ref, strings.Join(missing, ", "))
	}

	if err := e.append(ctx, ref, AuthorOrchestrator, map[string]any{
		KeyPhase3Design:      doc,
		KeyPhase3CompletedAt: time.Now().UTC().Format(time.RFC3339),
		KeyWorkflowState:     StateComplete,
	}); err != nil {
		return nil, err
	}
	e.notifier.Notify(ref.ID, string(StateComplete), "system design ready")

	dest := e.record(ref, inputs.ProjectName, doc)
	if dest != "" && e.renderer != nil {
		if err := e.renderer.Render(doc, dest); err != nil {
			// Generation succeeded; surface the render failure alongside
			// the intact document so the caller can retry rendering alone.
			return doc, err
		}
		e.archiveDocument(ctx, ref.User, inputs.ProjectName, dest)
	}
	return doc, nil
}

// RefineDesign regenerates the design document from the current one plus
// free-form feedback. The replacement is wholesale: the new document fully
// supersedes the old in session state and in the rendered output.
func (e *Engine) RefineDesign(ctx context.Context, ref session.Ref, feedback string) (*schema.Phase3SystemDesign, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, fmt.Errorf("engine: session %s: empty feedback", ref)
	}
	sess, err := e.store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	state, err := currentState(sess)
	if err != nil {
		return nil, err
	}
	if !state.CanTransition(StateRefiningPhase3) {
		return nil, invalidTransition(ref, state, StateRefiningPhase3)
	}
	var current schema.Phase3SystemDesign
	if err := sess.Get(KeyPhase3Design, &current); err != nil {
		return nil, fmt.Errorf("engine: session %s: no design to refine: %w", ref, err)
	}
	var inputs schema.Phase1Inputs
	if err := sess.Get(KeyPhase1Inputs, &inputs); err != nil {
		return nil, err
	}
	if err := e.setState(ctx, ref, StateRefiningPhase3, "refining system design"); err != nil {
		return nil, err
	}

	var doc *schema.Phase3SystemDesign
	attempts, err := e.retry.Do(ctx, func(ctx context.Context, attempt int, lastErr error) error {
		raw, genErr := e.llm.GenerateJSON(ctx, prompt.Refine(attempt, lastErr), map[string]any{
			KeyPhase3Design:   current,
			"latest_feedback": feedback,
		})
		if genErr != nil {
			return genErr
		}
		validated, valErr := schema.ValidateDesign(raw)
		if valErr != nil {
			return valErr
		}
		doc = validated
		return nil
	})
	if err != nil {
		// Refinement failure leaves the last good design in place rather
		// than killing the session.
		if stateErr := e.setState(ctx, ref, StateComplete, "refinement failed, previous design kept"); stateErr != nil {
			return nil, stateErr
		}
		return nil, fmt.Errorf("engine: session %s: refinement failed after %d attempts: %w", ref, attempts, err)
	}

	if err := e.append(ctx, ref, AuthorOrchestrator, map[string]any{
		KeyPhase3Design:      doc,
		KeyPhase3CompletedAt: time.Now().UTC().Format(time.RFC3339),
		KeyWorkflowState:     StateComplete,
	}); err != nil {
		return nil, err
	}
	e.notifier.Notify(ref.ID, string(StateComplete), "refined design ready")

	if e.docsDir != "" && e.renderer != nil {
		dest := e.documentPath(ref.User, inputs.ProjectName)
		if err := e.renderer.Render(doc, dest); err != nil {
			return doc, err
		}
		e.archiveDocument(ctx, ref.User, inputs.ProjectName, dest)
	}
	return doc, nil
}

// archiveDocument mirrors a rendered file into the object store when one is
// configured. Failures are logged and swallowed.
func (e *Engine) archiveDocument(ctx context.Context, user, project, dest string) {
	if e.archive == nil {
		return
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		log.Printf("[engine] archive read %s: %v", dest, err)
		return
	}
	if _, err := e.archive.Put(ctx, user, project, data); err != nil {
		log.Printf("[engine] archive upload %s/%s: %v", user, project, err)
	}
}

// Session returns a snapshot of a session for read access.
func (e *Engine) Session(ctx context.Context, ref session.Ref) (*session.Session, error) {
	return e.store.Get(ctx, ref)
}

// Documents lists the completed design documents recorded for a user.
func (e *Engine) Documents(user string) []registry.Entry {
	if e.registry == nil {
		return nil
	}
	return e.registry.ListByUser(user)
}

// record registers the completed document and returns its render path, or ""
// when rendering is disabled.
func (e *Engine) record(ref session.Ref, project string, doc *schema.Phase3SystemDesign) string {
	dest := ""
	if e.docsDir != "" {
		dest = e.documentPath(ref.User, project)
	}
	if e.registry != nil {
		e.registry.Append(registry.Entry{
			User:        ref.User,
			Project:     project,
			Location:    dest,
			CompletedAt: time.Now().UTC(),
		})
		e.registry.CacheDocument(ref.User, project, doc)
	}
	return dest
}

func (e *Engine) documentPath(user, project string) string {
	return filepath.Join(e.docsDir, sanitizePathPart(user), sanitizePathPart(project)+".docx")
}

// sanitizePathPart keeps user and project names from escaping the documents
// directory or producing unportable file names.
func sanitizePathPart(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		default:
			// drop
		}
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return strings.Trim(b.String(), ".")
}

// abort moves the session to the terminal Aborted state, recording why.
// The original failure is returned to the caller untouched.
func (e *Engine) abort(ctx context.Context, ref session.Ref, reason string, cause error) error {
	if appendErr := e.append(ctx, ref, AuthorOrchestrator, map[string]any{
		KeyWorkflowState: StateAborted,
		KeyAbortReason:   reason,
	}); appendErr != nil {
		log.Printf("[engine] session %s: abort bookkeeping failed: %v", ref, appendErr)
	}
	e.notifier.Notify(ref.ID, string(StateAborted), reason)
	return cause
}

func (e *Engine) setState(ctx context.Context, ref session.Ref, next State, detail string) error {
	if err := e.append(ctx, ref, AuthorOrchestrator, map[string]any{
		KeyWorkflowState: next,
	}); err != nil {
		return err
	}
	e.notifier.Notify(ref.ID, string(next), detail)
	return nil
}

func (e *Engine) append(ctx context.Context, ref session.Ref, author string, values map[string]any) error {
	delta, err := session.MarshalDelta(values)
	if err != nil {
		return err
	}
	_, err = e.store.AppendEvent(ctx, ref, delta, author, time.Now().UTC())
	return err
}

func currentState(sess *session.Session) (State, error) {
	var s State
	if err := sess.Get(KeyWorkflowState, &s); err != nil {
		return "", err
	}
	return s, nil
}

func invalidTransition(ref session.Ref, from, to State) error {
	return fmt.Errorf("engine: session %s: cannot move from %s to %s", ref, from, to)
}

func containsString(items []string, v string) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}
