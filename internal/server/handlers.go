package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"designengine/internal/engine"
	"designengine/internal/normalize"
	"designengine/internal/render"
	"designengine/internal/schema"
	"designengine/internal/session"
	"designengine/internal/watch"
)

// Handler serves the workflow API. Sessions are addressed by
// (configured scope, user, session id); the user rides along as the `user`
// query parameter on session routes.
type Handler struct {
	engine *engine.Engine
	hub    *watch.Hub
	scope  string
}

// CreateProjectRequest carries the phase-1 inputs plus the owning user.
type CreateProjectRequest struct {
	User              string   `json:"user"`
	ProjectName       string   `json:"project_name"`
	ProjectType       string   `json:"project_type"`
	Platform          string   `json:"platform"`
	Description       string   `json:"description"`
	CoreFeatures      []string `json:"core_features"`
	ExpectedUserScale string   `json:"expected_user_scale"`
	Constraints       []string `json:"constraints"`
}

// CreateProject opens a session and generates the clarification questions.
// POST /v1/projects
func (h *Handler) CreateProject(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.User) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user is required"})
	}

	inputs := schema.Phase1Inputs{
		ProjectName:       req.ProjectName,
		ProjectType:       req.ProjectType,
		Platform:          req.Platform,
		Description:       req.Description,
		CoreFeatures:      req.CoreFeatures,
		ExpectedUserScale: req.ExpectedUserScale,
		Constraints:       req.Constraints,
	}
	ref, err := h.engine.StartSession(ctx, h.scope, req.User, inputs)
	if err != nil {
		return writeError(c, err)
	}

	questions, err := h.engine.GenerateQuestions(ctx, ref)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"session_id": ref.ID,
		"user":       ref.User,
		"questions":  questions,
	})
}

// GetQuestions returns the generated clarification questions.
// GET /v1/sessions/:id/questions
func (h *Handler) GetQuestions(c echo.Context) error {
	ctx := c.Request().Context()
	ref, err := h.sessionRef(c)
	if err != nil {
		return writeError(c, err)
	}

	sess, err := h.engine.Session(ctx, ref)
	if err != nil {
		return writeError(c, err)
	}
	var qs schema.QuestionSet
	if err := sess.Get(engine.KeyPhase2Questions, &qs); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": "questions not generated yet"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session_id": ref.ID,
		"questions":  &qs,
	})
}

// SubmitAnswersRequest maps each question's text to the selected options.
// Selections of the catch-all option must already be replaced by free text.
type SubmitAnswersRequest struct {
	Answers schema.AnswerSet `json:"answers"`
}

// SubmitAnswers records the user's answers once complete.
// POST /v1/sessions/:id/answers
func (h *Handler) SubmitAnswers(c echo.Context) error {
	ctx := c.Request().Context()
	ref, err := h.sessionRef(c)
	if err != nil {
		return writeError(c, err)
	}

	var req SubmitAnswersRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := h.engine.SubmitAnswers(ctx, ref, req.Answers); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// GenerateDesign triggers phase 3 and returns the validated document.
// POST /v1/sessions/:id/design
func (h *Handler) GenerateDesign(c echo.Context) error {
	ctx := c.Request().Context()
	ref, err := h.sessionRef(c)
	if err != nil {
		return writeError(c, err)
	}

	doc, err := h.engine.GenerateDesign(ctx, ref)
	if err != nil {
		var renderErr *render.RenderError
		if errors.As(err, &renderErr) && doc != nil {
			// The document exists; only the file write failed.
			log.Printf("ERROR: render failed for session %s: %v", ref, err)
			return c.JSON(http.StatusOK, map[string]any{
				"session_id":   ref.ID,
				"design":       doc,
				"render_error": renderErr.Error(),
			})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session_id": ref.ID,
		"design":     doc,
	})
}

// SubmitFeedbackRequest carries free-form refinement feedback.
type SubmitFeedbackRequest struct {
	Feedback string `json:"feedback"`
}

// SubmitFeedback regenerates the design from the feedback.
// POST /v1/sessions/:id/feedback
func (h *Handler) SubmitFeedback(c echo.Context) error {
	ctx := c.Request().Context()
	ref, err := h.sessionRef(c)
	if err != nil {
		return writeError(c, err)
	}

	var req SubmitFeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	doc, err := h.engine.RefineDesign(ctx, ref, req.Feedback)
	if err != nil {
		var renderErr *render.RenderError
		if errors.As(err, &renderErr) && doc != nil {
			log.Printf("ERROR: render failed for session %s: %v", ref, err)
			return c.JSON(http.StatusOK, map[string]any{
				"session_id":   ref.ID,
				"design":       doc,
				"render_error": renderErr.Error(),
			})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session_id": ref.ID,
		"design":     doc,
	})
}

// WatchSession streams phase transition events over a websocket.
// GET /v1/sessions/:id/watch
func (h *Handler) WatchSession(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session id is required"})
	}
	h.hub.ServeWS(c.Response(), c.Request(), id)
	return nil
}

// ListDocuments lists the completed documents for a user.
// GET /v1/users/:user/documents
func (h *Handler) ListDocuments(c echo.Context) error {
	user := strings.TrimSpace(c.Param("user"))
	if user == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user is required"})
	}
	entries := h.engine.Documents(user)
	return c.JSON(http.StatusOK, map[string]any{
		"user":      user,
		"documents": entries,
	})
}

// Health reports liveness.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) sessionRef(c echo.Context) (session.Ref, error) {
	id := strings.TrimSpace(c.Param("id"))
	user := strings.TrimSpace(c.QueryParam("user"))
	if id == "" || user == "" {
		return session.Ref{}, echo.NewHTTPError(http.StatusBadRequest, "session id and user are required")
	}
	return session.Ref{Scope: h.scope, User: user, ID: id}, nil
}

// writeError maps workflow errors onto HTTP statuses. Validation-class
// failures are the client's to fix; everything else is a server fault.
func writeError(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	var notFound *session.NotFoundError
	if errors.As(err, &notFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": notFound.Error()})
	}
	var dup *session.DuplicateSessionError
	if errors.As(err, &dup) {
		return c.JSON(http.StatusConflict, map[string]string{"error": dup.Error()})
	}
	var validation *schema.ValidationError
	if errors.As(err, &validation) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"error":      "validation failed",
			"violations": validation.Violations,
		})
	}
	var norm *normalize.NormalizationError
	if errors.As(err, &norm) {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": norm.Error()})
	}
	log.Printf("ERROR: %v", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
