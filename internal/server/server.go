// Package server exposes the design workflow over HTTP.
package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"designengine/internal/engine"
	"designengine/internal/watch"
)

// New builds the echo instance with all routes registered.
func New(eng *engine.Engine, hub *watch.Hub, scope string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	h := &Handler{engine: eng, hub: hub, scope: scope}

	e.GET("/health", h.Health)
	e.POST("/v1/projects", h.CreateProject)
	e.GET("/v1/sessions/:id/questions", h.GetQuestions)
	e.POST("/v1/sessions/:id/answers", h.SubmitAnswers)
	e.POST("/v1/sessions/:id/design", h.GenerateDesign)
	e.POST("/v1/sessions/:id/feedback", h.SubmitFeedback)
	e.GET("/v1/sessions/:id/watch", h.WatchSession)
	e.GET("/v1/users/:user/documents", h.ListDocuments)

	return e
}
