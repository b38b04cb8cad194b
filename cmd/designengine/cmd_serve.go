package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"designengine/internal/config"
	"designengine/internal/engine"
	"designengine/internal/llmclient"
	"designengine/internal/registry"
	"designengine/internal/render"
	"designengine/internal/server"
	"designengine/internal/session"
	"designengine/internal/watch"
)

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	ctx := context.Background()
	if cfg.Gemini.APIKey != "" {
		_ = os.Setenv("GEMINI_API_KEY", cfg.Gemini.APIKey)
	}
	llm, err := llmclient.NewGeminiClient(ctx, cfg.Gemini.Model)
	if err != nil {
		return err
	}
	defer llm.Close()

	hub := watch.NewHub()
	var archive engine.Archiver
	if cfg.Artifact.Enabled {
		s3, err := registry.NewS3Store(registry.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err != nil {
			return err
		}
		archive = s3
	}
	eng, err := engine.New(engine.Config{
		LLM:          llm,
		Store:        session.NewStoreFromEnv(),
		Registry:     registry.New(),
		Renderer:     render.NewDocxRenderer(),
		Notifier:     hub,
		Archive:      archive,
		Retry:        engine.DefaultRetryPolicy(),
		DocumentsDir: cfg.DocumentsDir,
	})
	if err != nil {
		return err
	}

	e := server.New(eng, hub, cfg.Scope)
	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: h2c.NewHandler(e, &http2.Server{}),
	}

	go func() {
		log.Printf("listening on %s (env=%s)", cfg.Port, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
