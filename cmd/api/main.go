package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

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

func main() {
	port := flag.String("port", "", "server port (overrides PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *port != "" {
		cfg.Port = *port
	}

	ctx := context.Background()

	if cfg.Gemini.APIKey != "" {
		// The genai client only reads the key from the environment.
		_ = os.Setenv("GEMINI_API_KEY", cfg.Gemini.APIKey)
	}
	llm, err := llmclient.NewGeminiClient(ctx, cfg.Gemini.Model)
	if err != nil {
		log.Fatalf("gemini client: %v", err)
	}
	defer llm.Close()

	store := session.NewStoreFromEnv()
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
			log.Fatalf("artifact store: %v", err)
		}
		archive = s3
	}

	eng, err := engine.New(engine.Config{
		LLM:          llm,
		Store:        store,
		Registry:     registry.New(),
		Renderer:     render.NewDocxRenderer(),
		Notifier:     hub,
		Archive:      archive,
		Retry:        engine.DefaultRetryPolicy(),
		DocumentsDir: cfg.DocumentsDir,
	})
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	e := server.New(eng, hub, cfg.Scope)

	// h2c so gRPC-style and plain HTTP/1.1 clients share one port.
	h2s := &http2.Server{}
	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: h2c.NewHandler(e, h2s),
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
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
