// Package config loads process configuration from the environment, with a
// .env file overlay for local development.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	Scope string

	Gemini   GeminiConfig
	Session  SessionConfig
	Artifact ArtifactConfig

	// DocumentsDir is the local directory rendered documents are written
	// to, one subdirectory per user. Empty disables rendering.
	DocumentsDir string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type SessionConfig struct {
	// PostgresDSN selects the Postgres-backed session store when set;
	// otherwise sessions live in process memory.
	PostgresDSN string
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load reads the process environment. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port := strings.TrimSpace(os.Getenv("PORT"))
	switch {
	case port == "":
		port = ":8080"
	case !strings.HasPrefix(port, ":"):
		port = ":" + port
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	scope := strings.TrimSpace(os.Getenv("APP_SCOPE"))
	if scope == "" {
		scope = "design_engine"
	}

	docsDir := strings.TrimSpace(os.Getenv("DOCUMENTS_DIR"))
	if docsDir == "" {
		docsDir = "documents"
	}

	return &Config{
		Port:  port,
		Env:   env,
		Scope: scope,
		Gemini: GeminiConfig{
			APIKey: firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_API_KEY")), strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))),
			Model:  strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		},
		Session: SessionConfig{
			PostgresDSN: strings.TrimSpace(os.Getenv("SESSION_STORE_PG_DSN")),
		},
		Artifact:     loadArtifactConfig(env),
		DocumentsDir: docsDir,
	}, nil
}

func loadArtifactConfig(env string) ArtifactConfig {
	endpoint := resolveArtifactEndpoint(env)
	return ArtifactConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "design-engine-documents"),
		UseSSL:    resolveArtifactUseSSL(env),
	}
}

func resolveArtifactEndpoint(env string) string {
	if strings.EqualFold(env, "local") {
		return strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT"))
}

func resolveArtifactUseSSL(env string) bool {
	if strings.EqualFold(env, "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("ARTIFACT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
