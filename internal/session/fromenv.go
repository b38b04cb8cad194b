package session

import (
	"log"
	"os"
	"strings"
)

// NewStoreFromEnv returns a Postgres-backed store when
// SESSION_STORE_PG_DSN is set and reachable, otherwise the in-memory store.
func NewStoreFromEnv() Store {
	dsn := strings.TrimSpace(os.Getenv("SESSION_STORE_PG_DSN"))
	if dsn == "" {
		return NewMemoryStore()
	}
	s, err := NewPGStore(dsn)
	if err != nil {
		log.Printf("session: postgres store unavailable, using memory store: %v", err)
		return NewMemoryStore()
	}
	return s
}
