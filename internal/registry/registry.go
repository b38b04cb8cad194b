// Package registry tracks finished documents per user. It replaces the
// ambient user→projects mapping of the original application with an
// explicit, injected service owned by the application boundary.
package registry

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"designengine/internal/schema"
)

// Entry records one completed design document for a user. Entries are
// append-only; concurrent appends are last-writer-wins, which is fine since
// entries are never removed or rewritten.
type Entry struct {
	User        string    `json:"user"`
	Project     string    `json:"project"`
	Location    string    `json:"location"`
	CompletedAt time.Time `json:"completed_at"`
}

type Registry struct {
	mu     sync.RWMutex
	byUser map[string][]Entry

	docs *lru.Cache[string, *schema.Phase3SystemDesign]
}

func New() *Registry {
	cache, _ := lru.New[string, *schema.Phase3SystemDesign](256)
	return &Registry{
		byUser: make(map[string][]Entry),
		docs:   cache,
	}
}

// Append records a completed document.
func (r *Registry) Append(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[e.User] = append(r.byUser[e.User], e)
}

// ListByUser returns the user's entries in append order.
func (r *Registry) ListByUser(user string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.byUser[user]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// CacheDocument keeps a finalized document available for re-rendering
// without a session-store round trip.
func (r *Registry) CacheDocument(user, project string, doc *schema.Phase3SystemDesign) {
	if r.docs != nil {
		r.docs.Add(docKey(user, project), doc)
	}
}

// CachedDocument returns a previously cached document.
func (r *Registry) CachedDocument(user, project string) (*schema.Phase3SystemDesign, bool) {
	if r.docs == nil {
		return nil, false
	}
	return r.docs.Get(docKey(user, project))
}

func docKey(user, project string) string {
	return user + "/" + project
}
