package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process memory. The outer RWMutex guards the
// map; each session carries its own mutex so appends to one session serialize
// without blocking other sessions.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*memorySession
}

type memorySession struct {
	mu     sync.Mutex
	ref    Ref
	state  map[string]json.RawMessage
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*memorySession)}
}

func (s *MemoryStore) Create(_ context.Context, ref Ref, initial map[string]json.RawMessage) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ref.String()
	if _, ok := s.byID[key]; ok {
		return nil, &DuplicateSessionError{Ref: ref}
	}
	ms := &memorySession{ref: ref, state: cloneState(initial)}
	s.byID[key] = ms
	return ms.snapshot(), nil
}

func (s *MemoryStore) Get(_ context.Context, ref Ref) (*Session, error) {
	s.mu.RLock()
	ms, ok := s.byID[ref.String()]
	s.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Ref: ref}
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.snapshot(), nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, ref Ref, delta map[string]json.RawMessage, author string, ts time.Time) (*Session, error) {
	s.mu.RLock()
	ms, ok := s.byID[ref.String()]
	s.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Ref: ref}
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ev := Event{
		ID:        uuid.NewString(),
		Author:    author,
		Timestamp: ts,
		Delta:     cloneState(delta),
	}
	for k, v := range ev.Delta {
		ms.state[k] = v
	}
	ms.events = append(ms.events, ev)
	return ms.snapshot(), nil
}

// snapshot must be called with ms.mu held (Create is the exception: the
// session is not yet visible to other goroutines there).
func (ms *memorySession) snapshot() *Session {
	return &Session{
		Ref:    ms.ref,
		State:  cloneState(ms.state),
		Events: cloneEvents(ms.events),
	}
}
