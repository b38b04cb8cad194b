// Package session implements the keyed phase state store: per-session
// key/value state reconstructed from an append-only event log.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Ref identifies a session by (application scope, user, session id).
type Ref struct {
	Scope string
	User  string
	ID    string
}

func (r Ref) String() string {
	return r.Scope + "/" + r.User + "/" + r.ID
}

// Event is an immutable record of one state delta. Session state at any
// point equals the initial snapshot folded with all deltas in event order.
type Event struct {
	ID        string                     `json:"id"`
	Author    string                     `json:"author"`
	Timestamp time.Time                  `json:"timestamp"`
	Delta     map[string]json.RawMessage `json:"delta"`
}

// Session is a snapshot of one workflow run. Stores hand out deep copies;
// mutating a returned session never touches stored state.
type Session struct {
	Ref    Ref
	State  map[string]json.RawMessage
	Events []Event
}

// Get unmarshals a state value into v.
func (s *Session) Get(key string, v any) error {
	raw, ok := s.State[key]
	if !ok {
		return fmt.Errorf("session %s: state key %q not set", s.Ref, key)
	}
	return json.Unmarshal(raw, v)
}

// Has reports whether a state key is set.
func (s *Session) Has(key string) bool {
	_, ok := s.State[key]
	return ok
}

// Store is the phase state store contract. Appends for one session are
// serialized (at most one writer in flight per session); operations on
// different sessions proceed concurrently.
type Store interface {
	// Create registers a new session with the given initial state.
	// Fails with *DuplicateSessionError when the ref already exists.
	Create(ctx context.Context, ref Ref, initial map[string]json.RawMessage) (*Session, error)

	// Get returns a snapshot of the session, or *NotFoundError.
	Get(ctx context.Context, ref Ref) (*Session, error)

	// AppendEvent atomically merges the delta into state (shallow key
	// overwrite) and appends the event record. Prior events are never
	// reordered or rewritten.
	AppendEvent(ctx context.Context, ref Ref, delta map[string]json.RawMessage, author string, ts time.Time) (*Session, error)
}

// NotFoundError reports a lookup of a session that does not exist.
// State-store misuse is fatal; the orchestrator never retries it.
type NotFoundError struct {
	Ref Ref
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.Ref)
}

// DuplicateSessionError reports a Create for a ref that already exists.
type DuplicateSessionError struct {
	Ref Ref
}

func (e *DuplicateSessionError) Error() string {
	return fmt.Sprintf("session %s already exists", e.Ref)
}

// MarshalDelta encodes a map of Go values into a raw delta.
func MarshalDelta(values map[string]any) (map[string]json.RawMessage, error) {
	delta := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal delta key %q: %w", k, err)
		}
		delta[k] = b
	}
	return delta, nil
}

func cloneState(state map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(state))
	for k, v := range state {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

func cloneEvents(events []Event) []Event {
	out := make([]Event, len(events))
	for i, ev := range events {
		out[i] = Event{
			ID:        ev.ID,
			Author:    ev.Author,
			Timestamp: ev.Timestamp,
			Delta:     cloneState(ev.Delta),
		}
	}
	return out
}
