package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func testRef(id string) Ref {
	return Ref{Scope: "design_engine", User: "tester", ID: id}
}

func TestMemoryStoreCreateGetRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ref := testRef("s1")

	initial, err := MarshalDelta(map[string]any{"workflow_state": "awaiting_phase_1"})
	if err != nil {
		t.Fatalf("marshal delta: %v", err)
	}
	created, err := store.Create(ctx, ref, initial)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Ref != ref {
		t.Fatalf("ref mismatch: %v", created.Ref)
	}

	got, err := store.Get(ctx, ref)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var state string
	if err := got.Get("workflow_state", &state); err != nil {
		t.Fatalf("state key: %v", err)
	}
	if state != "awaiting_phase_1" {
		t.Fatalf("unexpected state: %q", state)
	}
}

func TestMemoryStoreDuplicateCreate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ref := testRef("s1")

	if _, err := store.Create(ctx, ref, nil); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := store.Create(ctx, ref, nil)
	var dup *DuplicateSessionError
	if !errors.As(err, &dup) {
		t.Fatalf("expected *DuplicateSessionError, got %v", err)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), testRef("nope"))
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
	if _, err := store.AppendEvent(context.Background(), testRef("nope"), nil, "x", time.Now()); !errors.As(err, &nf) {
		t.Fatalf("append on missing session: %v", err)
	}
}

func TestMemoryStoreStateEqualsEventFold(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ref := testRef("s1")

	initial, _ := MarshalDelta(map[string]any{"a": 1})
	if _, err := store.Create(ctx, ref, initial); err != nil {
		t.Fatalf("create: %v", err)
	}
	deltas := []map[string]any{
		{"b": "two"},
		{"a": 10, "c": true},
		{"b": "three"},
	}
	for i, d := range deltas {
		raw, _ := MarshalDelta(d)
		if _, err := store.AppendEvent(ctx, ref, raw, "tester", time.Now()); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := store.Get(ctx, ref)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got.Events))
	}

	// Replaying the deltas over the initial state must reproduce State.
	folded := map[string]json.RawMessage{}
	for k, v := range initial {
		folded[k] = v
	}
	for _, ev := range got.Events {
		for k, v := range ev.Delta {
			folded[k] = v
		}
	}
	if len(folded) != len(got.State) {
		t.Fatalf("fold size mismatch: %d vs %d", len(folded), len(got.State))
	}
	for k, v := range folded {
		if string(got.State[k]) != string(v) {
			t.Fatalf("state[%s] = %s, fold = %s", k, got.State[k], v)
		}
	}
	var b string
	if err := got.Get("b", &b); err != nil || b != "three" {
		t.Fatalf("last write should win: %q %v", b, err)
	}
}

func TestMemoryStoreSnapshotIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ref := testRef("s1")

	initial, _ := MarshalDelta(map[string]any{"k": "v"})
	if _, err := store.Create(ctx, ref, initial); err != nil {
		t.Fatalf("create: %v", err)
	}
	snap, _ := store.Get(ctx, ref)
	snap.State["k"] = json.RawMessage(`"mutated"`)

	fresh, _ := store.Get(ctx, ref)
	var v string
	if err := fresh.Get("k", &v); err != nil || v != "v" {
		t.Fatalf("stored state was mutated through a snapshot: %q %v", v, err)
	}
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ref := testRef("s1")
	if _, err := store.Create(ctx, ref, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	const writers = 8
	const perWriter = 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				delta, _ := MarshalDelta(map[string]any{fmt.Sprintf("w%d", w): i})
				if _, err := store.AppendEvent(ctx, ref, delta, "tester", time.Now()); err != nil {
					t.Errorf("append: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	got, err := store.Get(ctx, ref)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Events) != writers*perWriter {
		t.Fatalf("expected %d events, got %d", writers*perWriter, len(got.Events))
	}
	for w := 0; w < writers; w++ {
		var last int
		if err := got.Get(fmt.Sprintf("w%d", w), &last); err != nil {
			t.Fatalf("writer %d key missing: %v", w, err)
		}
		if last != perWriter-1 {
			t.Fatalf("writer %d: appends reordered, last = %d", w, last)
		}
	}
}

func TestNewStoreFromEnvDefaultsToMemory(t *testing.T) {
	t.Setenv("SESSION_STORE_PG_DSN", "")
	if _, ok := NewStoreFromEnv().(*MemoryStore); !ok {
		t.Fatal("expected memory store without a DSN")
	}
}
