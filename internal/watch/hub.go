// Package watch fans out workflow phase transitions to websocket watchers.
package watch

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// PhaseEvent is one observed transition of a session's state machine.
type PhaseEvent struct {
	SessionID string    `json:"session_id"`
	State     string    `json:"state"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10

	subscriberBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Hub routes phase events to the watchers of each session.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan PhaseEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan PhaseEvent]struct{})}
}

// Notify publishes a transition. Slow watchers drop events instead of
// blocking the orchestrator.
func (h *Hub) Notify(sessionID, state, detail string) {
	ev := PhaseEvent{
		SessionID: sessionID,
		State:     state,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[sessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a watcher for one session. The returned cancel
// function must be called when the watcher goes away.
func (h *Hub) Subscribe(sessionID string) (<-chan PhaseEvent, func()) {
	ch := make(chan PhaseEvent, subscriberBuffer)
	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan PhaseEvent]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs[sessionID], ch)
		if len(h.subs[sessionID]) == 0 {
			delete(h.subs, sessionID)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// ServeWS upgrades the request and streams the session's phase events until
// the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := h.Subscribe(sessionID)
	defer cancel()

	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// Reader goroutine only consumes control frames and detects close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingEvery)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
