// Package realtime pushes rubric changes to connected teacher dashboards over websockets.
package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/mathboard/internal/revision"
)

const (
	defaultBuffer = 16
	writeTimeout  = 5 * time.Second
)

// Hub fans rubric changes out to subscribers of each assignment. It is a
// revision.Publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan revision.Change]struct{}
	buffer int
	origin []string
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBuffer sets how many undelivered changes a subscriber may queue before
// further changes are dropped for it.
func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithOriginPatterns allows cross-origin websocket clients matching patterns.
func WithOriginPatterns(patterns ...string) HubOption {
	return func(h *Hub) {
		h.origin = append(h.origin, patterns...)
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs:   make(map[string]map[chan revision.Change]struct{}),
		buffer: defaultBuffer,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers for changes to an assignment. Call cancel to unsubscribe.
func (h *Hub) Subscribe(assignmentID string) (<-chan revision.Change, func()) {
	ch := make(chan revision.Change, h.buffer)

	h.mu.Lock()
	if h.subs[assignmentID] == nil {
		h.subs[assignmentID] = make(map[chan revision.Change]struct{})
	}
	h.subs[assignmentID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[assignmentID], ch)
			if len(h.subs[assignmentID]) == 0 {
				delete(h.subs, assignmentID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of subscribers for an assignment.
func (h *Hub) Subscribers(assignmentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[assignmentID])
}

// Publish delivers change to every subscriber without blocking. A subscriber
// whose buffer is full misses the change.
func (h *Hub) Publish(_ context.Context, change revision.Change) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[change.AssignmentID] {
		select {
		case ch <- change:
		default:
			slog.Warn("dropping rubric change for slow subscriber",
				"assignment_id", change.AssignmentID,
				"new_version", change.NewVersion,
			)
		}
	}
	return nil
}

// ServeWS upgrades the request and streams changes for the assignment named
// by the {id} path value until the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	assignmentID := r.PathValue("id")
	if assignmentID == "" {
		http.Error(w, "missing assignment id", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origin})
	if err != nil {
		slog.Warn("websocket accept failed", "assignment_id", assignmentID, "error", err)
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles control frames and cancels ctx on disconnect.
	ctx := conn.CloseRead(r.Context())

	changes, cancel := h.Subscribe(assignmentID)
	defer cancel()
	slog.Debug("change feed connected", "assignment_id", assignmentID)

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, change)
			cancelWrite()
			if err != nil {
				slog.Debug("change feed write failed", "assignment_id", assignmentID, "error", err)
				return
			}
		}
	}
}
