// Package broadcast fans notifications out to connected websocket observers.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/okian/proctor/internal/adapters/mq/queue"
	"github.com/okian/proctor/pkg/logger"
	"github.com/okian/proctor/pkg/metrics"
)

const defaultObserverBuffer = 256

// Broadcaster publishes notifications to every current observer.
type Broadcaster interface {
	Broadcast(ctx context.Context, n Notification) error
}

// Hub maintains the set of open observers.
//
// Broadcast encodes once and enqueues under the hub lock, so frames from
// one producer reach every observer's queue in the order they were sent.
// An observer whose queue is full is pruned rather than waited on.
type Hub struct {
	mu        sync.Mutex
	observers map[*Observer]struct{}
	closed    bool

	buffer   int
	upgrader websocket.Upgrader
	logger   logger.Logger
}

var _ Broadcaster = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		observers: make(map[*Observer]struct{}),
		buffer:    defaultObserverBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.Get().Named("broadcast"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Broadcast delivers n to every observer registered at the time of the call.
func (h *Hub) Broadcast(ctx context.Context, n Notification) error {
	frame, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode %s notification: %w", n.Type, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	for o := range h.observers {
		if o.queue.Enqueue(ctx, queue.Frame(frame)) {
			continue
		}
		h.logger.Warn(ctx, "observer queue full, pruning", logger.String("observer", o.id))
		h.removeLocked(o)
		metrics.RecordObserverPruned()
	}
	metrics.RecordBroadcast(string(n.Type))
	return nil
}

// Len returns the number of registered observers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}

func (h *Hub) register(o *Observer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.observers[o] = struct{}{}
	metrics.UpdateObserversActive(len(h.observers))
	return nil
}

func (h *Hub) unregister(o *Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(o)
}

func (h *Hub) removeLocked(o *Observer) {
	if _, ok := h.observers[o]; !ok {
		return
	}
	delete(h.observers, o)
	_ = o.queue.Close()
	metrics.UpdateObserversActive(len(h.observers))
}

// ServeHTTP upgrades the request to a websocket and attaches an observer.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	o := newObserver(h, conn)
	if err := h.register(o); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}
	h.logger.Info(r.Context(), "observer connected",
		logger.String("observer", o.id),
		logger.String("remote", conn.RemoteAddr().String()),
	)
	go o.writePump()
	go o.readPump()
}

// Close disconnects every observer and rejects further broadcasts.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for o := range h.observers {
		h.removeLocked(o)
	}
	return nil
}
