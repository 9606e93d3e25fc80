package broadcast

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/okian/proctor/internal/adapters/mq/queue"
	"github.com/okian/proctor/pkg/logger"
)

const (
	writeWait      = 10 * time.Second    // time allowed to write a frame
	pongWait       = 60 * time.Second    // time allowed to read the next pong
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 512                 // observers only send control frames
)

// Observer is one live connection. The hub feeds its queue; writePump
// drains it onto the socket.
type Observer struct {
	id    string
	hub   *Hub
	conn  *websocket.Conn
	queue *queue.InMemoryQueue
}

func newObserver(h *Hub, conn *websocket.Conn) *Observer {
	return &Observer{
		id:    uuid.NewString(),
		hub:   h,
		conn:  conn,
		queue: queue.NewInMemoryQueue(queue.WithCapacity(h.buffer)),
	}
}

// ID returns the observer's connection id.
func (o *Observer) ID() string { return o.id }

func (o *Observer) readPump() {
	defer func() {
		o.hub.unregister(o)
		_ = o.conn.Close()
		o.hub.logger.Info(context.Background(), "observer disconnected", logger.String("observer", o.id))
	}()
	o.conn.SetReadLimit(maxMessageSize)
	_ = o.conn.SetReadDeadline(time.Now().Add(pongWait))
	o.conn.SetPongHandler(func(string) error {
		return o.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// inbound messages are ignored; reading drives control frames
		if _, _, err := o.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				o.hub.logger.Debug(context.Background(), "observer read error",
					logger.String("observer", o.id), logger.Error(err))
			}
			return
		}
	}
}

func (o *Observer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = o.conn.Close()
	}()
	frames := o.queue.Dequeue()
	for {
		select {
		case frame, ok := <-frames:
			_ = o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = o.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := o.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				o.hub.logger.Debug(context.Background(), "observer write error",
					logger.String("observer", o.id), logger.Error(err))
				o.hub.unregister(o)
				return
			}
		case <-ticker.C:
			_ = o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				o.hub.unregister(o)
				return
			}
		}
	}
}
