package service

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Delivery failures are internal to the broadcast engine: they cause
// eviction of the failing connection and are never surfaced to the
// broadcaster.
var (
	errConnClosed     = errors.New("connection closed")
	errSendBufferFull = errors.New("send buffer full")
)

// Transport is the subset of *websocket.Conn the live core needs. It
// exists so the broadcast and lifecycle paths can be exercised without a
// network socket.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

type frame struct {
	messageType int
	data        []byte
}

// Conn is one viewer's open realtime channel, subscribed to exactly one
// session for its lifetime. The registry owns membership; the gateway
// that accepted the connection owns the transport and must release it on
// every exit path (Detach does).
type Conn struct {
	ActivityID string
	ViewerID   string
	JoinedAt   time.Time

	ws        Transport
	send      chan frame
	done      chan struct{}
	closeOnce sync.Once
}

// NewConn wraps an accepted transport for a resolved viewer identity.
func NewConn(activityID, viewerID string, ws Transport, sendBuffer int) *Conn {
	return &Conn{
		ActivityID: activityID,
		ViewerID:   viewerID,
		JoinedAt:   time.Now(),
		ws:         ws,
		send:       make(chan frame, sendBuffer),
		done:       make(chan struct{}),
	}
}

// enqueue offers a frame to the outbound queue without blocking. A full
// queue means the viewer is too slow to keep up and is treated as dead.
func (c *Conn) enqueue(messageType int, data []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.send <- frame{messageType: messageType, data: data}:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		return errSendBufferFull
	}
}

// Enqueue queues a text message for delivery to the viewer.
func (c *Conn) Enqueue(data []byte) error {
	return c.enqueue(websocket.TextMessage, data)
}

// EnqueueClose queues a close frame; the write pump closes the transport
// after writing it, so earlier queued events are still flushed first.
func (c *Conn) EnqueueClose(code int, reason string) error {
	return c.enqueue(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}

// Close force-closes the transport. Idempotent; safe from any goroutine.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// ReadMessage reads the next inbound message from the transport.
func (c *Conn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

// WritePump drains the outbound queue onto the transport. Run it in its
// own goroutine; it exits when the connection closes or a write fails.
// One writer per connection keeps per-viewer event order intact.
func (c *Conn) WritePump(writeTimeout time.Duration) {
	defer c.Close()
	for {
		select {
		case f := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(f.messageType, f.data); err != nil {
				return
			}
			if f.messageType == websocket.CloseMessage {
				return
			}
		case <-c.done:
			return
		}
	}
}
