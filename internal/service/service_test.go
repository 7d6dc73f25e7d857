package service

import (
	"encoding/json"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/model"
)

// fakeTransport stands in for a websocket connection in core tests.
type fakeTransport struct {
	closed atomic.Bool
}

func (f *fakeTransport) ReadMessage() (int, []byte, error) { return 0, nil, io.EOF }
func (f *fakeTransport) WriteMessage(int, []byte) error    { return nil }
func (f *fakeTransport) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeTransport) SetReadLimit(int64)                {}
func (f *fakeTransport) Close() error                      { f.closed.Store(true); return nil }

func zapNop() *zap.Logger { return zap.NewNop() }

func testLimits() Limits {
	return Limits{
		MaxSessions:          100,
		MaxViewersPerSession: 10,
		PushRatePerSec:       1000,
		PushBurst:            1000,
	}
}

func newTestCore(t *testing.T, limits Limits) (*Registry, *Hub, *Lifecycle) {
	t.Helper()
	r := NewRegistry(limits)
	h := NewHub(r, zap.NewNop())
	l := NewLifecycle(r, h, 10, zap.NewNop())
	return r, h, l
}

// newViewer creates a connection with the given outbound queue capacity.
// A capacity of 1 holds the snapshot event and nothing more, so the next
// delivery to it fails.
func newViewer(activityID, viewerID string, buf int) (*Conn, *fakeTransport) {
	ft := &fakeTransport{}
	return NewConn(activityID, viewerID, ft, buf), ft
}

// nextEvent pops the oldest queued event from a connection.
func nextEvent(t *testing.T, c *Conn) model.Event {
	t.Helper()
	select {
	case f := <-c.send:
		if f.messageType != websocket.TextMessage {
			t.Fatalf("expected text frame, got message type %d", f.messageType)
		}
		var ev model.Event
		if err := json.Unmarshal(f.data, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event queued")
		return model.Event{}
	}
}

// nextFrame pops the oldest queued frame without decoding.
func nextFrame(t *testing.T, c *Conn) frame {
	t.Helper()
	select {
	case f := <-c.send:
		return f
	case <-time.After(time.Second):
		t.Fatal("no frame queued")
		return frame{}
	}
}

func mustStart(t *testing.T, l *Lifecycle, activityID, ownerID string, isPublic bool, allowed []string) *model.LiveSession {
	t.Helper()
	sess, err := l.Start(activityID, ownerID, ownerID+" name", "running", isPublic, allowed)
	if err != nil {
		t.Fatalf("start session %s: %v", activityID, err)
	}
	return sess
}

func point(lat, lon float64) model.TrackPoint {
	return model.TrackPoint{Latitude: lat, Longitude: lon, Timestamp: time.Now().UTC()}
}
