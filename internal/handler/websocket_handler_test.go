package handler_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/model"
)

func dialLive(t *testing.T, srv *httptest.Server, activityID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/live/" + activityID
	if token != "" {
		url += "?token=" + token
	}
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) model.Event {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev model.Event
	if err := ws.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

// expectClose asserts the next read fails with the given close code.
func expectClose(t *testing.T, ws *websocket.Conn, code int) {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := ws.ReadMessage()
	if err == nil {
		t.Fatal("expected close, got a message")
	}
	if !websocket.IsCloseError(err, code) {
		t.Fatalf("expected close code %d, got %v", code, err)
	}
}

func TestWS_InvalidToken(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.http)
	defer srv.Close()

	ws := dialLive(t, srv, "a1", "not-a-token")
	expectClose(t, ws, model.CloseInvalidToken)
}

func TestWS_SessionNotFound(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.http)
	defer srv.Close()

	ws := dialLive(t, srv, "missing", tokenFor(t, "u2", "Ville"))
	expectClose(t, ws, model.CloseSessionNotFound)
}

func TestWS_AccessDenied(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.http)
	defer srv.Close()

	if _, err := app.lifecycle.Start("a2", "u1", "Maija", "cycling", false, []string{"u3"}); err != nil {
		t.Fatalf("start: %v", err)
	}

	ws := dialLive(t, srv, "a2", tokenFor(t, "u2", "Ville"))
	expectClose(t, ws, model.CloseAccessDenied)

	// The refused connection was never registered.
	if got := app.registry.ConnCount("a2"); got != 0 {
		t.Errorf("conn count = %d, want 0", got)
	}
}

func TestWS_LiveScenario(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.http)
	defer srv.Close()

	// Owner starts a public session and pushes a first point.
	if _, err := app.lifecycle.Start("a1", "u1", "Maija", "running", true, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := app.hub.PushLocation("a1", model.TrackPoint{Latitude: 60.17, Longitude: 24.94, Timestamp: time.Now().UTC()}); err != nil {
		t.Fatalf("push: %v", err)
	}

	// Viewer joins and immediately sees the current state.
	ws := dialLive(t, srv, "a1", tokenFor(t, "u2", "Ville"))
	info := readEvent(t, ws)
	if info.Type != model.EventSessionInfo {
		t.Fatalf("first event = %s, want session_info", info.Type)
	}
	if info.OwnerName != "Maija" || info.SportType != "running" {
		t.Errorf("session_info metadata = %+v", info)
	}
	if info.LastPoint == nil || info.LastPoint.Latitude != 60.17 || info.LastPoint.Longitude != 24.94 {
		t.Errorf("session_info last point = %+v, want (60.17, 24.94)", info.LastPoint)
	}

	// The next pushed point arrives as a location update, in order.
	delivered, err := app.hub.PushLocation("a1", model.TrackPoint{Latitude: 60.18, Longitude: 24.95, Timestamp: time.Now().UTC()})
	if err != nil {
		t.Fatalf("second push: %v", err)
	}
	if delivered != 1 {
		t.Errorf("delivered = %d, want 1", delivered)
	}
	update := readEvent(t, ws)
	if update.Type != model.EventLocationUpdate {
		t.Fatalf("event = %s, want location_update", update.Type)
	}
	if update.Point == nil || update.Point.Latitude != 60.18 || update.Point.Longitude != 24.95 {
		t.Errorf("location update point = %+v, want (60.18, 24.95)", update.Point)
	}

	// Keep-alive: ping is answered with a pong carrying a server timestamp.
	if err := ws.WriteJSON(model.InboundMessage{Type: model.EventPing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	pong := readEvent(t, ws)
	if pong.Type != model.EventPong {
		t.Fatalf("event = %s, want pong", pong.Type)
	}
	if pong.Timestamp == nil {
		t.Error("pong missing server timestamp")
	}
}

func TestWS_SessionEnded(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.http)
	defer srv.Close()

	if _, err := app.lifecycle.Start("a1", "u1", "Maija", "running", true, nil); err != nil {
		t.Fatalf("start: %v", err)
	}

	ws := dialLive(t, srv, "a1", tokenFor(t, "u2", "Ville"))
	if ev := readEvent(t, ws); ev.Type != model.EventSessionInfo {
		t.Fatalf("first event = %s, want session_info", ev.Type)
	}

	if err := app.lifecycle.End("a1", "u1"); err != nil {
		t.Fatalf("end: %v", err)
	}

	// The viewer is told why the stream stopped before the channel closes.
	ended := readEvent(t, ws)
	if ended.Type != model.EventSessionEnded {
		t.Fatalf("event = %s, want session_ended", ended.Type)
	}
	expectClose(t, ws, websocket.CloseNormalClosure)
}

func TestWS_ViewerJoinedAndLeft(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.http)
	defer srv.Close()

	if _, err := app.lifecycle.Start("a1", "u1", "Maija", "running", true, nil); err != nil {
		t.Fatalf("start: %v", err)
	}

	first := dialLive(t, srv, "a1", tokenFor(t, "u2", "Ville"))
	if ev := readEvent(t, first); ev.Type != model.EventSessionInfo {
		t.Fatalf("first event = %s, want session_info", ev.Type)
	}

	second := dialLive(t, srv, "a1", tokenFor(t, "u3", "Anu"))
	if ev := readEvent(t, second); ev.Type != model.EventSessionInfo {
		t.Fatalf("second viewer first event = %s, want session_info", ev.Type)
	}

	joined := readEvent(t, first)
	if joined.Type != model.EventViewerJoined {
		t.Fatalf("event = %s, want viewer_joined", joined.Type)
	}
	if joined.ViewerCount == nil || *joined.ViewerCount != 2 {
		t.Errorf("viewer_joined count = %v, want 2", joined.ViewerCount)
	}

	_ = second.Close()
	left := readEvent(t, first)
	if left.Type != model.EventViewerLeft {
		t.Fatalf("event = %s, want viewer_left", left.Type)
	}
	if left.ViewerCount == nil || *left.ViewerCount != 1 {
		t.Errorf("viewer_left count = %v, want 1", left.ViewerCount)
	}
}
