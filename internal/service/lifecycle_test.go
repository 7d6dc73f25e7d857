package service

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/errs"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/model"
)

func TestLifecycle_StartDuplicateConflict(t *testing.T) {
	_, _, l := newTestCore(t, testLimits())
	mustStart(t, l, "a3", "u1", true, nil)

	if _, err := l.Start("a3", "u2", "U2", "cycling", true, nil); !errors.Is(err, errs.ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}

	// Original session untouched.
	sess, err := l.Get("a3", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.Session.OwnerID != "u1" {
		t.Errorf("owner = %q, want u1", sess.Session.OwnerID)
	}
}

func TestLifecycle_OwnerNeverStoredInAllowedViewers(t *testing.T) {
	_, _, l := newTestCore(t, testLimits())
	sess := mustStart(t, l, "a1", "u1", false, []string{"u1", "u3", ""})

	if _, ok := sess.AllowedViewers["u1"]; ok {
		t.Error("owner must not be stored in the allowed viewer set")
	}
	if _, ok := sess.AllowedViewers[""]; ok {
		t.Error("empty viewer id must not be stored")
	}
	if _, ok := sess.AllowedViewers["u3"]; !ok {
		t.Error("allowed viewer u3 missing")
	}
	// Owner access is derived, not stored.
	if !CanView(sess, "u1") {
		t.Error("owner must always be able to view")
	}
}

func TestLifecycle_AllowedViewerListCap(t *testing.T) {
	r := NewRegistry(testLimits())
	h := NewHub(r, zapNop())
	l := NewLifecycle(r, h, 2, zapNop())

	if _, err := l.Start("a1", "u1", "U1", "running", false, []string{"u2", "u3", "u4"}); !errors.Is(err, errs.ErrTooManyAllowedViewers) {
		t.Fatalf("expected ErrTooManyAllowedViewers, got %v", err)
	}
}

func TestLifecycle_EndByNonOwnerForbidden(t *testing.T) {
	r, h, l := newTestCore(t, testLimits())
	mustStart(t, l, "a1", "u1", true, nil)

	viewer, ft := newViewer("a1", "u2", 16)
	if err := h.Attach(viewer); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if err := l.End("a1", "u2"); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	// Session and its connections are intact.
	if _, err := r.Get("a1"); err != nil {
		t.Errorf("session should survive a forbidden end: %v", err)
	}
	if got := r.ConnCount("a1"); got != 1 {
		t.Errorf("conn count = %d, want 1", got)
	}
	if ft.closed.Load() {
		t.Error("viewer transport must not be closed by a forbidden end")
	}
}

func TestLifecycle_EndUnknownSession(t *testing.T) {
	_, _, l := newTestCore(t, testLimits())
	if err := l.End("missing", "u1"); !errors.Is(err, errs.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLifecycle_EndBroadcastsThenCloses(t *testing.T) {
	r, h, l := newTestCore(t, testLimits())
	mustStart(t, l, "a1", "u1", true, nil)

	viewers := make([]*Conn, 0, 2)
	for _, id := range []string{"u2", "u3"} {
		c, _ := newViewer("a1", id, 64)
		if err := h.Attach(c); err != nil {
			t.Fatalf("attach %s: %v", id, err)
		}
		viewers = append(viewers, c)
	}

	if err := l.End("a1", "u1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := r.Get("a1"); !errors.Is(err, errs.ErrSessionNotFound) {
		t.Errorf("session still present after end: %v", err)
	}
	// No location update can follow the end.
	if _, err := h.PushLocation("a1", point(60.17, 24.94)); !errors.Is(err, errs.ErrSessionNotFound) {
		t.Errorf("push after end should fail with ErrSessionNotFound, got %v", err)
	}

	for i, c := range viewers {
		// Skip administrative events; the terminal pair must be the
		// session_ended event followed by a close frame.
		var sawEnded bool
		for {
			f := nextFrame(t, c)
			if f.messageType == websocket.CloseMessage {
				if !sawEnded {
					t.Errorf("viewer %d: close frame before session_ended", i)
				}
				break
			}
			var ev model.Event
			if err := json.Unmarshal(f.data, &ev); err != nil {
				t.Fatalf("viewer %d: bad frame: %v", i, err)
			}
			if ev.Type == model.EventLocationUpdate && sawEnded {
				t.Errorf("viewer %d: location_update after session_ended", i)
			}
			if ev.Type == model.EventSessionEnded {
				sawEnded = true
			}
		}
		if !sawEnded {
			t.Errorf("viewer %d never received session_ended", i)
		}
	}
}

func TestLifecycle_ListVisible(t *testing.T) {
	_, _, l := newTestCore(t, testLimits())
	mustStart(t, l, "pub", "u1", true, nil)
	mustStart(t, l, "restricted", "u1", false, []string{"u3"})

	tests := []struct {
		viewerID string
		want     map[string]bool
	}{
		{"u1", map[string]bool{"pub": true, "restricted": true}}, // owner
		{"u3", map[string]bool{"pub": true, "restricted": true}}, // allowed
		{"u2", map[string]bool{"pub": true}},
		{"", map[string]bool{"pub": true}},
	}
	for _, tt := range tests {
		states := l.ListVisible(tt.viewerID)
		got := make(map[string]bool, len(states))
		for _, st := range states {
			got[st.Session.ActivityID] = true
		}
		if len(got) != len(tt.want) {
			t.Errorf("viewer %q sees %v, want %v", tt.viewerID, got, tt.want)
			continue
		}
		for id := range tt.want {
			if !got[id] {
				t.Errorf("viewer %q missing session %s", tt.viewerID, id)
			}
		}
	}
}
