package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jonwraymond/wikigraph/graph"
	"github.com/jonwraymond/wikigraph/lookup"
)

func dial(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func write(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON(%s) error = %v", msg.Action, err)
	}
}

// next reads messages until one matches action and pred.
func next(t *testing.T, conn *websocket.Conn, action string, pred func(ServerMessage) bool) ServerMessage {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatal(err)
	}
	for {
		var msg ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", action, err)
		}
		if msg.Action == action && (pred == nil || pred(msg)) {
			return msg
		}
	}
}

func hasNode(id string) func(ServerMessage) bool {
	return func(m ServerMessage) bool {
		for _, n := range m.Nodes {
			if n.ID == id {
				return true
			}
		}
		return false
	}
}

// TestSocket_Session verifies a browser session from start through
// expansion, hover, navigation and a bad action.
func TestSocket_Session(t *testing.T) {
	s := newTestServer(t, corpus(), lookup.Options{}, Options{})
	conn := dial(t, s)

	if created := next(t, conn, ActionSessionCreated, nil); created.SessionID == "" {
		t.Error("session id is empty")
	}

	write(t, conn, ClientMessage{Action: ActionStart, Pages: []string{"a:start"}})
	next(t, conn, ActionClear, nil)
	added := next(t, conn, ActionAddNodes, hasNode("a:start"))
	for _, n := range added.Nodes {
		if n.ID == "a:start" && (n.Kind != graph.KindRoot || n.Level != 0) {
			t.Errorf("a:start = kind %v level %d, want a level 0 root", n.Kind, n.Level)
		}
	}
	next(t, conn, ActionAddNodes, hasNode("tag:demo"))

	write(t, conn, ClientMessage{
		Action:    ActionPositions,
		Positions: map[string]graph.Point{"a:start": {X: 100, Y: 0}},
	})
	write(t, conn, ClientMessage{Action: ActionExpand, Node: "a:start"})
	child := next(t, conn, ActionAddNodes, hasNode("a:child"))
	for _, n := range child.Nodes {
		if n.ID == "a:child" && (n.Level != 1 || n.Parent != "a:start") {
			t.Errorf("a:child = level %d parent %q", n.Level, n.Parent)
		}
	}
	next(t, conn, ActionAddEdges, func(m ServerMessage) bool {
		for _, e := range m.Edges {
			if e.ID == graph.EdgeID(graph.EdgeLink, "a:start", "a:child") {
				return true
			}
		}
		return false
	})

	write(t, conn, ClientMessage{Action: ActionEvent, Event: graph.EventHoverEnter, Node: "a:child"})
	info := next(t, conn, ActionInfo, nil)
	if info.Info == nil {
		t.Fatal("info message without info")
	}
	if info.Info.NodeID != "a:child" || info.Info.Kind != graph.KindPage {
		t.Errorf("info = %+v", *info.Info)
	}

	write(t, conn, ClientMessage{Action: ActionEvent, Event: graph.EventDoubleActivate, Node: "a:child"})
	if nav := next(t, conn, ActionNavigate, nil); nav.URL != "https://wiki.example/doku.php?id=a%3Achild" {
		t.Errorf("navigate url = %q", nav.URL)
	}

	write(t, conn, ClientMessage{Action: "dance"})
	if got := next(t, conn, ActionError, nil).Error; got != "unknown action: dance" {
		t.Errorf("error = %q", got)
	}
}

func TestSocket_FailedExpansionIsReported(t *testing.T) {
	s := newTestServer(t, corpus(), lookup.Options{}, Options{})
	conn := dial(t, s)
	next(t, conn, ActionSessionCreated, nil)

	write(t, conn, ClientMessage{Action: ActionExpand, Node: "never:added"})
	if msg := next(t, conn, ActionError, nil); msg.Error == "" {
		t.Error("error message is empty")
	}
}

// TestServe_ClosesSessionsOnShutdown verifies shutdown closes live sockets
// and refuses new sessions.
func TestServe_ClosesSessionsOnShutdown(t *testing.T) {
	s := newTestServer(t, corpus(), lookup.Options{}, Options{})
	conn := dial(t, s)
	next(t, conn, ActionSessionCreated, nil)

	s.closeSessions()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatal(err)
	}
	var msg ServerMessage
	if err := conn.ReadJSON(&msg); err == nil {
		t.Error("the server side should close the connection")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("session handler did not exit")
	}

	if s.track("late", func() {}) {
		t.Error("no sessions after shutdown")
	}
}

// TestSocketRenderer_FullOutboxDisconnects verifies a renderer whose browser
// stopped reading drops the session instead of blocking the caller.
func TestSocketRenderer_FullOutboxDisconnects(t *testing.T) {
	r := newSocketRenderer()
	for i := 0; i < outboxSize; i++ {
		r.UpdateNodes(nil)
	}
	select {
	case <-r.done:
		t.Fatal("renderer closed before the outbox was full")
	default:
	}

	returned := make(chan struct{})
	go func() {
		r.UpdateNodes(nil)
		r.Clear()
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("send blocked on a full outbox")
	}
	select {
	case <-r.done:
	default:
		t.Fatal("renderer still open after overflowing its outbox")
	}
	if got := len(r.out); got != outboxSize {
		t.Errorf("outbox holds %d messages, want %d", got, outboxSize)
	}
}
