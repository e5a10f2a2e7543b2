package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jonwraymond/wikigraph/graph"
	"github.com/jonwraymond/wikigraph/observe"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Client actions.
const (
	ActionStart     = "start"
	ActionExpand    = "expand"
	ActionEvent     = "event"
	ActionPositions = "positions"
)

// Server actions.
const (
	ActionSessionCreated = "session_created"
	ActionAddNodes       = "addNodes"
	ActionUpdateNodes    = "updateNodes"
	ActionAddEdges       = "addEdges"
	ActionUpdateEdges    = "updateEdges"
	ActionClear          = "clear"
	ActionInfo           = "info"
	ActionHideInfo       = "hideInfo"
	ActionNavigate       = "navigate"
	ActionError          = "error"
)

// ClientMessage is one message from the browser.
type ClientMessage struct {
	Action    string                 `json:"action"`
	Pages     []string               `json:"pages,omitempty"`
	Node      string                 `json:"node,omitempty"`
	Event     graph.EventKind        `json:"event,omitempty"`
	Positions map[string]graph.Point `json:"positions,omitempty"`
}

// ServerMessage is one message to the browser.
type ServerMessage struct {
	Action    string       `json:"action"`
	SessionID string       `json:"sessionId,omitempty"`
	Nodes     []graph.Node `json:"nodes,omitempty"`
	Edges     []graph.Edge `json:"edges,omitempty"`
	Info      *graph.Info  `json:"info,omitempty"`
	URL       string       `json:"url,omitempty"`
	Error     string       `json:"error,omitempty"`
}

const (
	outboxSize   = 256
	writeTimeout = 10 * time.Second
	settleWait   = 5 * time.Second
)

// handleSocket runs one exploration session for the life of the
// connection.
func (s *Server) handleSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn(c.Request.Context(), "websocket upgrade failed", observe.F("error", err.Error()))
		return
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	if !s.track(id, cancel) {
		cancel()
		_ = conn.Close()
		return
	}
	defer s.untrack(id)

	logger := s.logger.With(observe.F("session_id", id))
	r := newSocketRenderer()
	go r.pump(conn)

	sess := graph.NewSession(s.svc, r,
		graph.WithNavigator(r),
		graph.WithInfoPresenter(r),
		graph.WithLogger(logger),
		graph.WithWikiURL(s.svc.Config().WikiURL),
	)
	r.send(ServerMessage{Action: ActionSessionCreated, SessionID: id})
	logger.Info(ctx, "session started")

	var tasks sync.WaitGroup
	go func() {
		<-ctx.Done()
		// Unblocks ReadJSON when the server shuts down.
		_ = conn.Close()
	}()
	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if task := s.apply(ctx, sess, r, msg); task != nil {
			tasks.Add(1)
			go func() {
				defer tasks.Done()
				r.report(ctx, task)
			}()
		}
	}

	cancel()
	settleCtx, stop := context.WithTimeout(context.Background(), settleWait)
	_ = sess.Settle(settleCtx)
	stop()
	tasks.Wait()
	r.close()
	logger.Info(ctx, "session ended")
}

func (s *Server) apply(ctx context.Context, sess *graph.Session, r *socketRenderer, msg ClientMessage) *graph.Task {
	switch msg.Action {
	case ActionStart:
		return sess.Start(ctx, msg.Pages...)
	case ActionExpand:
		return sess.Expand(ctx, msg.Node)
	case ActionEvent:
		return sess.HandleEvent(ctx, graph.Event{Kind: msg.Event, Node: msg.Node})
	case ActionPositions:
		r.setPositions(msg.Positions)
		return nil
	default:
		r.send(ServerMessage{Action: ActionError, Error: "unknown action: " + msg.Action})
		return nil
	}
}

func (s *Server) track(id string, cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live == nil {
		return false
	}
	s.live[id] = cancel
	s.sessions.Add(1)
	return true
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
	s.sessions.Done()
}

// socketRenderer forwards graph mutations to the browser and keeps the
// positions the browser reports.
type socketRenderer struct {
	out  chan ServerMessage
	done chan struct{}
	once sync.Once

	mu        sync.Mutex
	positions map[string]graph.Point
}

func newSocketRenderer() *socketRenderer {
	return &socketRenderer{
		out:       make(chan ServerMessage, outboxSize),
		done:      make(chan struct{}),
		positions: make(map[string]graph.Point),
	}
}

// pump is the connection's only writer.
func (r *socketRenderer) pump(conn *websocket.Conn) {
	defer conn.Close()
	for {
		select {
		case msg := <-r.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				r.close()
				return
			}
		case <-r.done:
			return
		}
	}
}

// send never blocks: renderer calls run under the session lock. A browser
// that falls a full outbox behind is disconnected; pump then closes the
// connection, which ends the read loop and the session.
func (r *socketRenderer) send(msg ServerMessage) {
	select {
	case <-r.done:
		return
	default:
	}
	select {
	case r.out <- msg:
	default:
		r.close()
	}
}

func (r *socketRenderer) close() {
	r.once.Do(func() { close(r.done) })
}

// report forwards a failed task to the browser. Tasks abandoned by a
// restart are not failures.
func (r *socketRenderer) report(ctx context.Context, t *graph.Task) {
	err := t.Wait(ctx)
	if err == nil || errors.Is(err, graph.ErrStale) || errors.Is(err, context.Canceled) {
		return
	}
	r.send(ServerMessage{Action: ActionError, Error: err.Error()})
}

func (r *socketRenderer) AddNodes(nodes []graph.Node) {
	r.mu.Lock()
	for _, n := range nodes {
		r.positions[n.ID] = n.Position
	}
	r.mu.Unlock()
	r.send(ServerMessage{Action: ActionAddNodes, Nodes: nodes})
}

func (r *socketRenderer) UpdateNodes(nodes []graph.Node) {
	r.send(ServerMessage{Action: ActionUpdateNodes, Nodes: nodes})
}

func (r *socketRenderer) AddEdges(edges []graph.Edge) {
	r.send(ServerMessage{Action: ActionAddEdges, Edges: edges})
}

func (r *socketRenderer) UpdateEdges(edges []graph.Edge) {
	r.send(ServerMessage{Action: ActionUpdateEdges, Edges: edges})
}

func (r *socketRenderer) Clear() {
	r.mu.Lock()
	clear(r.positions)
	r.mu.Unlock()
	r.send(ServerMessage{Action: ActionClear})
}

func (r *socketRenderer) Positions() map[string]graph.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]graph.Point, len(r.positions))
	for id, p := range r.positions {
		out[id] = p
	}
	return out
}

func (r *socketRenderer) setPositions(ps map[string]graph.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range ps {
		r.positions[id] = p
	}
}

func (r *socketRenderer) ShowInfo(info graph.Info) {
	r.send(ServerMessage{Action: ActionInfo, Info: &info})
}

func (r *socketRenderer) HideInfo() {
	r.send(ServerMessage{Action: ActionHideInfo})
}

func (r *socketRenderer) Open(url string) {
	r.send(ServerMessage{Action: ActionNavigate, URL: url})
}
