// Package monitor pushes live session activity to websocket subscribers.
// Publishing never blocks: a subscriber whose buffer is full misses the
// message.
package monitor

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/JaimeStill/proctor/internal/detection"
	"github.com/JaimeStill/proctor/internal/proctor"
	"github.com/JaimeStill/proctor/pkg/handlers"
	"github.com/JaimeStill/proctor/pkg/lifecycle"
)

const (
	TypeViolation = "violation"
	TypeCompleted = "exam_completed"
)

// Message is one frame sent to subscribers.
type Message struct {
	Type      string           `json:"type"`
	SessionID uuid.UUID        `json:"session_id"`
	Event     *detection.Event `json:"event,omitempty"`
	Report    *proctor.Report  `json:"report,omitempty"`
	At        time.Time        `json:"at"`
}

// Hub fans session messages out to subscribers. It implements proctor.Notifier.
type Hub struct {
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	subs   map[uuid.UUID]map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	send chan Message
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// New creates a Hub from a finalized Config.
func New(cfg Config, logger *slog.Logger) *Hub {
	return &Hub{
		cfg:    cfg,
		logger: logger.With("system", "monitor"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		subs: make(map[uuid.UUID]map[*subscriber]struct{}),
	}
}

// Start registers a shutdown hook that disconnects every subscriber.
func (h *Hub) Start(lc *lifecycle.Coordinator) {
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		h.Close()
		h.logger.Info("monitor hub closed")
	})
}

func (h *Hub) Violation(sessionID uuid.UUID, event detection.Event) {
	e := event
	h.Publish(Message{Type: TypeViolation, SessionID: sessionID, Event: &e, At: event.At})
}

func (h *Hub) Completed(report *proctor.Report) {
	h.Publish(Message{Type: TypeCompleted, SessionID: report.SessionID, Report: report, At: report.CompletedAt})
}

// Publish delivers msg to every subscriber of its session without blocking.
func (h *Hub) Publish(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[msg.SessionID] {
		select {
		case sub.send <- msg:
		default:
			h.logger.Warn("subscriber buffer full, dropping message", "session", msg.SessionID, "type", msg.Type)
		}
	}
}

// Subscribers returns the number of subscribers of a session.
func (h *Hub) Subscribers(sessionID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}

// Close disconnects all subscribers and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, set := range h.subs {
		for sub := range set {
			sub.close()
		}
		delete(h.subs, id)
	}
}

// Handler upgrades GET /monitor/{id} to a websocket subscription.
func (h *Hub) Handler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub, ok := h.subscribe(id)
	if !ok {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(h.cfg.WriteTimeoutDuration()),
		)
		conn.Close()
		return
	}

	h.logger.Debug("subscriber connected", "session", id)
	go h.readPump(conn, id, sub)
	h.writePump(conn, sub)
}

func (h *Hub) subscribe(id uuid.UUID) (*subscriber, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, false
	}

	sub := &subscriber{send: make(chan Message, h.cfg.Buffer)}
	set, ok := h.subs[id]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[id] = set
	}
	set[sub] = struct{}{}
	return sub, true
}

func (h *Hub) unsubscribe(id uuid.UUID, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[id]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
	sub.close()
}

// readPump discards client frames and unsubscribes when the peer goes away.
func (h *Hub) readPump(conn *websocket.Conn, id uuid.UUID, sub *subscriber) {
	defer h.unsubscribe(id, sub)

	wait := 2 * h.cfg.PingIntervalDuration()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, sub *subscriber) {
	ping := time.NewTicker(h.cfg.PingIntervalDuration())
	defer func() {
		ping.Stop()
		conn.Close()
	}()

	timeout := h.cfg.WriteTimeoutDuration()
	for {
		select {
		case msg, ok := <-sub.send:
			conn.SetWriteDeadline(time.Now().Add(timeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("subscriber write failed", "error", err)
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(timeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
