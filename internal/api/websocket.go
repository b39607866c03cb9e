package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/FocuswithJustin/versefinder/internal/logging"
	"github.com/FocuswithJustin/versefinder/internal/server"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Stream message types.
const (
	MessageResult    = "result"    // reply to the sender's transcript
	MessageReference = "reference" // final reference resolved by another client
	MessageError     = "error"
)

// TranscriptMessage is a client update. Clients may also send the transcript
// as a bare text frame, which is treated as a partial update.
type TranscriptMessage struct {
	Transcript string `json:"transcript"`
	// Final marks the recognizer's last update for an utterance. Final
	// results are recorded in history and shared with other clients.
	Final bool `json:"final,omitempty"`
	// Seq is echoed back so clients can drop stale replies.
	Seq int64 `json:"seq,omitempty"`
}

// StreamMessage is sent from server to client.
type StreamMessage struct {
	Type      string       `json:"type"`
	Seq       int64        `json:"seq,omitempty"`
	Result    *ParseResult `json:"result,omitempty"`
	Message   string       `json:"message,omitempty"`
	Timestamp string       `json:"timestamp"`
}

// Client is one websocket connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	remote  string

	quit     chan struct{}
	quitOnce sync.Once
}

func (c *Client) stop() {
	c.quitOnce.Do(func() { close(c.quit) })
}

type broadcastMessage struct {
	data   []byte
	except *Client
}

// Hub tracks connected clients and fans out shared references.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan broadcastMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	gauge      prometheus.Gauge
}

// NewHub creates a hub; gauge, if non-nil, tracks the client count.
func NewHub(gauge prometheus.Gauge) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan broadcastMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		gauge:      gauge,
	}
}

// Run handles registration and broadcasting until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.drop(c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.setGauge()
			n := len(h.clients)
			h.mu.Unlock()
			logging.WebSocketEvent("client_connected", n, "remote", c.remote)

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				h.drop(c)
			}
			n := len(h.clients)
			h.mu.Unlock()
			logging.WebSocketEvent("client_disconnected", n, "remote", c.remote)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if c == msg.except {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					// Slow consumer.
					h.drop(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes c and stops its write pump. Callers hold h.mu.
func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	c.stop()
	h.setGauge()
}

func (h *Hub) setGauge() {
	if h.gauge != nil {
		h.gauge.Set(float64(len(h.clients)))
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client except the given one.
func (h *Hub) Broadcast(msg StreamMessage, except *Client) {
	data, err := encodeMessage(msg)
	if err != nil {
		logging.Error("failed to marshal stream message", "error", err)
		return
	}
	select {
	case h.broadcast <- broadcastMessage{data: data, except: except}:
	default:
		logging.Warn("broadcast channel full, dropping message")
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func encodeMessage(msg StreamMessage) ([]byte, error) {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(msg)
}

// checkOrigin accepts requests without an Origin header (non-browser clients),
// any origin when the allow list is empty, and otherwise exact matches, "*",
// or "*.example.com" subdomain patterns.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		if isOriginAllowed(origin, allowed) {
			return true
		}
		logging.WarnContext(r.Context(), "websocket origin rejected", "origin", origin)
		return false
	}
}

func isOriginAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		switch {
		case a == "*", a == origin:
			return true
		case strings.HasPrefix(a, "*."):
			if strings.HasSuffix(origin, a[1:]) {
				return true
			}
		}
	}
	return false
}

// handleWebSocket upgrades the connection and starts the client pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(s.cfg.MaxMessageSize)

	c := &Client{
		hub:     s.hub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		limiter: rate.NewLimiter(rate.Limit(s.cfg.MaxMessageRate), s.cfg.MaxMessageRate*2),
		remote:  server.ClientIP(r),
		quit:    make(chan struct{}),
	}
	if !s.hub.join(c) {
		conn.Close()
		return
	}

	// The request context ends when this handler returns; the stream keeps
	// its values (request id) but not its cancellation.
	ctx := context.WithoutCancel(r.Context())
	go c.writePump()
	go s.readPump(ctx, c)
}

// readPump parses each incoming transcript and queues the reply.
func (s *Server) readPump(ctx context.Context, c *Client) {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.WarnContext(ctx, "websocket unexpected close", "error", err)
			}
			return
		}
		s.metrics.wsMessages.WithLabelValues("in", "transcript").Inc()

		if !c.limiter.Allow() {
			logging.WarnContext(ctx, "websocket message rate exceeded", "remote", c.remote)
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "rate limit exceeded"),
				time.Now().Add(writeWait))
			return
		}

		reply, shared := s.handleTranscript(ctx, data)
		if !c.queue(reply) {
			return
		}
		s.metrics.wsMessages.WithLabelValues("out", reply.Type).Inc()
		if shared != nil {
			c.hub.Broadcast(*shared, c)
			s.metrics.wsMessages.WithLabelValues("out", shared.Type).Inc()
		}
	}
}

// handleTranscript decodes one frame and resolves it. The second return is a
// message for the other clients, or nil.
func (s *Server) handleTranscript(ctx context.Context, data []byte) (StreamMessage, *StreamMessage) {
	var msg TranscriptMessage
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return StreamMessage{Type: MessageError, Message: "invalid message: " + err.Error()}, nil
		}
	} else {
		msg.Transcript = string(data)
	}

	if err := validateTranscript(msg.Transcript); err != nil {
		return StreamMessage{Type: MessageError, Seq: msg.Seq, Message: err.Error()}, nil
	}

	res := s.parse(ctx, msg.Transcript, "websocket")
	reply := StreamMessage{Type: MessageResult, Seq: msg.Seq, Result: &res}
	if !msg.Final || !res.Found() {
		return reply, nil
	}

	if s.history != nil {
		if entry, err := s.record(ctx, res.ParsedReference); err == nil {
			res.HistoryID = entry.ID
		}
	}
	shared := StreamMessage{Type: MessageReference, Result: &res}
	return reply, &shared
}

// queue hands a message to the write pump without blocking the reader. It
// reports false once the client is stopped or its buffer is full.
func (c *Client) queue(msg StreamMessage) bool {
	data, err := encodeMessage(msg)
	if err != nil {
		logging.Error("failed to marshal stream message", "error", err)
		return true
	}
	select {
	case <-c.quit:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// writePump writes queued messages and keeps the connection alive with pings.
// It is the only goroutine writing data frames to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.quit:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
