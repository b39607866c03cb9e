package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialStream(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("Dial() error = %v (status %d)", err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readStream(t *testing.T, conn *websocket.Conn) StreamMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg StreamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func waitForClients(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.hub.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d clients, want %d", s.hub.Count(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketTranscriptStream(t *testing.T) {
	s := newTestServer(t, DefaultConfig(), false)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialStream(t, srv, nil)

	// Partial recognizer updates arrive as the speaker talks.
	updates := []struct {
		frame   string
		wantRef string
	}{
		{"요한복음", "john"},
		{"요한복음 3장", "john.3"},
		{`{"transcript":"요한복음 3장 16절","seq":3}`, "john.3.16"},
	}
	for _, u := range updates {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(u.frame)); err != nil {
			t.Fatal(err)
		}
		msg := readStream(t, conn)
		if msg.Type != MessageResult || msg.Result == nil {
			t.Fatalf("reply to %q = %+v", u.frame, msg)
		}
		if msg.Result.Ref != u.wantRef {
			t.Errorf("reply to %q: ref = %q, want %q", u.frame, msg.Result.Ref, u.wantRef)
		}
	}
}

func TestWebSocketSeqAndErrors(t *testing.T) {
	s := newTestServer(t, DefaultConfig(), false)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	conn := dialStream(t, srv, nil)

	conn.WriteJSON(TranscriptMessage{Transcript: "genesis 1 1", Seq: 42})
	if msg := readStream(t, conn); msg.Seq != 42 || msg.Result == nil || msg.Result.Ref != "genesis.1.1" {
		t.Errorf("reply = %+v", msg)
	}

	conn.WriteMessage(websocket.TextMessage, []byte(`{"transcript":`))
	if msg := readStream(t, conn); msg.Type != MessageError {
		t.Errorf("malformed JSON reply type = %q, want error", msg.Type)
	}

	// The connection survives a bad message.
	conn.WriteMessage(websocket.TextMessage, []byte("zzzzzzzzzzzzzzzz"))
	if msg := readStream(t, conn); msg.Type != MessageResult || msg.Result.Found() {
		t.Errorf("reply = %+v, want empty result", msg)
	}
}

func TestWebSocketFinalBroadcast(t *testing.T) {
	s := newTestServer(t, DefaultConfig(), true)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	speaker := dialStream(t, srv, nil)
	display := dialStream(t, srv, nil)
	waitForClients(t, s, 2)

	if err := speaker.WriteJSON(TranscriptMessage{Transcript: "시편 23편", Final: true}); err != nil {
		t.Fatal(err)
	}

	reply := readStream(t, speaker)
	if reply.Type != MessageResult || reply.Result.Ref != "psalms.23" {
		t.Fatalf("speaker reply = %+v", reply)
	}
	if reply.Result.HistoryID == "" {
		t.Error("final result was not recorded")
	}

	shared := readStream(t, display)
	if shared.Type != MessageReference || shared.Result == nil || shared.Result.Ref != "psalms.23" {
		t.Errorf("display message = %+v", shared)
	}
}

func TestWebSocketMessageTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMessageSize = 64
	s := newTestServer(t, cfg, false)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	conn := dialStream(t, srv, nil)

	conn.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("a", 128)))
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("oversized frame should close the connection")
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMessageRate = 1
	s := newTestServer(t, cfg, false)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	conn := dialStream(t, srv, nil)

	// Burst is twice the rate; the third message in a row is rejected.
	for i := 0; i < 3; i++ {
		conn.WriteMessage(websocket.TextMessage, []byte("john 3 16"))
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
				t.Errorf("close error = %v, want policy violation", err)
			}
			return
		}
		var msg StreamMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != MessageResult {
			t.Fatalf("unexpected frame %s", data)
		}
	}
}

func TestWebSocketOrigin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedOrigins = []string{"https://church.example", "*.example.org"}
	s := newTestServer(t, cfg, false)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://church.example", true},
		{"https://live.example.org", true},
		{"https://evil.example", false},
		{"https://notexample.org", false},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, _, err := websocket.DefaultDialer.Dial(url, header)
			if conn != nil {
				conn.Close()
			}
			if got := err == nil; got != tt.want {
				t.Errorf("origin %q connected = %v, want %v (%v)", tt.origin, got, tt.want, err)
			}
		})
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	s := newTestServer(t, DefaultConfig(), false)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	conn := dialStream(t, srv, nil)
	waitForClients(t, s, 1)

	s.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection should close when the hub stops")
	}
}

func TestIsOriginAllowed(t *testing.T) {
	allowed := []string{"https://a.test", "*.b.test"}
	tests := []struct {
		origin string
		want   bool
	}{
		{"https://a.test", true},
		{"https://x.b.test", true},
		{"https://evilb.test", false},
		{"https://a.test.evil", false},
	}
	for _, tt := range tests {
		if got := isOriginAllowed(tt.origin, allowed); got != tt.want {
			t.Errorf("isOriginAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
