package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestDialLiveReceivesPushedMessages(t *testing.T) {
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/ws/org-1/sess-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_ = conn.WriteJSON(LiveMessage{Type: "agent_message", Content: "an agent joined", SessionID: "sess-1"})

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	received := make(chan LiveMessage, 1)
	listener, err := DialLive(context.Background(), server.URL, "org-1", "sess-1", func(m LiveMessage) {
		received <- m
	})
	if err != nil {
		t.Fatalf("DialLive err: %v", err)
	}
	defer listener.Close()

	select {
	case msg := <-received:
		if msg.Content != "an agent joined" || msg.Type != "agent_message" {
			t.Fatalf("message = %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pushed message never arrived")
	}

	listener.Close()
	listener.Close() // idempotent
}

func TestWebsocketURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"http://localhost:8000/api", "ws://localhost:8000/api"},
		{"https://support.example.com/api", "wss://support.example.com/api"},
		{"ws://already", "ws://already"},
	}
	for _, tc := range cases {
		if got := websocketURL(tc.in); got != tc.want {
			t.Errorf("websocketURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
