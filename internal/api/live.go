package api

import (
	"context"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// LiveMessage is a message pushed over the conversation websocket, typically
// a human agent reply after an escalation.
type LiveMessage struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	SessionID string `json:"session_id"`
}

// LiveListener holds an open websocket to the backend conversation channel
// and forwards pushed messages to a callback.
type LiveListener struct {
	conn      *websocket.Conn
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// DialLive opens the conversation websocket for the given organization and
// session. onMessage runs on the read goroutine; keep it short.
func DialLive(ctx context.Context, baseURL, organizationID, sessionID string, onMessage func(LiveMessage)) (*LiveListener, error) {
	wsURL := websocketURL(baseURL) + "/chat/ws/" + url.PathEscape(organizationID) + "/" + url.PathEscape(sessionID)

	dialer := &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	listener := &LiveListener{conn: conn, cancel: cancel}

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go listener.readLoop(runCtx, onMessage)
	go listener.pingLoop(runCtx)

	return listener, nil
}

// Close tears the connection down. Safe to call more than once.
func (l *LiveListener) Close() {
	l.closeOnce.Do(func() {
		l.cancel()
		_ = l.conn.Close()
	})
}

func (l *LiveListener) readLoop(ctx context.Context, onMessage func(LiveMessage)) {
	defer l.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg LiveMessage
			if err := l.conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("[live] read error: %v", err)
				}
				return
			}
			l.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			onMessage(msg)
		}
	}
}

func (l *LiveListener) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// websocketURL rewrites an http(s) API base into its ws(s) counterpart.
func websocketURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return baseURL
	}
}
