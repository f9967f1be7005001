package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/touristroute/internal/pkg/metrics"
)

// wsMessage is sent from client to switch the watched session.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Session string `json:"session"` // session id
}

// WebSocketHandler relays view-updated events for a session to the client.
// The initial session comes from ?session=<sid>; clients may then send
// {"action":"subscribe","session":"..."} or {"action":"unsubscribe","session":"..."}.
func WebSocketHandler(feed ViewFeed) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)

		var mu sync.Mutex
		subs := make(map[string]func()) // session -> cancel

		// Helper: thread-safe write
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		subscribe := func(sid string) {
			if !validSessionID(sid) {
				_ = writeJSON(map[string]string{"error": "invalid session id"})
				return
			}
			if _, exists := subs[sid]; exists {
				_ = writeJSON(map[string]string{"status": "already subscribed", "session": sid})
				return
			}
			if feed == nil {
				_ = writeJSON(map[string]string{"error": "live updates unavailable"})
				return
			}
			cancel, err := feed.SubscribeView(sid, func(data []byte) {
				_ = writeJSON(json.RawMessage(data))
			})
			if err != nil {
				_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
				return
			}
			subs[sid] = cancel
			_ = writeJSON(map[string]string{"status": "subscribed", "session": sid})
		}

		if sid := c.Query("session"); sid != "" {
			subscribe(sid)
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "subscribe":
				subscribe(m.Session)
			case "unsubscribe":
				if cancel, exists := subs[m.Session]; exists {
					cancel()
					delete(subs, m.Session)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "session": m.Session})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + m.Session})
				}
			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, cancel := range subs {
			cancel()
		}
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
