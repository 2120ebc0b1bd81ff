package httpview

import (
	"encoding/json"
	"html"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// LiveReloadPath is where the live reload socket is mounted by default.
const LiveReloadPath = "/_livereload"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// ReloadMessage is pushed to browsers when a template changes.
type ReloadMessage struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
}

// LiveReload keeps browser sockets open and tells them to reload when a
// template changes.
type LiveReload struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*reloadClient]struct{}
}

type reloadClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewLiveReload creates a hub. Only same-origin sockets are accepted.
func NewLiveReload(logger *slog.Logger) *LiveReload {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveReload{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*reloadClient]struct{}),
	}
}

// Snippet returns the script that connects a page to the hub mounted at
// path and reloads it on every message. The socket reconnects with backoff
// when the server restarts.
func Snippet(path string) string {
	if path == "" {
		path = LiveReloadPath
	}
	return `<script data-livereload="` + html.EscapeString(path) + `">` + liveReloadScript() + `</script>`
}

// Clients reports the number of connected sockets.
func (l *LiveReload) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Notify broadcasts a reload for path. Slow clients are dropped.
func (l *LiveReload) Notify(path string) {
	data, err := json.Marshal(ReloadMessage{Type: "reload", Path: path})
	if err != nil {
		l.logger.Error("marshal reload message", "error", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for client := range l.clients {
		select {
		case client.send <- data:
		default:
			l.removeLocked(client)
		}
	}
	l.logger.Debug("live reload broadcast", "path", path, "clients", len(l.clients))
}

// ServeHTTP upgrades the request and registers the socket.
func (l *LiveReload) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Warn("live reload upgrade failed", "error", err)
		return
	}

	client := &reloadClient{conn: conn, send: make(chan []byte, 16)}
	l.mu.Lock()
	l.clients[client] = struct{}{}
	l.mu.Unlock()

	go l.writePump(client)
	l.readPump(client)
}

// Close disconnects every client.
func (l *LiveReload) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for client := range l.clients {
		l.removeLocked(client)
	}
}

func (l *LiveReload) removeLocked(client *reloadClient) {
	if _, ok := l.clients[client]; !ok {
		return
	}
	delete(l.clients, client)
	close(client.send)
}

func (l *LiveReload) readPump(client *reloadClient) {
	defer func() {
		l.mu.Lock()
		l.removeLocked(client)
		l.mu.Unlock()
		_ = client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.logger.Debug("live reload socket closed", "error", err)
			}
			return
		}
	}
}

func (l *LiveReload) writePump(client *reloadClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
