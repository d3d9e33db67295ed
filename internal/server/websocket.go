package server

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

// maxCommandBytes bounds a single client command. Page commands are small
// JSON objects; anything larger closes the connection.
const maxCommandBytes = 4096

// WebSocketConn is the page channel as seen by the connection goroutines.
type WebSocketConn interface {
	io.Closer
	WriteJSON(v any) error
	ReadJSON(v any) error
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// checkOrigin accepts same-origin pages and pages served from this machine
// or the local network, where the meter is normally opened.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		slog.Warn("rejected WebSocket connection: invalid origin URL", "origin", origin)
		return false
	}

	if allowedOriginHost(u.Hostname(), r.Host) {
		return true
	}

	slog.Warn("rejected WebSocket connection", "origin", origin, "host", u.Hostname())
	return false
}

// allowedOriginHost reports whether a page on host may open the channel of
// a server reached as requestHost (host[:port]).
func allowedOriginHost(host, requestHost string) bool {
	if host == "localhost" {
		return true
	}
	if h, _, err := net.SplitHostPort(requestHost); err == nil {
		requestHost = h
	}
	if host == requestHost {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
}

// UpgradeConnection upgrades a /ws request to the page channel.
func UpgradeConnection(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxCommandBytes)
	return conn, nil
}
