package main

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/oszuidwest/zwfm-micmeter/internal/audio"
	"github.com/oszuidwest/zwfm-micmeter/internal/capture"
	"github.com/oszuidwest/zwfm-micmeter/internal/config"
	"github.com/oszuidwest/zwfm-micmeter/internal/server"
	"github.com/oszuidwest/zwfm-micmeter/internal/types"
	"github.com/oszuidwest/zwfm-micmeter/internal/ui"
)

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

type indexData struct {
	Title     string
	Lang      string
	Version   string
	Year      int
	TriggerID string
	MeterID   string
	StatusID  string
}

// Server is an HTTP server that provides the meter page.
type Server struct {
	config        *config.Config
	page          *ui.Page
	platform      *audio.Platform
	commands      *server.CommandHandler
	metrics       http.Handler // nil when metrics are disabled
	frameInterval time.Duration
}

// NewServer returns a new Server for page, driven by ctrl.
func NewServer(cfg *config.Config, page *ui.Page, ctrl *capture.Controller, platform *audio.Platform, metrics http.Handler) *Server {
	snap := cfg.Snapshot()
	return &Server{
		config:        cfg,
		page:          page,
		platform:      platform,
		commands:      server.NewCommandHandler(cfg, ctrl, page, platform, snap.EventLogPath),
		metrics:       metrics,
		frameInterval: ui.FrameInterval(snap.FrameRate),
	}
}

// handleWebSocket handles bidirectional WebSocket communication for real-time updates.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	// Buffered send channel for thread-safe writes.
	// Only the writer goroutine writes to the connection. The channel is
	// never closed because async command handlers may still send on it.
	send := make(chan any, 16)
	done := make(chan struct{})
	statusUpdate := make(chan struct{}, 1)

	// Writer goroutine - sole writer to the connection
	go s.runWebSocketWriter(conn, send, done)

	// Reader goroutine - handles incoming commands
	go s.runWebSocketReader(conn, send, done, statusUpdate)

	s.runWebSocketEventLoop(send, done, statusUpdate)
}

// runWebSocketWriter writes messages from the send channel to the connection.
func (s *Server) runWebSocketWriter(conn server.WebSocketConn, send <-chan any, done <-chan struct{}) {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("WebSocket close error", "error", err)
		}
	}()
	for {
		select {
		case <-done:
			return
		case msg := <-send:
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

// runWebSocketReader reads commands from the connection and dispatches them.
func (s *Server) runWebSocketReader(conn server.WebSocketConn, send chan<- any, done, statusUpdate chan<- struct{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in WebSocket reader", "panic", r)
		}
		close(done)
	}()

	for {
		var cmd server.WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.commands.Handle(cmd, send, func() {
			select {
			case statusUpdate <- struct{}{}:
			default:
			}
		})
	}
}

// runWebSocketEventLoop pushes page state whenever it changes, checked once
// per frame.
func (s *Server) runWebSocketEventLoop(send chan<- any, done, statusUpdate <-chan struct{}) {
	frameTicker := time.NewTicker(s.frameInterval)
	defer frameTicker.Stop()

	// trySend attempts to send a message, returning false if done is closed
	trySend := func(msg any) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	var lastVersion uint64
	sendState := func() bool {
		state, version := s.page.Snapshot()
		lastVersion = version
		return trySend(types.WSStateResponse{
			Type:           "state",
			TriggerEnabled: state.TriggerEnabled,
			Status:         state.Status,
			MeterWidth:     state.MeterWidth,
		})
	}

	if !trySend(s.buildWSInfo()) || !sendState() {
		return
	}

	for {
		select {
		case <-done:
			return
		case <-statusUpdate:
			if !sendState() {
				return
			}
		case <-frameTicker.C:
			if s.page.Version() == lastVersion {
				continue
			}
			if !sendState() {
				return
			}
		}
	}
}

// buildWSInfo returns the connection info message.
func (s *Server) buildWSInfo() types.WSInfoResponse {
	cfg := s.config.Snapshot()
	return types.WSInfoResponse{
		Type:      "info",
		Version:   Version,
		Platform:  runtime.GOOS,
		Title:     cfg.Title,
		Locale:    cfg.Locale,
		Supported: s.platform != nil && s.platform.Supported(),
	}
}

// SetupRoutes returns an [http.Handler] configured with all application routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/style.css", s.handleStatic)
	mux.HandleFunc("/app.js", s.handleStatic)
	mux.HandleFunc("/ws", s.handleWebSocket)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	mux.HandleFunc("/", s.handleStatic)

	return securityHeaders(mux)
}

// securityHeaders returns middleware that wraps handlers with security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// serveStaticFile serves a static file by path and reports whether it was found.
func serveStaticFile(w http.ResponseWriter, path string) bool {
	file, ok := staticFiles[path]
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", file.contentType)
	if _, err := w.Write([]byte(file.content)); err != nil {
		slog.Error("failed to write static file", "file", file.name, "error", err)
	}
	return true
}

// staticFile is an embedded static file with content type and data.
type staticFile struct {
	contentType string
	content     string
	name        string
}

// staticFiles is a map from URL paths to static file definitions.
var staticFiles = map[string]staticFile{
	"/style.css": {
		contentType: "text/css",
		content:     styleCSS,
		name:        "style.css",
	},
	"/app.js": {
		contentType: "application/javascript",
		content:     appJS,
		name:        "app.js",
	},
}

// handleStatic handles requests for embedded static web interface files.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "/index.html"
	}

	// Serve index.html with dynamic placeholders.
	if path == "/index.html" {
		cfg := s.config.Snapshot()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := indexTmpl.Execute(w, indexData{
			Title:     cfg.Title,
			Lang:      cfg.Locale,
			Version:   Version,
			Year:      time.Now().Year(),
			TriggerID: ui.TriggerID,
			MeterID:   ui.MeterID,
			StatusID:  ui.StatusID,
		}); err != nil {
			slog.Error("failed to write index.html", "error", err)
		}
		return
	}

	if serveStaticFile(w, path) {
		return
	}

	http.NotFound(w, r)
}

// HTTPServer returns the *http.Server for the configured port. The caller
// runs ListenAndServe and Shutdown.
func (s *Server) HTTPServer() *http.Server {
	addr := fmt.Sprintf(":%d", s.config.Snapshot().WebPort)
	return &http.Server{
		Addr:              addr,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
