// Package eventlog records capture lifecycle events in a JSON lines file
// (requested, granted, denied, error, unsupported, ended) so recent
// microphone activity can be reviewed from the page.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

// Capture lifecycle event types.
const (
	CaptureRequested EventType = "capture_requested"
	CaptureGranted   EventType = "capture_granted"
	CaptureEnded     EventType = "capture_ended"
)

// Capture failure event types.
const (
	CaptureDenied      EventType = "capture_denied"
	CaptureError       EventType = "capture_error"
	CaptureUnsupported EventType = "capture_unsupported"
)

// Event represents a single log entry with type-specific details.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	StreamID  string    `json:"stream_id,omitempty"`
	Message   string    `json:"msg,omitempty"`
	Details   any       `json:"details,omitempty"`
}

// CaptureDetails contains capture-specific event details.
type CaptureDetails struct {
	Device    string `json:"device,omitempty"`
	ErrorName string `json:"error_name,omitempty"` // platform error kind, e.g. NotAllowedError
	Error     string `json:"error,omitempty"`
	FFTSize   int    `json:"fft_size,omitempty"`
	Bins      int    `json:"bins,omitempty"`
	Frames    int64  `json:"frames,omitempty"` // meter frames rendered during the session
}

// Logger writes events to a JSON lines file.
type Logger struct {
	mu       sync.Mutex
	filePath string
	file     *os.File
	encoder  *json.Encoder
}

// NewLogger creates a new event logger at the specified path.
func NewLogger(filePath string) (*Logger, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &Logger{
		filePath: filePath,
		file:     file,
		encoder:  json.NewEncoder(file),
	}, nil
}

// Log writes an event to the log file.
func (l *Logger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return os.ErrClosed
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	return l.encoder.Encode(event)
}

// LogCapture logs a capture event.
func (l *Logger) LogCapture(eventType EventType, streamID, message string, details *CaptureDetails) error {
	e := &Event{
		Timestamp: time.Now(),
		Type:      eventType,
		StreamID:  streamID,
		Message:   message,
	}
	if details != nil {
		e.Details = details
	}
	return l.Log(e)
}

// Close closes the log file. Further writes fail with os.ErrClosed.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Path returns the path to the log file.
func (l *Logger) Path() string {
	return l.filePath
}

// TypeFilter specifies which event types to include when reading.
type TypeFilter string

// Filter constants for ReadLast.
const (
	FilterAll       TypeFilter = ""
	FilterLifecycle TypeFilter = "lifecycle"
	FilterFailures  TypeFilter = "failures"
)

// MaxReadLimit is the maximum number of events that can be read at once.
const MaxReadLimit = 500

// ReadLast reads events from the log file with pagination support.
// Returns up to n events starting from offset, filtered by type, newest
// first, and whether older matching events remain.
func ReadLast(filePath string, n, offset int, filter TypeFilter) ([]Event, bool, error) {
	n = min(n, MaxReadLimit)
	if n <= 0 {
		return []Event{}, false, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, false, nil
		}
		return nil, false, err
	}
	defer file.Close() //nolint:errcheck // Read-only operation, close error not critical

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, false, err
	}

	events := make([]Event, 0, n)
	skipped := 0
	for i := len(lines) - 1; i >= 0; i-- {
		var event Event
		if err := json.Unmarshal([]byte(lines[i]), &event); err != nil {
			continue // Skip malformed lines
		}
		if !matches(filter, event.Type) {
			continue
		}

		if skipped < offset {
			skipped++
			continue
		}

		if len(events) == n {
			return events, true, nil
		}
		events = append(events, event)
	}

	return events, false, nil
}

func matches(filter TypeFilter, t EventType) bool {
	switch filter {
	case FilterLifecycle:
		return IsLifecycleEvent(t)
	case FilterFailures:
		return IsFailureEvent(t)
	default:
		return true
	}
}

// IsLifecycleEvent returns true for request, grant and end events.
func IsLifecycleEvent(t EventType) bool {
	return t == CaptureRequested || t == CaptureGranted || t == CaptureEnded
}

// IsFailureEvent returns true for denied, error and unsupported events.
func IsFailureEvent(t EventType) bool {
	return t == CaptureDenied || t == CaptureError || t == CaptureUnsupported
}
