package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/oszuidwest/zwfm-micmeter/internal/audio"
	"github.com/oszuidwest/zwfm-micmeter/internal/capture"
	"github.com/oszuidwest/zwfm-micmeter/internal/config"
	"github.com/oszuidwest/zwfm-micmeter/internal/eventlog"
	"github.com/oszuidwest/zwfm-micmeter/internal/types"
	"github.com/oszuidwest/zwfm-micmeter/internal/ui"
)

// DefaultEventsLimit is the number of events returned by events/view without a limit.
const DefaultEventsLimit = 50

// Command errors reported to clients.
var (
	ErrTriggerDisabled  = errors.New("capture trigger is disabled")
	ErrEventLogDisabled = errors.New("event log is not configured")
	ErrUnknownCommand   = errors.New("unknown command")
)

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CommandHandler processes WebSocket commands.
type CommandHandler struct {
	cfg          *config.Config
	capture      *capture.Controller
	page         *ui.Page
	platform     *audio.Platform
	listDevices  func() []audio.Device
	eventLogPath string
}

// NewCommandHandler creates a new command handler. eventLogPath may be empty.
func NewCommandHandler(cfg *config.Config, ctrl *capture.Controller, page *ui.Page, platform *audio.Platform, eventLogPath string) *CommandHandler {
	return &CommandHandler{
		cfg:          cfg,
		capture:      ctrl,
		page:         page,
		platform:     platform,
		listDevices:  audio.Devices,
		eventLogPath: eventLogPath,
	}
}

// Handle processes a WebSocket command and performs the requested action.
// Commands use slash-style format: namespace/action (e.g., "capture/start", "audio/update")
func (h *CommandHandler) Handle(cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	namespace, action, _ := strings.Cut(cmd.Type, "/")

	switch namespace {
	case "capture":
		h.handleCapture(action, cmd, send)
	case "audio":
		h.handleAudio(action, cmd, send)
	case "events":
		h.handleEvents(action, cmd, send)
	case "status":
		h.handleStatus(action, send)
	default:
		slog.Warn("unknown WebSocket command", "type", cmd.Type)
		SendError(send, cmd.Type, ErrUnknownCommand)
	}

	triggerStatusUpdate()
}

// --- Namespace handlers ---

// handleCapture routes capture/* commands
func (h *CommandHandler) handleCapture(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "start":
		h.handleCaptureStart(cmd, send)
	case "get":
		SendSuccess(send, cmd.Type, h.captureInfo())
	default:
		slog.Warn("unknown capture action", "action", action)
		SendError(send, cmd.Type, ErrUnknownCommand)
	}
}

// handleAudio routes audio/* commands
func (h *CommandHandler) handleAudio(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "devices":
		HandleActionAsync(cmd, send, func() (any, error) {
			return h.listDevices(), nil
		})
	case "update":
		h.handleAudioUpdate(cmd, send)
	case "get":
		settings := types.AudioSettings{Input: h.cfg.AudioInput()}
		if h.platform != nil {
			settings.Command = h.platform.Command()
		}
		SendSuccess(send, cmd.Type, settings)
	default:
		slog.Warn("unknown audio action", "action", action)
		SendError(send, cmd.Type, ErrUnknownCommand)
	}
}

// handleEvents routes events/* commands
func (h *CommandHandler) handleEvents(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "view":
		h.handleEventsView(cmd, send)
	default:
		slog.Warn("unknown events action", "action", action)
		SendError(send, cmd.Type, ErrUnknownCommand)
	}
}

// handleStatus routes status/* commands
func (h *CommandHandler) handleStatus(action string, send chan<- any) {
	switch action {
	case "get":
		// State is pushed automatically; the trailing status trigger sends it now.
		slog.Debug("status/get received, state update will be triggered")
	default:
		slog.Warn("unknown status action", "action", action)
	}
}

// --- Command handlers ---

// handleCaptureStart clicks the page trigger. The request runs until the
// platform answers, so it is handled asynchronously; the outcome reaches the
// client through the page state.
func (h *CommandHandler) handleCaptureStart(cmd WSCommand, send chan<- any) {
	HandleActionAsync(cmd, send, func() (any, error) {
		if !h.page.Click() {
			return nil, ErrTriggerDisabled
		}
		return h.captureInfo(), nil
	})
}

func (h *CommandHandler) captureInfo() types.CaptureInfo {
	info := types.CaptureInfo{Pending: h.capture.Pending()}
	if s := h.capture.Session(); s != nil {
		info.Active = true
		info.StreamID = s.ID()
		info.Device = s.Device()
		info.Started = s.Started()
		info.Frames = s.Frames()
	}
	return info
}

// handleAudioUpdate processes an audio/update command.
// The new input applies to the next capture request.
func (h *CommandHandler) handleAudioUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *AudioUpdateRequest) error {
		slog.Info("audio/update: changing audio input", "input", req.Input)
		if err := h.cfg.SetAudioInput(req.Input); err != nil {
			return err
		}
		h.capture.SetInput(req.Input)
		return nil
	})
}

// handleEventsView returns a page of the capture event log, newest first.
func (h *CommandHandler) handleEventsView(cmd WSCommand, send chan<- any) {
	var req EventsViewRequest
	if !DecodeAndValidate(cmd, send, &req) {
		return
	}

	HandleActionAsync(cmd, send, func() (any, error) {
		if h.eventLogPath == "" {
			return nil, ErrEventLogDisabled
		}

		limit := req.Limit
		if limit == 0 {
			limit = DefaultEventsLimit
		}
		events, hasMore, err := eventlog.ReadLast(h.eventLogPath, limit, req.Offset, eventlog.TypeFilter(req.Filter))
		if err != nil {
			return nil, err
		}
		return types.EventsPage{Events: events, HasMore: hasMore, Path: h.eventLogPath}, nil
	})
}
