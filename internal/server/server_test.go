package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/oszuidwest/zwfm-micmeter/internal/audio"
	"github.com/oszuidwest/zwfm-micmeter/internal/capture"
	"github.com/oszuidwest/zwfm-micmeter/internal/config"
	"github.com/oszuidwest/zwfm-micmeter/internal/eventlog"
	"github.com/oszuidwest/zwfm-micmeter/internal/ui"
)

type testHandler struct {
	h    *CommandHandler
	page *ui.Page
	cfg  *config.Config
	ctrl *capture.Controller
}

func newTestHandler(t *testing.T, eventLogPath string) *testHandler {
	t.Helper()
	cfg := config.New(filepath.Join(t.TempDir(), "config.json"))
	if err := cfg.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	page := ui.NewPage()
	ctrl := capture.New(capture.Config{Page: page}) // no devices: unsupported host
	ctrl.Bind(context.Background(), page)
	t.Cleanup(ctrl.Teardown)

	h := NewCommandHandler(cfg, ctrl, page, nil, eventLogPath)
	h.listDevices = func() []audio.Device {
		return []audio.Device{{ID: "hw:0", Name: "Built-in"}}
	}
	return &testHandler{h: h, page: page, cfg: cfg, ctrl: ctrl}
}

// run handles cmd and returns the first message sent in response.
func (th *testHandler) run(t *testing.T, typ, data string) map[string]any {
	t.Helper()
	send := make(chan any, 4)
	cmd := WSCommand{Type: typ}
	if data != "" {
		cmd.Data = json.RawMessage(data)
	}
	th.h.Handle(cmd, send, func() {})

	select {
	case msg := <-send:
		// Round-trip through JSON to inspect what the client sees.
		raw, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal response: %v", err)
		}
		var out map[string]any
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		return out
	case <-time.After(2 * time.Second):
		t.Fatalf("no response to %s", typ)
	}
	return nil
}

func TestCaptureStartOnUnsupportedHost(t *testing.T) {
	th := newTestHandler(t, "")

	res := th.run(t, "capture/start", "")
	if res["type"] != "capture/start_result" || res["success"] != true {
		t.Fatalf("first start = %v", res)
	}
	state, _ := th.page.Snapshot()
	if state.TriggerEnabled {
		t.Error("trigger enabled on unsupported host")
	}
	if state.Status != ui.NewMessages("").Unsupported() {
		t.Errorf("status = %q", state.Status)
	}

	res = th.run(t, "capture/start", "")
	if res["success"] != false || res["error"] != ErrTriggerDisabled.Error() {
		t.Errorf("second start = %v, want trigger disabled error", res)
	}
}

func TestAudioUpdate(t *testing.T) {
	th := newTestHandler(t, "")

	tests := []struct {
		name    string
		data    string
		success bool
	}{
		{"valid", `{"input":"default:CARD=USB"}`, true},
		{"missing input", `{}`, false},
		{"non ascii", `{"input":"mic\u0007"}`, false},
		{"bad json", `{"input":`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := th.run(t, "audio/update", tt.data)
			if res["success"] != tt.success {
				t.Errorf("success = %v, want %v (%v)", res["success"], tt.success, res)
			}
		})
	}

	if got := th.cfg.AudioInput(); got != "default:CARD=USB" {
		t.Errorf("config input = %q", got)
	}
	if got := th.ctrl.Input(); got != "default:CARD=USB" {
		t.Errorf("controller input = %q", got)
	}
}

func TestAudioUpdateValidationErrorNamesField(t *testing.T) {
	th := newTestHandler(t, "")
	res := th.run(t, "audio/update", `{}`)

	verr, ok := res["error"].(map[string]any)
	if !ok {
		t.Fatalf("error = %v, want validation error object", res["error"])
	}
	errs, _ := verr["errors"].([]any)
	if len(errs) != 1 {
		t.Fatalf("errors = %v", errs)
	}
	if field := errs[0].(map[string]any)["field"]; field != "input" {
		t.Errorf("field = %v, want input", field)
	}
}

func TestAudioDevicesAndGet(t *testing.T) {
	th := newTestHandler(t, "")

	res := th.run(t, "audio/devices", "")
	devices, _ := res["data"].([]any)
	if len(devices) != 1 {
		t.Fatalf("devices = %v", res)
	}

	res = th.run(t, "audio/get", "")
	data, _ := res["data"].(map[string]any)
	if data == nil || data["input"] != "" {
		t.Errorf("audio/get = %v", res)
	}
}

func TestEventsView(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	logger, err := eventlog.NewLogger(path)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	for _, et := range []eventlog.EventType{eventlog.CaptureRequested, eventlog.CaptureDenied, eventlog.CaptureRequested} {
		if err := logger.LogCapture(et, "", "", nil); err != nil {
			t.Fatal(err)
		}
	}
	_ = logger.Close()

	th := newTestHandler(t, path)

	res := th.run(t, "events/view", `{"limit":1,"filter":"failures"}`)
	data, _ := res["data"].(map[string]any)
	if data == nil {
		t.Fatalf("events/view = %v", res)
	}
	events, _ := data["events"].([]any)
	if len(events) != 1 || events[0].(map[string]any)["type"] != string(eventlog.CaptureDenied) {
		t.Errorf("events = %v", events)
	}
	if data["has_more"] != false {
		t.Errorf("has_more = %v", data["has_more"])
	}

	res = th.run(t, "events/view", "")
	data, _ = res["data"].(map[string]any)
	if events, _ := data["events"].([]any); len(events) != 3 {
		t.Errorf("unfiltered events = %v", events)
	}

	res = th.run(t, "events/view", `{"filter":"everything"}`)
	if res["success"] != false {
		t.Errorf("invalid filter accepted: %v", res)
	}
}

func TestEventsViewDisabled(t *testing.T) {
	th := newTestHandler(t, "")
	res := th.run(t, "events/view", "")
	if res["success"] != false || res["error"] != ErrEventLogDisabled.Error() {
		t.Errorf("events/view = %v", res)
	}
}

func TestUnknownCommand(t *testing.T) {
	th := newTestHandler(t, "")
	for _, typ := range []string{"bogus", "audio/bogus", "capture/bogus"} {
		res := th.run(t, typ, "")
		if res["success"] != false || res["error"] != ErrUnknownCommand.Error() {
			t.Errorf("%s = %v", typ, res)
		}
	}
}

func TestCaptureGet(t *testing.T) {
	th := newTestHandler(t, "")
	res := th.run(t, "capture/get", "")
	data, _ := res["data"].(map[string]any)
	if data == nil || data["active"] != false || data["pending"] != false {
		t.Errorf("capture/get = %v", res)
	}
}

func TestHandleActionAsyncRecoversPanic(t *testing.T) {
	send := make(chan any, 1)
	HandleActionAsync(WSCommand{Type: "x/y"}, send, func() (any, error) {
		panic("boom")
	})

	select {
	case msg := <-send:
		res, ok := msg.(commandResult)
		if !ok || res.Success || res.Error != "internal error" || res.Type != "x/y_result" {
			t.Errorf("response = %#v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no response after panic")
	}
}

func TestTrySendDropsWhenFull(t *testing.T) {
	send := make(chan any) // unbuffered, nobody reading
	SendError(send, "x", errors.New("dropped"))
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		origin string
		host   string
		want   bool
	}{
		{"", "meter.example.com", true},
		{"http://localhost:3000", "meter.example.com", true},
		{"http://meter.example.com", "meter.example.com:8080", true},
		{"http://192.168.1.20:8080", "meter.example.com", true},
		{"http://127.0.0.1:8080", "meter.example.com", true},
		{"http://[::1]:8080", "meter.example.com", true},
		{"http://8.8.8.8", "meter.example.com", false},
		{"http://evil.example.org", "meter.example.com", false},
		{"://bad", "meter.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := checkOrigin(r); got != tt.want {
				t.Errorf("checkOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}
