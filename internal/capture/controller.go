// Package capture owns the microphone capture flow: requesting a stream,
// building the analysis graph, running the meter and tearing it all down.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-micmeter/internal/analysis"
	"github.com/oszuidwest/zwfm-micmeter/internal/eventlog"
	"github.com/oszuidwest/zwfm-micmeter/internal/media"
	"github.com/oszuidwest/zwfm-micmeter/internal/meter"
	"github.com/oszuidwest/zwfm-micmeter/internal/observe"
	"github.com/oszuidwest/zwfm-micmeter/internal/ui"
	"github.com/oszuidwest/zwfm-micmeter/internal/util"
)

// Trigger is the control that starts capture.
type Trigger interface {
	SetEnabled(enabled bool)
}

// StatusText is the status line shown to the user.
type StatusText interface {
	SetText(text string)
}

// Page is the set of page handles the controller drives.
type Page interface {
	Trigger
	StatusText
	meter.Bar
}

// Config holds the controller's collaborators.
type Config struct {
	// Devices is the host capture capability. Nil means unsupported.
	Devices media.Devices
	// Page receives trigger, status and meter updates.
	Page Page
	// Messages renders status strings. Default: English.
	Messages *ui.Messages
	// Refresh returns a new display refresh signal per session.
	// Default: ui.NewRefreshTicker at ui.DefaultFrameRate.
	Refresh func() RefreshSource
	// Metrics records capture metrics. Default: discarded.
	Metrics *observe.Metrics
	// Events is the optional diagnostic event log.
	Events *eventlog.Logger
	// Input is the preferred input device (empty = platform default).
	Input string
}

// Controller runs at most one capture session at a time.
type Controller struct {
	devices  media.Devices
	page     Page
	messages *ui.Messages
	refresh  func() RefreshSource
	metrics  *observe.Metrics
	events   *eventlog.Logger

	mu      sync.Mutex
	input   string
	pending bool // a stream request is outstanding
	closed  bool // Teardown has run
	session *Session
}

// New creates a controller.
func New(cfg Config) *Controller {
	c := &Controller{
		devices:  cfg.Devices,
		page:     cfg.Page,
		messages: cfg.Messages,
		refresh:  cfg.Refresh,
		metrics:  cfg.Metrics,
		events:   cfg.Events,
		input:    cfg.Input,
	}
	if c.messages == nil {
		c.messages = ui.NewMessages("")
	}
	if c.refresh == nil {
		c.refresh = func() RefreshSource { return ui.NewRefreshTicker(ui.DefaultFrameRate) }
	}
	if c.metrics == nil {
		c.metrics = observe.Discard()
	}
	return c
}

// Bind starts capture on every click of the page trigger.
func (c *Controller) Bind(ctx context.Context, p *ui.Page) {
	p.OnClick(func() {
		c.StartCapture(ctx)
	})
}

// SetInput sets the device used by the next capture request.
func (c *Controller) SetInput(device string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = device
}

// Input returns the configured input device.
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Session returns the live session, or nil.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.context.State() == analysis.StateClosed {
		return nil
	}
	return c.session
}

// Pending reports whether a stream request is outstanding.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// StartCapture requests an audio stream and, once granted, starts the meter.
// It blocks until the platform answers or ctx is canceled. The trigger is
// disabled before the request is made; it is re-enabled on every failure
// except an unsupported host.
func (c *Controller) StartCapture(ctx context.Context) Outcome {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Outcome{Denial: &Denial{Kind: DenialOther, Description: ErrControllerClosed.Error(), Err: ErrControllerClosed}}
	}
	if c.pending || c.session != nil {
		c.mu.Unlock()
		return Outcome{Denial: &Denial{Kind: DenialOther, Description: ErrCaptureInProgress.Error(), Err: ErrCaptureInProgress}}
	}
	c.pending = true
	input := c.input
	c.mu.Unlock()

	c.page.SetEnabled(false)
	c.page.SetText(c.messages.RequestingPermission())

	if c.devices == nil || !c.devices.Supported() {
		return c.unsupported(ctx)
	}

	c.logEvent(eventlog.CaptureRequested, "", "", &eventlog.CaptureDetails{Device: input})

	constraints := media.AudioOnly()
	constraints.DeviceID = input
	stream, err := c.devices.GetUserMedia(ctx, constraints)
	if err != nil {
		return c.fail(ctx, err)
	}

	c.mu.Lock()
	if c.closed {
		c.pending = false
		c.mu.Unlock()
		media.StopTracks(stream)
		return Outcome{Denial: &Denial{Kind: DenialOther, Description: ErrControllerClosed.Error(), Err: ErrControllerClosed}}
	}

	session, err := c.buildSession(ctx, stream)
	if err != nil {
		c.mu.Unlock()
		media.StopTracks(stream)
		return c.fail(ctx, err)
	}
	c.session = session
	c.pending = false
	c.mu.Unlock()

	c.metrics.RecordCaptureAttempt(ctx, observe.OutcomeGranted)
	c.metrics.CaptureActive.Add(ctx, 1)
	slog.Info("audio capture started",
		"stream", session.ID(),
		"device", session.Device(),
		"fft_size", meter.FFTSize,
		"bins", len(session.buffer))
	c.logEvent(eventlog.CaptureGranted, session.ID(), "", &eventlog.CaptureDetails{
		Device:  session.Device(),
		FFTSize: meter.FFTSize,
		Bins:    len(session.buffer),
	})

	return Outcome{Session: session}
}

// buildSession wires stream → source → analyser and starts the meter.
// Caller must hold c.mu.
func (c *Controller) buildSession(ctx context.Context, stream media.Stream) (*Session, error) {
	actx := analysis.NewContext()

	analyser, err := actx.CreateAnalyser()
	if err != nil {
		return nil, util.WrapError("create analyser", err)
	}
	source, err := actx.CreateMediaStreamSource(stream)
	if err != nil {
		_ = actx.Close()
		return nil, util.WrapError("create stream source", err)
	}
	if err := analyser.SetFFTSize(meter.FFTSize); err != nil {
		_ = actx.Close()
		return nil, util.WrapError("configure analyser", err)
	}
	if err := source.Connect(analyser); err != nil {
		_ = actx.Close()
		return nil, util.WrapError("connect source", err)
	}

	s := &Session{
		stream:   stream,
		context:  actx,
		source:   source,
		analyser: analyser,
		buffer:   make([]uint8, analyser.FrequencyBinCount()),
		started:  time.Now(),
	}

	c.page.SetText(c.messages.Capturing())

	loop := meter.NewLoop(analyser, s.buffer, c.page)
	loop.OnFrame(func(pct float64) {
		s.frames.Add(1)
		c.metrics.RecordFrame(ctx, pct)
	})
	s.signal = c.refresh()
	s.loop = loop.Run(s.signal)

	go c.watchSource(s)

	return s, nil
}

// watchSource logs when the input stream ends on its own, for example when
// the device goes away. The meter then decays to zero.
func (c *Controller) watchSource(s *Session) {
	<-s.source.Ended()

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	slog.Warn("audio input ended", "stream", s.ID(), "device", s.Device())
}

func (c *Controller) unsupported(ctx context.Context) Outcome {
	c.mu.Lock()
	c.pending = false
	c.mu.Unlock()

	msg := c.messages.Unsupported()
	c.page.SetText(msg)
	slog.Error("audio capture is not supported on this host")
	c.metrics.RecordCaptureAttempt(ctx, observe.OutcomeUnsupported)
	c.logEvent(eventlog.CaptureUnsupported, "", msg, nil)

	return Outcome{Denial: &Denial{Kind: DenialUnsupported}}
}

func (c *Controller) fail(ctx context.Context, err error) Outcome {
	c.mu.Lock()
	c.pending = false
	c.mu.Unlock()

	details := &eventlog.CaptureDetails{Error: err.Error()}
	var me *media.Error
	if errors.As(err, &me) {
		details.ErrorName = string(me.Name)
	}

	var d *Denial
	if media.IsPermissionDenied(err) {
		d = &Denial{Kind: DenialPermission, Err: err}
		c.page.SetText(c.messages.PermissionDenied())
		slog.Error("microphone permission denied", "error", err)
		c.metrics.RecordCaptureAttempt(ctx, observe.OutcomeDenied)
		c.logEvent(eventlog.CaptureDenied, "", "", details)
	} else {
		d = &Denial{Kind: DenialOther, Description: media.Description(err), Err: err}
		c.page.SetText(c.messages.CaptureError(d.Description))
		slog.Error("failed to access microphone", "error", err)
		c.metrics.RecordCaptureAttempt(ctx, observe.OutcomeError)
		c.logEvent(eventlog.CaptureError, "", "", details)
	}

	c.page.SetEnabled(true)
	return Outcome{Denial: d}
}

// Teardown releases the live session: the meter stops, every track is
// stopped and the processing context is closed. Later calls do nothing.
// Stream grants that arrive after Teardown are released immediately.
func (c *Controller) Teardown() {
	c.mu.Lock()
	c.closed = true
	s := c.session
	if s == nil || s.context.State() == analysis.StateClosed {
		c.mu.Unlock()
		return
	}

	s.loop.Stop()
	s.signal.Stop()
	media.StopTracks(s.stream)
	if err := s.context.Close(); err != nil {
		slog.Warn("failed to close audio context", "error", err)
	}
	c.mu.Unlock()

	c.page.SetText(c.messages.CaptureEnded())
	c.metrics.CaptureActive.Add(context.Background(), -1)
	slog.Info("audio capture ended", "stream", s.ID(), "frames", s.Frames(), "duration", time.Since(s.started).Round(time.Millisecond))
	c.logEvent(eventlog.CaptureEnded, s.ID(), "", &eventlog.CaptureDetails{
		Device: s.Device(),
		Frames: s.Frames(),
	})
}

func (c *Controller) logEvent(t eventlog.EventType, streamID, msg string, details *eventlog.CaptureDetails) {
	if c.events == nil {
		return
	}
	if err := c.events.LogCapture(t, streamID, msg, details); err != nil {
		slog.Warn("failed to write event log", "type", t, "error", err)
	}
}
