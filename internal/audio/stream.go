package audio

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/google/uuid"

	"github.com/oszuidwest/zwfm-micmeter/internal/media"
	"github.com/oszuidwest/zwfm-micmeter/internal/util"
)

// processStream is a media stream read from a capture subprocess.
type processStream struct {
	id     string
	r      io.Reader
	tracks []media.Track
}

func (s *processStream) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *processStream) ID() string                 { return s.id }
func (s *processStream) Tracks() []media.Track      { return s.tracks }

func (s *processStream) Format() media.Format {
	return media.Format{SampleRate: SampleRate, Channels: Channels}
}

// processTrack is the single audio track of a capture subprocess.
type processTrack struct {
	id     string
	label  string
	cancel context.CancelFunc

	stopOnce sync.Once
	mu       sync.Mutex
	ended    bool
}

func (t *processTrack) ID() string    { return t.id }
func (t *processTrack) Kind() string  { return media.TrackKindAudio }
func (t *processTrack) Label() string { return t.label }

// Stop terminates the capture process. It is idempotent.
func (t *processTrack) Stop() {
	t.stopOnce.Do(func() {
		slog.Debug("stopping capture track", "track", t.id, "device", t.label)
		t.cancel()
		t.markEnded()
	})
}

func (t *processTrack) ReadyState() media.TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		return media.TrackEnded
	}
	return media.TrackLive
}

func (t *processTrack) markEnded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ended = true
}

// drainReader reads process output and closes eof on the first read error,
// so the process is waited for only after its output has been consumed.
type drainReader struct {
	r    io.Reader
	once sync.Once
	eof  chan struct{}
}

func (d *drainReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if err != nil {
		d.once.Do(func() { close(d.eof) })
	}
	return n, err
}

// readResult is the outcome of the grant read.
type readResult struct {
	n   int
	err error
}

// openProcessStream starts command and blocks until it writes its first PCM
// bytes (grant), exits early (refusal or failure), or ctx is done.
func openProcessStream(ctx context.Context, command string, args []string, device string) (media.Stream, error) {
	// The process outlives the request context; only the track stops it.
	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, command, args...)

	// Graceful shutdown: signal first, kill after WaitDelay.
	cmd.Cancel = func() error {
		return util.GracefulSignal(cmd.Process)
	}
	cmd.WaitDelay = ShutdownTimeout

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, classifyFailure("", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	slog.Info("requesting audio capture", "command", command, "device", device)

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, classifyFailure("", err)
	}

	first := make([]byte, grantChunkBytes)
	got := make(chan readResult, 1)
	go func() {
		n, err := io.ReadAtLeast(stdout, first, 1)
		got <- readResult{n: n, err: err}
	}()

	select {
	case r := <-got:
		if r.n == 0 {
			waitErr := cmd.Wait()
			cancel()
			if waitErr == nil {
				waitErr = r.err
			}
			return nil, classifyFailure(stderr.String(), waitErr)
		}
		first = first[:r.n]
	case <-ctx.Done():
		cancel()
		_ = cmd.Wait()
		return nil, &media.Error{Name: media.AbortError, Message: "capture request canceled", Err: ctx.Err()}
	}

	track := &processTrack{
		id:     uuid.NewString(),
		label:  device,
		cancel: cancel,
	}

	out := &drainReader{
		r:   io.MultiReader(bytes.NewReader(first), stdout),
		eof: make(chan struct{}),
	}

	// Wait closes stdout, so it runs once the output is drained or the
	// track is stopped, never while PCM is still being read.
	go func() {
		select {
		case <-out.eof:
		case <-procCtx.Done():
		}
		err := cmd.Wait()
		track.markEnded()
		if msg := util.ExtractLastError(stderr.String()); msg != "" {
			slog.Info("capture process exited", "track", track.id, "error", err, "stderr", msg)
		} else {
			slog.Debug("capture process exited", "track", track.id, "error", err)
		}
	}()

	return &processStream{
		id:     uuid.NewString(),
		r:      out,
		tracks: []media.Track{track},
	}, nil
}
