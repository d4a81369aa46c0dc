package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/time/rate"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/logging"
)

// Tick is the input of one engine step: its time and the hands seen.
// Held marks a tick where detection was skipped and Hands repeats the
// last detection.
type Tick struct {
	Time  time.Time                  `json:"time"`
	Hands []detector.HandObservation `json:"hands,omitempty"`
	Held  bool                       `json:"held,omitempty"`
}

// Source produces ticks. Next blocks until the next tick is due and returns
// io.EOF when the source is exhausted.
type Source interface {
	Next(ctx context.Context) (Tick, error)
	Close() error
}

// CameraSource reads frames from a camera, gates detection on motion and
// runs the landmark provider on moving frames.
type CameraSource struct {
	camera   capture.Camera
	provider detector.Provider
	motion   *capture.Motion
	governor *capture.Governor
	logger   *slog.Logger
	warn     *rate.Sometimes
	preview  bool
	now      func() time.Time

	next time.Time
	last []detector.HandObservation

	mu   sync.RWMutex
	jpeg []byte
}

// CameraOption configures a CameraSource.
type CameraOption func(*CameraSource)

// WithCameraLogger sets the logger.
func WithCameraLogger(logger *slog.Logger) CameraOption {
	return func(s *CameraSource) {
		s.logger = logger
	}
}

// WithPreview keeps the latest frame as JPEG for Snapshot.
func WithPreview() CameraOption {
	return func(s *CameraSource) {
		s.preview = true
	}
}

// NewCameraSource wires cam and provider with the rates of cfg.
func NewCameraSource(cam capture.Camera, provider detector.Provider, cfg capture.Config, opts ...CameraOption) *CameraSource {
	s := &CameraSource{
		camera:   cam,
		provider: provider,
		motion:   capture.NewMotion(cfg.MotionThreshold),
		governor: capture.NewGovernor(cfg),
		logger:   logging.NewNop(),
		warn:     &rate.Sometimes{First: 1, Interval: 5 * time.Second},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens the camera at the starting rate.
func (s *CameraSource) Open() error {
	if err := s.camera.Open(); err != nil {
		return err
	}
	s.camera.SetFPS(s.governor.FPS())
	return nil
}

// Next waits out the current tick interval, then reads and analyzes one
// frame. Read and detection failures yield an empty tick. While the scene is
// still, detection is skipped and the last detected hands are held.
func (s *CameraSource) Next(ctx context.Context) (Tick, error) {
	if err := s.wait(ctx); err != nil {
		return Tick{}, err
	}
	now := s.now()
	s.next = now.Add(s.governor.Interval())

	frame, err := s.camera.ReadFrame()
	if errors.Is(err, capture.ErrNoMoreFrames) {
		return Tick{}, io.EOF
	}
	if errors.Is(err, capture.ErrCameraNotOpen) {
		return Tick{}, err
	}
	if err != nil {
		s.warn.Do(func() { s.logger.Warn("camera read failed", "error", err) })
		return Tick{Time: now}, nil
	}
	defer frame.Close()

	moved, pct := s.motion.Detect(frame)
	if s.governor.Observe(moved, now) {
		s.camera.SetFPS(s.governor.FPS())
		s.logger.Debug("capture rate changed", "fps", s.governor.FPS(), "motion_pct", pct)
	}
	if s.preview {
		s.snapshot(frame)
	}
	if !s.governor.Active() {
		return Tick{Time: now, Hands: s.held(now), Held: true}, nil
	}

	hands, err := s.provider.Detect(frame)
	if err != nil {
		s.last = nil
		s.warn.Do(func() { s.logger.Warn("hand detection failed", "error", err) })
		return Tick{Time: now}, nil
	}
	s.last = hands
	return Tick{Time: now, Hands: hands}, nil
}

// held restamps a copy of the last detection at now.
func (s *CameraSource) held(now time.Time) []detector.HandObservation {
	if len(s.last) == 0 {
		return nil
	}
	hands := make([]detector.HandObservation, len(s.last))
	for i, h := range s.last {
		hands[i] = h.Clone()
		hands[i].Timestamp = now
	}
	return hands
}

func (s *CameraSource) wait(ctx context.Context) error {
	d := time.Until(s.next)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *CameraSource) snapshot(frame *gocv.Mat) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return
	}
	defer buf.Close()
	jpeg := append([]byte(nil), buf.GetBytes()...)

	s.mu.Lock()
	s.jpeg = jpeg
	s.mu.Unlock()
}

// Snapshot returns the latest preview frame as JPEG.
func (s *CameraSource) Snapshot() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jpeg, s.jpeg != nil
}

// FPS returns the current tick rate.
func (s *CameraSource) FPS() int {
	return s.governor.FPS()
}

// Close releases the provider and the camera.
func (s *CameraSource) Close() error {
	s.motion.Close()
	return errors.Join(s.provider.Close(), s.camera.Close())
}

// DefaultReplayInterval spaces replayed ticks that carry no time.
const DefaultReplayInterval = time.Second / capture.DefaultFPS

// ReplaySource plays ticks recorded as JSON lines. Each line is a Tick;
// a line without a time is placed one interval after the previous one.
type ReplaySource struct {
	scanner  *bufio.Scanner
	closer   io.Closer
	realtime bool
	line     int
	last     time.Time
}

// ReplayOption configures a ReplaySource.
type ReplayOption func(*ReplaySource)

// WithRealtime paces the replay by the recorded tick times.
func WithRealtime() ReplayOption {
	return func(s *ReplaySource) {
		s.realtime = true
	}
}

// NewReplaySource reads ticks from r.
func NewReplaySource(r io.Reader, opts ...ReplayOption) *ReplaySource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	s := &ReplaySource{scanner: sc}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenReplay opens a replay file.
func OpenReplay(path string, opts ...ReplayOption) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	s := NewReplaySource(f, opts...)
	s.closer = f
	return s, nil
}

// Next returns the next recorded tick.
func (s *ReplaySource) Next(ctx context.Context) (Tick, error) {
	if err := ctx.Err(); err != nil {
		return Tick{}, err
	}
	for s.scanner.Scan() {
		s.line++
		raw := s.scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var t Tick
		if err := json.Unmarshal(raw, &t); err != nil {
			return Tick{}, fmt.Errorf("replay line %d: %w", s.line, err)
		}
		if t.Time.IsZero() {
			if s.last.IsZero() {
				t.Time = time.Unix(0, 0).UTC()
			} else {
				t.Time = s.last.Add(DefaultReplayInterval)
			}
		}
		if err := s.pace(ctx, t.Time); err != nil {
			return Tick{}, err
		}
		s.last = t.Time
		return t, nil
	}
	if err := s.scanner.Err(); err != nil {
		return Tick{}, fmt.Errorf("replay line %d: %w", s.line+1, err)
	}
	return Tick{}, io.EOF
}

func (s *ReplaySource) pace(ctx context.Context, at time.Time) error {
	if !s.realtime {
		return nil
	}
	if s.last.IsZero() {
		return nil
	}
	d := at.Sub(s.last)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close closes the underlying file, if the source opened one.
func (s *ReplaySource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Recording wraps a source and writes every tick it yields to w as a JSON
// line, so that it can later be played back with ReplaySource.
type Recording struct {
	Source
	enc *json.Encoder
}

// NewRecording tees the ticks of src into w.
func NewRecording(src Source, w io.Writer) *Recording {
	return &Recording{Source: src, enc: json.NewEncoder(w)}
}

// Next returns the next tick of the wrapped source after recording it.
func (r *Recording) Next(ctx context.Context) (Tick, error) {
	t, err := r.Source.Next(ctx)
	if err != nil {
		return t, err
	}
	if err := r.enc.Encode(t); err != nil {
		return t, fmt.Errorf("record tick: %w", err)
	}
	return t, nil
}
