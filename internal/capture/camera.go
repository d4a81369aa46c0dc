// Package capture reads camera frames with GoCV and governs the capture
// rate from frame-to-frame motion.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default camera settings.
const (
	DefaultFPS     = 15
	DefaultIdleFPS = 5
	DefaultWidth   = 640
	DefaultHeight  = 480
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// ErrEmptyFrame is returned when the device delivers no image data.
var ErrEmptyFrame = errors.New("captured frame is empty")

// Config selects the device and the capture rates.
type Config struct {
	Device int `yaml:"device" json:"device" env:"DEVICE"`
	Width  int `yaml:"width" json:"width" env:"WIDTH"`
	Height int `yaml:"height" json:"height" env:"HEIGHT"`
	// FPS is the tick rate while the scene is moving.
	FPS int `yaml:"fps" json:"fps" env:"FPS"`
	// IdleFPS is the tick rate after IdleTimeout without motion. Zero
	// disables motion gating.
	IdleFPS         int           `yaml:"idle_fps" json:"idle_fps" env:"IDLE_FPS"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout" env:"IDLE_TIMEOUT"`
	MotionThreshold float64       `yaml:"motion_threshold" json:"motion_threshold" env:"MOTION_THRESHOLD"`
	// Mirror flips frames horizontally so the preview reads like a mirror.
	Mirror bool `yaml:"mirror" json:"mirror" env:"MIRROR"`
}

// DefaultConfig returns 640x480 at 15 fps, dropping to 5 fps after two
// seconds without motion.
func DefaultConfig() Config {
	return Config{
		Width:           DefaultWidth,
		Height:          DefaultHeight,
		FPS:             DefaultFPS,
		IdleFPS:         DefaultIdleFPS,
		IdleTimeout:     2 * time.Second,
		MotionThreshold: 1.0,
		Mirror:          true,
	}
}

// Validate reports settings the camera cannot run with.
func (c Config) Validate() error {
	if c.FPS <= 0 {
		return fmt.Errorf("capture fps must be positive, got %d", c.FPS)
	}
	if c.IdleFPS < 0 || c.IdleFPS > c.FPS {
		return fmt.Errorf("capture idle_fps must be in [0, %d], got %d", c.FPS, c.IdleFPS)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("capture size must be positive, got %dx%d", c.Width, c.Height)
	}
	return nil
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller closes the Mat.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

type gocvCamera struct {
	cfg     Config
	capture *gocv.VideoCapture
	mu      sync.Mutex
	fps     int
}

// NewCamera creates a camera for cfg.Device. It is not opened.
func NewCamera(cfg Config) Camera {
	return &gocvCamera{cfg: cfg, fps: cfg.FPS}
}

func (c *gocvCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.cfg.Device)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.cfg.Device, err)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = vc
	return nil
}

func (c *gocvCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

func (c *gocvCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}
	if mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}
	if c.cfg.Mirror {
		gocv.Flip(mat, &mat, 1)
	}
	return &mat, nil
}

// SetFPS ignores values less than or equal to 0.
func (c *gocvCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *gocvCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *gocvCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
