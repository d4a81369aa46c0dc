package detector

import "gocv.io/x/gocv"

// Provider defines the interface for hand landmark providers.
type Provider interface {
	// Detect analyzes a video frame and returns the observed hands in
	// image pixel coordinates. Returns an empty slice if no hands are seen.
	Detect(frame *gocv.Mat) ([]HandObservation, error)

	// Close releases any resources held by the provider.
	Close() error
}

// RunningMode tells the provider whether consecutive frames belong to one
// continuous video stream.
type RunningMode string

const (
	// ModeVideo tracks hands across frames; filters may rely on continuity.
	ModeVideo RunningMode = "video"
	// ModeImage detects each frame independently.
	ModeImage RunningMode = "image"
)

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int `yaml:"max_hands" json:"max_hands" env:"MAX_HANDS"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence" env:"MIN_CONFIDENCE"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `yaml:"min_tracking_confidence" json:"min_tracking_confidence" env:"MIN_TRACKING_CONFIDENCE"`

	// Mode selects video tracking or per-frame detection.
	Mode RunningMode `yaml:"mode" json:"mode" env:"MODE"`

	// ScriptPath overrides the location of the MediaPipe service script.
	ScriptPath string `yaml:"script_path" json:"script_path" env:"SCRIPT_PATH"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		Mode:            ModeVideo,
	}
}
