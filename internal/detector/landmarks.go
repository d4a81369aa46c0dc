// Package detector defines hand observations and the provider interface that
// yields them from video frames.
package detector

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Observation validation errors.
var (
	ErrLandmarkCount = errors.New("observation must have exactly 21 landmarks")
	ErrNonFinite     = errors.New("observation has non-finite coordinates")
	ErrHandedness    = errors.New("observation has unknown handedness")
)

// Handedness is the provider-reported side of a tracked hand.
type Handedness string

const (
	Left  Handedness = "Left"
	Right Handedness = "Right"
)

// Valid reports whether h is one of the two known labels.
func (h Handedness) Valid() bool {
	return h == Left || h == Right
}

// Point3D is a landmark position: x and y in image pixels, z relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandObservation is one hand seen on one frame.
type HandObservation struct {
	Landmarks  []Point3D  `json:"landmarks"`
	Handedness Handedness `json:"handedness"`
	Score      float64    `json:"score,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Validate checks the shape of the observation. An observation that fails
// validation must be discarded and the tick treated as having no hand.
func (o HandObservation) Validate() error {
	if len(o.Landmarks) != NumLandmarks {
		return fmt.Errorf("%w: got %d", ErrLandmarkCount, len(o.Landmarks))
	}
	if !o.Handedness.Valid() {
		return fmt.Errorf("%w: %q", ErrHandedness, o.Handedness)
	}
	for i, p := range o.Landmarks {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return fmt.Errorf("%w: landmark %d", ErrNonFinite, i)
		}
	}
	return nil
}

// Point returns the landmark at index i.
func (o HandObservation) Point(i int) Point3D {
	return o.Landmarks[i]
}

// Clone returns a deep copy of the observation.
func (o HandObservation) Clone() HandObservation {
	o.Landmarks = append([]Point3D(nil), o.Landmarks...)
	return o
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
