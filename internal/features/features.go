// Package features derives per-tick hand features from one observation.
package features

import (
	"math"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// MinHandScale is the hand scale in pixels below which normalization is
// skipped and raw distances are used.
const MinHandScale = 1e-3

// Vec2 is a 2D point or displacement in image pixels.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v-o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v*k.
func (v Vec2) Scale(k float64) Vec2 { return Vec2{v.X * k, v.Y * k} }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

func pt(p detector.Point3D) Vec2 { return Vec2{p.X, p.Y} }

// Features is the read-only snapshot computed fresh every tick.
type Features struct {
	Fingers       Fingers             `json:"fingers"`
	HandScale     float64             `json:"hand_scale"`
	PinchDistance float64             `json:"pinch_distance"`
	PinchCenter   Vec2                `json:"pinch_center"`
	IndexTip      Vec2                `json:"index_tip"`
	Palm          Vec2                `json:"palm"`
	Handedness    detector.Handedness `json:"handedness"`
	Timestamp     time.Time           `json:"timestamp"`
}

// Extract derives features from one hand. It fails when the observation is
// malformed; callers treat that tick as having no hand.
func Extract(obs detector.HandObservation) (Features, error) {
	if err := obs.Validate(); err != nil {
		return Features{}, err
	}

	thumb := pt(obs.Point(detector.ThumbTip))
	index := pt(obs.Point(detector.IndexTip))

	return Features{
		Fingers:       fingersUp(obs),
		HandScale:     pt(obs.Point(detector.MiddleMCP)).Sub(pt(obs.Point(detector.Wrist))).Len(),
		PinchDistance: index.Sub(thumb).Len(),
		PinchCenter:   thumb.Add(index).Scale(0.5),
		IndexTip:      index,
		Palm:          pt(obs.Point(detector.MiddleMCP)),
		Handedness:    obs.Handedness,
		Timestamp:     obs.Timestamp,
	}, nil
}

// fingersUp classifies each digit. The thumb moves laterally so it compares
// x against its IP joint, mirrored by handedness. The other digits compare
// the tip's y against the joint two positions back (image y grows downward).
func fingersUp(obs detector.HandObservation) Fingers {
	var f Fingers

	tip, ip := obs.Point(detector.ThumbTip), obs.Point(detector.ThumbIP)
	if obs.Handedness == detector.Right {
		f[Thumb] = tip.X < ip.X
	} else {
		f[Thumb] = tip.X > ip.X
	}

	tips := [...]int{detector.IndexTip, detector.MiddleTip, detector.RingTip, detector.PinkyTip}
	for i, t := range tips {
		f[Index+i] = obs.Point(t).Y < obs.Point(t-2).Y
	}

	return f
}

// Degenerate reports whether the hand scale is too small to normalize by.
func (f Features) Degenerate() bool {
	return !(f.HandScale >= MinHandScale)
}

// Normalize divides d by the hand scale, or returns d unchanged when the
// scale is degenerate.
func (f Features) Normalize(d float64) float64 {
	if f.Degenerate() {
		return d
	}
	return d / f.HandScale
}

// NormalizeVec divides v by the hand scale with the same fallback as Normalize.
func (f Features) NormalizeVec(v Vec2) Vec2 {
	if f.Degenerate() {
		return v
	}
	return v.Scale(1 / f.HandScale)
}

// NormalizedPinch returns the pinch distance in hand-scale units.
func (f Features) NormalizedPinch() float64 {
	return f.Normalize(f.PinchDistance)
}
