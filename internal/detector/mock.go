package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Provider interface.
// It allows tests to control the detection results.
type MockDetector struct {
	hands []HandObservation
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandObservation) {
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandObservation, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Pose builds a synthetic hand whose finger-up classification matches
// pattern (five characters of '1' or '0', thumb first) and whose index
// fingertip lands on indexTip. The hand scale (wrist to middle MCP) is 100px.
//
// The geometry is drawn for a Right hand and mirrored horizontally for Left,
// so the thumb classification follows the mirrored-video convention.
func Pose(pattern string, handedness Handedness, indexTip Point3D, ts time.Time) HandObservation {
	up := func(i int) bool { return i < len(pattern) && pattern[i] == '1' }

	pts := make([]Point3D, NumLandmarks)
	pts[Wrist] = Point3D{X: 0, Y: 100}

	// Thumb: lateral digit, up means tip beyond the IP joint on the -x side.
	pts[ThumbCMC] = Point3D{X: -20, Y: 80}
	pts[ThumbMCP] = Point3D{X: -35, Y: 50}
	pts[ThumbIP] = Point3D{X: -50, Y: 20}
	if up(0) {
		pts[ThumbTip] = Point3D{X: -80, Y: 10}
	} else {
		pts[ThumbTip] = Point3D{X: -30, Y: 30}
	}

	bases := [4]float64{-30, 0, 25, 50}
	for f := 0; f < 4; f++ {
		mcp := IndexMCP + f*4
		x := bases[f]
		pts[mcp] = Point3D{X: x, Y: 0}
		if up(f + 1) {
			pts[mcp+1] = Point3D{X: x, Y: -40}
			pts[mcp+2] = Point3D{X: x, Y: -60}
			pts[mcp+3] = Point3D{X: x, Y: -80}
		} else {
			pts[mcp+1] = Point3D{X: x, Y: -20}
			pts[mcp+2] = Point3D{X: x, Y: -5}
			pts[mcp+3] = Point3D{X: x, Y: 10}
		}
	}

	if handedness == Left {
		for i := range pts {
			pts[i].X = -pts[i].X
		}
	}

	dx := indexTip.X - pts[IndexTip].X
	dy := indexTip.Y - pts[IndexTip].Y
	for i := range pts {
		pts[i].X += dx
		pts[i].Y += dy
	}

	return HandObservation{
		Landmarks:  pts,
		Handedness: handedness,
		Score:      0.95,
		Timestamp:  ts,
	}
}

// OpenPalm returns a Right hand with all five digits extended.
func OpenPalm(indexTip Point3D, ts time.Time) HandObservation {
	return Pose("11111", Right, indexTip, ts)
}

// Fist returns a Right hand with every digit closed.
func Fist(indexTip Point3D, ts time.Time) HandObservation {
	return Pose("00000", Right, indexTip, ts)
}
