package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	blurKernel = 21
	// pixelDelta is the grey-level change that counts a pixel as moving.
	pixelDelta = 25
)

// Motion measures the share of pixels that changed since the previous
// frame. The first frame only sets the baseline.
type Motion struct {
	threshold float64
	prev      gocv.Mat
	primed    bool
	mu        sync.Mutex
}

// NewMotion reports motion when more than threshold percent of the pixels
// change between frames.
func NewMotion(threshold float64) *Motion {
	return &Motion{threshold: threshold, prev: gocv.NewMat()}
}

// Detect compares frame with the previous one and returns whether it moved
// and the changed percentage.
func (m *Motion) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}
	gocv.GaussianBlur(gray, &gray, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)

	if !m.primed || gray.Rows() != m.prev.Rows() || gray.Cols() != m.prev.Cols() {
		gray.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, m.prev, &diff)
	gocv.Threshold(diff, &diff, pixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	gray.CopyTo(&m.prev)
	return changed > m.threshold, changed
}

// Reset drops the baseline frame.
func (m *Motion) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primed = false
}

// Close releases the baseline frame.
func (m *Motion) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prev.Close()
	m.primed = false
}
