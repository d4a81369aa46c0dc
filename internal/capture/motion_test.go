package capture

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

func TestMotion_Detect(t *testing.T) {
	still := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer still.Close()
	moved := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer moved.Close()
	gocv.Rectangle(&moved, image.Rect(20, 20, 120, 100), color.RGBA{255, 255, 255, 0}, -1)

	m := NewMotion(1.0)
	defer m.Close()

	if ok, _ := m.Detect(&still); ok {
		t.Fatal("first frame should only set the baseline")
	}
	if ok, pct := m.Detect(&still); ok || pct != 0 {
		t.Errorf("identical frame: moved=%v pct=%v, want false 0", ok, pct)
	}
	if ok, pct := m.Detect(&moved); !ok {
		t.Errorf("changed frame: moved=%v pct=%v, want true", ok, pct)
	}

	m.Reset()
	if ok, _ := m.Detect(&still); ok {
		t.Error("first frame after Reset should only set the baseline")
	}
}

func TestMotion_Detect_Empty(t *testing.T) {
	m := NewMotion(1.0)
	defer m.Close()

	if ok, _ := m.Detect(nil); ok {
		t.Error("nil frame should not report motion")
	}
	empty := gocv.NewMat()
	defer empty.Close()
	if ok, _ := m.Detect(&empty); ok {
		t.Error("empty frame should not report motion")
	}
}
