package detector

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestHandObservation_Validate(t *testing.T) {
	base := Pose("11111", Right, Point3D{X: 300, Y: 200}, time.Unix(0, 0))

	tests := []struct {
		name    string
		mutate  func(o *HandObservation)
		wantErr error
	}{
		{
			name:   "valid pose",
			mutate: func(o *HandObservation) {},
		},
		{
			name:    "too few landmarks",
			mutate:  func(o *HandObservation) { o.Landmarks = o.Landmarks[:20] },
			wantErr: ErrLandmarkCount,
		},
		{
			name:    "too many landmarks",
			mutate:  func(o *HandObservation) { o.Landmarks = append(o.Landmarks, Point3D{}) },
			wantErr: ErrLandmarkCount,
		},
		{
			name:    "no landmarks",
			mutate:  func(o *HandObservation) { o.Landmarks = nil },
			wantErr: ErrLandmarkCount,
		},
		{
			name:    "NaN coordinate",
			mutate:  func(o *HandObservation) { o.Landmarks[IndexTip].X = math.NaN() },
			wantErr: ErrNonFinite,
		},
		{
			name:    "infinite depth",
			mutate:  func(o *HandObservation) { o.Landmarks[Wrist].Z = math.Inf(-1) },
			wantErr: ErrNonFinite,
		},
		{
			name:    "unknown handedness",
			mutate:  func(o *HandObservation) { o.Handedness = "Both" },
			wantErr: ErrHandedness,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := base.Clone()
			tt.mutate(&obs)

			err := obs.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandObservation_ValidateZero(t *testing.T) {
	var obs HandObservation
	if err := obs.Validate(); !errors.Is(err, ErrLandmarkCount) {
		t.Errorf("zero observation error = %v, want %v", err, ErrLandmarkCount)
	}

	ref := &obs
	if err := ref.Validate(); !errors.Is(err, ErrLandmarkCount) {
		t.Errorf("pointer observation error = %v, want %v", err, ErrLandmarkCount)
	}
}

func TestHandObservation_CloneIsDeep(t *testing.T) {
	obs := OpenPalm(Point3D{X: 10, Y: 10}, time.Unix(0, 0))
	clone := obs.Clone()
	clone.Landmarks[Wrist].X = 9999

	if obs.Landmarks[Wrist].X == 9999 {
		t.Error("mutating the clone changed the original")
	}
}

func TestPose_IndexTipPlacement(t *testing.T) {
	target := Point3D{X: 20, Y: 20}
	for _, h := range []Handedness{Left, Right} {
		obs := Pose("11100", h, target, time.Unix(0, 0))
		got := obs.Point(IndexTip)
		if got.X != target.X || got.Y != target.Y {
			t.Errorf("%s index tip = %+v, want %+v", h, got, target)
		}
		if len(obs.Landmarks) != NumLandmarks {
			t.Errorf("%s landmark count = %d, want %d", h, len(obs.Landmarks), NumLandmarks)
		}
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandObservation{Fist(Point3D{X: 1, Y: 2}, time.Unix(0, 0))})

		hands, err := mock.Detect(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
		if mock.Calls() != 1 {
			t.Errorf("Calls() = %d, want 1", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		want := errors.New("detector failure")
		mock.SetError(want)

		_, err := mock.Detect(nil)
		if !errors.Is(err, want) {
			t.Errorf("error = %v, want %v", err, want)
		}
	})

	t.Run("close is a no-op", func(t *testing.T) {
		if err := NewMockDetector().Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
}

func TestJSONHand_ToObservation(t *testing.T) {
	h := jsonHand{
		Handedness: "Left",
		Score:      0.8,
		Points:     make([]jsonPoint, NumLandmarks),
	}
	h.Points[IndexTip] = jsonPoint{X: 0.5, Y: 0.25, Z: -0.1}

	ts := time.Unix(100, 0)
	obs := h.toObservation(1280, 720, ts)

	if obs.Handedness != Left {
		t.Errorf("handedness = %q, want Left", obs.Handedness)
	}
	tip := obs.Point(IndexTip)
	if tip.X != 640 || tip.Y != 180 || tip.Z != -0.1 {
		t.Errorf("index tip = %+v, want {640 180 -0.1}", tip)
	}
	if !obs.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", obs.Timestamp, ts)
	}

	short := jsonHand{Handedness: "Right", Points: make([]jsonPoint, 5)}
	shortObs := short.toObservation(640, 480, ts)
	if err := shortObs.Validate(); !errors.Is(err, ErrLandmarkCount) {
		t.Errorf("short response Validate() = %v, want %v", err, ErrLandmarkCount)
	}
}

func TestMediaPipeDetector_NextTimestampMonotonic(t *testing.T) {
	d := &MediaPipeDetector{}
	t0 := time.UnixMilli(5000)

	first := d.nextTimestamp(t0)
	second := d.nextTimestamp(t0)
	third := d.nextTimestamp(t0.Add(-time.Second))

	if !(first < second && second < third) {
		t.Errorf("timestamps not strictly increasing: %d, %d, %d", first, second, third)
	}
}
