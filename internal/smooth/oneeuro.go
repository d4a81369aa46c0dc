// Package smooth provides adaptive low-pass filtering of landmark coordinates.
package smooth

import (
	"math"
	"time"
)

// Params configures a One Euro filter.
type Params struct {
	// Frequency is the nominal sampling rate in Hz, used when timestamps
	// are missing or do not advance.
	Frequency float64 `yaml:"frequency" json:"frequency" env:"FREQUENCY"`
	// MinCutoff is the cutoff frequency in Hz applied at rest.
	MinCutoff float64 `yaml:"min_cutoff" json:"min_cutoff" env:"MIN_CUTOFF"`
	// Beta scales how much the cutoff widens with speed.
	Beta float64 `yaml:"beta" json:"beta" env:"BETA"`
	// DerivativeCutoff is the fixed cutoff for the rate estimate.
	DerivativeCutoff float64 `yaml:"d_cutoff" json:"d_cutoff" env:"D_CUTOFF"`
}

// DefaultParams returns filter parameters tuned for 30 fps pixel input.
func DefaultParams() Params {
	return Params{
		Frequency:        30,
		MinCutoff:        1.0,
		Beta:             0.01,
		DerivativeCutoff: 1.0,
	}
}

// OneEuro filters one scalar channel. Faster motion widens the cutoff so the
// output lags less; slow motion narrows it so jitter is suppressed.
type OneEuro struct {
	params      Params
	prev        float64
	dxPrev      float64
	lastT       time.Time
	initialized bool
}

// NewOneEuro creates a filter with the given parameters.
func NewOneEuro(p Params) *OneEuro {
	return &OneEuro{params: p}
}

// Filter returns the smoothed value of x sampled at t. The first sample is
// returned unchanged and seeds the filter.
func (f *OneEuro) Filter(x float64, t time.Time) float64 {
	if !f.initialized {
		f.prev = x
		f.dxPrev = 0
		f.lastT = t
		f.initialized = true
		return x
	}

	te := f.interval(t)
	if !t.IsZero() {
		f.lastT = t
	}

	ad := alpha(f.params.DerivativeCutoff, te)
	dx := (x - f.prev) / te
	dxHat := ad*dx + (1-ad)*f.dxPrev

	cutoff := f.params.MinCutoff + f.params.Beta*math.Abs(dxHat)
	a := alpha(cutoff, te)
	xHat := a*x + (1-a)*f.prev

	f.prev = xHat
	f.dxPrev = dxHat
	return xHat
}

// Reset discards the filter state; the next sample bootstraps it again.
func (f *OneEuro) Reset() {
	f.initialized = false
	f.prev = 0
	f.dxPrev = 0
	f.lastT = time.Time{}
}

// interval returns the sampling period in seconds.
func (f *OneEuro) interval(t time.Time) float64 {
	if !t.IsZero() && !f.lastT.IsZero() && t.After(f.lastT) {
		return t.Sub(f.lastT).Seconds()
	}
	if f.params.Frequency > 0 {
		return 1 / f.params.Frequency
	}
	return 1.0 / 30
}

func alpha(cutoff, te float64) float64 {
	if cutoff <= 0 {
		return 0
	}
	tau := 1 / (2 * math.Pi * cutoff)
	return 1 / (1 + tau/te)
}
