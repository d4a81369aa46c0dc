package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/features"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func tick(i int) time.Time {
	return t0.Add(time.Duration(i) * 33 * time.Millisecond)
}

func norm(x, y float64, i int) SwipeSample {
	return SwipeSample{
		Position:   features.Vec2{X: x, Y: y},
		Normalized: features.Vec2{X: x, Y: y},
		HandScale:  1,
		Gated:      true,
		Time:       tick(i),
	}
}

func consensusConfig() SwipeConfig {
	cfg := DefaultSwipeConfig()
	cfg.Mode = ModeConsensus
	return cfg
}

func TestConsensus_SteadyMotionFiresOnce(t *testing.T) {
	c := NewConsensus(consensusConfig())

	var fired []Direction
	for i := 0; i < 8; i++ {
		if dir, ok := c.Update(norm(float64(2*i), 0, i)); ok {
			fired = append(fired, dir)
		}
	}
	require.Equal(t, []Direction{Right}, fired)
	assert.Equal(t, 0, c.Len(), "buffer is cleared after firing")

	// Still moving during the cooldown: nothing is buffered or fired.
	for i := 8; i < 16; i++ {
		_, ok := c.Update(norm(float64(2*i), 0, i))
		assert.False(t, ok)
	}
	assert.Equal(t, 0, c.Len())
}

func TestConsensus_AlternatingNeverFires(t *testing.T) {
	c := NewConsensus(consensusConfig())
	for i := 0; i < 64; i++ {
		x := 0.0
		if i%2 == 1 {
			x = 2
		}
		_, ok := c.Update(norm(x, 0, i))
		require.False(t, ok, "tick %d", i)
	}
	assert.Equal(t, 8, c.Len())
}

func TestConsensus_NotFullNeverFires(t *testing.T) {
	c := NewConsensus(consensusConfig())
	for i := 0; i < 7; i++ {
		_, ok := c.Update(norm(float64(10*i), 0, i))
		assert.False(t, ok)
	}
	assert.Equal(t, 7, c.Len())
}

func TestConsensus_Directions(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy float64
		want   Direction
	}{
		{"left", -1, 0, Left},
		{"right", 1, 0, Right},
		{"up", 0, -1, Up},
		{"down", 0, 1, Down},
		{"diagonal picks dominant", 1, -0.5, Right},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConsensus(consensusConfig())
			var got Direction
			for i := 0; i < 8; i++ {
				if dir, ok := c.Update(norm(tt.dx*float64(i), tt.dy*float64(i), i)); ok {
					got = dir
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConsensus_OneNoisyFrameIsOutvoted(t *testing.T) {
	c := NewConsensus(consensusConfig())
	xs := []float64{0, 0.3, 0, 0.3, 3.3, 3.0, 3.3, 3.0}
	for i, x := range xs {
		_, ok := c.Update(norm(x, 0, i))
		assert.False(t, ok, "one jump amid jitter is below the fraction")
	}
}

func TestConsensus_TooSmallTotalDoesNotFire(t *testing.T) {
	c := NewConsensus(consensusConfig())
	for i := 0; i < 8; i++ {
		_, ok := c.Update(norm(0.1*float64(i), 0, i))
		assert.False(t, ok)
	}
}

func TestConsensus_GateLossClearsHistory(t *testing.T) {
	c := NewConsensus(consensusConfig())
	for i := 0; i < 6; i++ {
		c.Update(norm(float64(2*i), 0, i))
	}
	lost := norm(12, 0, 6)
	lost.Gated = false
	_, ok := c.Update(lost)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	// Two more gated samples cannot complete the stale gesture.
	for i := 7; i < 9; i++ {
		_, ok := c.Update(norm(float64(2*i), 0, i))
		assert.False(t, ok)
	}
}

func TestConsensus_FiresAgainAfterCooldown(t *testing.T) {
	c := NewConsensus(consensusConfig())
	count := 0
	for i := 0; i < 60; i++ {
		if _, ok := c.Update(norm(float64(2*i), 0, i)); ok {
			count++
		}
	}
	// 60 ticks at 33ms span ~2s: fill(8) + cooldown(~19) + fill(8) ...
	assert.GreaterOrEqual(t, count, 2)
	assert.LessOrEqual(t, count, 3)
}

func TestDisplacement_RelativeThreshold(t *testing.T) {
	d := NewDisplacement(DefaultSwipeConfig())
	sample := func(x float64, i int) SwipeSample {
		return SwipeSample{Position: features.Vec2{X: x, Y: 300}, HandScale: 100, Gated: true, Time: tick(i)}
	}

	_, ok := d.Update(sample(500, 0))
	assert.False(t, ok, "first gated tick records the start")
	_, ok = d.Update(sample(600, 1))
	assert.False(t, ok, "1.0 hand scales is below the threshold")

	dir, ok := d.Update(sample(660, 2))
	require.True(t, ok)
	assert.Equal(t, Right, dir)

	// Cooldown of 0.6s: the start position is not re-established.
	_, ok = d.Update(sample(400, 3))
	assert.False(t, ok)
	_, ok = d.Update(sample(200, 10))
	assert.False(t, ok)

	_, ok = d.Update(sample(500, 30))
	assert.False(t, ok, "new start after cooldown")
	dir, ok = d.Update(sample(300, 31))
	require.True(t, ok)
	assert.Equal(t, Left, dir)
}

func TestDisplacement_AbsoluteThresholdAndVertical(t *testing.T) {
	cfg := DefaultSwipeConfig()
	cfg.Relative = false
	cfg.Threshold = 150
	d := NewDisplacement(cfg)

	sample := func(y float64, i int) SwipeSample {
		return SwipeSample{Position: features.Vec2{X: 100, Y: y}, HandScale: 20, Gated: true, Time: tick(i)}
	}
	d.Update(sample(100, 0))
	_, ok := d.Update(sample(240, 1))
	assert.False(t, ok, "140px is below 150px regardless of hand scale")
	dir, ok := d.Update(sample(-60, 2))
	require.True(t, ok)
	assert.Equal(t, Up, dir)
}

func TestDisplacement_GateLossDropsStart(t *testing.T) {
	d := NewDisplacement(DefaultSwipeConfig())
	d.Update(SwipeSample{Position: features.Vec2{X: 0}, HandScale: 100, Gated: true, Time: tick(0)})
	d.Update(SwipeSample{Position: features.Vec2{X: 100}, HandScale: 100, Gated: false, Time: tick(1)})

	_, ok := d.Update(SwipeSample{Position: features.Vec2{X: 200}, HandScale: 100, Gated: true, Time: tick(2)})
	assert.False(t, ok, "the old start must not carry across a gate loss")
	_, ok = d.Update(SwipeSample{Position: features.Vec2{X: 260}, HandScale: 100, Gated: true, Time: tick(3)})
	assert.False(t, ok)
}

func TestNewSwipeDetector(t *testing.T) {
	det, err := NewSwipeDetector(DefaultSwipeConfig())
	require.NoError(t, err)
	assert.IsType(t, &Displacement{}, det)

	det, err = NewSwipeDetector(consensusConfig())
	require.NoError(t, err)
	assert.IsType(t, &Consensus{}, det)

	bad := []func(*SwipeConfig){
		func(c *SwipeConfig) { c.Mode = "kinetic" },
		func(c *SwipeConfig) { c.Threshold = 0 },
		func(c *SwipeConfig) { c.Mode = ModeConsensus; c.BufferLen = 1 },
		func(c *SwipeConfig) { c.Mode = ModeConsensus; c.Fraction = 1.5 },
		func(c *SwipeConfig) { c.Cooldown = -time.Second },
	}
	for i, mutate := range bad {
		cfg := DefaultSwipeConfig()
		mutate(&cfg)
		_, err := NewSwipeDetector(cfg)
		assert.Error(t, err, "case %d", i)
	}
}

func TestSampleOf(t *testing.T) {
	f := features.Features{Palm: features.Vec2{X: 300, Y: 150}, HandScale: 100, Timestamp: t0}
	s := SampleOf(f, true, t0)
	assert.Equal(t, features.Vec2{X: 300, Y: 150}, s.Position)
	assert.InDelta(t, 3, s.Normalized.X, 1e-12)
	assert.InDelta(t, 1.5, s.Normalized.Y, 1e-12)
	assert.True(t, s.Gated)
	assert.True(t, s.Time.Equal(t0))
}
