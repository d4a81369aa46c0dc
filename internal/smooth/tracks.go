package smooth

import (
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/detector"
)

// Hand holds one filter per landmark per image axis. Depth passes through.
type Hand struct {
	x [detector.NumLandmarks]*OneEuro
	y [detector.NumLandmarks]*OneEuro
}

// NewHand creates a bank of independent filters for one hand.
func NewHand(p Params) *Hand {
	h := &Hand{}
	for i := 0; i < detector.NumLandmarks; i++ {
		h.x[i] = NewOneEuro(p)
		h.y[i] = NewOneEuro(p)
	}
	return h
}

// Smooth returns a filtered copy of obs. The observation must already have
// passed Validate.
func (h *Hand) Smooth(obs detector.HandObservation) detector.HandObservation {
	out := obs.Clone()
	for i := range out.Landmarks {
		out.Landmarks[i].X = h.x[i].Filter(obs.Landmarks[i].X, obs.Timestamp)
		out.Landmarks[i].Y = h.y[i].Filter(obs.Landmarks[i].Y, obs.Timestamp)
	}
	return out
}

// Reset discards every channel's state.
func (h *Hand) Reset() {
	for i := 0; i < detector.NumLandmarks; i++ {
		h.x[i].Reset()
		h.y[i].Reset()
	}
}

// Track is the per-hand state bundle owned by Tracks.
type Track struct {
	ID        uuid.UUID
	Key       detector.Handedness
	FirstSeen time.Time
	LastSeen  time.Time

	hand *Hand
}

// Tracks maps a stable track key to its filter state. Entries not observed
// for longer than the grace period are dropped so a returning hand starts
// from fresh filters.
type Tracks struct {
	params Params
	grace  time.Duration
	tracks map[detector.Handedness]*Track
	newID  func() uuid.UUID
}

// NewTracks creates an empty registry. A zero grace period drops a track on
// the first tick it is missing.
func NewTracks(p Params, grace time.Duration) *Tracks {
	return &Tracks{
		params: p,
		grace:  grace,
		tracks: make(map[detector.Handedness]*Track),
		newID:  uuid.New,
	}
}

// Smooth filters obs through the track keyed by its handedness, creating the
// track on first sight.
func (ts *Tracks) Smooth(obs detector.HandObservation, now time.Time) (detector.HandObservation, *Track) {
	tr, ok := ts.tracks[obs.Handedness]
	if !ok {
		tr = &Track{
			ID:        ts.newID(),
			Key:       obs.Handedness,
			FirstSeen: now,
			hand:      NewHand(ts.params),
		}
		ts.tracks[obs.Handedness] = tr
	}
	tr.LastSeen = now
	return tr.hand.Smooth(obs), tr
}

// Prune removes tracks last seen more than the grace period before now and
// returns how many were removed.
func (ts *Tracks) Prune(now time.Time) int {
	removed := 0
	for key, tr := range ts.tracks {
		if now.Sub(tr.LastSeen) > ts.grace {
			delete(ts.tracks, key)
			removed++
		}
	}
	return removed
}

// Get returns the live track for key, if any.
func (ts *Tracks) Get(key detector.Handedness) (*Track, bool) {
	tr, ok := ts.tracks[key]
	return tr, ok
}

// Len returns the number of live tracks.
func (ts *Tracks) Len() int {
	return len(ts.tracks)
}

// Clear drops every track.
func (ts *Tracks) Clear() {
	clear(ts.tracks)
}
