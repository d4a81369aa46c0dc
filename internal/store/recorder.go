package store

import (
	"context"
	"fmt"

	"github.com/ayusman/mudra/internal/engine"
)

// Recorder journals the discrete events of each frame into one session.
type Recorder struct {
	sessions *SessionRepository
	events   *EventRepository
	session  *Session
	ticks    int64
}

// NewRecorder starts a session for source.
func NewRecorder(ctx context.Context, s *Store, source string) (*Recorder, error) {
	sess, err := s.Sessions().Start(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return &Recorder{sessions: s.Sessions(), events: s.Events(), session: sess}, nil
}

// Session returns the session being recorded.
func (r *Recorder) Session() *Session {
	return r.session
}

// Publish records the events of fr. Frames without events only advance
// the tick count.
func (r *Recorder) Publish(ctx context.Context, fr engine.Frame) error {
	r.ticks++
	evs := fr.Events()
	if len(evs) == 0 {
		return nil
	}

	rows := make([]Event, len(evs))
	for i, ev := range evs {
		rows[i] = Event{
			SessionID: r.session.ID,
			Seq:       fr.Seq,
			Kind:      string(ev.Kind),
			Value:     ev.Value,
			Tool:      string(fr.Tool),
			At:        fr.Time,
		}
	}
	return r.events.Append(ctx, rows)
}

// Close ends the session.
func (r *Recorder) Close(ctx context.Context) error {
	return r.sessions.End(ctx, r.session.ID, r.ticks)
}
