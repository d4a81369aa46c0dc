package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/menu"
)

func TestSessions_StartEnd(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sess, err := s.Sessions().Start(ctx, "camera:0")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if sess.ID == "" {
		t.Fatal("Start() should assign an ID")
	}

	got, err := s.Sessions().GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Source != "camera:0" || !got.EndedAt.IsZero() {
		t.Errorf("open session = %+v, want source camera:0 and no end", got)
	}

	if err := s.Sessions().End(ctx, sess.ID, 42); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	got, err = s.Sessions().GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.EndedAt.IsZero() || got.Ticks != 42 {
		t.Errorf("ended session = %+v, want end time and 42 ticks", got)
	}

	if err := s.Sessions().End(ctx, "missing", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("End(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := s.Sessions().GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSessions_List(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, src := range []string{"a", "b", "c"} {
		if _, err := s.Sessions().Start(ctx, src); err != nil {
			t.Fatalf("Start(%s) error = %v", src, err)
		}
	}

	list, err := s.Sessions().List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List(2) returned %d sessions", len(list))
	}
}

func TestEvents_AppendAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sess, err := s.Sessions().Start(ctx, "replay")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	events := []Event{
		{SessionID: sess.ID, Seq: 2, Kind: "selected", Value: "MEDIA", Tool: "MEDIA", At: at},
		{SessionID: sess.ID, Seq: 1, Kind: "menu_opened", Tool: "PAINTER", At: at},
		{SessionID: sess.ID, Seq: 2, Kind: "tool_changed", Value: "MEDIA", Tool: "MEDIA", At: at},
	}
	if err := s.Events().Append(ctx, events); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := s.Events().Append(ctx, nil); err != nil {
		t.Fatalf("Append(nil) error = %v", err)
	}

	got, err := s.Events().ListBySession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListBySession() returned %d events, want 3", len(got))
	}
	wantKinds := []string{"menu_opened", "selected", "tool_changed"}
	for i, k := range wantKinds {
		if got[i].Kind != k {
			t.Errorf("event %d kind = %q, want %q", i, got[i].Kind, k)
		}
	}
	if !got[0].At.Equal(at) {
		t.Errorf("event time = %v, want %v", got[0].At, at)
	}

	counts, err := s.Events().CountByKind(ctx, sess.ID)
	if err != nil {
		t.Fatalf("CountByKind() error = %v", err)
	}
	if counts["selected"] != 1 || counts["menu_opened"] != 1 {
		t.Errorf("CountByKind() = %v", counts)
	}
}

func TestEvents_AppendUnknownSession(t *testing.T) {
	s := newTestStore(t)

	err := s.Events().Append(context.Background(), []Event{{SessionID: "nope", Kind: "swipe", At: time.Now()}})
	if err == nil {
		t.Fatal("Append() for an unknown session should violate the foreign key")
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Settings()

	if _, err := repo.Get(ctx, "swipe.mode"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(unset) error = %v, want ErrNotFound", err)
	}

	if err := repo.Set(ctx, "swipe.mode", "displacement"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.Set(ctx, "swipe.mode", "consensus"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	if err := repo.Set(ctx, "menu.deadzone", "60"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	v, err := repo.Get(ctx, "swipe.mode")
	if err != nil || v != "consensus" {
		t.Errorf("Get() = %q, %v, want consensus", v, err)
	}

	all, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 2 || all["menu.deadzone"] != "60" {
		t.Errorf("All() = %v", all)
	}

	if err := repo.Delete(ctx, "menu.deadzone"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "menu.deadzone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestActions_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Actions()

	a := &Action{
		Event:      "swipe:LEFT",
		PluginName: "keyboard",
		ActionName: "keystroke",
		Params:     json.RawMessage(`{"key":"right"}`),
		Enabled:    true,
	}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if a.ID == "" {
		t.Fatal("Create() should assign an ID")
	}
	if err := repo.Create(ctx, &Action{Event: "click", PluginName: "keyboard", ActionName: "tap"}); err != nil {
		t.Fatalf("Create() disabled error = %v", err)
	}

	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Event != "swipe:LEFT" || string(got.Params) != `{"key":"right"}` || !got.Enabled {
		t.Errorf("GetByID() = %+v", got)
	}

	enabled, err := repo.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("ListEnabled() error = %v", err)
	}
	if len(enabled) != 1 || enabled[0].ID != a.ID {
		t.Errorf("ListEnabled() = %v, want only %s", enabled, a.ID)
	}

	all, err := repo.List(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("List() = %d actions, %v, want 2", len(all), err)
	}

	a.Enabled = false
	a.Params = nil
	if err := repo.Update(ctx, a); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ = repo.GetByID(ctx, a.ID)
	if got.Enabled || string(got.Params) != "{}" {
		t.Errorf("after Update() = %+v", got)
	}

	if err := repo.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	if err := repo.Update(ctx, a); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() after delete error = %v, want ErrNotFound", err)
	}
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, err := NewRecorder(ctx, s, "replay:test.jsonl")
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	frames := []engine.Frame{
		{Seq: 1, Time: at, Tool: menu.ToolMedia},
		{
			Seq:   2,
			Time:  at.Add(33 * time.Millisecond),
			Tool:  menu.ToolMedia,
			Swipe: control.Left,
			Deck:  &control.DeckState{Visible: true, Index: 1, Slides: 3, Changed: true},
		},
		{Seq: 3, Time: at.Add(66 * time.Millisecond), Tool: menu.ToolMedia},
	}
	for _, fr := range frames {
		if err := rec.Publish(ctx, fr); err != nil {
			t.Fatalf("Publish(%d) error = %v", fr.Seq, err)
		}
	}
	if err := rec.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	events, err := s.Events().ListBySession(ctx, rec.Session().ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("recorded %d events, want 2: %+v", len(events), events)
	}
	if events[0].Kind != "swipe" || events[0].Value != "LEFT" || events[0].Seq != 2 {
		t.Errorf("first event = %+v, want swipe LEFT at seq 2", events[0])
	}
	if events[1].Kind != "slide" || events[1].Value != "1" || events[1].Tool != "MEDIA" {
		t.Errorf("second event = %+v, want slide 1 with MEDIA", events[1])
	}

	sess, err := s.Sessions().GetByID(ctx, rec.Session().ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if sess.Ticks != 3 || sess.EndedAt.IsZero() {
		t.Errorf("session = %+v, want 3 ticks and an end time", sess)
	}
}
