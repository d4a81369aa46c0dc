package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/menu"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	path := filepath.Join(dir, "mudra.yaml")
	body := "smoothing:\n  enabled: false\n" +
		"store:\n  enabled: true\n  path: " + filepath.Join(dir, "mudra.db") + "\n" +
		"server:\n  enabled: false\n" +
		"log:\n  level: error\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// writeReplay records a hold of the trigger pose and a release 80px west.
func writeReplay(t *testing.T, dir string) string {
	t.Helper()
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	at := func(sec float64) time.Time { return t0.Add(time.Duration(sec * float64(time.Second))) }
	pose := func(fingers string, x, y, sec float64) []detector.HandObservation {
		return []detector.HandObservation{detector.Pose(fingers, detector.Right, detector.Point3D{X: x, Y: y}, at(sec))}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := 0; i < 5; i++ {
		sec := float64(i) * 0.1125
		require.NoError(t, enc.Encode(app.Tick{Time: at(sec), Hands: pose("11100", 20, 20, sec)}))
	}
	rad := 200 * math.Pi / 180
	require.NoError(t, enc.Encode(app.Tick{Time: at(0.5), Hands: pose("00000", 20+80*math.Cos(rad), 20+80*math.Sin(rad), 0.5)}))
	require.NoError(t, enc.Encode(app.Tick{Time: at(0.6)}))

	path := filepath.Join(dir, "ticks.jsonl")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestReplayCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")
	replay := writeReplay(t, dir)

	out, err := execute(t, "replay", "--config", cfgPath, "--all=false", replay)
	require.NoError(t, err)

	var frames []engine.Frame
	sc := bufio.NewScanner(bytes.NewBufferString(out))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var fr engine.Frame
		require.NoError(t, json.Unmarshal(sc.Bytes(), &fr))
		frames = append(frames, fr)
	}
	require.Len(t, frames, 2, "only frames with events are printed")
	assert.Equal(t, menu.KindMenuOpened, frames[0].Menu.Kind)
	assert.Equal(t, menu.ToolMedia, frames[1].Tool)
	assert.True(t, frames[1].ToolChanged)

	st, err := store.New(filepath.Join(dir, "mudra.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	sessions, err := st.Sessions().List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "replay", sessions[0].Source)
	assert.EqualValues(t, 7, sessions[0].Ticks)
	assert.False(t, sessions[0].EndedAt.IsZero())

	counts, err := st.Events().CountByKind(ctx, sessions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"menu_opened": 1, "selected": 1, "tool_changed": 1}, counts)
}

func TestReplayCommand_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "replay", filepath.Join(dir, "missing.jsonl"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("menu:\n  hold_duration: soon\n"), 0o644))
	_, err = execute(t, "replay", "--config", bad, writeReplay(t, dir))
	assert.Error(t, err)
}

func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "redis:\n  enabled: true\n  password: hunter2\n")

	out, err := execute(t, "config", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "password: REDACTED")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "initial_tool:")
}

func TestRunner_ReloadBindings(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "actions:\n  bindings:\n    click:\n      plugin: mouse\n      action: press\n")

	ctx := context.Background()
	rt, err := newRunner(ctx, cfgPath, runOptions{source: "test"})
	require.NoError(t, err)
	defer rt.close()

	assert.Len(t, rt.dispatcher.Bindings("click"), 1)
	assert.Empty(t, rt.dispatcher.Bindings("swipe:LEFT"))

	require.NoError(t, rt.store.Actions().Create(ctx, &store.Action{
		Event: "swipe:LEFT", PluginName: "keyboard", ActionName: "keystroke", Enabled: true,
	}))
	rt.reloadBindings(ctx)
	assert.Len(t, rt.dispatcher.Bindings("swipe:LEFT"), 1)

	require.NoError(t, rt.store.Settings().Set(ctx, "initial_tool", "KEYBOARD"))
	rt.reload(ctx)
	assert.Equal(t, menu.ToolKeyboard, rt.config().InitialTool)
}

// stillSource never yields a tick until ctx is done.
type stillSource struct{}

func (stillSource) Next(ctx context.Context) (app.Tick, error) {
	<-ctx.Done()
	return app.Tick{}, ctx.Err()
}

func (stillSource) Close() error { return nil }

func TestRunner_BackgroundFailureStopsPipeline(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	rt, err := newRunner(ctx, writeConfig(t, dir, ""), runOptions{source: "test"})
	require.NoError(t, err)
	defer rt.close()

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	rt.server = server.New(server.Config{Enabled: true, Addr: busy.Addr().String()})

	done := make(chan error, 1)
	go func() { done <- rt.run(ctx, stillSource{}, false) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server:")
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after the server failed")
	}
}

func TestRunner_RunUntilSourceEnds(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	rt, err := newRunner(ctx, writeConfig(t, dir, ""), runOptions{source: "test"})
	require.NoError(t, err)
	defer rt.close()

	src := app.NewReplaySource(bytes.NewBufferString("{}\n{}\n"))
	assert.NoError(t, rt.run(ctx, src, false), "a finished source stops the background work cleanly")
}
