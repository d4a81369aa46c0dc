package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/sink"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

// runner holds the long-lived components of one run.
type runner struct {
	path   string
	logger *slog.Logger

	store      *store.Store
	metrics    *metrics.Metrics
	app        *app.App
	dispatcher *plugin.Dispatcher
	recorder   *store.Recorder
	redis      *sink.Redis
	hub        *server.Hub
	server     *server.Server

	mu  sync.RWMutex
	cfg config.Config
}

type runOptions struct {
	source  string
	preview server.Preview
	stdout  io.Writer
	// printAll writes every frame to stdout, not only frames with events.
	printAll bool
	logOut   io.Writer
	// serverOff overrides the configured server switch.
	serverOff bool
}

// loadConfig loads the file at path and, when the store is enabled, the
// persisted settings on top of it. The store is returned open.
func loadConfig(ctx context.Context, path string) (config.Config, *store.Store, error) {
	cfg, err := config.Load(ctx, path)
	if err != nil {
		return config.Config{}, nil, err
	}
	if !cfg.Store.Enabled {
		return cfg, nil, nil
	}

	dbPath := cfg.Store.Path
	if dbPath == "" {
		if dbPath, err = store.DefaultPath(); err != nil {
			return config.Config{}, nil, err
		}
	}
	st, err := store.New(dbPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err = config.Load(ctx, path, config.WithSettings(st.Settings()))
	if err != nil {
		st.Close()
		return config.Config{}, nil, err
	}
	return cfg, st, nil
}

func newRunner(ctx context.Context, path string, opts runOptions) (*runner, error) {
	cfg, st, err := loadConfig(ctx, path)
	if err != nil {
		return nil, err
	}
	if opts.serverOff {
		cfg.Server.Enabled = false
	}

	logOut := opts.logOut
	if logOut == nil {
		logOut = os.Stderr
	}
	logger, err := logging.FromConfig(cfg.Log, logOut)
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, err
	}

	rt := &runner{path: path, logger: logger, store: st, cfg: cfg}
	if cfg.Metrics.Enabled {
		rt.metrics = metrics.New()
	}

	a, err := app.New(cfg.Engine(), app.WithLogger(logger), app.WithMetrics(rt.metrics))
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.app = a

	manager := plugin.NewManager(cfg.Actions.Dir, logger)
	if err := manager.Discover(); err != nil {
		logger.Warn("plugin discovery failed", "dir", cfg.Actions.Dir, "error", err)
	}
	rt.dispatcher = plugin.NewDispatcher(cfg.Actions, manager, plugin.WithLogger(logger), plugin.WithMetrics(rt.metrics))
	rt.reloadBindings(ctx)
	a.AddSink("actions", rt.dispatcher)

	if st != nil {
		rec, err := store.NewRecorder(ctx, st, opts.source)
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.recorder = rec
		a.AddSink("store", rec)
	}

	if cfg.Redis.Enabled {
		rt.redis = sink.NewRedis(cfg.Redis)
		if err := rt.redis.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, frames will be retried on every tick", "addr", cfg.Redis.Addr, "error", err)
		}
		a.AddSink("redis", rt.redis)
	}

	if cfg.Server.Enabled {
		rt.hub = server.NewHub(logger)
		a.AddSink("ui", rt.hub)

		srvCfg := cfg.Server
		if srvCfg.StaticDir == "" {
			srvCfg.StaticDir = findWebDir()
		}
		srvOpts := []server.Option{
			server.WithLogger(logger),
			server.WithHub(rt.hub),
			server.WithController(a),
			server.WithSettingsHooks(config.ValidateSetting, rt.reload),
			server.WithActionsChanged(rt.reloadBindings),
		}
		if st != nil {
			srvOpts = append(srvOpts, server.WithStore(st))
		}
		if rt.metrics != nil {
			srvOpts = append(srvOpts, server.WithMetrics(rt.metrics))
		}
		if opts.preview != nil {
			srvOpts = append(srvOpts, server.WithPreview(opts.preview))
		}
		rt.server = server.New(srvCfg, srvOpts...)
	}

	if opts.stdout != nil {
		a.AddSink("stdout", &printer{enc: json.NewEncoder(opts.stdout), all: opts.printAll})
	}
	return rt, nil
}

func (rt *runner) config() config.Config {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.cfg
}

func (rt *runner) loadOptions() []config.LoadOption {
	if rt.store == nil {
		return nil
	}
	return []config.LoadOption{config.WithSettings(rt.store.Settings())}
}

// reload re-reads the configuration and applies it to the running engine.
func (rt *runner) reload(ctx context.Context) {
	cfg, err := config.Load(ctx, rt.path, rt.loadOptions()...)
	rt.apply(ctx, cfg, err)
}

func (rt *runner) apply(ctx context.Context, cfg config.Config, err error) {
	if err != nil {
		rt.logger.Warn("config reload rejected", "error", err)
		return
	}
	if err := rt.app.Reconfigure(cfg.Engine()); err != nil {
		rt.logger.Warn("engine reconfigure failed", "error", err)
		return
	}
	rt.mu.Lock()
	rt.cfg = cfg
	rt.mu.Unlock()
	rt.reloadBindings(ctx)
	rt.logger.Info("configuration reloaded")
}

// reloadBindings rebuilds the action bindings from the config and the store.
func (rt *runner) reloadBindings(ctx context.Context) {
	var src app.ActionLister
	if rt.store != nil {
		src = rt.store.Actions()
	}
	bindings, err := app.LoadBindings(ctx, rt.config().Actions, src)
	if err != nil {
		rt.logger.Warn("action bindings not reloaded", "error", err)
		return
	}
	rt.dispatcher.SetBindings(bindings)
	rt.logger.Debug("action bindings loaded", "events", len(bindings))
}

// run drives src until it is exhausted or ctx is done. With the tray it
// must be called on the main goroutine. The first background failure stops
// the pipeline and is returned.
func (rt *runner) run(ctx context.Context, src app.Source, withTray bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	spawn := func(name string, fn func(context.Context) error) {
		g.Go(func() error {
			if err := fn(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	spawn("actions", rt.dispatcher.Run)
	if rt.server != nil {
		spawn("server", rt.server.Run)
	}
	if rt.path != "" {
		spawn("watch", func(ctx context.Context) error {
			return config.Watch(ctx, rt.path, func(cfg config.Config, err error) {
				rt.apply(ctx, cfg, err)
			}, rt.loadOptions()...)
		})
	}

	pipeline := func(ctx context.Context) error {
		defer cancel()
		return rt.app.Run(ctx, src)
	}

	if !withTray {
		spawn("pipeline", pipeline)
		return g.Wait()
	}

	t := tray.New(rt.app, tray.WithLogger(rt.logger), tray.OnQuit(cancel), tray.OnOpen(rt.openUI))
	rt.app.AddSink("tray", t)
	spawn("pipeline", func(ctx context.Context) error {
		defer t.Stop()
		return pipeline(ctx)
	})
	t.Run()
	cancel()
	return g.Wait()
}

func (rt *runner) openUI() {
	addr := rt.config().Server.Addr
	if rt.server == nil || addr == "" {
		return
	}
	if err := openBrowser("http://" + addr); err != nil {
		rt.logger.Warn("open browser failed", "error", err)
	}
}

// close flushes the session and releases every connection.
func (rt *runner) close() error {
	var errs []error
	if rt.recorder != nil {
		errs = append(errs, rt.recorder.Close(context.Background()))
	}
	if rt.redis != nil {
		errs = append(errs, rt.redis.Close())
	}
	if rt.store != nil {
		errs = append(errs, rt.store.Close())
	}
	return errors.Join(errs...)
}

// printer writes frames as JSON lines.
type printer struct {
	mu  sync.Mutex
	enc *json.Encoder
	all bool
}

func (p *printer) Publish(_ context.Context, fr engine.Frame) error {
	if !p.all && len(fr.Events()) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enc.Encode(fr)
}

// findWebDir looks for the web UI next to the working directory, then
// under ~/.mudra/web. It returns "" when there is none.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".mudra", "web")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}
