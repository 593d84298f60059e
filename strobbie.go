package strobbie

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"libdb.so/strobbie/internal/device"
	"libdb.so/strobbie/internal/metrics"
	"libdb.so/strobbie/internal/pattern"
	"libdb.so/strobbie/internal/settings"
	"libdb.so/strobbie/internal/strip"
	"libdb.so/strobbie/internal/web"
)

// Version is the application version shown on the control page.
var Version = "dev"

// request is a unit of work run by the control loop between two ticks.
type request func(e *pattern.Engine)

// Daemon is the main strobbie daemon. It owns the pattern engine and runs
// the control loop; the web interface reaches the engine only through the
// daemon's request mailbox.
type Daemon struct {
	cfg      *Config
	logger   *slog.Logger
	store    *settings.Store
	metrics  *metrics.Metrics
	actions  []pattern.Name
	requests chan request

	// applied counts the states applied by the control loop. saved is the
	// count of the newest state written to the store.
	applied uint64
	saveMu  sync.Mutex
	saved   uint64
}

var _ web.Controller = (*Daemon)(nil)

// NewDaemon creates a new strobbie daemon.
func NewDaemon(cfg *Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	var actions []pattern.Name
	for _, p := range pattern.Repertoire() {
		actions = append(actions, p.Name())
	}

	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    settings.NewStore(cfg.Settings, logger.With("component", "settings")),
		metrics:  metrics.New(),
		actions:  actions,
		requests: make(chan request),
	}, nil
}

// Actions implements web.Controller.
func (d *Daemon) Actions() []pattern.Name {
	return append([]pattern.Name(nil), d.actions...)
}

// Snapshot implements web.Controller.
func (d *Daemon) Snapshot(ctx context.Context) (pattern.State, error) {
	var state pattern.State
	err := d.call(ctx, func(e *pattern.Engine) error {
		state = e.State()
		return nil
	})
	return state, err
}

// Apply implements web.Controller. The new state is applied between two
// ticks and then persisted. When several applies race, only the one the
// engine ended up with is persisted.
func (d *Daemon) Apply(ctx context.Context, state pattern.State) error {
	var seq uint64
	err := d.call(ctx, func(e *pattern.Engine) error {
		if !e.Known(state.Action) {
			return errors.Wrapf(pattern.ErrUnknownPattern, "%q", state.Action)
		}
		if err := e.Apply(state); err != nil {
			return err
		}
		d.applied++
		seq = d.applied
		state = e.State()
		return nil
	})
	if err != nil {
		return err
	}

	d.persist(seq, state)
	return nil
}

// persist saves the state applied as number seq unless a newer one has
// already been saved. The engine keeps running with the new state even if it
// cannot be saved.
func (d *Daemon) persist(seq uint64, state pattern.State) {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()

	if seq < d.saved {
		d.logger.Debug("skipping stale settings", "seq", seq, "saved", d.saved)
		return
	}

	if err := d.store.Save(settings.FromState(state)); err != nil {
		d.logger.Warn("failed to persist settings", "err", err)
		return
	}
	d.saved = seq
}

// call queues f for the control loop and waits for its result.
func (d *Daemon) call(ctx context.Context, f func(e *pattern.Engine) error) error {
	reply := make(chan error, 1)
	req := func(e *pattern.Engine) { reply <- f(e) }

	select {
	case d.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the daemon. It blocks until the given context is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	hw, err := d.openStrip()
	if err != nil {
		return err
	}
	return d.run(ctx, hw)
}

func (d *Daemon) openStrip() (strip.Strip, error) {
	logger := d.logger.With("component", "strip", "driver", d.cfg.Driver)

	switch d.cfg.Driver {
	case SerialDriver:
		s, err := strip.OpenSerial(strip.SerialConfig{
			Device:     d.cfg.Device,
			Baud:       d.cfg.Baud,
			NumLEDs:    d.cfg.NumLEDs,
			DataPin:    d.cfg.DataPin,
			AckTimeout: time.Duration(d.cfg.AckTimeout),
		}, logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open serial strip")
		}
		return s, nil

	case SPIDriver:
		s, err := strip.OpenSPI(strip.SPIConfig{
			Port:    d.cfg.SPIPort,
			NumLEDs: d.cfg.NumLEDs,
			Freq:    d.cfg.SPIFreq(),
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to open SPI strip")
		}
		return s, nil

	default:
		return nil, nil
	}
}

// run runs the control loop and the HTTP servers. hw may be nil, in which
// case frames only reach the preview.
func (d *Daemon) run(ctx context.Context, hw strip.Strip) error {
	preview := web.NewPreview(d.logger.With("component", "preview"))

	strips := []strip.Strip{preview}
	if hw != nil {
		strips = append([]strip.Strip{hw}, strips...)
	}
	out := strip.NewMulti(d.logger.With("component", "strip"), strips...)
	defer d.shutdownStrip(out)

	engine, err := pattern.NewEngine(pattern.EngineConfig{
		NumLEDs:         d.cfg.NumLEDs,
		Flusher:         out,
		ResetOnActivate: d.cfg.ResetOnActivate,
		Hooks:           d.metrics.EngineHooks(),
	}, d.logger.With("component", "engine"))
	if err != nil {
		return errors.Wrap(err, "failed to create engine")
	}

	d.restore(engine)

	id, err := device.Identify()
	if err != nil {
		d.logger.Warn("cannot identify device", "err", err)
	}
	d.logger.Info(
		"starting strobbie",
		"version", Version,
		"device", id.Name(),
		"num_leds", d.cfg.NumLEDs,
		"driver", d.cfg.Driver)

	srv := web.New(d, preview, web.Options{
		Version:    Version,
		DeviceName: id.Name(),
		Middleware: d.metrics.ServerMiddleware,
	}, d.logger.With("component", "web"))

	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		return d.loop(ctx, engine)
	})

	runHTTPServer(ctx, d.cfg.Listen, srv, errg, d.logger)

	if d.cfg.Metrics != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(d.metrics)

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		runHTTPServer(ctx, d.cfg.Metrics, mux, errg, d.logger)
	}

	return errg.Wait()
}

// restore loads the persisted settings into the engine.
func (d *Daemon) restore(engine *pattern.Engine) {
	set, ok, err := d.store.Load()
	if err != nil {
		d.logger.Warn("failed to write factory settings", "err", err)
	}

	state := set.State()
	if !engine.Known(state.Action) {
		d.logger.Warn("stored action is unknown, lights will stay off", "action", state.Action)
	}
	if err := engine.Apply(state); err != nil {
		d.logger.Warn("failed to apply stored settings", "err", err)
		return
	}

	d.logger.Debug(
		"restored settings",
		"from_file", ok,
		"action", state.Action,
		"delay", state.Delay,
		"colors", state.Palette.Len())
}

func (d *Daemon) loop(ctx context.Context, engine *pattern.Engine) error {
	clock := pattern.NewSystemClock()

	ticker := time.NewTicker(time.Duration(d.cfg.Tick))
	defer ticker.Stop()

	var counter uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		counter++
		if counter%uint64(d.cfg.ServiceEvery) == 0 {
			d.service(engine)
		}

		engine.Tick(clock.Millis())
		d.metrics.Tick()
	}
}

// service runs every queued request without waiting for new ones.
func (d *Daemon) service(engine *pattern.Engine) {
	for {
		select {
		case req := <-d.requests:
			req(engine)
		default:
			return
		}
	}
}

func (d *Daemon) shutdownStrip(s strip.Strip) {
	d.logger.Debug("turning off strip")
	if err := s.Clear(); err != nil {
		d.logger.Warn("failed to clear strip", "err", err)
	}
	if err := s.Close(); err != nil {
		d.logger.Warn("failed to close strip", "err", err)
	}
}

func runHTTPServer(ctx context.Context, addr string, h http.Handler, g *errgroup.Group, logger *slog.Logger) {
	s := &http.Server{Addr: addr, Handler: h}
	g.Go(func() error {
		err := s.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			logger.Error("server failed to start", "addr", addr, "err", err)
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := s.Shutdown(stopCtx)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			logger.Error("server failed to stop", "addr", addr, "err", err)
		}
		return err
	})
}
