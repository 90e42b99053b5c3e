// Package daemon keeps a published site current: it serves the output
// directory, rebuilds on a schedule and rebuilds when sources change.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/server/httpserver"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// Rebuild reasons.
const (
	ReasonStartup   = "startup"
	ReasonScheduled = "scheduled"
	ReasonChange    = "change"
)

const shutdownTimeout = 10 * time.Second

// Builder runs one full site build.
type Builder interface {
	Build(ctx context.Context) (*site.BuildReport, error)
}

// Options selects what Run does besides the initial build.
type Options struct {
	Serve   bool // serve the output directory over HTTP
	Watch   bool // rebuild when content, footers or assets change
	Metrics http.Handler
	Logger  *slog.Logger

	QuietWindow time.Duration // defaults to 300ms
	MaxDelay    time.Duration // defaults to 5s
}

// Daemon serializes builds for one output directory.
type Daemon struct {
	cfg     *config.Config
	builder Builder
	opts    Options
	logger  *slog.Logger

	buildMu sync.Mutex
	running atomic.Bool

	mu      sync.RWMutex
	last    *site.BuildReport
	lastErr error
}

func New(cfg *config.Config, b Builder, opts Options) *Daemon {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.QuietWindow <= 0 {
		opts.QuietWindow = 300 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 5 * time.Second
	}
	return &Daemon{cfg: cfg, builder: b, opts: opts, logger: opts.Logger}
}

// Rebuild runs one build. Builds never overlap; a caller arriving while a
// build runs waits for it to finish first.
func (d *Daemon) Rebuild(ctx context.Context, reason string) (*site.BuildReport, error) {
	d.buildMu.Lock()
	defer d.buildMu.Unlock()
	d.running.Store(true)
	defer d.running.Store(false)

	d.logger.Info("Rebuilding site", slog.String("reason", reason))
	r, err := d.builder.Build(ctx)

	d.mu.Lock()
	d.last, d.lastErr = r, err
	d.mu.Unlock()
	return r, err
}

// Running reports whether a build is in progress.
func (d *Daemon) Running() bool { return d.running.Load() }

// LastBuild returns the most recent build report and error.
func (d *Daemon) LastBuild() (*site.BuildReport, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last, d.lastErr
}

// Run builds once and then serves, watches and schedules rebuilds as
// configured until ctx is done. A failed build is logged; the previously
// published output stays live.
func (d *Daemon) Run(ctx context.Context) error {
	if _, err := d.Rebuild(ctx, ReasonStartup); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		d.logger.Error("Initial build failed", logfields.Error(err))
	}

	var srv *httpserver.Server
	if d.opts.Serve {
		srv = httpserver.New(d.cfg, httpserver.Options{Metrics: d.opts.Metrics, Logger: d.logger})
		if err := srv.Start(ctx); err != nil {
			return err
		}
	}

	var sched *Scheduler
	if every := d.cfg.Server.RebuildEvery(); every > 0 {
		s, err := NewScheduler(d.logger)
		if err != nil {
			return d.shutdown(srv, nil, err)
		}
		if _, err := s.ScheduleEvery("scheduled-rebuild", every, func() { d.rebuildLogged(ctx, ReasonScheduled) }); err != nil {
			return d.shutdown(srv, s, err)
		}
		s.Start()
		sched = s
		d.logger.Info("Scheduled rebuilds enabled", slog.Duration("interval", every))
	}

	g, gctx := errgroup.WithContext(ctx)
	if d.opts.Watch {
		if err := d.startWatch(gctx, g); err != nil {
			return d.shutdown(srv, sched, err)
		}
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	err := g.Wait()
	return d.shutdown(srv, sched, err)
}

func (d *Daemon) startWatch(ctx context.Context, g *errgroup.Group) error {
	deb, err := NewDebouncer(DebouncerConfig{
		QuietWindow:  d.opts.QuietWindow,
		MaxDelay:     d.opts.MaxDelay,
		BuildRunning: d.Running,
		Fire: func(ctx context.Context, t Trigger) {
			d.logger.Debug("Debounced rebuild", slog.Int("requests", t.RequestCount), slog.String("cause", t.Cause), logfields.Path(t.LastReason))
			d.rebuildLogged(ctx, ReasonChange)
		},
	})
	if err != nil {
		return err
	}
	w, err := NewWatcher(d.watchRoots(), d.watchIgnores(), deb.Request, d.logger)
	if err != nil {
		return err
	}
	g.Go(func() error { return deb.Run(ctx) })
	g.Go(func() error { return w.Run(ctx) })
	return nil
}

func (d *Daemon) watchRoots() []string {
	return []string{d.cfg.ContentDirectory, d.cfg.FooterDirectory, d.cfg.AssetsDirectory}
}

func (d *Daemon) watchIgnores() []string {
	return []string{d.cfg.OutputDirectory, d.cfg.OutputDirectory + site.StagingSuffix}
}

func (d *Daemon) rebuildLogged(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	r, err := d.Rebuild(ctx, reason)
	if err != nil {
		d.logger.Error("Rebuild failed", slog.String("reason", reason), logfields.Error(err))
		return
	}
	d.logger.Info("Rebuild completed", slog.String("reason", reason), slog.String("summary", r.Summary()))
}

func (d *Daemon) shutdown(srv *httpserver.Server, sched *Scheduler, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if cause != nil {
		errs = append(errs, cause)
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if srv != nil {
		if err := srv.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
