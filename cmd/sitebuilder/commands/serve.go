package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/daemon"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Port            int    `short:"p" help:"Listen port; overrides server.port"`
	RebuildInterval string `name:"rebuild-interval" help:"Rebuild periodically (Go duration); overrides server.rebuild_interval"`
	Watch           bool   `short:"w" help:"Also rebuild when content changes"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if s.Port != 0 {
		cfg.Server.Port = s.Port
	}
	if s.RebuildInterval != "" {
		cfg.Server.RebuildInterval = s.RebuildInterval
		if err := config.ValidateConfig(cfg); err != nil {
			return err
		}
	}
	return runDaemon(g, cfg, daemon.Options{Serve: true, Watch: s.Watch})
}

// WatchCmd implements the 'watch' command.
type WatchCmd struct{}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	return runDaemon(g, cfg, daemon.Options{Watch: true})
}

func runDaemon(g *Global, cfg *config.Config, opts daemon.Options) error {
	env, err := newBuildEnv(cfg, g.Logger)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts.Logger = g.Logger
	if opts.Serve {
		opts.Metrics = metrics.HTTPHandler(env.recorder.Registry())
	}
	g.Logger.Info("Starting daemon", "serve", opts.Serve, "watch", opts.Watch)
	return daemon.New(cfg, env.builder, opts).Run(ctx)
}
