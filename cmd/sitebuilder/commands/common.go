// Package commands implements the sitebuilder command line.
package commands

import (
	"io"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/eventstore"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// Global carries state shared by subcommands.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer // command output, stdout when nil
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config    string `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose   bool   `short:"v" help:"Enable verbose logging"`
	LogFormat string `name:"log-format" help:"Log output format (text|json); overrides logging.format"`

	Build   BuildCmd   `cmd:"" help:"Build the site and publish it to the output directory"`
	Serve   ServeCmd   `cmd:"" help:"Build, then serve the output directory over HTTP"`
	Watch   WatchCmd   `cmd:"" help:"Build, then rebuild whenever content changes"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
	Search  SearchCmd  `cmd:"" help:"Query the published search index"`
	History HistoryCmd `cmd:"" help:"Show recorded build history"`
	Version VersionCmd `cmd:"" help:"Show version and exit"`
}

// AfterApply runs after flag parsing; it installs the logger used until the
// configuration is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := config.ResolveLogLevel(config.LogLevelInfo, c.Verbose)
	logger := config.NewLogger(os.Stderr, config.NormalizeLogFormat(c.LogFormat), level)
	slog.SetDefault(logger)
	g.Logger = logger
	return nil
}

// loadConfig reads the configuration file and replaces the logger with one
// honoring its logging section.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	format := cfg.Logging.Format
	if c.LogFormat != "" {
		format = config.NormalizeLogFormat(c.LogFormat)
	}
	logger := config.NewLogger(os.Stderr, format, config.ResolveLogLevel(cfg.Logging.Level, c.Verbose))
	slog.SetDefault(logger)
	g.Logger = logger
	return cfg, nil
}

// buildEnv holds the collaborators a site build needs beyond its config.
type buildEnv struct {
	builder  *site.Builder
	recorder *metrics.PrometheusRecorder
	closers  []func() error
	logger   *slog.Logger
}

// newBuildEnv wires metrics, build history and notifications into a site
// builder. Close releases the history database and the NATS connection.
func newBuildEnv(cfg *config.Config, logger *slog.Logger) (*buildEnv, error) {
	env := &buildEnv{recorder: metrics.NewPrometheusRecorder(nil), logger: logger}
	opts := []site.Option{site.WithLogger(logger), site.WithRecorder(env.recorder)}

	if cfg.Build.HistoryDB != "" {
		store, err := eventstore.NewSQLiteStore(cfg.Build.HistoryDB)
		if err != nil {
			return nil, err
		}
		env.closers = append(env.closers, store.Close)
		opts = append(opts, site.WithEventStore(store))
	}

	if cfg.Notify.NATSURL != "" {
		n, err := notify.DialNATS(cfg.Notify.NATSURL, cfg.Notify.Subject, logger)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.closers = append(env.closers, n.Close)
		opts = append(opts, site.WithNotifier(n))
	}

	b, err := site.NewBuilder(cfg, opts...)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.builder = b
	return env, nil
}

func (e *buildEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.Warn("Failed to release build resource", logfields.Error(err))
		}
	}
	e.closers = nil
}
