package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output      string `short:"o" help:"Output directory; overrides output_directory"`
	MetricsFile string `name:"metrics-file" help:"Write build metrics in Prometheus textfile format; overrides build.metrics_file"`
	Strict      bool   `help:"Fail the build on unresolved asset references"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if b.Output != "" {
		cfg.OutputDirectory = b.Output
	}
	if b.MetricsFile != "" {
		cfg.Build.MetricsFile = b.MetricsFile
	}
	if b.Strict {
		cfg.Build.StrictManifest = true
	}

	env, err := newBuildEnv(cfg, g.Logger)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, buildErr := env.builder.Build(ctx)

	if cfg.Build.MetricsFile != "" {
		if err := env.recorder.WriteTextfile(cfg.Build.MetricsFile); err != nil {
			g.Logger.Warn("Failed to write metrics textfile", logfields.Path(cfg.Build.MetricsFile), logfields.Error(err))
		}
	}
	if buildErr != nil {
		return buildErr
	}
	_, _ = fmt.Fprintf(g.out(), "Build %s: %s\n", report.Outcome, report.Summary())
	return nil
}
