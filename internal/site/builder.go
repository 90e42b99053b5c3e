// Package site orchestrates a full site build: content discovery, search
// indexing, hashed assets, page rendering, output verification and the
// atomic publish, run as an ordered pipeline of stages.
package site

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitebuilder/internal/assets"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/eventstore"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/sitebuilder/internal/git"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/manifest"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/publish"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
	"git.home.luguber.info/inful/sitebuilder/internal/scrub"
	"git.home.luguber.info/inful/sitebuilder/internal/search"
)

// StagingSuffix is appended to the output directory to form the build root.
const StagingSuffix = ".tmp"

// Discoverer finds posts and serves their markdown bodies.
type Discoverer interface {
	Discover(ctx context.Context, postTypes []config.PostType) ([]content.PostRecord, error)
	content.BodyLookup
}

// DiscovererFactory creates the discoverer for one build. It runs after the
// build root, manifest and asset writer exist.
type DiscovererFactory func(bs *BuildState) Discoverer

// Publisher swaps a finished build root into the live output directory.
type Publisher interface {
	Publish(tempDir, liveDir string) error
}

// BuildState carries the mutable state of one build between stages.
type BuildState struct {
	ID      string
	LiveDir string
	Root    string // staging directory, the build context of Manifest

	Manifest *manifest.Manifest
	Writer   *assets.Writer

	Posts      []content.PostRecord
	Bodies     content.BodyLookup
	Footers    []content.Footer
	Search     *search.Data
	SearchPath string

	Report *BuildReport

	published bool
	log       *slog.Logger
}

// Builder runs site builds for one configuration.
type Builder struct {
	cfg     *config.Config
	workers int

	logger    *slog.Logger
	recorder  metrics.Recorder
	store     eventstore.Store
	notifier  notify.Notifier
	renderer  render.Renderer
	publisher Publisher
	parser    content.FrontMatterParser
	discover  DiscovererFactory
	minifier  assets.Minifier
	revision  func(dir string) (git.Revision, error)
}

// Option configures a Builder.
type Option func(*Builder)

func WithLogger(l *slog.Logger) Option { return func(b *Builder) { b.logger = l } }

func WithRecorder(r metrics.Recorder) Option { return func(b *Builder) { b.recorder = r } }

// WithEventStore records build history events in s.
func WithEventStore(s eventstore.Store) Option { return func(b *Builder) { b.store = s } }

func WithNotifier(n notify.Notifier) Option { return func(b *Builder) { b.notifier = n } }

func WithRenderer(r render.Renderer) Option { return func(b *Builder) { b.renderer = r } }

func WithPublisher(p Publisher) Option { return func(b *Builder) { b.publisher = p } }

// WithDiscoverer replaces the filesystem content discoverer.
func WithDiscoverer(f DiscovererFactory) Option { return func(b *Builder) { b.discover = f } }

// NewBuilder creates a Builder. Collaborators not supplied through options
// default to the filesystem discoverer, the embedded HTML renderer and the
// rename publisher.
func NewBuilder(cfg *config.Config, opts ...Option) (*Builder, error) {
	b := &Builder{
		cfg:      cfg,
		workers:  cfg.Build.Workers,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		notifier: notify.Noop{},
		parser:   frontmatter.Parser{},
		revision: git.ReadRevision,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers <= 0 {
		b.workers = runtime.NumCPU()
	}
	if cfg.Build.Minify {
		b.minifier = assets.ESBuildMinifier{}
	}
	if b.renderer == nil {
		r, err := render.New()
		if err != nil {
			return nil, err
		}
		b.renderer = r
	}
	if b.publisher == nil {
		b.publisher = publish.New(publish.WithLogger(b.logger), publish.WithRecorder(b.recorder))
	}
	if b.discover == nil {
		b.discover = b.contentDiscoverer
	}
	return b, nil
}

func (b *Builder) contentDiscoverer(bs *BuildState) Discoverer {
	return content.NewDiscoverer(b.cfg.ContentDirectory, bs.Root, scrub.New(bs.Writer), b.parser, bs.Manifest,
		content.WithWorkers(b.workers),
		content.WithLogger(bs.log),
	)
}

func (b *Builder) stages() []stage {
	plan := []stage{
		{StagePrepareOutput, b.stagePrepareOutput},
		{StageDiscover, b.stageDiscover},
	}
	if b.cfg.Features.Search {
		plan = append(plan, stage{StageIndex, b.stageIndex})
	}
	return append(plan,
		stage{StageAssets, b.stageAssets},
		stage{StageRender, b.stageRender},
		stage{StageVerify, b.stageVerify},
		stage{StagePublish, b.stagePublish},
	)
}

// Build regenerates the whole site into a staging directory and publishes it
// over the output directory. On failure the live output is left as it was
// and the staging directory is removed. The returned report is never nil.
func (b *Builder) Build(ctx context.Context) (*BuildReport, error) {
	id := uuid.NewString()
	bs := &BuildState{
		ID:      id,
		LiveDir: b.cfg.OutputDirectory,
		Report:  newBuildReport(id),
		log:     b.logger.With(logfields.BuildID(id)),
	}

	rev, err := b.revision(b.cfg.ContentDirectory)
	switch {
	case err == nil:
		bs.Report.Revision = rev.String()
	case errors.Is(err, git.ErrNotRepository):
		bs.log.Debug("Content directory is not a git repository", logfields.Path(b.cfg.ContentDirectory))
	default:
		bs.log.Warn("Failed to read content revision", logfields.Error(err))
	}

	bs.log.Info("Build started", logfields.Output(bs.LiveDir), "revision", bs.Report.Revision, "workers", b.workers)
	ev, evErr := eventstore.NewBuildStarted(id, eventstore.BuildStartedData{
		Revision:  bs.Report.Revision,
		OutputDir: bs.LiveDir,
		Workers:   b.workers,
	})
	b.appendEvent(ctx, bs, ev, evErr)

	runErr := b.runStages(ctx, bs, b.stages())

	r := bs.Report
	r.Finish()
	r.DeriveOutcome()
	b.recorder.ObserveBuildDuration(r.Duration())
	b.recorder.IncBuildOutcome(string(r.Outcome))

	if runErr != nil {
		b.abortStaging(bs, runErr)
		failed := ""
		var se *StageError
		if errors.As(runErr, &se) {
			failed = string(se.Stage)
		}
		ev, evErr := eventstore.NewBuildFailed(id, failed, runErr.Error())
		b.appendEvent(ctx, bs, ev, evErr)
		bs.log.Error("Build failed", logfields.Error(runErr), "outcome", string(r.Outcome))
	} else {
		ev, evErr := eventstore.NewSitePublished(id, eventstore.SitePublishedData{
			OutputDir:   bs.LiveDir,
			Pages:       r.Pages,
			Assets:      r.TotalAssets(),
			SearchIndex: r.SearchIndex,
		})
		b.appendEvent(ctx, bs, ev, evErr)
		bs.log.Info("Build completed", "summary", r.Summary())
	}

	ev, evErr = eventstore.NewBuildCompleted(id, string(r.Outcome), r.Duration(), artifacts(r))
	b.appendEvent(ctx, bs, ev, evErr)
	b.notify(ctx, bs, runErr)

	return r, runErr
}

func artifacts(r *BuildReport) map[string]string {
	out := map[string]string{}
	if r.SearchIndex != "" {
		out["search_index"] = r.SearchIndex
	}
	if r.Pages > 0 {
		out["report"] = "/" + ReportJSONFile
	}
	return out
}

// abortStaging removes the staging directory after a failed build. A build
// root is kept when a publish left no live output behind, so it can be moved
// into place by hand.
func (b *Builder) abortStaging(bs *BuildState, cause error) {
	if bs.Root == "" || bs.published {
		return
	}
	var pe *publish.PublishError
	if errors.As(cause, &pe) && pe.RestoreErr != nil {
		bs.log.Warn("Keeping staging directory after failed restore", logfields.Path(bs.Root))
		return
	}
	if err := os.RemoveAll(bs.Root); err != nil {
		bs.log.Warn("Failed to remove staging directory after abort", logfields.Path(bs.Root), logfields.Error(err))
		return
	}
	bs.log.Debug("Removed staging directory after abort", logfields.Path(bs.Root))
}

// appendEvent records rec in the event store. History is best effort; a
// failed append is logged and the build continues.
func (b *Builder) appendEvent(ctx context.Context, bs *BuildState, rec *eventstore.Record, err error) {
	if b.store == nil {
		return
	}
	if err == nil {
		err = b.store.Append(context.WithoutCancel(ctx), rec)
	}
	if err != nil {
		bs.log.Warn("Failed to record build event", logfields.Error(err))
	}
}

func (b *Builder) notify(ctx context.Context, bs *BuildState, runErr error) {
	r := bs.Report
	msg := notify.BuildCompleted{
		BuildID:     bs.ID,
		Outcome:     string(r.Outcome),
		OutputDir:   bs.LiveDir,
		Revision:    r.Revision,
		Posts:       r.Posts,
		Pages:       r.Pages,
		DurationMS:  r.Duration().Milliseconds(),
		Artifacts:   artifacts(r),
		CompletedAt: r.End,
	}
	if runErr != nil {
		msg.Error = runErr.Error()
	}
	if err := b.notifier.BuildCompleted(context.WithoutCancel(ctx), msg); err != nil {
		bs.log.Warn("Failed to publish build notification", logfields.Error(err))
	}
}
