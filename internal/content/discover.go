package content

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/scrub"
)

// Discoverer walks the content directory and produces PostRecords.
// One Discoverer serves one build; it also answers Body lookups for the
// posts it discovered.
type Discoverer struct {
	contentDir string
	outputDir  string
	scrubber   ImageScrubber
	parser     FrontMatterParser
	resolver   Resolver
	isImage    func(name string) bool
	workers    int
	logger     *slog.Logger

	mu     sync.RWMutex
	bodies map[string]string
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithWorkers bounds how many post directories are processed concurrently.
func WithWorkers(n int) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Discoverer) { d.logger = l }
}

// WithImageFilter overrides which post files are treated as images.
func WithImageFilter(fn func(name string) bool) Option {
	return func(d *Discoverer) { d.isImage = fn }
}

// NewDiscoverer reads posts from contentDir and scrubs their images into
// outputDir/<postType>/<postDir>. resolver is consulted for each post's
// image hash path after its images are written.
func NewDiscoverer(contentDir, outputDir string, scrubber ImageScrubber, parser FrontMatterParser, resolver Resolver, opts ...Option) *Discoverer {
	d := &Discoverer{
		contentDir: contentDir,
		outputDir:  outputDir,
		scrubber:   scrubber,
		parser:     parser,
		resolver:   resolver,
		isImage:    scrub.IsImage,
		workers:    runtime.NumCPU(),
		logger:     slog.Default(),
		bodies:     make(map[string]string),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

type postJob struct {
	index    int
	postType config.PostType
	dir      string
}

// Discover returns one PostRecord per post directory, ordered by post type
// order and then directory name. The first error aborts the whole discovery.
func (d *Discoverer) Discover(ctx context.Context, postTypes []config.PostType) ([]PostRecord, error) {
	var jobs []postJob
	for _, pt := range postTypes {
		dirs, err := d.listPostDirs(pt)
		if err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			jobs = append(jobs, postJob{index: len(jobs), postType: pt, dir: dir})
		}
	}

	records := make([]PostRecord, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, body, err := d.discoverPost(gctx, job)
			if err != nil {
				return err
			}
			records[job.index] = rec
			d.mu.Lock()
			d.bodies[rec.Link] = body
			d.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.logger.Info("Content discovered", logfields.Count(len(records)))
	return records, nil
}

// Body returns the raw markdown body of a discovered post.
func (d *Discoverer) Body(link string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.bodies[link]
	return b, ok
}

func (d *Discoverer) listPostDirs(pt config.PostType) ([]string, error) {
	typeDir := filepath.Join(d.contentDir, pt.Directory)
	entries, err := os.ReadDir(typeDir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDiscovery, "failed to read post type directory").
			WithContext("post_type", pt.Directory).
			WithContext("path", typeDir).
			Fatal().
			Build()
	}
	dirs := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || isHidden(e.Name()) {
			continue
		}
		dirs = append(dirs, e.Name())
	}
	return dirs, nil
}

func (d *Discoverer) discoverPost(ctx context.Context, job postJob) (PostRecord, string, error) {
	srcDir := filepath.Join(d.contentDir, job.postType.Directory, job.dir)
	link := "/" + job.postType.Directory + "/" + job.dir
	log := d.logger.With(logfields.PostType(job.postType.Directory), logfields.Post(link))

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return PostRecord{}, "", discoveryError(err, "failed to read post directory", srcDir)
	}

	var mdFile string
	var images []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || isHidden(name) {
			continue
		}
		if mdFile == "" && strings.EqualFold(filepath.Ext(name), ".md") {
			mdFile = name
			continue
		}
		switch {
		case d.isImage(name):
			images = append(images, name)
		case scrub.IsUnsupportedImage(name):
			log.Warn("Skipping image format that cannot be scrubbed", logfields.Path(filepath.Join(srcDir, name)))
		}
	}
	if mdFile == "" {
		return PostRecord{}, "", errors.WrapError(&MissingMarkdownError{Dir: srcDir}, errors.CategoryDiscovery, "post has no markdown file").
			WithContext("post", link).
			Fatal().
			Build()
	}

	destDir := filepath.Join(d.outputDir, job.postType.Directory, job.dir)
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return PostRecord{}, "", err
		}
		if _, err := d.scrubber.Scrub(ctx, filepath.Join(srcDir, img), destDir, img); err != nil {
			return PostRecord{}, "", err
		}
	}

	mdPath := filepath.Join(srcDir, mdFile)
	raw, err := os.ReadFile(mdPath)
	if err != nil {
		return PostRecord{}, "", discoveryError(err, "failed to read markdown file", mdPath)
	}
	doc, err := d.parser.Parse(raw)
	if err != nil {
		return PostRecord{}, "", discoveryError(err, "failed to parse front matter", mdPath)
	}

	rec := PostRecord{
		Link:                link,
		PostType:            job.postType.Directory,
		PostTypeDisplayName: job.postType.DisplayName,
		PostDir:             job.dir,
		MarkdownFile:        mdFile,
		SourceDir:           srcDir,
		Fingerprint:         frontmatter.Fingerprint(doc),
	}
	if bad := applyAttributes(&rec, doc.Attributes); len(bad) > 0 {
		return PostRecord{}, "", errors.WrapError(&InvalidFrontMatterError{File: mdPath, Fields: bad}, errors.CategoryDiscovery, "required front matter missing").
			WithContext("post", link).
			Fatal().
			Build()
	}
	rec.ImageHashPath = d.resolver.Get(link + "/" + rec.Image)

	for _, ref := range markdown.LocalImages([]byte(doc.Body)) {
		name := strings.TrimPrefix(ref, "./")
		if _, err := os.Stat(filepath.Join(srcDir, filepath.FromSlash(name))); err != nil {
			log.Warn("Post references missing image", logfields.Asset(ref))
		}
	}

	log.Debug("Post discovered", logfields.Count(len(images)))
	return rec, doc.Body, nil
}

func discoveryError(err error, msg, path string) error {
	return errors.WrapError(err, errors.CategoryDiscovery, msg).
		WithContext("path", path).
		Fatal().
		Build()
}

func isHidden(name string) bool { return strings.HasPrefix(name, ".") }
