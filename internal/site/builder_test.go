package site

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/eventstore"
	"git.home.luguber.info/inful/sitebuilder/internal/git"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/search"
)

// jpegWithGPS encodes a small JPEG and splices an EXIF segment after SOI.
func jpegWithGPS(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := range 4 {
		for y := range 4 {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	raw := buf.Bytes()

	payload := []byte("Exif\x00\x00GPS-SECRET-51.5N")
	seg := []byte{0xFF, 0xE1, byte((len(payload) + 2) >> 8), byte(len(payload) + 2)}
	out := append([]byte{}, raw[:2]...)
	out = append(out, seg...)
	out = append(out, payload...)
	return append(out, raw[2:]...)
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func tinyGIF(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	pal := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White})
	require.NoError(t, gif.Encode(&buf, pal, nil))
	return buf.Bytes()
}

func postMD(title, image, date, extra string) string {
	return fmt.Sprintf("---\ntitle: %s\ndescription: About %s\nimage: %s\ndate: %s\nkeywords: [kitchen]\n---\n# %s\n\n![%s](./%s)\n%s",
		title, title, image, date, title, title, image, extra)
}

type testSite struct {
	root string
	cfg  *config.Config
}

func (s *testSite) writePost(t *testing.T, postType, dir, md string, images map[string][]byte) {
	t.Helper()
	p := filepath.Join(s.cfg.ContentDirectory, postType, dir)
	require.NoError(t, os.MkdirAll(p, 0o750))
	if md != "" {
		require.NoError(t, os.WriteFile(filepath.Join(p, dir+".md"), []byte(md), 0o600))
	}
	for name, b := range images {
		require.NoError(t, os.WriteFile(filepath.Join(p, name), b, 0o600))
	}
}

func (s *testSite) live() string { return s.cfg.OutputDirectory }

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	root := t.TempDir()
	s := &testSite{
		root: root,
		cfg: &config.Config{
			ContentDirectory: filepath.Join(root, "content"),
			OutputDirectory:  filepath.Join(root, "public"),
			FooterDirectory:  filepath.Join(root, "footers"),
			PostTypes: []config.PostType{
				{Directory: "recipes", DisplayName: "Recipes", Category: config.CategoryRecipe},
				{Directory: "blog", DisplayName: "Blog", Category: config.CategoryBlogPosting},
			},
			Site: config.SiteConfig{
				Name:        "Kitchen",
				URL:         "https://example.com/",
				Icon:        "icon.svg",
				RecentPosts: 2,
				Theme:       map[string]string{"primary-color": "#123456"},
			},
			Features: config.FeaturesConfig{Search: true},
			Build:    config.BuildConfig{Workers: 2},
		},
	}

	photo := jpegWithGPS(t)
	s.writePost(t, "recipes", "apple-pie", postMD("Apple Pie", "photo.jpg", "2024-03-01", "\n- [ ] apples\n"),
		map[string][]byte{"photo.jpg": photo})
	s.writePost(t, "recipes", "bread", postMD("Bread", "loaf.png", "2023-01-01", ""),
		map[string][]byte{"loaf.png": tinyPNG(t)})
	s.writePost(t, "blog", "hello", postMD("Hello", "cover.gif", "2024-05-01", ""),
		map[string][]byte{"cover.gif": tinyGIF(t)})

	require.NoError(t, os.MkdirAll(s.cfg.FooterDirectory, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.FooterDirectory, "about.md"),
		[]byte("---\ndisplayName: About\norder: 1\n---\nWe cook.\n"), 0o600))
	return s
}

func newTestBuilder(t *testing.T, cfg *config.Config, opts ...Option) *Builder {
	t.Helper()
	b, err := NewBuilder(cfg, opts...)
	require.NoError(t, err)
	b.revision = func(string) (git.Revision, error) { return git.Revision{}, git.ErrNotRepository }
	return b
}

// readTree returns every file under root keyed by slash path, skipping the
// build report.
func readTree(t *testing.T, root string) map[string][]byte {
	t.Helper()
	out := map[string][]byte{}
	require.NoError(t, filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		if strings.HasPrefix(rel, "build-report.") {
			return nil
		}
		b, err := os.ReadFile(p)
		out[filepath.ToSlash(rel)] = b
		return err
	}))
	return out
}

func globOne(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(pattern)
	require.NoError(t, err)
	require.Len(t, matches, 1, pattern)
	return matches[0]
}

type countingRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	stages   map[string]metrics.ResultLabel
	outcomes []string
	misses   int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{stages: map[string]metrics.ResultLabel{}}
}

func (r *countingRecorder) IncStageResult(stage string, res metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage] = res
}

func (r *countingRecorder) IncBuildOutcome(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *countingRecorder) IncManifestMiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses++
}

type capturingNotifier struct {
	notify.Noop
	msgs []notify.BuildCompleted
}

func (n *capturingNotifier) BuildCompleted(_ context.Context, msg notify.BuildCompleted) error {
	n.msgs = append(n.msgs, msg)
	return nil
}

func TestBuildPublishesCompleteSite(t *testing.T) {
	s := newTestSite(t)
	rec := newCountingRecorder()
	b := newTestBuilder(t, s.cfg, WithRecorder(rec))

	report, err := b.Build(t.Context())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.Outcome, report.Summary())

	live := s.live()
	for _, p := range []string{
		"index.html",
		"recipes/index.html",
		"blog/index.html",
		"recipes/apple-pie/apple-pie.html",
		"recipes/bread/bread.html",
		"blog/hello/hello.html",
		"footers/about.html",
		ReportJSONFile,
		ReportTextFile,
	} {
		require.FileExists(t, filepath.Join(live, p))
	}
	require.NoDirExists(t, live+StagingSuffix)
	require.NoDirExists(t, live+".old")

	require.Equal(t, 3, report.Posts)
	require.Equal(t, 7, report.Pages)
	require.Equal(t, map[string]int{"recipes": 2, "blog": 1}, report.PostsByType)
	require.Len(t, report.Fingerprints, 3)
	require.Zero(t, report.ManifestMisses)
	require.Empty(t, report.Findings)
	require.Zero(t, rec.misses)
	require.Equal(t, []string{"success"}, rec.outcomes)
	for _, st := range []StageName{StagePrepareOutput, StageDiscover, StageIndex, StageAssets, StageRender, StageVerify, StagePublish} {
		require.Equal(t, metrics.ResultSuccess, rec.stages[string(st)], st)
	}

	// Scrubbed image: hashed name, no EXIF payload.
	photo := globOne(t, filepath.Join(live, "recipes", "apple-pie", "photo.*.jpg"))
	b2, err := os.ReadFile(photo)
	require.NoError(t, err)
	require.NotContains(t, string(b2), "GPS-SECRET")
	require.NoFileExists(t, filepath.Join(live, "recipes", "apple-pie", "photo.jpg"))

	post, err := os.ReadFile(filepath.Join(live, "recipes", "apple-pie", "apple-pie.html"))
	require.NoError(t, err)
	require.Contains(t, string(post), `src="/recipes/apple-pie/`+filepath.Base(photo)+`"`)

	// Theme and search wiring.
	css := globOne(t, filepath.Join(live, "css", "main.*.css"))
	cssBody, err := os.ReadFile(css)
	require.NoError(t, err)
	require.Contains(t, string(cssBody), "--primary-color: #123456")
	require.NotContains(t, string(cssBody), "#theme")

	require.NotEmpty(t, report.SearchIndex)
	require.FileExists(t, filepath.Join(live, filepath.FromSlash(report.SearchIndex)))
	js := globOne(t, filepath.Join(live, "js", "search.*.js"))
	jsBody, err := os.ReadFile(js)
	require.NoError(t, err)
	require.Contains(t, string(jsBody), report.SearchIndex)
	require.NotContains(t, string(jsBody), search.Placeholder)
	require.NotContains(t, string(jsBody), searchTrackMarker)
	matches, err := filepath.Glob(filepath.Join(live, "js", "pageTrack.*.js"))
	require.NoError(t, err)
	require.Empty(t, matches)

	data, err := search.Load(filepath.Join(live, filepath.FromSlash(report.SearchIndex)))
	require.NoError(t, err)
	results := data.Search("apple", 5)
	require.NotEmpty(t, results)
	require.Equal(t, "/recipes/apple-pie", results[0].Link)
}

func TestHomeShowsMostRecentPosts(t *testing.T) {
	s := newTestSite(t)
	_, err := newTestBuilder(t, s.cfg).Build(t.Context())
	require.NoError(t, err)

	home, err := os.ReadFile(filepath.Join(s.live(), "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(home), `href="/blog/hello"`)
	require.Contains(t, string(home), `href="/recipes/apple-pie"`)
	require.NotContains(t, string(home), `href="/recipes/bread"`)
	require.Less(t, strings.Index(string(home), `href="/blog/hello"`), strings.Index(string(home), `href="/recipes/apple-pie"`))

	listing, err := os.ReadFile(filepath.Join(s.live(), "recipes", "index.html"))
	require.NoError(t, err)
	require.Less(t, strings.Index(string(listing), `href="/recipes/apple-pie"`), strings.Index(string(listing), `href="/recipes/bread"`))
}

func TestRebuildIsByteIdentical(t *testing.T) {
	s := newTestSite(t)
	b := newTestBuilder(t, s.cfg)

	_, err := b.Build(t.Context())
	require.NoError(t, err)
	first := readTree(t, s.live())

	_, err = b.Build(t.Context())
	require.NoError(t, err)
	second := readTree(t, s.live())

	require.Equal(t, len(first), len(second))
	for name, body := range first {
		require.Contains(t, second, name)
		require.True(t, bytes.Equal(body, second[name]), name)
	}
}

func TestMissingMarkdownLeavesLiveUntouched(t *testing.T) {
	s := newTestSite(t)
	b := newTestBuilder(t, s.cfg)
	_, err := b.Build(t.Context())
	require.NoError(t, err)
	before := readTree(t, s.live())

	s.writePost(t, "blog", "draft", "", map[string][]byte{"cover.gif": tinyGIF(t)})
	report, err := b.Build(t.Context())
	require.Error(t, err)
	require.ErrorIs(t, err, content.ErrMissingMarkdownFile)

	var se *StageError
	require.True(t, stderrors.As(err, &se))
	require.Equal(t, StageDiscover, se.Stage)
	require.Equal(t, StageResultFatal, se.Result)
	require.Equal(t, OutcomeFailed, report.Outcome)

	require.Equal(t, before, readTree(t, s.live()))
	require.NoDirExists(t, s.live()+StagingSuffix)
}

func TestMissingMarkdownOnFirstBuildWritesNothing(t *testing.T) {
	s := newTestSite(t)
	s.writePost(t, "recipes", "empty", "", nil)

	_, err := newTestBuilder(t, s.cfg).Build(t.Context())
	require.ErrorIs(t, err, content.ErrMissingMarkdownFile)
	require.NoDirExists(t, s.live())
	require.NoDirExists(t, s.live()+StagingSuffix)
}

func TestSearchDisabledSkipsIndexAndScript(t *testing.T) {
	s := newTestSite(t)
	s.cfg.Features = config.FeaturesConfig{VisitCounter: true}

	report, err := newTestBuilder(t, s.cfg).Build(t.Context())
	require.NoError(t, err)
	require.Empty(t, report.SearchIndex)
	require.NotContains(t, report.StageDurations, string(StageIndex))

	for pattern, want := range map[string]int{
		"search-data.*.json":  0,
		"js/search.*.js":      0,
		"js/pageTrack.*.js":   1,
		"js/navbar.*.js":      1,
		"images/icon.*.svg":   1,
		"css/main.*.css":      1,
		"recipes/*/*.html":    2,
		"footers/about.html":  1,
		"blog/hello/cover.*":  1,
		"blog/hello/hello.md": 0,
	} {
		matches, err := filepath.Glob(filepath.Join(s.live(), filepath.FromSlash(pattern)))
		require.NoError(t, err)
		require.Len(t, matches, want, pattern)
	}
}

func TestUnresolvedReferenceIsWarning(t *testing.T) {
	s := newTestSite(t)
	s.writePost(t, "blog", "broken", postMD("Broken", "cover.gif", "2022-01-01", "\n![gone](./missing.jpg)\n"),
		map[string][]byte{"cover.gif": tinyGIF(t)})

	report, err := newTestBuilder(t, s.cfg).Build(t.Context())
	require.NoError(t, err)
	require.Equal(t, OutcomeWarning, report.Outcome)
	require.Equal(t, StageResultWarning, report.StageIssues[StageVerify])
	require.Positive(t, report.ManifestMisses)
	require.NotEmpty(t, report.Findings)
	require.Equal(t, "/blog/broken/missing.jpg", report.Findings[0].URL)
	require.FileExists(t, filepath.Join(s.live(), "blog", "broken", "broken.html"))
}

func TestStrictManifestFailsBuild(t *testing.T) {
	s := newTestSite(t)
	_, err := newTestBuilder(t, s.cfg).Build(t.Context())
	require.NoError(t, err)
	before := readTree(t, s.live())

	s.cfg.Build.StrictManifest = true
	s.writePost(t, "blog", "broken", postMD("Broken", "cover.gif", "2022-01-01", "\n![gone](./missing.jpg)\n"),
		map[string][]byte{"cover.gif": tinyGIF(t)})

	report, err := newTestBuilder(t, s.cfg).Build(t.Context())
	require.Error(t, err)
	require.Equal(t, StageResultFatal, report.StageIssues[StageVerify])
	require.Equal(t, before, readTree(t, s.live()))
	require.NoDirExists(t, s.live()+StagingSuffix)
}

type failingPublisher struct{ err error }

func (p failingPublisher) Publish(string, string) error { return p.err }

func TestPublishFailureRemovesStaging(t *testing.T) {
	s := newTestSite(t)
	injected := stderrors.New("rename refused")
	rec := newCountingRecorder()

	report, err := newTestBuilder(t, s.cfg, WithPublisher(failingPublisher{err: injected}), WithRecorder(rec)).Build(t.Context())
	require.ErrorIs(t, err, injected)
	require.Equal(t, OutcomeFailed, report.Outcome)
	require.Equal(t, metrics.ResultFatal, rec.stages[string(StagePublish)])
	require.NoDirExists(t, s.live())
	require.NoDirExists(t, s.live()+StagingSuffix)
}

func TestCanceledBuild(t *testing.T) {
	s := newTestSite(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	report, err := newTestBuilder(t, s.cfg).Build(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, OutcomeCanceled, report.Outcome)
	require.NoDirExists(t, s.live())
}

func TestBuildRecordsHistoryAndNotifies(t *testing.T) {
	s := newTestSite(t)
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	n := &capturingNotifier{}

	report, err := newTestBuilder(t, s.cfg, WithEventStore(store), WithNotifier(n)).Build(t.Context())
	require.NoError(t, err)

	events, err := store.ByBuild(t.Context(), report.BuildID)
	require.NoError(t, err)
	var types []string
	for _, e := range events {
		types = append(types, e.Type)
	}
	require.Equal(t, eventstore.TypeBuildStarted, types[0])
	require.Contains(t, types, eventstore.TypePostsDiscovered)
	require.Contains(t, types, eventstore.TypeStageCompleted)
	require.Contains(t, types, eventstore.TypeSitePublished)
	require.Equal(t, eventstore.TypeBuildCompleted, types[len(types)-1])

	proj := eventstore.NewBuildHistoryProjection(store, 10)
	require.NoError(t, proj.Rebuild(t.Context()))
	summary, ok := proj.GetBuild(report.BuildID)
	require.True(t, ok)
	require.Equal(t, 7, summary.Pages)

	require.Len(t, n.msgs, 1)
	msg := n.msgs[0]
	require.Equal(t, report.BuildID, msg.BuildID)
	require.Equal(t, "success", msg.Outcome)
	require.Equal(t, 3, msg.Posts)
	require.Empty(t, msg.Error)
	require.WithinDuration(t, time.Now(), msg.CompletedAt, time.Minute)
}

func TestBuildUsesInjectedDiscoverer(t *testing.T) {
	s := newTestSite(t)
	fake := &stubDiscoverer{err: stderrors.New("index unreadable")}
	_, err := newTestBuilder(t, s.cfg, WithDiscoverer(func(*BuildState) Discoverer { return fake })).Build(t.Context())
	require.ErrorIs(t, err, fake.err)
	require.NoDirExists(t, s.live())
}

type stubDiscoverer struct{ err error }

func (d *stubDiscoverer) Discover(context.Context, []config.PostType) ([]content.PostRecord, error) {
	return nil, d.err
}

func (d *stubDiscoverer) Body(string) (string, bool) { return "", false }
