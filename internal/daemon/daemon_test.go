package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

type fakeBuilder struct {
	delay time.Duration
	err   error

	builds  atomic.Int32
	active  atomic.Int32
	overlap atomic.Bool
	started chan struct{}
}

func (f *fakeBuilder) Build(ctx context.Context) (*site.BuildReport, error) {
	if f.active.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.active.Add(-1)
	f.builds.Add(1)

	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return &site.BuildReport{Outcome: site.OutcomeCanceled}, ctx.Err()
	}
	if f.err != nil {
		return &site.BuildReport{Outcome: site.OutcomeFailed}, f.err
	}
	return &site.BuildReport{Outcome: site.OutcomeSuccess}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		ContentDirectory: filepath.Join(root, "content"),
		OutputDirectory:  filepath.Join(root, "public"),
	}
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.ContentDirectory, "recipes"), 0o750))
	return cfg
}

func TestRebuild_NeverOverlaps(t *testing.T) {
	fb := &fakeBuilder{delay: 20 * time.Millisecond}
	d := New(testConfig(t), fb, Options{})

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Rebuild(context.Background(), ReasonChange)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.EqualValues(t, 4, fb.builds.Load())
	require.False(t, fb.overlap.Load(), "builds must be serialized")
	require.False(t, d.Running())
}

func TestRebuild_RecordsLastBuild(t *testing.T) {
	fb := &fakeBuilder{err: errors.New("boom")}
	d := New(testConfig(t), fb, Options{})

	report, err := d.Rebuild(context.Background(), ReasonStartup)
	require.Error(t, err)

	last, lastErr := d.LastBuild()
	require.Same(t, report, last)
	require.Equal(t, site.OutcomeFailed, last.Outcome)
	require.ErrorIs(t, lastErr, err)
}

func TestRun_InitialBuildFailureKeepsRunning(t *testing.T) {
	fb := &fakeBuilder{err: errors.New("missing markdown")}
	d := New(testConfig(t), fb, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, d.Run(ctx))
	require.EqualValues(t, 1, fb.builds.Load())
}

func TestRun_ScheduledRebuilds(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.RebuildInterval = "30ms"
	fb := &fakeBuilder{}
	d := New(cfg, fb, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return fb.builds.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	require.False(t, fb.overlap.Load())
}

func TestRun_WatchRebuildsOnContentChange(t *testing.T) {
	cfg := testConfig(t)
	fb := &fakeBuilder{started: make(chan struct{}, 4)}
	d := New(cfg, fb, Options{Watch: true, QuietWindow: 20 * time.Millisecond, MaxDelay: 200 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Startup build.
	select {
	case <-fb.started:
	case <-time.After(time.Second):
		t.Fatal("startup build did not run")
	}

	require.Eventually(t, func() bool {
		md := filepath.Join(cfg.ContentDirectory, "recipes", "pie.md")
		_ = os.WriteFile(md, []byte("# Pie"), 0o600)
		return fb.builds.Load() >= 2
	}, 2*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.False(t, fb.overlap.Load())
}
