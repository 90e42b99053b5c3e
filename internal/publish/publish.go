// Package publish swaps a freshly built output directory into place with
// directory renames, keeping the previous site until the swap succeeds.
package publish

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// BackupSuffix is appended to the live directory to form the backup path.
const BackupSuffix = ".old"

// FS is the subset of filesystem operations the publisher performs.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	Rename(oldpath, newpath string) error
	RemoveAll(path string) error
}

// OSFS implements FS with the os package.
type OSFS struct{}

func (OSFS) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
func (OSFS) Rename(oldpath, newpath string) error  { return os.Rename(oldpath, newpath) }
func (OSFS) RemoveAll(path string) error           { return os.RemoveAll(path) }

// Publish steps, reported in PublishError.
const (
	StepRemoveStaleBackup = "remove_stale_backup"
	StepBackupLive        = "backup_live"
	StepPromote           = "promote"
)

// PublishError reports a failed swap. Restored is true when the backup was
// renamed back to the live path; RestoreErr is set when that rename failed.
type PublishError struct {
	Step       string
	Live       string
	Restored   bool
	RestoreErr error
	Err        error
}

func (e *PublishError) Error() string {
	switch {
	case e.RestoreErr != nil:
		return fmt.Sprintf("publish %s failed at %s; live output may be inconsistent; did not restore %s%s: %v (restore: %v)",
			e.Live, e.Step, e.Live, BackupSuffix, e.Err, e.RestoreErr)
	case e.Restored:
		return fmt.Sprintf("publish %s failed at %s; previous output restored: %v", e.Live, e.Step, e.Err)
	default:
		return fmt.Sprintf("publish %s failed at %s: %v", e.Live, e.Step, e.Err)
	}
}

func (e *PublishError) Unwrap() error { return e.Err }

// Publisher performs the rename-based swap.
type Publisher struct {
	fs       FS
	logger   *slog.Logger
	recorder metrics.Recorder
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithFS replaces the filesystem, used by tests to inject failures.
func WithFS(f FS) Option { return func(p *Publisher) { p.fs = f } }

func WithLogger(l *slog.Logger) Option { return func(p *Publisher) { p.logger = l } }

func WithRecorder(r metrics.Recorder) Option { return func(p *Publisher) { p.recorder = r } }

// New creates a Publisher on the OS filesystem.
func New(opts ...Option) *Publisher {
	p := &Publisher{fs: OSFS{}, logger: slog.Default(), recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish replaces liveDir with tempDir:
//  1. remove a stale backup
//  2. rename liveDir to the backup path, if liveDir exists
//  3. rename tempDir to liveDir
//  4. remove the backup
//
// When step 2 or 3 fails while the backup exists and liveDir does not, the
// backup is renamed back. A failed step 4 is logged and not returned.
func (p *Publisher) Publish(tempDir, liveDir string) error {
	backup := liveDir + BackupSuffix
	log := p.logger.With(logfields.Output(liveDir))

	if err := p.fs.RemoveAll(backup); err != nil {
		return p.fail(&PublishError{Step: StepRemoveStaleBackup, Live: liveDir, Err: err})
	}

	if p.exists(liveDir) {
		if err := p.fs.Rename(liveDir, backup); err != nil {
			return p.fail(p.restore(&PublishError{Step: StepBackupLive, Live: liveDir, Err: err}, backup))
		}
	}

	if err := p.fs.Rename(tempDir, liveDir); err != nil {
		return p.fail(p.restore(&PublishError{Step: StepPromote, Live: liveDir, Err: err}, backup))
	}

	if err := p.fs.RemoveAll(backup); err != nil {
		log.Warn("Failed to remove publish backup", logfields.Path(backup), logfields.Error(err))
	}

	p.recorder.IncPublishResult(metrics.PublishSuccess)
	log.Info("Published site", logfields.Path(tempDir))
	return nil
}

// restore renames backup to live when only the backup holds a site.
func (p *Publisher) restore(pe *PublishError, backup string) *PublishError {
	if !p.exists(backup) || p.exists(pe.Live) {
		return pe
	}
	if err := p.fs.Rename(backup, pe.Live); err != nil {
		pe.RestoreErr = err
		return pe
	}
	pe.Restored = true
	return pe
}

func (p *Publisher) fail(pe *PublishError) error {
	label := metrics.PublishFailed
	attrs := []any{logfields.Output(pe.Live), slog.String("step", pe.Step), logfields.Error(pe.Err)}
	switch {
	case pe.RestoreErr != nil:
		label = metrics.PublishUnrestored
		p.logger.Error("Publish failed and backup was not restored; operator intervention required", attrs...)
	case pe.Restored:
		label = metrics.PublishRestored
		p.logger.Warn("Publish failed; previous output restored", attrs...)
	default:
		p.logger.Error("Publish failed", attrs...)
	}
	p.recorder.IncPublishResult(label)

	b := errors.WrapError(pe, errors.CategoryPublish, "atomic publish failed").
		WithContext("step", pe.Step).
		WithContext("live", pe.Live).
		Fatal()
	if pe.RestoreErr != nil {
		b = b.UserAction()
	}
	return b.Build()
}

func (p *Publisher) exists(path string) bool {
	_, err := p.fs.Stat(path)
	return err == nil || !stderrors.Is(err, fs.ErrNotExist)
}
