package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/manifest"
)

// Writer writes content-addressed files and records them in a manifest.
type Writer struct {
	manifest *manifest.Manifest
	minifier Minifier
	logger   *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithMinifier enables minification of css/js content before hashing.
func WithMinifier(m Minifier) Option {
	return func(w *Writer) { w.minifier = m }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) { w.logger = l }
}

// NewWriter returns a Writer registering into m.
func NewWriter(m *manifest.Manifest, opts ...Option) *Writer {
	w := &Writer{manifest: m, logger: slog.Default()}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Manifest returns the manifest the writer records into.
func (w *Writer) Manifest() *manifest.Manifest { return w.manifest }

// WriteFile copies srcPath to destDir/base.<hash>.ext and returns the hashed filename.
// Minifiable sources are read fully and routed through WriteBytes.
func (w *Writer) WriteFile(ctx context.Context, srcPath, destDir, base, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if w.minifier != nil && w.minifier.Handles(ext) {
		content, err := os.ReadFile(srcPath)
		if err != nil {
			return "", assetError(err, "failed to read asset", srcPath)
		}
		return w.WriteBytes(destDir, base, ext, content)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", assetError(err, "failed to open asset", srcPath)
	}
	defer func() { _ = src.Close() }()

	hash, err := HashReader(src)
	if err != nil {
		return "", assetError(err, "failed to hash asset", srcPath)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", assetError(err, "failed to rewind asset", srcPath)
	}

	name := HashedName(base, hash, ext)
	if err := writeAtomic(filepath.Join(destDir, name), src); err != nil {
		return "", assetError(err, "failed to write asset", srcPath)
	}
	w.register(destDir, base, ext, name)
	return name, nil
}

// WriteString writes already-serialized text; the hash covers its UTF-8 bytes.
func (w *Writer) WriteString(destDir, base, ext, content string) (string, error) {
	return w.WriteBytes(destDir, base, ext, []byte(content))
}

// WriteBytes writes content to destDir/base.<hash>.ext and returns the hashed filename.
func (w *Writer) WriteBytes(destDir, base, ext string, content []byte) (string, error) {
	if w.minifier != nil && w.minifier.Handles(ext) {
		minified, err := w.minifier.Minify(ext, content)
		if err != nil {
			return "", assetError(err, "failed to minify asset", filepath.Join(destDir, base+normalizeExt(ext)))
		}
		content = minified
	}

	name := HashedName(base, Hash(content), ext)
	if err := writeAtomic(filepath.Join(destDir, name), bytes.NewReader(content)); err != nil {
		return "", assetError(err, "failed to write asset", filepath.Join(destDir, name))
	}
	w.register(destDir, base, ext, name)
	return name, nil
}

// Register records a file that was written through some other path (the
// image scrubber) under the same logical → hashed convention.
func (w *Writer) Register(destDir, logicalName, hashedName string) {
	w.manifest.Set(filepath.Join(destDir, logicalName), filepath.Join(destDir, hashedName))
}

func (w *Writer) register(destDir, base, ext, hashed string) {
	logical := base + normalizeExt(ext)
	w.Register(destDir, logical, hashed)
	w.logger.Debug("Asset written",
		logfields.Asset(w.manifest.Context().Rel(filepath.Join(destDir, logical))),
		logfields.HashPath(hashed))
}

func normalizeExt(ext string) string {
	if ext != "" && ext[0] != '.' {
		return "." + ext
	}
	return ext
}

// writeAtomic writes r to a temp file beside dest and renames it into place.
func writeAtomic(dest string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

func assetError(err error, msg, path string) error {
	return errors.WrapError(err, errors.CategoryAsset, msg).
		WithContext("path", path).
		Build()
}
