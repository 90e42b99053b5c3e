// Package scrub strips private metadata from post images while hashing the
// filtered bytes in the same pass.
package scrub

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/assets"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// filterFunc copies src to dst, dropping metadata.
type filterFunc func(dst io.Writer, src io.Reader) error

// Every post image format has a metadata filter. SVG and AVIF are not
// accepted: SVG is a document that can carry metadata anywhere, AVIF keeps
// Exif and XMP as items referenced by offset from the container.
var filters = map[string]filterFunc{
	".jpg":  filterJPEG,
	".jpeg": filterJPEG,
	".png":  filterPNG,
	".gif":  filterGIF,
	".webp": filterWebP,
}

var unsupportedImages = map[string]bool{
	".svg":  true,
	".avif": true,
}

// IsImage reports whether name is a post image the scrubber can publish.
func IsImage(name string) bool {
	_, ok := filters[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsUnsupportedImage reports image formats that are never published from
// post directories.
func IsUnsupportedImage(name string) bool {
	return unsupportedImages[strings.ToLower(filepath.Ext(name))]
}

// Scrubber writes metadata-free, content-hashed copies of images.
type Scrubber struct {
	writer *assets.Writer
	logger *slog.Logger
}

// New returns a Scrubber registering its output through w.
func New(w *assets.Writer) *Scrubber {
	return &Scrubber{writer: w, logger: slog.Default()}
}

// Scrub filters srcPath into destDir, names the result base.<hash>.ext where
// the hash covers the filtered bytes, and registers destDir/originalFilename
// in the manifest. Nothing appears under the final name unless the whole
// pipeline succeeded.
func (s *Scrubber) Scrub(ctx context.Context, srcPath, destDir, originalFilename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	filter, ok := filters[strings.ToLower(filepath.Ext(originalFilename))]
	if !ok {
		return "", errors.ValidationError("unsupported image format").
			WithContext("path", srcPath).
			Build()
	}
	src, err := os.Open(srcPath)
	if err != nil {
		return "", scrubError(err, "failed to open image", srcPath)
	}
	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", scrubError(err, "failed to create image directory", destDir)
	}
	tmp, err := os.CreateTemp(destDir, "."+originalFilename+".scrub-*")
	if err != nil {
		return "", scrubError(err, "failed to create temp file", destDir)
	}
	tmpName := tmp.Name()
	abandon := func() { _ = os.Remove(tmpName) }

	h := assets.NewHasher()
	if err := filter(io.MultiWriter(tmp, h), src); err != nil {
		_ = tmp.Close()
		abandon()
		return "", scrubError(err, "failed to scrub image", srcPath)
	}
	if err := tmp.Close(); err != nil {
		abandon()
		return "", scrubError(err, "failed to flush scrubbed image", srcPath)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		abandon()
		return "", scrubError(err, "failed to set image permissions", srcPath)
	}

	ext := filepath.Ext(originalFilename)
	base := strings.TrimSuffix(originalFilename, ext)
	hashed := assets.HashedName(base, assets.HexSum(h), ext)
	if err := os.Rename(tmpName, filepath.Join(destDir, hashed)); err != nil {
		abandon()
		return "", scrubError(err, "failed to move scrubbed image into place", srcPath)
	}

	s.writer.Register(destDir, originalFilename, hashed)
	s.logger.Debug("Image scrubbed", logfields.Path(srcPath), logfields.HashPath(hashed))
	return hashed, nil
}

func scrubError(err error, msg, path string) error {
	return errors.WrapError(err, errors.CategoryAsset, msg).
		WithContext("path", path).
		Build()
}
