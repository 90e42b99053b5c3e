package site

import (
	"context"
	"os"

	"git.home.luguber.info/inful/sitebuilder/internal/assets"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/manifest"
)

// stagePrepareOutput creates a fresh staging directory next to the live
// output. A staging directory left by an interrupted build is discarded.
func (b *Builder) stagePrepareOutput(_ context.Context, bs *BuildState) error {
	root := bs.LiveDir + StagingSuffix
	if err := os.RemoveAll(root); err != nil {
		return stageFatal(StagePrepareOutput,
			errors.WrapError(err, errors.CategoryFileSystem, "failed to remove stale staging directory").
				WithContext("path", root).
				Build())
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return stageFatal(StagePrepareOutput,
			errors.WrapError(err, errors.CategoryFileSystem, "failed to create staging directory").
				WithContext("path", root).
				Build())
	}
	bs.Root = root

	bs.Manifest = manifest.New(manifest.BuildContext{Root: root})
	opts := []assets.Option{assets.WithLogger(bs.log)}
	if b.minifier != nil {
		opts = append(opts, assets.WithMinifier(b.minifier))
	}
	bs.Writer = assets.NewWriter(bs.Manifest, opts...)

	bs.log.Debug("Initialized staging directory", logfields.Path(root), logfields.Output(bs.LiveDir))
	return nil
}
