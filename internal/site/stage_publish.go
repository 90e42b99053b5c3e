package site

import (
	"context"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// stagePublish persists the build report into the build root and swaps the
// root into the live output directory.
func (b *Builder) stagePublish(_ context.Context, bs *BuildState) error {
	r := bs.Report
	r.Finish()
	r.DeriveOutcome()
	if err := r.Persist(bs.Root); err != nil {
		return stageFatal(StagePublish,
			errors.WrapError(err, errors.CategoryFileSystem, "failed to persist build report").
				WithContext("path", bs.Root).
				Build())
	}

	if err := b.publisher.Publish(bs.Root, bs.LiveDir); err != nil {
		return stageFatal(StagePublish, err)
	}
	bs.published = true
	return nil
}
