package site

import (
	"context"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/search"
)

// stageIndex builds the search index and writes it as a hashed asset. It runs
// before the assets stage so the search script can reference the hashed path.
func (b *Builder) stageIndex(_ context.Context, bs *BuildState) error {
	data, err := search.NewBuilder().Build(bs.Posts, bs.Bodies)
	if err != nil {
		return stageFatal(StageIndex, err)
	}
	p, err := search.Write(bs.Writer, bs.Root, data)
	if err != nil {
		return stageFatal(StageIndex, err)
	}
	bs.Search = data
	bs.SearchPath = p
	bs.Report.SearchIndex = p
	bs.log.Info("Search index written", logfields.HashPath(p), logfields.Count(len(data.Store)))
	return nil
}
