package site

import (
	"context"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/eventstore"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// stageDiscover reads every post, scrubbing its images into the build root,
// and the optional footer pages. Any error aborts the build.
func (b *Builder) stageDiscover(ctx context.Context, bs *BuildState) error {
	d := b.discover(bs)
	posts, err := d.Discover(ctx, b.cfg.PostTypes)
	if err != nil {
		return stageFatal(StageDiscover, err)
	}
	footers, err := content.DiscoverFooters(b.cfg.FooterDirectory, b.parser)
	if err != nil {
		return stageFatal(StageDiscover, err)
	}

	bs.Posts = posts
	bs.Bodies = d
	bs.Footers = footers

	r := bs.Report
	r.Posts = len(posts)
	for _, p := range posts {
		r.PostsByType[p.PostType]++
		if p.Fingerprint != "" {
			r.Fingerprints[p.Link] = p.Fingerprint
		}
	}

	ev, evErr := eventstore.NewPostsDiscovered(bs.ID, eventstore.PostsDiscoveredData{Posts: r.Posts, ByType: r.PostsByType})
	b.appendEvent(ctx, bs, ev, evErr)
	bs.log.Info("Discovered posts", logfields.Count(len(posts)), "footers", len(footers))
	return nil
}
