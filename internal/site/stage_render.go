package site

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
)

// Output page names.
const (
	IndexPage = "index.html"
	FooterDir = "footers"
)

// PostPagePath is the output file of a post, relative to the site root:
// <postType>/<postDir>/<postDir>.html.
func PostPagePath(p content.PostRecord) string {
	return filepath.Join(p.PostType, p.PostDir, p.PostDir+".html")
}

// stageRender writes the homepage, one listing per post type, one page per
// post and the footer pages. Every hashed asset exists in the manifest
// before this stage starts.
func (b *Builder) stageRender(ctx context.Context, bs *BuildState) error {
	s := b.renderSite(bs)
	var pages atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	page := func(rel string, fn func() (string, error)) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			html, err := fn()
			if err != nil {
				return err
			}
			if err := writePage(bs.Root, rel, html); err != nil {
				return err
			}
			pages.Add(1)
			return nil
		})
	}

	page(IndexPage, func() (string, error) {
		return b.renderer.Home(render.HomePage{
			Site:                  s,
			MainImage:             b.cfg.Site.MainImage,
			MainIntroduction:      b.cfg.Site.MainIntroduction,
			SecondaryIntroduction: b.cfg.Site.SecondaryIntroduction,
			Recent:                content.SelectRecent(bs.Posts, b.cfg.Site.RecentPosts),
		})
	})

	byType := content.GroupByType(bs.Posts)
	for _, pt := range b.cfg.PostTypes {
		posts := byType[pt.Directory]
		content.SortByDateDesc(posts)
		page(filepath.Join(pt.Directory, IndexPage), func() (string, error) {
			return b.renderer.Listing(render.ListingPage{Site: s, PostType: pt, Posts: posts})
		})
	}

	for _, p := range bs.Posts {
		category := ""
		if pt, ok := b.cfg.PostType(p.PostType); ok {
			category = pt.Category
		}
		page(PostPagePath(p), func() (string, error) {
			body, ok := bs.Bodies.Body(p.Link)
			if !ok {
				return "", errors.NewError(errors.CategoryRender, "post body not discovered").
					WithContext("post", p.Link).
					Build()
			}
			return b.renderer.Post(render.PostPage{Site: s, Post: p, Category: category, Markdown: body})
		})
	}

	for _, f := range bs.Footers {
		page(strings.TrimPrefix(render.FooterPath(f.Name), "/"), func() (string, error) {
			return b.renderer.Footer(render.FooterPage{Site: s, Footer: f})
		})
	}

	if err := g.Wait(); err != nil {
		return stageFatal(StageRender, err)
	}
	bs.Report.Pages = int(pages.Load())
	bs.log.Info("Rendered pages", logfields.Count(bs.Report.Pages))
	return nil
}

func (b *Builder) renderSite(bs *BuildState) render.Site {
	c := b.cfg.Site
	return render.Site{
		Name:              c.Name,
		URL:               strings.TrimSuffix(c.URL, "/"),
		Icon:              c.Icon,
		SearchPlaceholder: c.SearchPlaceholder,
		PostTypes:         b.cfg.PostTypes,
		Footers:           render.FooterLinks(bs.Footers),
		Features:          b.cfg.Features,
		Resolve:           bs.Manifest.Get,
	}
}

func writePage(root, rel, html string) error {
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create page directory").
			WithContext("path", path).
			Build()
	}
	if err := os.WriteFile(path, []byte(html), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write page").
			WithContext("path", path).
			Build()
	}
	return nil
}
