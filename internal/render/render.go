// Package render turns post records and markdown bodies into complete HTML
// documents using the embedded page templates.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"path"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// DefaultAssets returns the embedded default assets of one kind ("css", "js" or "images").
func DefaultAssets(kind string) (fs.FS, error) {
	return fs.Sub(staticFS, path.Join("static", kind))
}

// Renderer produces full HTML documents for each page kind.
type Renderer interface {
	Home(HomePage) (string, error)
	Listing(ListingPage) (string, error)
	Post(PostPage) (string, error)
	Footer(FooterPage) (string, error)
}

// Site is shared by every page.
type Site struct {
	Name              string
	URL               string // absolute site URL without trailing slash
	Icon              string // filename under /images
	SearchPlaceholder string
	PostTypes         []config.PostType
	Footers           []FooterLink
	Features          config.FeaturesConfig

	// Resolve maps a logical asset path to its hashed path.
	Resolve func(logicalPath string) string
}

// FooterLink is one entry of the footer navigation.
type FooterLink struct {
	Href        string
	DisplayName string
}

// FooterLinks builds the footer navigation for footers.
func FooterLinks(footers []content.Footer) []FooterLink {
	links := make([]FooterLink, 0, len(footers))
	for _, f := range footers {
		links = append(links, FooterLink{Href: FooterPath(f.Name), DisplayName: f.DisplayName})
	}
	return links
}

// FooterPath is the site path of a footer page.
func FooterPath(name string) string { return "/footers/" + name + ".html" }

// HomePage lists the most recent posts.
type HomePage struct {
	Site                  Site
	MainImage             string // filename under /images
	MainIntroduction      string
	SecondaryIntroduction string
	Recent                []content.PostRecord
}

// ListingPage lists every post of one post type, in the given order.
type ListingPage struct {
	Site     Site
	PostType config.PostType
	Posts    []content.PostRecord
}

// PostPage renders one post from its markdown body.
type PostPage struct {
	Site     Site
	Post     content.PostRecord
	Category string // structured data type of the post's post type
	Markdown string
}

// FooterPage renders one footer page.
type FooterPage struct {
	Site   Site
	Footer content.Footer
}

// Card is a post preview on home and listing pages.
type Card struct {
	Link        string
	Title       string
	Description string
	Image       string
	TypeLabel   string
}

// view is the data passed to the layout template.
type view struct {
	Title          string
	Description    string
	OGType         string
	Path           string
	Image          string
	Icon           string
	Site           Site
	StructuredData map[string]any
	Page           any
}

// Asset resolves a logical asset path for use in templates.
func (v view) Asset(logicalPath string) string { return v.Site.resolve(logicalPath) }

func (s Site) resolve(logicalPath string) string {
	if s.Resolve == nil {
		return logicalPath
	}
	return s.Resolve(logicalPath)
}

func (s Site) image(name string) string {
	if name == "" {
		return ""
	}
	return s.resolve("/images/" + name)
}

// HTMLRenderer is the html/template Renderer.
type HTMLRenderer struct {
	converter *markdown.Converter
	pages     map[string]*template.Template
}

// Option configures an HTMLRenderer.
type Option func(*HTMLRenderer)

// WithConverter replaces the default markdown converter.
func WithConverter(c *markdown.Converter) Option {
	return func(r *HTMLRenderer) { r.converter = c }
}

var pageTemplates = []string{"home", "listing", "post", "footer_page"}

// New parses the embedded templates.
func New(opts ...Option) (*HTMLRenderer, error) {
	r := &HTMLRenderer{
		converter: markdown.NewConverter(),
		pages:     make(map[string]*template.Template, len(pageTemplates)),
	}
	for _, opt := range opts {
		opt(r)
	}

	base, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, renderError(err, "failed to parse layout template", "layout")
	}
	for _, name := range pageTemplates {
		t, err := base.Clone()
		if err != nil {
			return nil, renderError(err, "failed to clone layout template", name)
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, renderError(err, "failed to parse page template", name)
		}
		r.pages[name] = t
	}
	return r, nil
}

var funcs = template.FuncMap{
	"searchIcon": func() template.HTML { return searchIcon },
	"upArrow":    func() template.HTML { return upArrow },
	"downArrow":  func() template.HTML { return downArrow },
}

type homeData struct {
	MainImage             string
	MainIntroduction      string
	SecondaryIntroduction string
	Cards                 []Card
}

type listingData struct {
	Image    string
	PostType config.PostType
	Cards    []Card
}

type postData struct {
	Post content.PostRecord
	Body template.HTML
}

type footerData struct {
	Body template.HTML
}

// Home renders /index.html.
func (r *HTMLRenderer) Home(p HomePage) (string, error) {
	v := view{
		Title:          p.Site.Name,
		Description:    p.SecondaryIntroduction,
		OGType:         "website",
		Path:           "/",
		Image:          p.Site.image(p.MainImage),
		Site:           p.Site,
		StructuredData: HomeData(p.Site, p.SecondaryIntroduction),
		Page: homeData{
			MainImage:             p.Site.image(p.MainImage),
			MainIntroduction:      p.MainIntroduction,
			SecondaryIntroduction: p.SecondaryIntroduction,
			Cards:                 cards(p.Recent, true),
		},
	}
	return r.execute("home", v)
}

// Listing renders /<postType>/index.html.
func (r *HTMLRenderer) Listing(p ListingPage) (string, error) {
	pt := p.PostType
	v := view{
		Title:          pt.DisplayName + " | " + p.Site.Name,
		Description:    pt.Description,
		OGType:         "website",
		Path:           "/" + pt.Directory + "/",
		Image:          p.Site.image(pt.Image),
		Site:           p.Site,
		StructuredData: ListingData(p.Site, pt),
		Page: listingData{
			Image:    p.Site.image(pt.Image),
			PostType: pt,
			Cards:    cards(p.Posts, false),
		},
	}
	return r.execute("listing", v)
}

// Post renders /<postType>/<postDir>/<postDir>.html.
func (r *HTMLRenderer) Post(p PostPage) (string, error) {
	fragment, err := r.converter.ToHTML(p.Markdown)
	if err != nil {
		return "", renderError(err, "failed to convert markdown", p.Post.Link)
	}
	body, err := FormatPostHTML(fragment, p.Post.PostType, p.Post.PostDir, p.Site.resolve)
	if err != nil {
		return "", renderError(err, "failed to format post", p.Post.Link)
	}

	v := view{
		Title:          p.Post.Title + " | " + p.Site.Name,
		Description:    p.Post.Description,
		OGType:         "article",
		Path:           p.Post.Link,
		Image:          p.Post.ImageHashPath,
		Site:           p.Site,
		StructuredData: PostData(p.Site, p.Post, p.Category),
		Page: postData{
			Post: p.Post,
			Body: template.HTML(body), //nolint:gosec // post markdown is site-owned content
		},
	}
	return r.execute("post", v)
}

// Footer renders /footers/<name>.html.
func (r *HTMLRenderer) Footer(p FooterPage) (string, error) {
	fragment, err := r.converter.ToHTML(p.Footer.Body)
	if err != nil {
		return "", renderError(err, "failed to convert markdown", p.Footer.Name)
	}
	urlPath := FooterPath(p.Footer.Name)
	v := view{
		Title:          p.Footer.DisplayName + " | " + p.Site.Name,
		OGType:         "website",
		Path:           urlPath,
		Site:           p.Site,
		StructuredData: GenericPageData(p.Site, p.Footer.DisplayName, urlPath),
		Page:           footerData{Body: template.HTML(fragment)}, //nolint:gosec // footer markdown is site-owned content
	}
	return r.execute("footer_page", v)
}

func (r *HTMLRenderer) execute(name string, v view) (string, error) {
	v.Icon = v.Site.image(v.Site.Icon)
	var buf bytes.Buffer
	if err := r.pages[name].ExecuteTemplate(&buf, "layout", v); err != nil {
		return "", renderError(err, "failed to execute template", name)
	}
	return buf.String(), nil
}

func cards(posts []content.PostRecord, withType bool) []Card {
	out := make([]Card, 0, len(posts))
	for _, p := range posts {
		c := Card{
			Link:        p.Link,
			Title:       p.Title,
			Description: p.Description,
			Image:       p.ImageHashPath,
		}
		if withType {
			c.TypeLabel = Singular(p.PostTypeDisplayName)
		}
		out = append(out, c)
	}
	return out
}

// Singular drops one trailing "s" from a post type display name.
func Singular(name string) string {
	return strings.TrimSuffix(name, "s")
}

func renderError(err error, msg, page string) error {
	return errors.WrapError(err, errors.CategoryRender, msg).
		WithContext("page", page).
		Fatal().
		Build()
}
