// Package linkverify checks rendered HTML for internal references that do
// not exist in the output directory.
package linkverify

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Link represents an extracted link from HTML content.
type Link struct {
	URL        string // The URL or path
	Tag        string // HTML tag (a, img, script, link, etc.)
	Attribute  string // Attribute containing the link (href, src)
	Rel        string // rel of <link> elements
	IsInternal bool   // True if link is internal to the site
}

// IsAsset reports whether the link loads a resource rather than navigating.
func (l *Link) IsAsset() bool {
	switch l.Tag {
	case "a":
		return false
	case "link":
		for _, rel := range strings.Fields(strings.ToLower(l.Rel)) {
			switch rel {
			case "stylesheet", "icon", "preload", "modulepreload", "manifest":
				return true
			}
		}
		return false
	default:
		return true
	}
}

// ExtractLinks extracts all links from an HTML document. siteURL marks
// absolute links to the site itself as internal.
func ExtractLinks(r io.Reader, siteURL string) ([]*Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").Build()
	}

	base, err := url.Parse(siteURL)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid site URL").
			WithContext("site_url", siteURL).
			Build()
	}

	var links []*Link
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if l := elementLink(n, base); l != nil {
				links = append(links, l)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(doc)
	return links, nil
}

func elementLink(n *html.Node, base *url.URL) *Link {
	var attr string
	switch n.Data {
	case "a", "link":
		attr = "href"
	case "img", "script", "video", "audio", "source":
		attr = "src"
	default:
		return nil
	}
	v := getAttr(n, attr)
	if v == "" {
		return nil
	}
	return &Link{URL: v, Tag: n.Data, Attribute: attr, Rel: getAttr(n, "rel"), IsInternal: isInternalLink(v, base)}
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// isInternalLink determines if a URL points into the site.
func isInternalLink(linkURL string, base *url.URL) bool {
	u, err := url.Parse(linkURL)
	if err != nil {
		return false
	}
	if u.Scheme == "" && u.Host == "" {
		return true
	}
	return base != nil && base.Host != "" && u.Host == base.Host
}

// ShouldVerifyLink skips anchors, special protocols and empty links.
func ShouldVerifyLink(link *Link) bool {
	if link.URL == "" || !link.IsInternal || strings.HasPrefix(link.URL, "#") {
		return false
	}
	for _, p := range []string{"mailto:", "tel:", "javascript:", "data:"} {
		if strings.HasPrefix(link.URL, p) {
			return false
		}
	}
	return true
}
