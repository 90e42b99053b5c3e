// Package markdown converts post bodies to HTML and extracts link-like
// constructs for analysis.
package markdown

import (
	"bytes"
	"sort"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Converter renders markdown bodies with GitHub Flavored Markdown (tables,
// task lists, strikethrough, autolinks). Raw HTML in posts is passed through.
type Converter struct {
	md goldmark.Markdown
}

// NewConverter returns a Converter. It is safe for concurrent use.
func NewConverter() *Converter {
	return &Converter{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)}
}

// ToHTML converts a markdown body (front matter already removed) to an HTML fragment.
func (c *Converter) ToHTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExtractLinks parses body and returns its links, images, autolinks and
// reference definitions. Code spans and code blocks are not inspected.
func ExtractLinks(body []byte) []Link {
	md := goldmark.New()
	ctx := parser.NewContext()
	root := md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))

	links := make([]Link, 0)
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *gmast.AutoLink:
			links = append(links, Link{Kind: LinkKindAuto, Destination: string(node.URL(body))})
		case *gmast.Image:
			links = append(links, Link{Kind: LinkKindImage, Destination: string(node.Destination)})
		case *gmast.Link:
			links = append(links, Link{Kind: LinkKindInline, Destination: string(node.Destination)})
		}
		return gmast.WalkContinue, nil
	})

	// Definitions live in the parser context, not the tree.
	refs := ctx.References()
	sort.Slice(refs, func(i, j int) bool {
		return string(refs[i].Label()) < string(refs[j].Label())
	})
	for _, ref := range refs {
		links = append(links, Link{Kind: LinkKindReference, Destination: string(ref.Destination())})
	}

	return links
}

// LocalImages returns the destinations of image links relative to the post
// directory (`./name.jpg` or `name.jpg`), in document order.
func LocalImages(body []byte) []string {
	var out []string
	for _, l := range ExtractLinks(body) {
		if l.Kind != LinkKindImage || l.Destination == "" {
			continue
		}
		if isExternal(l.Destination) {
			continue
		}
		out = append(out, l.Destination)
	}
	return out
}

func isExternal(dest string) bool {
	if dest[0] == '/' || dest[0] == '#' {
		return true
	}
	for _, p := range []string{"http://", "https://", "data:", "mailto:"} {
		if len(dest) >= len(p) && dest[:len(p)] == p {
			return true
		}
	}
	return false
}
