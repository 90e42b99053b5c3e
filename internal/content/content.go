// Package content discovers posts laid out as
// content/<postType>/<postDir>/<name>.md plus images, and turns each post
// directory into an immutable PostRecord.
package content

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
)

// PostRecord is one post's metadata. Created by discovery and not modified afterwards.
type PostRecord struct {
	Title       string
	Description string
	Keywords    string
	Category    string
	Date        time.Time
	Image       string
	Extra       map[string]any // front matter fields not listed above

	Link                string // /<postType>/<postDir>
	ImageHashPath       string // manifest-resolved path of Image
	PostType            string // post type directory name
	PostTypeDisplayName string
	PostDir             string
	MarkdownFile        string // filename within the post directory
	SourceDir           string
	Fingerprint         string
}

// ImageScrubber writes a metadata-free hashed copy of an image and registers it.
type ImageScrubber interface {
	Scrub(ctx context.Context, srcPath, destDir, originalFilename string) (string, error)
}

// FrontMatterParser splits a markdown file into attributes and body.
type FrontMatterParser interface {
	Parse(raw []byte) (frontmatter.Document, error)
}

// BodyLookup returns a post's raw markdown body by link.
type BodyLookup interface {
	Body(link string) (string, bool)
}

// Resolver resolves a logical asset path to its hashed path.
type Resolver interface {
	Get(logicalPath string) string
}

// ErrMissingMarkdownFile is matched by every MissingMarkdownError.
var ErrMissingMarkdownFile = stderrors.New("missing markdown file")

// MissingMarkdownError reports a post directory without a markdown file.
type MissingMarkdownError struct {
	Dir string
}

func (e *MissingMarkdownError) Error() string {
	return fmt.Sprintf("missing markdown file in %s", e.Dir)
}

func (e *MissingMarkdownError) Unwrap() error { return ErrMissingMarkdownFile }

// ErrInvalidFrontMatter is matched by every InvalidFrontMatterError.
var ErrInvalidFrontMatter = stderrors.New("invalid front matter")

// InvalidFrontMatterError reports missing or malformed required attributes.
type InvalidFrontMatterError struct {
	File   string
	Fields []string
}

func (e *InvalidFrontMatterError) Error() string {
	return fmt.Sprintf("invalid front matter in %s: %s", e.File, strings.Join(e.Fields, ", "))
}

func (e *InvalidFrontMatterError) Unwrap() error { return ErrInvalidFrontMatter }

// SortByDateDesc orders posts newest first; equal dates fall back to link order.
func SortByDateDesc(posts []PostRecord) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Date.After(posts[j].Date)
		}
		return posts[i].Link < posts[j].Link
	})
}

// SelectRecent returns the n newest posts without modifying posts.
func SelectRecent(posts []PostRecord, n int) []PostRecord {
	if n <= 0 {
		return nil
	}
	sorted := make([]PostRecord, len(posts))
	copy(sorted, posts)
	SortByDateDesc(sorted)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// GroupByType buckets posts by post type directory, preserving input order.
func GroupByType(posts []PostRecord) map[string][]PostRecord {
	out := make(map[string][]PostRecord)
	for _, p := range posts {
		out[p.PostType] = append(out[p.PostType], p)
	}
	return out
}
