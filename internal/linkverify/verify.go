package linkverify

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Finding reasons.
const (
	ReasonMissing  = "missing"  // target does not exist in the output
	ReasonUnhashed = "unhashed" // logical asset path served instead of its hashed file
)

// Finding is one unresolved reference on a page.
type Finding struct {
	Page   string `json:"page"` // site path of the HTML file
	URL    string `json:"url"`
	Tag    string `json:"tag"`
	Reason string `json:"reason"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: <%s> %s (%s)", f.Page, f.Tag, f.URL, f.Reason)
}

// Verifier scans an output directory.
type Verifier struct {
	siteURL  string
	manifest map[string]string
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithManifest flags asset references that use a logical path the
// manifest maps to a different hashed path.
func WithManifest(entries map[string]string) Option {
	return func(v *Verifier) { v.manifest = entries }
}

// New creates a Verifier for a site published at siteURL.
func New(siteURL string, opts ...Option) *Verifier {
	v := &Verifier{siteURL: siteURL}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks every HTML file under root. Findings are sorted by page then URL.
func (v *Verifier) Verify(ctx context.Context, root string) ([]Finding, error) {
	var findings []Finding
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".html") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		page := sitePath(root, p)
		pf, err := v.verifyPage(root, p, page)
		if err != nil {
			return fmt.Errorf("verify %s: %w", page, err)
		}
		findings = append(findings, pf...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Page != findings[j].Page {
			return findings[i].Page < findings[j].Page
		}
		return findings[i].URL < findings[j].URL
	})
	return findings, nil
}

func (v *Verifier) verifyPage(root, file, page string) ([]Finding, error) {
	f, err := os.Open(filepath.Clean(file))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	links, err := ExtractLinks(f, v.siteURL)
	if err != nil {
		return nil, err
	}

	var out []Finding
	seen := make(map[string]struct{})
	for _, l := range links {
		if !ShouldVerifyLink(l) {
			continue
		}
		target, ok := resolveTarget(page, l.URL)
		if !ok {
			continue
		}
		key := l.Tag + " " + target
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if l.IsAsset() {
			if hashed, ok := v.manifest[target]; ok && hashed != target {
				out = append(out, Finding{Page: page, URL: l.URL, Tag: l.Tag, Reason: ReasonUnhashed})
				continue
			}
		}
		if !exists(root, target, l.IsAsset()) {
			out = append(out, Finding{Page: page, URL: l.URL, Tag: l.Tag, Reason: ReasonMissing})
		}
	}
	return out, nil
}

// resolveTarget turns a link into a site path; query and fragment are dropped.
func resolveTarget(page, link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil || u.Path == "" {
		return "", false
	}
	p := u.Path
	if !strings.HasPrefix(p, "/") {
		p = path.Join(path.Dir(page), p)
	}
	return path.Clean("/" + p), true
}

// exists applies the server's lookup rules for page links: a directory
// serves index.html and /<type>/<post> serves /<type>/<post>/<post>.html.
func exists(root, target string, asset bool) bool {
	file := filepath.Join(root, filepath.FromSlash(target))
	info, err := os.Stat(file)
	if err == nil && !info.IsDir() {
		return true
	}
	if asset {
		return false
	}
	if err == nil && info.IsDir() {
		if _, err := os.Stat(filepath.Join(file, "index.html")); err == nil {
			return true
		}
		if _, err := os.Stat(filepath.Join(file, path.Base(target)+".html")); err == nil {
			return true
		}
	}
	return false
}

func sitePath(root, file string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return file
	}
	return "/" + filepath.ToSlash(rel)
}
