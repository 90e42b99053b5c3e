package httpserver

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

const noCacheControl = "no-cache"

// assetPrefixes hold content-hashed files.
var assetPrefixes = []string{"/css/", "/js/", "/images/", "/search-data."}

// siteHandler serves the output directory with post path rewriting and
// cache headers.
type siteHandler struct {
	root       string
	postTypes  map[string]bool
	assetCache string
	pageCache  string
	files      http.Handler
}

func newSiteHandler(cfg *config.Config) *siteHandler {
	types := make(map[string]bool, len(cfg.PostTypes))
	for _, pt := range cfg.PostTypes {
		types[pt.Directory] = true
	}
	return &siteHandler{
		root:       cfg.OutputDirectory,
		postTypes:  types,
		assetCache: fmt.Sprintf("public, max-age=%d, immutable", cfg.Server.CacheMaxAge),
		pageCache:  fmt.Sprintf("public, max-age=%d, must-revalidate", cfg.Server.PageMaxAge),
		files:      http.FileServer(http.Dir(cfg.OutputDirectory)),
	}
}

func (h *siteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := h.rewrite(r.URL.Path)
	if p != r.URL.Path {
		r2 := new(http.Request)
		*r2 = *r
		u := *r.URL
		u.Path = p
		u.RawPath = ""
		r2.URL = &u
		r = r2
	}
	w.Header().Set("Cache-Control", h.cacheControlFor(r.URL.Path))
	h.files.ServeHTTP(w, r)
}

// rewrite maps "/<type>/<post>" to "/<type>/<post>/<post>.html" and other
// extensionless paths to an existing ".html" file.
func (h *siteHandler) rewrite(urlPath string) string {
	if PostPath(urlPath, h.postTypes) {
		clean := strings.TrimSuffix(urlPath, "/")
		return clean + "/" + path.Base(clean) + ".html"
	}
	if path.Ext(urlPath) != "" || strings.HasSuffix(urlPath, "/") {
		return urlPath
	}
	candidate := urlPath + ".html"
	if fi, err := os.Stat(filepath.Join(h.root, filepath.FromSlash(path.Clean(candidate)))); err == nil && !fi.IsDir() {
		return candidate
	}
	return urlPath
}

// PostPath reports whether urlPath names a post: exactly two segments, the
// first a configured post type, the second without a file extension.
func PostPath(urlPath string, postTypes map[string]bool) bool {
	segs := strings.Split(strings.Trim(urlPath, "/"), "/")
	if len(segs) != 2 || segs[1] == "" || strings.HasSuffix(urlPath, "/") {
		return false
	}
	return postTypes[segs[0]] && path.Ext(segs[1]) == ""
}

// cacheControlFor gives content-hashed files (site assets and post images)
// the long max-age and post pages the short one. Listing pages, the homepage
// and footers change with every new post and are revalidated.
func (h *siteHandler) cacheControlFor(urlPath string) string {
	for _, prefix := range assetPrefixes {
		if strings.HasPrefix(urlPath, prefix) {
			return h.assetCache
		}
	}
	segs := strings.Split(strings.TrimPrefix(urlPath, "/"), "/")
	if len(segs) != 3 || !h.postTypes[segs[0]] || segs[1] == "" {
		return noCacheControl
	}
	if segs[2] == segs[1]+".html" {
		return h.pageCache
	}
	if segs[2] != "" {
		return h.assetCache
	}
	return noCacheControl
}
