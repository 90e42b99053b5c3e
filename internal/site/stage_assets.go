package site

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/assets"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
	"git.home.luguber.info/inful/sitebuilder/internal/search"
)

// Asset kinds, each written to /<kind>/ in the output.
const (
	AssetCSS    = "css"
	AssetJS     = "js"
	AssetImages = "images"
)

const (
	themeMarker          = "#theme"
	searchTrackMarker    = "#SEARCH_TRACK_PLACEHOLDER"
	visitCounterScript   = "pageTrack.js"
	searchScript         = "search.js"
	themedStylesheetName = "main.css"
)

// defaultTheme fills the main.css custom properties not set in site.theme.
var defaultTheme = map[string]string{
	"primary-color":    "#2f6f4f",
	"secondary-color":  "#e9c46a",
	"background-color": "#fdfaf4",
	"text-color":       "#222222",
	"card-color":       "#ffffff",
}

// stageAssets hashes stylesheets, scripts and site images into the build
// root. Each kind is read from <assets_directory>/<kind> when that directory
// exists and from the embedded defaults otherwise.
func (b *Builder) stageAssets(ctx context.Context, bs *BuildState) error {
	kinds := []struct {
		name string
		fn   assets.ProcessFunc
	}{
		{AssetCSS, b.processCSS},
		{AssetJS, b.jsProcessor(bs)},
		{AssetImages, nil},
	}
	for _, k := range kinds {
		n, err := b.writeAssets(ctx, bs, k.name, k.fn)
		if err != nil {
			return stageFatal(StageAssets, err)
		}
		bs.Report.Assets[k.name] = n
		b.recorder.AddAssetsWritten(k.name, n)
		bs.log.Debug("Assets written", "kind", k.name, logfields.Count(n))
	}
	return nil
}

func (b *Builder) writeAssets(ctx context.Context, bs *BuildState, kind string, fn assets.ProcessFunc) (int, error) {
	dest := filepath.Join(bs.Root, kind)
	if b.cfg.AssetsDirectory != "" {
		src := filepath.Join(b.cfg.AssetsDirectory, kind)
		if fi, err := os.Stat(src); err == nil && fi.IsDir() {
			return bs.Writer.ProcessDir(ctx, src, dest, fn)
		}
	}
	embedded, err := render.DefaultAssets(kind)
	if err != nil {
		return 0, err
	}
	if _, err := fs.Stat(embedded, "."); err != nil {
		return 0, nil
	}
	return bs.Writer.ProcessFS(ctx, embedded, dest, fn)
}

// processCSS substitutes theme values into main.css.
func (b *Builder) processCSS(name string, read assets.ReadFunc) (assets.Decision, error) {
	if name != themedStylesheetName {
		return assets.Copy(), nil
	}
	src, err := read()
	if err != nil {
		return assets.Decision{}, err
	}
	return assets.Replace(ApplyTheme(string(src), b.cfg.Site.Theme)), nil
}

// ApplyTheme replaces "--<key>: #theme" declarations with configured values,
// falling back to the built-in palette.
func ApplyTheme(css string, theme map[string]string) string {
	merged := make(map[string]string, len(defaultTheme)+len(theme))
	for k, v := range defaultTheme {
		merged[k] = v
	}
	for k, v := range theme {
		merged[strings.TrimPrefix(k, "--")] = v
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "--"+k+": "+themeMarker, "--"+k+": "+merged[k])
	}
	return strings.NewReplacer(pairs...).Replace(css)
}

// jsProcessor gates the feature scripts and injects the search asset path.
func (b *Builder) jsProcessor(bs *BuildState) assets.ProcessFunc {
	features := b.cfg.Features
	return func(name string, read assets.ReadFunc) (assets.Decision, error) {
		switch name {
		case visitCounterScript:
			if !features.VisitCounter {
				return assets.Skip(), nil
			}
		case searchScript:
			if !features.Search {
				return assets.Skip(), nil
			}
			src, err := read()
			if err != nil {
				return assets.Decision{}, err
			}
			script := search.InjectPath(string(src), bs.SearchPath)
			script = strings.ReplaceAll(script, searchTrackMarker, strconv.FormatBool(features.SearchTracking))
			return assets.Replace(script), nil
		}
		return assets.Copy(), nil
	}
}
