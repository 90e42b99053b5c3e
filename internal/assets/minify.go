package assets

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Minifier transforms asset bytes before they are hashed.
type Minifier interface {
	Handles(ext string) bool
	Minify(ext string, content []byte) ([]byte, error)
}

// ESBuildMinifier minifies CSS and JavaScript with esbuild's transform API.
type ESBuildMinifier struct{}

func (ESBuildMinifier) Handles(ext string) bool {
	_, ok := loaderFor(ext)
	return ok
}

func (ESBuildMinifier) Minify(ext string, content []byte) ([]byte, error) {
	loader, ok := loaderFor(ext)
	if !ok {
		return content, nil
	}
	result := api.Transform(string(content), api.TransformOptions{
		Loader:            loader,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		Engines: []api.Engine{
			{Name: api.EngineChrome, Version: "100"},
			{Name: api.EngineFirefox, Version: "100"},
			{Name: api.EngineSafari, Version: "15"},
			{Name: api.EngineEdge, Version: "100"},
		},
	})
	if len(result.Errors) > 0 {
		msg := result.Errors[0]
		if msg.Location != nil {
			return nil, fmt.Errorf("esbuild: %s (line %d)", msg.Text, msg.Location.Line)
		}
		return nil, fmt.Errorf("esbuild: %s", msg.Text)
	}
	return result.Code, nil
}

func loaderFor(ext string) (api.Loader, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "css":
		return api.LoaderCSS, true
	case "js":
		return api.LoaderJS, true
	default:
		return api.LoaderNone, false
	}
}
