package config

import (
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/normalization"
)

// ValidateConfig checks the configuration after defaults are applied.
func ValidateConfig(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	for _, check := range []func() error{v.validatePostTypes, v.validatePaths, v.validateServer} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// reservedDirectories are written by the build at the output root.
var reservedDirectories = map[string]bool{
	"css":     true,
	"js":      true,
	"images":  true,
	"footers": true,
}

type configurationValidator struct {
	config *Config
}

func (cv *configurationValidator) validatePostTypes() error {
	if len(cv.config.PostTypes) == 0 {
		return errors.ValidationError("post_types must list at least one post type").Build()
	}
	seen := make(map[string]bool, len(cv.config.PostTypes))
	for i, pt := range cv.config.PostTypes {
		if pt.Directory == "" || pt.DisplayName == "" {
			return errors.ValidationError("post type requires directory and display_name").
				WithContext("index", i).
				WithContext("directory", pt.Directory).
				Build()
		}
		if strings.ContainsAny(pt.Directory, `/\`) || strings.HasPrefix(pt.Directory, ".") {
			return errors.ValidationError("post type directory must be a plain directory name").
				WithContext("directory", pt.Directory).
				Build()
		}
		if reservedDirectories[strings.ToLower(pt.Directory)] {
			return errors.ValidationError("post type directory collides with generated site output").
				WithContext("directory", pt.Directory).
				Build()
		}
		if seen[pt.Directory] {
			return errors.ValidationError("duplicate post type directory").
				WithContext("directory", pt.Directory).
				Build()
		}
		seen[pt.Directory] = true
		category, err := categories.NormalizeWithError(pt.Category)
		if err != nil {
			return errors.WrapError(err, errors.CategoryValidation, "unsupported post type category").
				WithContext("directory", pt.Directory).
				WithContext("category", pt.Category).
				Build()
		}
		cv.config.PostTypes[i].Category = category
	}
	return nil
}

// categories accepts the structured data categories in any letter case.
var categories = normalization.NewNormalizer("category", map[string]string{
	"":                  "",
	CategoryRecipe:      CategoryRecipe,
	CategoryBlogPosting: CategoryBlogPosting,
}, "")

func (cv *configurationValidator) validatePaths() error {
	out := filepath.Clean(cv.config.OutputDirectory)
	content := filepath.Clean(cv.config.ContentDirectory)
	if out == "." || out == string(filepath.Separator) {
		return errors.ValidationError("output_directory must not be the working directory or filesystem root").
			WithContext("output_directory", cv.config.OutputDirectory).
			Build()
	}
	if out == content {
		return errors.ValidationError("output_directory must differ from content_directory").
			WithContext("output_directory", cv.config.OutputDirectory).
			Build()
	}
	return nil
}

func (cv *configurationValidator) validateServer() error {
	if cv.config.Server.RebuildInterval == "" {
		return nil
	}
	d, err := time.ParseDuration(cv.config.Server.RebuildInterval)
	if err != nil || d <= 0 {
		return errors.ValidationError("server.rebuild_interval must be a positive duration").
			WithContext("rebuild_interval", cv.config.Server.RebuildInterval).
			Build()
	}
	return nil
}

// RebuildEvery returns the parsed scheduled rebuild interval, zero when disabled.
func (s ServerConfig) RebuildEvery() time.Duration {
	d, err := time.ParseDuration(s.RebuildInterval)
	if err != nil {
		return 0
	}
	return d
}
