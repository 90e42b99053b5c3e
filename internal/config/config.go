package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Config is the sitebuilder configuration file.
type Config struct {
	ContentDirectory string         `yaml:"content_directory"`
	OutputDirectory  string         `yaml:"output_directory"`
	FooterDirectory  string         `yaml:"footer_directory,omitempty"`
	AssetsDirectory  string         `yaml:"assets_directory,omitempty"`
	PostTypes        []PostType     `yaml:"post_types"`
	Site             SiteConfig     `yaml:"site"`
	Features         FeaturesConfig `yaml:"features"`
	Build            BuildConfig    `yaml:"build"`
	Notify           NotifyConfig   `yaml:"notify,omitempty"`
	Logging          LoggingConfig  `yaml:"logging"`
	Server           ServerConfig   `yaml:"server"`
}

// PostType describes one content subdirectory. Order in the file is the
// order used for discovery, navigation and listing pages.
type PostType struct {
	Directory   string `yaml:"directory"`    // Directory name under content_directory and in the site URL
	DisplayName string `yaml:"display_name"` // Navigation and heading label
	Category    string `yaml:"category,omitempty"`
	Description string `yaml:"description,omitempty"` // Listing page meta description
	Image       string `yaml:"image,omitempty"`       // Listing page hero image under assets/images
}

// Structured data categories understood by the renderer.
const (
	CategoryRecipe      = "Recipe"
	CategoryBlogPosting = "BlogPosting"
)

// SiteConfig holds site-wide display content.
type SiteConfig struct {
	Name                  string            `yaml:"name"`
	URL                   string            `yaml:"url"`
	Icon                  string            `yaml:"icon,omitempty"`
	MainImage             string            `yaml:"main_image,omitempty"`
	MainIntroduction      string            `yaml:"main_introduction,omitempty"`
	SecondaryIntroduction string            `yaml:"secondary_introduction,omitempty"`
	RecentPosts           int               `yaml:"recent_posts"`
	SearchPlaceholder     string            `yaml:"search_placeholder,omitempty"`
	Theme                 map[string]string `yaml:"theme,omitempty"` // CSS custom property overrides for main.css
}

// FeaturesConfig toggles optional site features.
type FeaturesConfig struct {
	Search         bool `yaml:"search"`
	VisitCounter   bool `yaml:"visit_counter"`
	SearchTracking bool `yaml:"search_tracking"`
}

// BuildConfig tunes the build pipeline.
type BuildConfig struct {
	Workers        int    `yaml:"workers"`
	Minify         bool   `yaml:"minify"`
	StrictManifest bool   `yaml:"strict_manifest"` // Unresolved asset references fail the build
	MetricsFile    string `yaml:"metrics_file,omitempty"`
	HistoryDB      string `yaml:"history_db,omitempty"`
}

// NotifyConfig configures build-completed notifications.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// ServerConfig configures the `serve` command.
type ServerConfig struct {
	Port            int    `yaml:"port"`
	RebuildInterval string `yaml:"rebuild_interval,omitempty"` // Go duration; empty disables scheduled rebuilds
	CacheMaxAge     int    `yaml:"cache_max_age"`              // Seconds, for content-hashed assets and post images
	PageMaxAge      int    `yaml:"page_max_age"`               // Seconds, for post pages
	MetricsPath     string `yaml:"metrics_path"`
}

// PostType returns the post type configured for dir.
func (c *Config) PostType(dir string) (PostType, bool) {
	for _, pt := range c.PostTypes {
		if pt.Directory == dir {
			return pt, true
		}
	}
	return PostType{}, false
}

// Load reads, expands, defaults and validates a configuration file.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewError(errors.CategoryConfig, "configuration file not found").
				WithContext("path", configPath).
				UserAction().
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration YAML after environment variable expansion.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Build()
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to apply defaults").Build()
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.NewError(errors.CategoryConfig, "configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			UserAction().
			Build()
	}

	example := Config{
		ContentDirectory: "content",
		OutputDirectory:  "public",
		FooterDirectory:  "footers",
		AssetsDirectory:  "assets",
		PostTypes: []PostType{
			{Directory: "recipes", DisplayName: "Recipes", Category: CategoryRecipe, Description: "All recipes"},
			{Directory: "blogs", DisplayName: "Blogs", Category: CategoryBlogPosting, Description: "All blog posts"},
		},
		Site: SiteConfig{
			Name:             "My Site",
			URL:              "https://example.com",
			MainIntroduction: "Welcome",
			RecentPosts:      6,
			Theme:            map[string]string{"primary-color": "#2f6f4f"},
		},
		Features: FeaturesConfig{Search: true},
		Build:    BuildConfig{Workers: 4},
		Logging:  LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Server:   ServerConfig{Port: 8080, CacheMaxAge: defaultCacheMaxAge, PageMaxAge: defaultPageMaxAge, MetricsPath: "/metrics"},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
