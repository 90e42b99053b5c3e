package config

import "runtime"

const (
	defaultContentDirectory = "content"
	defaultOutputDirectory  = "public"
	defaultAssetsDirectory  = "assets"
	defaultRecentPosts      = 6
	defaultServerPort       = 8080
	defaultCacheMaxAge      = 31536000
	defaultPageMaxAge       = 30
	defaultNotifySubject    = "sitebuilder.build.completed"
	defaultMetricsPath      = "/metrics"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

type pathsDefaultApplier struct{}

func (pathsDefaultApplier) Domain() string { return "paths" }

func (pathsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.ContentDirectory == "" {
		cfg.ContentDirectory = defaultContentDirectory
	}
	if cfg.OutputDirectory == "" {
		cfg.OutputDirectory = defaultOutputDirectory
	}
	if cfg.AssetsDirectory == "" {
		cfg.AssetsDirectory = defaultAssetsDirectory
	}
	return nil
}

type siteDefaultApplier struct{}

func (siteDefaultApplier) Domain() string { return "site" }

func (siteDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Site.RecentPosts <= 0 {
		cfg.Site.RecentPosts = defaultRecentPosts
	}
	if cfg.Site.SearchPlaceholder == "" {
		cfg.Site.SearchPlaceholder = "Search..."
	}
	return nil
}

type buildDefaultApplier struct{}

func (buildDefaultApplier) Domain() string { return "build" }

func (buildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Build.Workers <= 0 {
		cfg.Build.Workers = runtime.NumCPU()
	}
	if cfg.Notify.NATSURL != "" && cfg.Notify.Subject == "" {
		cfg.Notify.Subject = defaultNotifySubject
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}

type serverDefaultApplier struct{}

func (serverDefaultApplier) Domain() string { return "server" }

func (serverDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = defaultServerPort
	}
	if cfg.Server.CacheMaxAge <= 0 {
		cfg.Server.CacheMaxAge = defaultCacheMaxAge
	}
	if cfg.Server.PageMaxAge <= 0 {
		cfg.Server.PageMaxAge = defaultPageMaxAge
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = defaultMetricsPath
	}
	return nil
}

var defaultAppliers = []DefaultApplier{
	pathsDefaultApplier{},
	siteDefaultApplier{},
	buildDefaultApplier{},
	serverDefaultApplier{},
}

func applyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
