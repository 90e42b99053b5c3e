package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

const minimalConfig = `
content_directory: content
output_directory: public
post_types:
  - directory: recipes
    display_name: Recipes
    category: Recipe
  - directory: blogs
    display_name: Blogs
site:
  name: ${SITEBUILDER_TEST_SITE_NAME}
  theme:
    primary-color: "#123456"
features:
  search: true
`

func TestParse_DefaultsAndExpansion(t *testing.T) {
	t.Setenv("SITEBUILDER_TEST_SITE_NAME", "Kitchen")

	cfg, err := Parse([]byte(minimalConfig))
	require.NoError(t, err)
	require.Equal(t, "Kitchen", cfg.Site.Name)
	require.Equal(t, defaultRecentPosts, cfg.Site.RecentPosts)
	require.Equal(t, runtime.NumCPU(), cfg.Build.Workers)
	require.Equal(t, defaultServerPort, cfg.Server.Port)
	require.Equal(t, defaultCacheMaxAge, cfg.Server.CacheMaxAge)
	require.Equal(t, defaultPageMaxAge, cfg.Server.PageMaxAge)
	require.Equal(t, defaultAssetsDirectory, cfg.AssetsDirectory)
	require.Equal(t, LogLevelInfo, cfg.Logging.Level)
	require.Equal(t, LogFormatText, cfg.Logging.Format)
	require.Equal(t, "#123456", cfg.Site.Theme["primary-color"])

	pt, ok := cfg.PostType("recipes")
	require.True(t, ok)
	require.Equal(t, CategoryRecipe, pt.Category)
	require.Equal(t, "blogs", cfg.PostTypes[1].Directory)
}

func TestParse_Validation(t *testing.T) {
	cases := map[string]string{
		"no post types":     "output_directory: public\n",
		"missing display":   "post_types:\n  - directory: recipes\n",
		"missing directory": "post_types:\n  - display_name: Recipes\n",
		"nested directory":  "post_types:\n  - directory: a/b\n    display_name: AB\n",
		"duplicate":         "post_types:\n  - {directory: a, display_name: A}\n  - {directory: a, display_name: B}\n",
		"bad category":      "post_types:\n  - {directory: a, display_name: A, category: Poem}\n",
		"output is content": "content_directory: site\noutput_directory: site\npost_types:\n  - {directory: a, display_name: A}\n",
		"bad interval":      "post_types:\n  - {directory: a, display_name: A}\nserver:\n  rebuild_interval: soon\n",
		"reserved css":      "post_types:\n  - {directory: css, display_name: Styles}\n",
		"reserved js":       "post_types:\n  - {directory: js, display_name: Scripts}\n",
		"reserved images":   "post_types:\n  - {directory: Images, display_name: Photos}\n",
		"reserved footers":  "post_types:\n  - {directory: footers, display_name: Footers}\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			require.Error(t, err)
			require.True(t, errors.HasCategory(err, errors.CategoryValidation), "got %v", err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestInit_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Init(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	cfg, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, cfg.PostTypes, 2)

	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))
}

func TestResolveLogLevel(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	require.Equal(t, "DEBUG", ResolveLogLevel(LogLevelInfo, true).String())
	require.Equal(t, "WARN", ResolveLogLevel(LogLevelWarn, false).String())

	t.Setenv(LogLevelEnv, "error")
	require.Equal(t, "ERROR", ResolveLogLevel(LogLevelInfo, false).String())
}

func TestServerRebuildEvery(t *testing.T) {
	require.Zero(t, ServerConfig{}.RebuildEvery())
	require.Equal(t, "5m0s", ServerConfig{RebuildInterval: "5m"}.RebuildEvery().String())
}

func TestParse_NormalizesCategoryAndLogging(t *testing.T) {
	raw := "post_types:\n  - {directory: recipes, display_name: Recipes, category: recipe}\n  - {directory: blog, display_name: Blog, category: ' blogposting '}\nlogging:\n  level: WARNING\n  format: JSON\n"
	cfg, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, CategoryRecipe, cfg.PostTypes[0].Category)
	require.Equal(t, CategoryBlogPosting, cfg.PostTypes[1].Category)
	require.Equal(t, LogLevelWarn, cfg.Logging.Level)
	require.Equal(t, LogFormatJSON, cfg.Logging.Format)
}
