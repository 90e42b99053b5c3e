package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifiedError_BuilderAndAccessors(t *testing.T) {
	cause := stderrors.New("disk full")
	err := AssetError("write hashed asset").
		WithCause(cause).
		WithContext("path", "/css/main.css").
		Build()

	require.Equal(t, CategoryAsset, err.Category())
	require.True(t, err.IsFatal())
	require.ErrorIs(t, err, cause)
	path, ok := err.Context().GetString("path")
	require.True(t, ok)
	require.Equal(t, "/css/main.css", path)
	require.Contains(t, err.Error(), "[asset:fatal] write hashed asset: disk full")
}

func TestClassifiedError_SentinelMatchThroughWrapping(t *testing.T) {
	sentinel := DiscoveryError("missing markdown file").Build()
	wrapped := fmt.Errorf("stage discover: %w", DiscoveryError("missing markdown file").WithContext("dir", "x").Build())

	require.ErrorIs(t, wrapped, sentinel)
	require.True(t, IsClassified(wrapped))
	require.True(t, HasCategory(wrapped, CategoryDiscovery))
	require.Equal(t, SeverityFatal, GetSeverity(wrapped))
}

func TestClassifiedError_WithContextCopies(t *testing.T) {
	base := ConfigError("bad config").Build()
	derived := base.WithContext("file", "config.yaml")

	_, ok := base.Context().Get("file")
	require.False(t, ok)
	v, ok := derived.Context().GetString("file")
	require.True(t, ok)
	require.Equal(t, "config.yaml", v)
}

func TestCLIErrorAdapter_ExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.Equal(t, 0, a.ExitCodeFor(nil))
	require.Equal(t, 1, a.ExitCodeFor(stderrors.New("plain")))
	require.Equal(t, 7, a.ExitCodeFor(ConfigError("x").Build()))
	require.Equal(t, 11, a.ExitCodeFor(DiscoveryError("x").Build()))
	require.Equal(t, 13, a.ExitCodeFor(PublishError("x").Build()))
	require.Equal(t, 11, a.ExitCodeFor(fmt.Errorf("wrapped: %w", RenderError("x").Build())))
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var out bytes.Buffer
	code := -1
	a := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.out = &out
	a.exit = func(c int) { code = c }

	a.HandleError(PublishError("restore failed").Build())

	require.Equal(t, 13, code)
	require.Contains(t, out.String(), "Error (publish): restore failed")
	require.Contains(t, out.String(), "operator action required")
}
