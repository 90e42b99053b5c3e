package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPostType   = "post_type"
	KeyPost       = "post"
	KeyPath       = "path"
	KeyAsset      = "asset"
	KeyHashPath   = "hash_path"
	KeyCount      = "count"
	KeyOutput     = "output"
	KeyError      = "error"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr        { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr        { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func PostType(t string) slog.Attr        { return slog.String(KeyPostType, t) }
func Post(link string) slog.Attr         { return slog.String(KeyPost, link) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Asset(logical string) slog.Attr     { return slog.String(KeyAsset, logical) }
func HashPath(physical string) slog.Attr { return slog.String(KeyHashPath, physical) }
func Count(n int) slog.Attr              { return slog.Int(KeyCount, n) }
func Output(dir string) slog.Attr        { return slog.String(KeyOutput, dir) }
func Method(m string) slog.Attr          { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr          { return slog.Int(KeyStatus, code) }
func RemoteAddr(addr string) slog.Attr   { return slog.String(KeyRemoteAddr, addr) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
