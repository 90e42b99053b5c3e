// Package manifest records which content-hashed file was written for each
// logical asset path during one build.
//
// Paths are stored site-root-relative ("/js/posts.js" → "/js/posts.1a2b….js")
// regardless of which physical directory the build writes into.
package manifest

import (
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// BuildContext holds the active output root for one build.
type BuildContext struct {
	Root string
}

// Rel converts a physical path under Root into a site-root-relative URL path.
// Paths outside Root are returned slash-normalized with a leading "/".
func (c BuildContext) Rel(p string) string {
	if c.Root != "" && filepath.IsAbs(p) == filepath.IsAbs(c.Root) {
		if rel, err := filepath.Rel(filepath.Clean(c.Root), filepath.Clean(p)); err == nil && !strings.HasPrefix(rel, "..") {
			p = rel
		}
	}
	p = filepath.ToSlash(p)
	p = path.Clean("/" + p)
	return p
}

// Manifest maps logical asset paths to their hashed physical paths.
// It is safe for concurrent use.
type Manifest struct {
	ctx     BuildContext
	mu      sync.RWMutex
	entries map[string]string
	misses  atomic.Int64
	logger  *slog.Logger
}

// New returns an empty manifest bound to ctx.
func New(ctx BuildContext) *Manifest {
	return &Manifest{ctx: ctx, entries: make(map[string]string), logger: slog.Default()}
}

// Context returns the build context the manifest normalizes against.
func (m *Manifest) Context() BuildContext { return m.ctx }

// Set records logical → physical. Both paths may be physical paths under the
// build root or already site-relative. The last write for a logical path wins.
func (m *Manifest) Set(logicalPath, physicalPath string) {
	logical := m.ctx.Rel(logicalPath)
	physical := m.ctx.Rel(physicalPath)
	m.mu.Lock()
	m.entries[logical] = physical
	m.mu.Unlock()
}

// Get returns the hashed path for logicalPath, or logicalPath unchanged when
// nothing was recorded. A fallback is counted as a miss: it means a consumer
// asked before the asset was written.
func (m *Manifest) Get(logicalPath string) string {
	if p, ok := m.Lookup(logicalPath); ok {
		return p
	}
	m.misses.Add(1)
	m.logger.Debug("Hash manifest miss", logfields.Asset(logicalPath))
	return logicalPath
}

// Lookup returns the hashed path for logicalPath and whether it was recorded.
// It does not count misses.
func (m *Manifest) Lookup(logicalPath string) (string, bool) {
	key := m.ctx.Rel(logicalPath)
	m.mu.RLock()
	p, ok := m.entries[key]
	m.mu.RUnlock()
	return p, ok
}

// Misses returns how many Get calls fell back to the logical path.
func (m *Manifest) Misses() int64 { return m.misses.Load() }

// Len returns the number of recorded entries.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Entries returns a copy of all mappings.
func (m *Manifest) Entries() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}
