package eventstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

const (
	buildStatusRunning = "running"
	buildStatusFailed  = "failed"
)

// BuildSummary is the read model of one build.
type BuildSummary struct {
	BuildID        string            `json:"build_id"`
	Status         string            `json:"status"` // running, success, warning, failed, canceled
	StartedAt      time.Time         `json:"started_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	Duration       time.Duration     `json:"duration,omitempty"`
	Revision       string            `json:"revision,omitempty"`
	Posts          int               `json:"posts"`
	Pages          int               `json:"pages"`
	StageDurations map[string]int64  `json:"stage_durations_ms,omitempty"`
	ErrorStage     string            `json:"error_stage,omitempty"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	Artifacts      map[string]string `json:"artifacts,omitempty"`
}

// BuildHistoryProjection rebuilds build summaries from the event log.
type BuildHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	builds  map[string]*BuildSummary
	history []*BuildSummary // finished builds, newest first
	maxSize int
}

// NewBuildHistoryProjection keeps at most maxHistorySize finished builds (default 100).
func NewBuildHistoryProjection(store Store, maxHistorySize int) *BuildHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &BuildHistoryProjection{
		store:   store,
		builds:  make(map[string]*BuildSummary),
		maxSize: maxHistorySize,
	}
}

// Rebuild replays every stored event.
func (p *BuildHistoryProjection) Rebuild(ctx context.Context) error {
	records, err := p.store.Since(ctx, time.Time{})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.builds = make(map[string]*BuildSummary)
	p.history = nil
	for _, rec := range records {
		p.applyLocked(rec)
	}
	sort.SliceStable(p.history, func(i, j int) bool {
		return p.history[i].StartedAt.After(p.history[j].StartedAt)
	})
	p.trimLocked()
	return nil
}

// Apply folds a single record into the projection.
func (p *BuildHistoryProjection) Apply(rec *Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(rec)
}

func (p *BuildHistoryProjection) applyLocked(rec *Record) {
	buildID := rec.BuildID
	if buildID == "" {
		return
	}
	summary, ok := p.builds[buildID]
	if !ok {
		summary = &BuildSummary{BuildID: buildID, Status: buildStatusRunning, StartedAt: rec.At}
		p.builds[buildID] = summary
	}

	switch rec.Type {
	case TypeBuildStarted:
		var d BuildStartedData
		if rec.Decode(&d) == nil {
			summary.Revision = d.Revision
		}
		summary.StartedAt = rec.At

	case TypePostsDiscovered:
		var d PostsDiscoveredData
		if rec.Decode(&d) == nil {
			summary.Posts = d.Posts
		}

	case TypeStageCompleted:
		var d StageCompletedData
		if rec.Decode(&d) == nil {
			if summary.StageDurations == nil {
				summary.StageDurations = make(map[string]int64)
			}
			summary.StageDurations[d.Stage] = d.DurationMS
		}

	case TypeSitePublished:
		var d SitePublishedData
		if rec.Decode(&d) == nil {
			summary.Pages = d.Pages
		}

	case TypeBuildCompleted:
		var d BuildCompletedData
		if rec.Decode(&d) == nil {
			summary.Status = d.Status
			summary.Artifacts = d.Artifacts
		}
		p.finishLocked(summary, rec.At)

	case TypeBuildFailed:
		var d BuildFailedData
		if rec.Decode(&d) == nil {
			summary.ErrorStage = d.Stage
			summary.ErrorMessage = d.Error
		}
		summary.Status = buildStatusFailed
		p.finishLocked(summary, rec.At)
	}
}

func (p *BuildHistoryProjection) finishLocked(summary *BuildSummary, at time.Time) {
	summary.CompletedAt = &at
	summary.Duration = at.Sub(summary.StartedAt)
	for _, h := range p.history {
		if h.BuildID == summary.BuildID {
			return
		}
	}
	p.history = append([]*BuildSummary{summary}, p.history...)
	p.trimLocked()
}

// trimLocked bounds history and drops finished builds that fell out of it.
func (p *BuildHistoryProjection) trimLocked() {
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		keep[h.BuildID] = struct{}{}
	}
	for id, s := range p.builds {
		if s.Status == buildStatusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.builds, id)
		}
	}
}

// GetHistory returns finished builds, newest first.
func (p *BuildHistoryProjection) GetHistory() []*BuildSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*BuildSummary, len(p.history))
	for i, h := range p.history {
		cp := *h
		out[i] = &cp
	}
	return out
}

// GetBuild returns a copy of one build's summary.
func (p *BuildHistoryProjection) GetBuild(buildID string) (*BuildSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.builds[buildID]
	if !ok {
		return nil, false
	}
	cp := *s
	return &cp, true
}
