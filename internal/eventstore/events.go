package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Event types.
const (
	TypeBuildStarted    = "BuildStarted"
	TypePostsDiscovered = "PostsDiscovered"
	TypeStageCompleted  = "StageCompleted"
	TypeSitePublished   = "SitePublished"
	TypeBuildCompleted  = "BuildCompleted"
	TypeBuildFailed     = "BuildFailed"
)

// BuildStartedData describes the inputs of a build.
type BuildStartedData struct {
	Revision  string `json:"revision,omitempty"` // content repository HEAD, when available
	OutputDir string `json:"output_dir"`
	Workers   int    `json:"workers"`
}

// PostsDiscoveredData counts discovered posts.
type PostsDiscoveredData struct {
	Posts  int            `json:"posts"`
	ByType map[string]int `json:"by_type"`
}

// StageCompletedData records one stage's result.
type StageCompletedData struct {
	Stage      string `json:"stage"`
	Result     string `json:"result"`
	DurationMS int64  `json:"duration_ms"`
}

// SitePublishedData describes the published output.
type SitePublishedData struct {
	OutputDir   string `json:"output_dir"`
	Pages       int    `json:"pages"`
	Assets      int    `json:"assets"`
	SearchIndex string `json:"search_index,omitempty"`
}

// BuildCompletedData is the final build outcome.
type BuildCompletedData struct {
	Status     string            `json:"status"`
	DurationMS int64             `json:"duration_ms"`
	Artifacts  map[string]string `json:"artifacts,omitempty"`
}

// BuildFailedData names the stage that aborted the build.
type BuildFailedData struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}

func NewBuildStarted(buildID string, d BuildStartedData) (*Record, error) {
	return newEvent(buildID, TypeBuildStarted, d)
}

func NewPostsDiscovered(buildID string, d PostsDiscoveredData) (*Record, error) {
	return newEvent(buildID, TypePostsDiscovered, d)
}

func NewStageCompleted(buildID, stage, result string, d time.Duration) (*Record, error) {
	return newEvent(buildID, TypeStageCompleted, StageCompletedData{Stage: stage, Result: result, DurationMS: d.Milliseconds()})
}

func NewSitePublished(buildID string, d SitePublishedData) (*Record, error) {
	return newEvent(buildID, TypeSitePublished, d)
}

func NewBuildCompleted(buildID, status string, d time.Duration, artifacts map[string]string) (*Record, error) {
	return newEvent(buildID, TypeBuildCompleted, BuildCompletedData{Status: status, DurationMS: d.Milliseconds(), Artifacts: artifacts})
}

func NewBuildFailed(buildID, stage, errorMsg string) (*Record, error) {
	return newEvent(buildID, TypeBuildFailed, BuildFailedData{Stage: stage, Error: errorMsg})
}

func newEvent(buildID, eventType string, data any) (*Record, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, errors.EventStoreError("failed to marshal "+eventType+" payload").
			WithCause(err).
			WithContext("build_id", buildID).
			Build()
	}
	return &Record{BuildID: buildID, Type: eventType, At: time.Now(), Payload: payload}, nil
}
