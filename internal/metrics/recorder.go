package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// PublishLabel enumerates atomic publish results.
type PublishLabel string

const (
	PublishSuccess    PublishLabel = "success"
	PublishFailed     PublishLabel = "failed" // live output untouched
	PublishRestored   PublishLabel = "restored"
	PublishUnrestored PublishLabel = "unrestored"
)

// Recorder defines observability hooks for build and stage metrics.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome string) // success|warning|failed|canceled
	AddAssetsWritten(kind string, n int)
	IncManifestMiss()
	IncPublishResult(result PublishLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(string)                     {}
func (NoopRecorder) AddAssetsWritten(string, int)               {}
func (NoopRecorder) IncManifestMiss()                           {}
func (NoopRecorder) IncPublishResult(PublishLabel)              {}
