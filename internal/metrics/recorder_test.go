package metrics

import "time"

// testRecorder is a counting Recorder used to verify the interface stays implementable.
type testRecorder struct {
	stageResults map[string]map[ResultLabel]int
	outcomes     map[string]int
	misses       int
}

func newTestRecorder() *testRecorder {
	return &testRecorder{stageResults: map[string]map[ResultLabel]int{}, outcomes: map[string]int{}}
}

func (t *testRecorder) ObserveStageDuration(string, time.Duration) {}
func (t *testRecorder) ObserveBuildDuration(time.Duration)         {}
func (t *testRecorder) IncStageResult(stage string, result ResultLabel) {
	m, ok := t.stageResults[stage]
	if !ok {
		m = map[ResultLabel]int{}
		t.stageResults[stage] = m
	}
	m[result]++
}
func (t *testRecorder) IncBuildOutcome(outcome string) { t.outcomes[outcome]++ }
func (t *testRecorder) AddAssetsWritten(string, int)   {}
func (t *testRecorder) IncManifestMiss()               { t.misses++ }
func (t *testRecorder) IncPublishResult(PublishLabel)  {}

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
	_ Recorder = newTestRecorder()
)
