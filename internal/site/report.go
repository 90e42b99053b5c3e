package site

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/linkverify"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/version"
)

// Report file names written into the output root.
const (
	ReportJSONFile = "build-report.json"
	ReportTextFile = "build-report.txt"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// StageCount aggregates counts of outcomes for a stage.
type StageCount struct {
	Success  int
	Warning  int
	Fatal    int
	Canceled int
}

// BuildReport captures high-level metrics about a site build.
type BuildReport struct {
	SchemaVersion   int
	BuildID         string
	Revision        string // content repository HEAD, empty outside git
	Start           time.Time
	End             time.Time
	Errors          []error // fatal errors causing build abortion
	Warnings        []error // non-fatal issues
	StageDurations  map[string]time.Duration
	StageIssues     map[StageName]StageResult // stages that did not succeed
	StageCounts     map[StageName]StageCount

	Posts           int
	PostsByType     map[string]int
	Fingerprints    map[string]string // post link -> content fingerprint
	Pages           int
	Assets          map[string]int // css|js|images -> files written
	SearchIndex     string         // hashed path of the search asset
	ManifestEntries int
	ManifestMisses  int64
	Findings        []linkverify.Finding

	Outcome            BuildOutcome
	SitebuilderVersion string
}

func newBuildReport(buildID string) *BuildReport {
	return &BuildReport{
		SchemaVersion:      1,
		BuildID:            buildID,
		Start:              time.Now(),
		StageDurations:     make(map[string]time.Duration),
		StageIssues:        make(map[StageName]StageResult),
		StageCounts:        make(map[StageName]StageCount),
		PostsByType:        make(map[string]int),
		Fingerprints:       make(map[string]string),
		Assets:             make(map[string]int),
		SitebuilderVersion: version.Version,
	}
}

// AddStageError records se as an error, or as a warning when its result is a warning.
func (r *BuildReport) AddStageError(se *StageError) {
	r.StageIssues[se.Stage] = se.Result
	if se.Result == StageResultWarning {
		r.Warnings = append(r.Warnings, se)
		return
	}
	r.Errors = append(r.Errors, se)
}

// TotalAssets sums the assets written across kinds.
func (r *BuildReport) TotalAssets() int {
	n := 0
	for _, c := range r.Assets {
		n += c
	}
	return n
}

// Finish sets the end time of the report.
func (r *BuildReport) Finish() { r.End = time.Now() }

// Duration is the wall time between Start and End.
func (r *BuildReport) Duration() time.Duration { return r.End.Sub(r.Start) }

// RecordStageResult updates BuildReport counters and emits metrics (if recorder non-nil).
func (r *BuildReport) RecordStageResult(stage StageName, res StageResult, recorder metrics.Recorder) {
	sc := r.StageCounts[stage]
	var label metrics.ResultLabel
	switch res {
	case StageResultSuccess:
		sc.Success++
		label = metrics.ResultSuccess
	case StageResultWarning:
		sc.Warning++
		label = metrics.ResultWarning
	case StageResultFatal:
		sc.Fatal++
		label = metrics.ResultFatal
	case StageResultCanceled:
		sc.Canceled++
		label = metrics.ResultCanceled
	}
	r.StageCounts[stage] = sc
	if recorder != nil {
		recorder.IncStageResult(string(stage), label)
	}
}

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	return fmt.Sprintf("posts=%d pages=%d assets=%d misses=%d findings=%d duration=%s errors=%d warnings=%d stages=%d outcome=%s",
		r.Posts, r.Pages, r.TotalAssets(), r.ManifestMisses, len(r.Findings), r.Duration().Truncate(time.Millisecond),
		len(r.Errors), len(r.Warnings), len(r.StageDurations), string(r.Outcome))
}

// DeriveOutcome sets the Outcome field based on recorded errors/warnings.
func (r *BuildReport) DeriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			var se *StageError
			if errors.As(e, &se) && se.Result == StageResultCanceled {
				r.Outcome = OutcomeCanceled
				return
			}
		}
		r.Outcome = OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 {
		r.Outcome = OutcomeWarning
		return
	}
	r.Outcome = OutcomeSuccess
}

// Persist writes the report atomically into the provided root directory.
func (r *BuildReport) Persist(root string) error {
	if r.End.IsZero() {
		r.Finish()
		r.DeriveOutcome()
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return fmt.Errorf("ensure root for report: %w", err)
	}
	jb, err := json.MarshalIndent(r.SanitizedCopy(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(root, ReportJSONFile), jb); err != nil {
		return fmt.Errorf("write report json: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(root, ReportTextFile), []byte(r.Summary()+"\n")); err != nil {
		return fmt.Errorf("write report summary: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, b []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadReport reads the JSON report a build persisted into root.
func LoadReport(root string) (*BuildReportSerializable, error) {
	b, err := os.ReadFile(filepath.Join(root, ReportJSONFile))
	if err != nil {
		return nil, err
	}
	var r BuildReportSerializable
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode report json: %w", err)
	}
	return &r, nil
}

// SanitizedCopy returns a copy with error fields converted to strings for JSON friendliness.
func (r *BuildReport) SanitizedCopy() *BuildReportSerializable {
	stageCounts := make(map[string]StageCount, len(r.StageCounts))
	for k, v := range r.StageCounts {
		stageCounts[string(k)] = v
	}
	issues := make(map[string]string, len(r.StageIssues))
	for k, v := range r.StageIssues {
		issues[string(k)] = string(v)
	}
	findings := r.Findings
	if findings == nil {
		findings = []linkverify.Finding{}
	}

	s := &BuildReportSerializable{
		SchemaVersion:      r.SchemaVersion,
		BuildID:            r.BuildID,
		Revision:           r.Revision,
		Start:              r.Start,
		End:                r.End,
		Errors:             make([]string, len(r.Errors)),
		Warnings:           make([]string, len(r.Warnings)),
		StageDurations:     r.StageDurations,
		StageIssues:        issues,
		StageCounts:        stageCounts,
		Posts:              r.Posts,
		PostsByType:        r.PostsByType,
		Fingerprints:       r.Fingerprints,
		Pages:              r.Pages,
		Assets:             r.Assets,
		SearchIndex:        r.SearchIndex,
		ManifestEntries:    r.ManifestEntries,
		ManifestMisses:     r.ManifestMisses,
		Findings:           findings,
		Outcome:            string(r.Outcome),
		SitebuilderVersion: r.SitebuilderVersion,
	}
	for i, e := range r.Errors {
		s.Errors[i] = e.Error()
	}
	for i, w := range r.Warnings {
		s.Warnings[i] = w.Error()
	}
	return s
}

// BuildReportSerializable mirrors BuildReport but with string errors for JSON output.
type BuildReportSerializable struct {
	SchemaVersion      int                      `json:"schema_version"`
	BuildID            string                   `json:"build_id"`
	Revision           string                   `json:"revision,omitempty"`
	Start              time.Time                `json:"start"`
	End                time.Time                `json:"end"`
	Errors             []string                 `json:"errors"`
	Warnings           []string                 `json:"warnings"`
	StageDurations     map[string]time.Duration `json:"stage_durations"`
	StageIssues        map[string]string        `json:"stage_issues"`
	StageCounts        map[string]StageCount    `json:"stage_counts"`
	Posts              int                      `json:"posts"`
	PostsByType        map[string]int           `json:"posts_by_type"`
	Fingerprints       map[string]string        `json:"fingerprints,omitempty"`
	Pages              int                      `json:"pages"`
	Assets             map[string]int           `json:"assets"`
	SearchIndex        string                   `json:"search_index,omitempty"`
	ManifestEntries    int                      `json:"manifest_entries"`
	ManifestMisses     int64                    `json:"manifest_misses"`
	Findings           []linkverify.Finding     `json:"findings"`
	Outcome            string                   `json:"outcome"`
	SitebuilderVersion string                   `json:"sitebuilder_version,omitempty"`
}
