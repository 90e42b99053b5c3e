package site

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/linkverify"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

func TestDeriveOutcome(t *testing.T) {
	r := newBuildReport("b1")
	r.DeriveOutcome()
	require.Equal(t, OutcomeSuccess, r.Outcome)

	r.AddStageError(stageWarning(StageVerify, stderrors.New("1 unresolved reference")))
	r.DeriveOutcome()
	require.Equal(t, OutcomeWarning, r.Outcome)

	r.AddStageError(stageFatal(StageRender, stderrors.New("template failed")))
	r.DeriveOutcome()
	require.Equal(t, OutcomeFailed, r.Outcome)

	c := newBuildReport("b2")
	c.AddStageError(stageCanceled(StageDiscover, context.Canceled))
	c.DeriveOutcome()
	require.Equal(t, OutcomeCanceled, c.Outcome)
	require.Equal(t, StageResultCanceled, c.StageIssues[StageDiscover])
}

func TestRecordStageResultCounts(t *testing.T) {
	r := newBuildReport("b1")
	r.RecordStageResult(StageRender, StageResultSuccess, metrics.NoopRecorder{})
	r.RecordStageResult(StageRender, StageResultWarning, nil)
	r.RecordStageResult(StageRender, StageResultFatal, nil)
	require.Equal(t, StageCount{Success: 1, Warning: 1, Fatal: 1}, r.StageCounts[StageRender])
}

func TestPersistWritesJSONAndSummary(t *testing.T) {
	dir := t.TempDir()
	r := newBuildReport("b1")
	r.Posts = 3
	r.Pages = 7
	r.Assets[AssetCSS] = 1
	r.Assets[AssetJS] = 3
	r.Findings = []linkverify.Finding{{Page: "/index.html", URL: "/x.png", Tag: "img", Reason: linkverify.ReasonMissing}}
	r.AddStageError(stageWarning(StageVerify, stderrors.New("1 unresolved reference")))

	require.NoError(t, r.Persist(dir))
	require.Equal(t, OutcomeWarning, r.Outcome)

	b, err := os.ReadFile(filepath.Join(dir, ReportJSONFile))
	require.NoError(t, err)
	var s BuildReportSerializable
	require.NoError(t, json.Unmarshal(b, &s))
	require.Equal(t, "b1", s.BuildID)
	require.Equal(t, 7, s.Pages)
	require.Equal(t, "warning", s.Outcome)
	require.Len(t, s.Warnings, 1)
	require.Contains(t, s.Warnings[0], "stage verify (warning)")
	require.Equal(t, map[string]string{"verify": "warning"}, s.StageIssues)
	require.Len(t, s.Findings, 1)

	txt, err := os.ReadFile(filepath.Join(dir, ReportTextFile))
	require.NoError(t, err)
	require.Contains(t, string(txt), "posts=3 pages=7 assets=4")
	require.Contains(t, string(txt), "outcome=warning")
	require.NoFileExists(t, filepath.Join(dir, ReportJSONFile+".tmp"))
}

func TestLoadReport(t *testing.T) {
	dir := t.TempDir()
	r := newBuildReport("b2")
	r.SearchIndex = "/search-data.abc123.json"
	require.NoError(t, r.Persist(dir))

	loaded, err := LoadReport(dir)
	require.NoError(t, err)
	require.Equal(t, "b2", loaded.BuildID)
	require.Equal(t, "/search-data.abc123.json", loaded.SearchIndex)
	require.Equal(t, "success", loaded.Outcome)

	_, err = LoadReport(t.TempDir())
	require.ErrorIs(t, err, os.ErrNotExist)
}
