package site

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStagesSkipIndexWithoutSearch(t *testing.T) {
	names := func(plan []stage) []StageName {
		var out []StageName
		for _, st := range plan {
			out = append(out, st.name)
		}
		return out
	}

	s := newTestSite(t)
	s.cfg.Features.Search = false
	require.Equal(t, []StageName{StagePrepareOutput, StageDiscover, StageAssets, StageRender, StageVerify, StagePublish},
		names(newTestBuilder(t, s.cfg).stages()))

	s.cfg.Features.Search = true
	require.Contains(t, names(newTestBuilder(t, s.cfg).stages()), StageIndex)
}

func TestClassifyStageError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   StageResult
		aborts bool
	}{
		{"nil", nil, StageResultSuccess, false},
		{"plain", stderrors.New("boom"), StageResultFatal, true},
		{"warning", stageWarning(StageVerify, stderrors.New("dangling")), StageResultWarning, false},
		{"wrapped cancel", fmt.Errorf("worker: %w", context.Canceled), StageResultCanceled, true},
		{"deadline", context.DeadlineExceeded, StageResultCanceled, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, se := classifyStageError(StageRender, tt.err)
			require.Equal(t, tt.want, res)
			require.Equal(t, tt.aborts, res.aborts())
			require.Equal(t, tt.err == nil, se == nil)
		})
	}
}

func TestStageErrorUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	se := stageFatal(StagePublish, cause)
	require.ErrorIs(t, se, cause)
	require.Equal(t, "stage publish (fatal): disk full", se.Error())
}

func TestApplyTheme(t *testing.T) {
	css := ":root {\n    --primary-color: #theme;\n    --text-color: #theme;\n    --accent: #theme;\n}\n"
	out := ApplyTheme(css, map[string]string{"--primary-color": "#abcdef", "accent": "tomato"})
	require.Contains(t, out, "--primary-color: #abcdef;")
	require.Contains(t, out, "--text-color: "+defaultTheme["text-color"]+";")
	require.Contains(t, out, "--accent: tomato;")
	require.NotContains(t, out, "#theme")
}
