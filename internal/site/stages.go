package site

import (
	"context"
	"fmt"
)

// StageName identifies a build stage.
type StageName string

// Stages in execution order. StageIndex only runs with search enabled.
const (
	StagePrepareOutput StageName = "prepare_output"
	StageDiscover      StageName = "discover"
	StageIndex         StageName = "index"
	StageAssets        StageName = "assets"
	StageRender        StageName = "render"
	StageVerify        StageName = "verify"
	StagePublish       StageName = "publish"
)

// StageResult is the outcome of one stage run.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultWarning  StageResult = "warning"
	StageResultFatal    StageResult = "fatal"
	StageResultCanceled StageResult = "canceled"
)

// aborts reports whether the build stops after a stage with this result.
func (r StageResult) aborts() bool {
	return r == StageResultFatal || r == StageResultCanceled
}

// StageError ends a stage with a result other than success. A warning
// result is recorded and the build continues.
type StageError struct {
	Stage  StageName
	Result StageResult
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s (%s): %v", e.Stage, e.Result, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageFatal(stage StageName, err error) *StageError {
	return &StageError{Stage: stage, Result: StageResultFatal, Err: err}
}

func stageWarning(stage StageName, err error) *StageError {
	return &StageError{Stage: stage, Result: StageResultWarning, Err: err}
}

func stageCanceled(stage StageName, err error) *StageError {
	return &StageError{Stage: stage, Result: StageResultCanceled, Err: err}
}

type stage struct {
	name StageName
	run  func(ctx context.Context, bs *BuildState) error
}
