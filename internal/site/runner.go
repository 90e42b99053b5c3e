package site

import (
	"context"
	"errors"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/eventstore"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// runStages executes stages in order, recording timing and stopping on the
// first fatal or canceled stage.
func (b *Builder) runStages(ctx context.Context, bs *BuildState, plan []stage) error {
	for _, st := range plan {
		if err := ctx.Err(); err != nil {
			se := stageCanceled(st.name, err)
			bs.Report.AddStageError(se)
			bs.Report.RecordStageResult(st.name, StageResultCanceled, b.recorder)
			b.recordStage(ctx, bs, st.name, StageResultCanceled, 0)
			return se
		}

		log := bs.log.With(logfields.Stage(string(st.name)))
		log.Debug("Stage started")
		t0 := time.Now()
		err := st.run(ctx, bs)
		dur := time.Since(t0)
		bs.Report.StageDurations[string(st.name)] = dur
		b.recorder.ObserveStageDuration(string(st.name), dur)

		res, se := classifyStageError(st.name, err)
		if se != nil {
			bs.Report.AddStageError(se)
			if res.aborts() {
				log.Error("Stage failed", logfields.Error(se.Err))
			} else {
				log.Warn("Stage completed with warnings", logfields.Error(se.Err))
			}
		}
		bs.Report.RecordStageResult(st.name, res, b.recorder)
		b.recordStage(ctx, bs, st.name, res, dur)
		log.Debug("Stage finished", logfields.DurationMS(float64(dur.Microseconds())/1000), "result", string(res))

		if res.aborts() {
			return se
		}
	}
	return nil
}

// classifyStageError maps a stage's return value to its result. Errors
// that are not StageErrors are fatal unless they carry a context
// cancellation.
func classifyStageError(name StageName, err error) (StageResult, *StageError) {
	if err == nil {
		return StageResultSuccess, nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return se.Result, se
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return StageResultCanceled, stageCanceled(name, err)
	}
	return StageResultFatal, stageFatal(name, err)
}

func (b *Builder) recordStage(ctx context.Context, bs *BuildState, stage StageName, res StageResult, dur time.Duration) {
	ev, err := eventstore.NewStageCompleted(bs.ID, string(stage), string(res), dur)
	b.appendEvent(ctx, bs, ev, err)
}
