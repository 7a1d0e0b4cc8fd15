package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/artifact"
)

// Driver runs stages against artifacts. It runs one named stage or the
// full chain, publishing each stage's output before the next reads it.
type Driver struct {
	store  *artifact.Store
	stages map[StageName]Stage
	stop   *StopSignal

	mu    sync.Mutex
	state State
}

// NewDriver creates a Driver. stop may be nil.
func NewDriver(store *artifact.Store, stages []Stage, stop *StopSignal) *Driver {
	d := &Driver{
		store:  store,
		stages: make(map[StageName]Stage, len(stages)),
		stop:   stop,
		state:  StateIdle,
	}
	for _, s := range stages {
		d.stages[s.Name()] = s
	}
	return d
}

// State returns the current lifecycle state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Driver) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// RunStage runs a single stage on input. An empty output derives the path
// from input and the stage name.
func (d *Driver) RunStage(ctx context.Context, name StageName, input, output string) (*Report, error) {
	if output == "" {
		output = OutputPath(input, name)
	}
	rep := &Report{RunID: uuid.NewString()}
	log := zap.L().With(zap.String("run_id", rep.RunID))

	sr, err := d.runOne(ctx, log, name, input, output)
	if err != nil {
		d.setState(StateFailed)
		rep.State = StateFailed
		return rep, err
	}
	rep.Stages = append(rep.Stages, sr)
	d.setState(StateCompleted)
	rep.State = StateCompleted
	return rep, nil
}

// RunAll runs every stage in Order starting from a raw input. output, when
// set, names the final artifact. The chain halts early, still completed,
// if a stage leaves no records.
func (d *Driver) RunAll(ctx context.Context, input, output string) (*Report, error) {
	rep := &Report{RunID: uuid.NewString()}
	log := zap.L().With(zap.String("run_id", rep.RunID))
	log.Info("pipeline: starting full run", zap.String("input", input))

	cur := input
	for i, name := range Order {
		out := OutputPath(cur, name)
		if i == len(Order)-1 && output != "" {
			out = output
		}
		sr, err := d.runOne(ctx, log, name, cur, out)
		if err != nil {
			d.setState(StateFailed)
			rep.State = StateFailed
			return rep, err
		}
		rep.Stages = append(rep.Stages, sr)
		if sr.Succeeded == 0 && i < len(Order)-1 {
			log.Warn("pipeline: no records left, stopping",
				zap.String("stage", string(name)),
				zap.String("path", out),
			)
			rep.Halted = true
			break
		}
		cur = out
	}

	d.setState(StateCompleted)
	rep.State = StateCompleted
	return rep, nil
}

func (d *Driver) runOne(ctx context.Context, log *zap.Logger, name StageName, input, output string) (StageReport, error) {
	fatal := func(path string, err error) (StageReport, error) {
		log.Error("pipeline: stage failed",
			zap.String("stage", string(name)),
			zap.String("path", path),
			zap.Error(err),
		)
		return StageReport{}, &FatalError{Stage: name, Path: path, Err: err}
	}

	stage, ok := d.stages[name]
	if !ok {
		return fatal(input, eris.Errorf("pipeline: stage %s is not configured", name))
	}
	if d.stop.Stopped() {
		return fatal(input, eris.Wrap(ErrAborted, "stop requested before start"))
	}
	d.setState(StateStageRunning)

	tbl, err := d.store.Load(ctx, input)
	switch {
	case errors.Is(err, artifact.ErrNotFound):
		return fatal(input, eris.Wrapf(ErrArtifactNotFound, "%v", err))
	case errors.Is(err, artifact.ErrMalformed):
		return fatal(input, eris.Wrapf(ErrArtifactMalformed, "%v", err))
	case err != nil:
		return fatal(input, err)
	}
	if v, ok := stage.(Validator); ok {
		if err := v.ValidateHeader(tbl.Header); err != nil {
			return fatal(input, err)
		}
	}

	log.Info("pipeline: stage started",
		zap.String("stage", string(name)),
		zap.String("path", input),
		zap.Int("records", len(tbl.Leads)),
	)
	start := time.Now()
	res, err := stage.Run(ctx, tbl.Leads)
	if err != nil {
		return fatal(input, err)
	}

	if err := d.store.Save(ctx, output, tbl.Header, res.Succeeded); err != nil {
		return fatal(output, err)
	}
	failedPath := artifact.FailedPath(output)
	if err := d.store.SaveFailures(ctx, failedPath, tbl.Header, res.Failed); err != nil {
		return fatal(failedPath, err)
	}

	sr := newStageReport(name, input, output, failedPath, res, time.Since(start))
	log.Info("pipeline: stage complete",
		zap.String("stage", string(name)),
		zap.String("path", output),
		zap.Int("succeeded", sr.Succeeded),
		zap.Int("failed", sr.Failed),
		zap.Int("degraded", sr.Degraded),
		zap.Int64("duration_ms", sr.Duration.Milliseconds()),
	)
	return sr, nil
}

// OutputPath names a stage's artifact after its input: the input stem with
// any stage suffix removed, plus the stage's suffix. Outputs are always CSV.
func OutputPath(input string, name StageName) string {
	dir, base := filepath.Split(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	for _, n := range Order {
		if s := n.Suffix(); strings.HasSuffix(stem, s) {
			stem = strings.TrimSuffix(stem, s)
			break
		}
	}
	return filepath.Join(dir, stem+name.Suffix()+".csv")
}
