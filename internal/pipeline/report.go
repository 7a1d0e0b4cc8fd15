package pipeline

import (
	"sort"
	"time"

	"github.com/sells-group/outreach-cli/internal/model"
)

// State is the driver's lifecycle position.
type State string

const (
	StateIdle         State = "idle"
	StateStageRunning State = "stage_running"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// StageReport summarizes one stage run.
type StageReport struct {
	Stage      StageName
	Input      string
	Output     string
	FailedPath string
	Succeeded  int
	Failed     int
	Degraded   int
	Reasons    map[model.Reason]int
	Duration   time.Duration
}

// Report summarizes a driver invocation. It lives only for the run.
type Report struct {
	RunID  string
	State  State
	Stages []StageReport
	// Halted is set when a full run stopped early because a stage left no
	// records for the next one.
	Halted bool
}

// Last returns the final stage report, or nil when none ran.
func (r *Report) Last() *StageReport {
	if len(r.Stages) == 0 {
		return nil
	}
	return &r.Stages[len(r.Stages)-1]
}

// SortedReasons returns the reason codes of s in name order.
func (s StageReport) SortedReasons() []model.Reason {
	out := make([]model.Reason, 0, len(s.Reasons))
	for r := range s.Reasons {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func newStageReport(name StageName, input, output, failedPath string, res *Result, d time.Duration) StageReport {
	sr := StageReport{
		Stage:     name,
		Input:     input,
		Output:    output,
		Succeeded: len(res.Succeeded),
		Failed:    len(res.Failed),
		Degraded:  len(res.Degraded),
		Reasons:   res.Counts(),
		Duration:  d,
	}
	if len(res.Failed) > 0 {
		sr.FailedPath = failedPath
	}
	return sr
}
