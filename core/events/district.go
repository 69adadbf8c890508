package events

import "time"

// Stage identifies the pipeline step a district reached.
type Stage string

const (
	StageCompiled Stage = "compiled"
	StageSolved   Stage = "solved"
	StageFailed   Stage = "failed"
)

// DistrictEvent is published after each pipeline stage of a district.
// Status, Objective and Duration are set once the solver ran.
type DistrictEvent struct {
	RunID     string
	District  string
	Stage     Stage
	Solver    string
	Status    string
	Objective float64
	Vars      int
	Rows      int
	Duration  time.Duration
	Err       error
	Time      time.Time
}

// RunEvent is published when every district of a run has finished.
type RunEvent struct {
	RunID     string
	Districts int
	Failed    int
	Duration  time.Duration
	Time      time.Time
}
