package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/districtopt/core/events"
	"github.com/kilianp07/districtopt/core/kpi"
	"github.com/kilianp07/districtopt/core/logger"
	"github.com/kilianp07/districtopt/core/market"
	"github.com/kilianp07/districtopt/core/model"
	"github.com/kilianp07/districtopt/core/network"
	"github.com/kilianp07/districtopt/core/program"
	"github.com/kilianp07/districtopt/core/results"
	"github.com/kilianp07/districtopt/internal/eventbus"
)

// Job is one district ready to compile, with the horizon its profiles are
// aligned to. A job with Err set failed while loading and is reported as is.
type Job struct {
	Config  model.DistrictConfig
	Horizon model.Horizon
	Err     error
}

// Result is the outcome of one district. Err is set when any stage failed, in
// which case Summary and Flows are empty unless only the result sink failed.
// Status is empty when the district never reached the solver.
type Result struct {
	District string
	Status   string
	Summary  kpi.Summary
	Flows    kpi.FlowTable
	Duration time.Duration
	Err      error
}

// Report collects the results of a run in job order.
type Report struct {
	RunID    string
	Results  []Result
	Duration time.Duration
}

// Failed returns the number of districts with an error.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Err joins the district errors, or returns nil when every district succeeded.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.District, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Runner solves districts against shared market prices. Prices are read-only
// and shared by every worker.
type Runner struct {
	solver     program.Solver
	solverName string
	prices     model.Prices
	workers    int
	opts       []market.Option
	sink       results.Sink
	bus        eventbus.EventBus
	logger     logger.Logger
	mu         sync.Mutex
}

// NewRunner returns a runner using one worker.
func NewRunner(solver program.Solver, solverName string, prices model.Prices, log logger.Logger) *Runner {
	return &Runner{solver: solver, solverName: solverName, prices: prices, workers: 1, logger: log}
}

// SetWorkers bounds the number of districts processed at once.
func (r *Runner) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	r.mu.Lock()
	r.workers = n
	r.mu.Unlock()
}

// SetMarketOptions configures the constraint synthesizer, e.g. its tolerance.
func (r *Runner) SetMarketOptions(opts ...market.Option) {
	r.mu.Lock()
	r.opts = opts
	r.mu.Unlock()
}

// SetSink configures where solved districts are written.
func (r *Runner) SetSink(s results.Sink) {
	r.mu.Lock()
	r.sink = s
	r.mu.Unlock()
}

// SetBus configures the bus pipeline events are published on.
func (r *Runner) SetBus(b eventbus.EventBus) {
	r.mu.Lock()
	r.bus = b
	r.mu.Unlock()
}

// Run processes every job and returns once all of them finished. A failing
// district never stops the others; a canceled context fails the districts not
// yet solved.
func (r *Runner) Run(ctx context.Context, jobs []Job) Report {
	r.mu.Lock()
	workers := r.workers
	r.mu.Unlock()

	start := time.Now()
	report := Report{RunID: uuid.NewString(), Results: make([]Result, len(jobs))}
	r.logger.Infof("run %s: %d districts, %d workers, solver %s", report.RunID, len(jobs), workers, r.solverName)

	var g errgroup.Group
	g.SetLimit(workers)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			report.Results[i] = r.process(ctx, report.RunID, job)
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	failed := report.Failed()
	r.publish(events.RunEvent{
		RunID:     report.RunID,
		Districts: len(jobs),
		Failed:    failed,
		Duration:  report.Duration,
		Time:      time.Now(),
	})
	r.logger.Infof("run %s finished in %s: %d ok, %d failed", report.RunID, report.Duration, len(jobs)-failed, failed)
	return report
}

func (r *Runner) process(ctx context.Context, runID string, job Job) Result {
	name := job.Config.Name
	log := logger.With(r.logger, map[string]any{"district": name, "run_id": runID})
	res := Result{District: name}
	start := time.Now()
	fail := func(err error) Result {
		res.Err = err
		res.Duration = time.Since(start)
		log.Errorf("district failed: %v", err)
		r.publish(events.DistrictEvent{
			RunID:    runID,
			District: name,
			Stage:    events.StageFailed,
			Solver:   r.solverName,
			Status:   res.Status,
			Duration: res.Duration,
			Err:      err,
			Time:     time.Now(),
		})
		return res
	}

	if job.Err != nil {
		return fail(job.Err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	r.mu.Lock()
	opts, sink := r.opts, r.sink
	r.mu.Unlock()

	net, err := network.Compile(job.Config, job.Horizon)
	if err != nil {
		return fail(err)
	}
	ov, err := market.Overlay(net, r.prices, job.Horizon, opts...)
	if err != nil {
		return fail(fmt.Errorf("market constraints: %w", err))
	}
	p, err := program.Build(net, ov)
	if err != nil {
		return fail(fmt.Errorf("build program: %w", err))
	}
	log.Debugw("district compiled", map[string]any{"vars": len(p.Vars), "rows": len(p.Rows), "steps": job.Horizon.Len})
	r.publish(events.DistrictEvent{
		RunID:    runID,
		District: name,
		Stage:    events.StageCompiled,
		Solver:   r.solverName,
		Vars:     len(p.Vars),
		Rows:     len(p.Rows),
		Time:     time.Now(),
	})

	solveStart := time.Now()
	sol, err := r.solver.Solve(ctx, p)
	if err != nil {
		res.Status = program.StatusFailed.String()
		return fail(fmt.Errorf("solve: %w", err))
	}
	res.Status = sol.Status.String()
	if err := sol.Err(); err != nil {
		return fail(err)
	}
	solveTime := time.Since(solveStart)

	sum, err := kpi.Aggregate(sol, r.prices)
	if err != nil {
		return fail(fmt.Errorf("aggregate: %w", err))
	}
	res.Summary = sum
	res.Flows = kpi.Flows(sol)
	if sink != nil {
		if err := sink.Write(ctx, results.Record{RunID: runID, Summary: res.Summary, Flows: res.Flows}); err != nil {
			return fail(fmt.Errorf("write results: %w", err))
		}
	}
	res.Duration = time.Since(start)
	r.publish(events.DistrictEvent{
		RunID:     runID,
		District:  name,
		Stage:     events.StageSolved,
		Solver:    r.solverName,
		Status:    res.Status,
		Objective: sol.Objective,
		Vars:      len(p.Vars),
		Rows:      len(p.Rows),
		Duration:  solveTime,
		Time:      time.Now(),
	})
	log.Infof("district solved: objective %.2f, income %.2f, expenses %.2f", sum.Objective, sum.TotalIncome, sum.Expenses.Total())
	return res
}

func (r *Runner) publish(e eventbus.Event) {
	r.mu.Lock()
	bus := r.bus
	r.mu.Unlock()
	if bus != nil {
		bus.Publish(e)
	}
}
