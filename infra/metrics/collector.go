package metrics

import (
	"context"

	"github.com/kilianp07/districtopt/core/events"
	coremetrics "github.com/kilianp07/districtopt/core/metrics"
	"github.com/kilianp07/districtopt/infra/logger"
	"github.com/kilianp07/districtopt/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// pipeline events. It stops when the context is canceled or the bus closes;
// the returned channel is closed once it has.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("record metrics: %v", err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.DistrictEvent:
		if e.Stage == events.StageCompiled || e.Status == "" {
			return nil
		}
		return sink.RecordSolve(coremetrics.SolveEvent{
			RunID:     e.RunID,
			District:  e.District,
			Solver:    e.Solver,
			Status:    e.Status,
			Objective: e.Objective,
			Vars:      e.Vars,
			Rows:      e.Rows,
			Duration:  e.Duration,
			Time:      e.Time,
		})
	case events.RunEvent:
		if r, ok := sink.(coremetrics.RunRecorder); ok {
			return r.RecordRun(coremetrics.RunEvent{
				RunID:     e.RunID,
				Districts: e.Districts,
				Failed:    e.Failed,
				Duration:  e.Duration,
				Time:      e.Time,
			})
		}
	}
	return nil
}
