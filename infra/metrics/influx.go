package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/districtopt/core/kpi"
	coremetrics "github.com/kilianp07/districtopt/core/metrics"
	"github.com/kilianp07/districtopt/core/model"
	"github.com/kilianp07/districtopt/core/results"
	"github.com/kilianp07/districtopt/infra/logger"
)

// InfluxSink writes solve events and district KPIs to an InfluxDB instance
// using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
	// Flows enables one point per step with every flow value.
	Flows bool
}

// InfluxConfig holds the connection settings of the sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	Flows  bool   `json:"flows"`
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns nil if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) *InfluxSink {
	sink := NewInfluxSink(cfg.URL, cfg.Token, cfg.Org, cfg.Bucket)
	sink.Flows = cfg.Flows
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return nil
	}
	return sink
}

// RecordSolve writes one solve event.
func (s *InfluxSink) RecordSolve(ev coremetrics.SolveEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("district_solve").
		AddTag("district", ev.District).
		AddTag("solver", ev.Solver).
		AddTag("status", ev.Status).
		AddTag("run_id", ev.RunID).
		AddField("objective", round3(ev.Objective)).
		AddField("vars", ev.Vars).
		AddField("rows", ev.Rows).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Write stores the KPI summary of a district and, when enabled, its flows.
func (s *InfluxSink) Write(ctx context.Context, r results.Record) error {
	sum := r.Summary
	p := write.NewPointWithMeasurement("district_kpi").
		AddTag("district", sum.District).
		AddTag("run_id", r.RunID).
		AddField("objective", round3(sum.Objective)).
		AddField("income_total", round3(sum.TotalIncome)).
		AddField("sold_energy_kwh", round3(sum.SoldEnergy)).
		AddField("average_price", round3(sum.AveragePrice)).
		AddField("expense_total", round3(sum.Expenses.Total()))
	for _, pr := range model.Products {
		p = p.AddField("income_"+pr.String(), round3(sum.Income[pr]))
	}
	for _, k := range kpi.HourTechnologies {
		if h, ok := sum.OperatingHours[k]; ok {
			p = p.AddField("hours_"+string(k), h)
		}
	}
	p = p.SetTime(sum.Start)
	points := []*write.Point{p}
	if s.Flows {
		for t, ts := range r.Flows.Times {
			fp := write.NewPointWithMeasurement("district_flow").
				AddTag("district", sum.District).
				AddTag("run_id", r.RunID)
			for i, label := range r.Flows.Labels {
				fp = fp.AddField(label, round3(r.Flows.Values[t][i]))
			}
			points = append(points, fp.SetTime(ts))
		}
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// Close releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
