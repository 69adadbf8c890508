package rte

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Peak future delivery window, weekdays only, in local hours.
const (
	PeakStartHour = 8
	PeakEndHour   = 20
)

// Row is one step of a market price file, in EUR/MWh.
type Row struct {
	Time       time.Time
	DayAhead   float64
	Intraday   float64
	FutureBase float64
	FuturePeak float64
}

// IsPeak reports whether t falls in the peak future delivery window.
func IsPeak(t time.Time) bool {
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return t.Hour() >= PeakStartHour && t.Hour() < PeakEndHour
}

// Rows expands the exchange prices onto n steps of the given length from
// start. The API publishes no intraday index, so intraday repeats day-ahead.
// The base future is the mean day-ahead price of the window; the peak future
// is the mean over peak steps, set on peak steps and zero elsewhere.
func Rows(prices []Price, start time.Time, step time.Duration, n int) ([]Row, error) {
	if step <= 0 || n <= 0 {
		return nil, fmt.Errorf("invalid grid: %d steps of %s", n, step)
	}
	rows := make([]Row, n)
	da := make([]float64, n)
	var peak []float64
	j := 0
	for t := range rows {
		ts := start.Add(time.Duration(t) * step)
		for j < len(prices) && !prices[j].End.After(ts) {
			j++
		}
		if j == len(prices) || prices[j].Start.After(ts) {
			return nil, fmt.Errorf("no exchange price for %s", ts.Format(time.RFC3339))
		}
		da[t] = prices[j].Price
		rows[t] = Row{Time: ts, DayAhead: da[t], Intraday: da[t]}
		if IsPeak(ts) {
			peak = append(peak, da[t])
		}
	}
	base := stat.Mean(da, nil)
	peakMean := 0.0
	if len(peak) > 0 {
		peakMean = stat.Mean(peak, nil)
	}
	for t := range rows {
		rows[t].FutureBase = base
		if IsPeak(rows[t].Time) {
			rows[t].FuturePeak = peakMean
		}
	}
	return rows, nil
}

// WriteCSV writes rows with the default market column names.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "day_ahead", "intraday", "future_base", "future_peak"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Time.Format(time.RFC3339),
			num(r.DayAhead), num(r.Intraday), num(r.FutureBase), num(r.FuturePeak),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
