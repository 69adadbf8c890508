package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/districtopt/core/factory"
	"github.com/kilianp07/districtopt/core/kpi"
	"github.com/kilianp07/districtopt/core/results"
)

// WriteJSON writes the KPI summary to w in JSON format.
func WriteJSON(w io.Writer, s kpi.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteKPICSV writes the flattened KPI table as key,value rows.
func WriteKPICSV(w io.Writer, rows []kpi.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"key", "value"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Key, formatFloat(r.Value)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFlowsCSV writes one row per step with a timestamp column followed by
// one column per flow, headed by the flow label.
func WriteFlowsCSV(w io.Writer, tab kpi.FlowTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"timestamp"}, tab.Labels...)); err != nil {
		return err
	}
	rec := make([]string, len(tab.Labels)+1)
	for t, ts := range tab.Times {
		rec[0] = ts.Format(time.RFC3339)
		for i, v := range tab.Values[t] {
			rec[i+1] = formatFloat(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DirSink writes <district>_kpi.csv and <district>_flows.csv into a directory,
// and <district>_flows.html when Chart is set.
type DirSink struct {
	Dir string
	// Flows disables the per-step table when false.
	Flows bool
	Chart bool
}

func init() {
	_ = results.RegisterSink("csv", func(conf map[string]any) (results.Sink, error) {
		c := struct {
			Dir   string `json:"dir"`
			Flows *bool  `json:"flows"`
			Chart bool   `json:"chart"`
		}{}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		s, err := NewDirSink(c.Dir, c.Flows == nil || *c.Flows)
		if err != nil {
			return nil, err
		}
		s.Chart = c.Chart
		return s, nil
	})
}

// NewDirSink creates the output directory when needed.
func NewDirSink(dir string, flows bool) (*DirSink, error) {
	if dir == "" {
		dir = "results"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DirSink{Dir: dir, Flows: flows}, nil
}

// Write implements results.Sink.
func (d *DirSink) Write(_ context.Context, r results.Record) error {
	base := FileName(r.Summary.District)
	if err := writeFile(filepath.Join(d.Dir, base+"_kpi.csv"), func(w io.Writer) error {
		return WriteKPICSV(w, r.Summary.Rows())
	}); err != nil {
		return err
	}
	if d.Flows {
		if err := writeFile(filepath.Join(d.Dir, base+"_flows.csv"), func(w io.Writer) error {
			return WriteFlowsCSV(w, r.Flows)
		}); err != nil {
			return err
		}
	}
	if !d.Chart {
		return nil
	}
	return writeFile(filepath.Join(d.Dir, base+"_flows.html"), func(w io.Writer) error {
		return WriteFlowChart(w, r.Flows, r.Summary.District)
	})
}

// Close implements results.Sink.
func (d *DirSink) Close() error { return nil }

// FileName turns a district name into a file name stem.
func FileName(district string) string {
	s := strings.ToLower(strings.TrimSpace(district))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
