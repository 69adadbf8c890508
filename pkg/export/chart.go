package export

import (
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/districtopt/core/kpi"
)

// WriteFlowChart renders the flow table as an HTML line chart with one series
// per flow. Flows that stay at zero are left out.
func WriteFlowChart(w io.Writer, tab kpi.FlowTable, title string) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date & Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "kW"}),
	)

	x := make([]string, len(tab.Times))
	for i, ts := range tab.Times {
		x[i] = ts.Format(time.DateTime)
	}
	line.SetXAxis(x)
	for i, label := range tab.Labels {
		data := make([]opts.LineData, len(tab.Values))
		active := false
		for t, row := range tab.Values {
			data[t] = opts.LineData{Value: row[i]}
			active = active || row[i] != 0
		}
		if active {
			line.AddSeries(label, data)
		}
	}
	return line.Render(w)
}
