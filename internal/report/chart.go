package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/jhoydich/landmark-pf/internal/runner"
)

// WriteErrorChart renders an HTML line chart of the per-step absolute
// error against ground truth. Records without ground truth are skipped.
func WriteErrorChart(w io.Writer, title string, records []runner.Record) error {
	var steps []string
	var ex, ey, ephi []opts.LineData
	for _, r := range records {
		if !r.HasTruth {
			continue
		}
		steps = append(steps, strconv.Itoa(r.Step))
		ex = append(ex, opts.LineData{Value: r.Err.X})
		ey = append(ey, opts.LineData{Value: r.Err.Y})
		ephi = append(ephi, opts.LineData{Value: r.Err.Phi})
	}
	if len(steps) == 0 {
		return fmt.Errorf("no records with ground truth to chart")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1100px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("steps=%d", len(steps))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "step", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "absolute error"}),
	)
	series := charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})
	line.SetXAxis(steps).
		AddSeries("|dx| (m)", ex, series).
		AddSeries("|dy| (m)", ey, series).
		AddSeries("|dphi| (rad)", ephi, series)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
