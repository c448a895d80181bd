package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// chart handles GET /api/sessions/{id}/chart: an HTML line chart of the
// joint angle over the session with the repetition count alongside.
func (h *SessionHandler) chart(w http.ResponseWriter, r *http.Request, id string) {
	result, exercise, ok := h.runReplay(w, r, id)
	if !ok {
		return
	}

	x := make([]string, 0, len(result.Samples))
	angles := make([]opts.LineData, 0, len(result.Samples))
	reps := make([]opts.LineData, 0, len(result.Samples))
	for _, s := range result.Samples {
		x = append(x, fmt.Sprintf("%.1f", s.At.Sub(result.Samples[0].At).Seconds()))
		angles = append(angles, opts.LineData{Value: s.Angle})
		reps = append(reps, opts.LineData{Value: s.RepCount})
	}

	th := exercise.Classification.Thresholds
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: exercise.Name, Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    exercise.Name,
			Subtitle: fmt.Sprintf("session=%s reps=%d up=%g down=%g", id, result.RepCount, th.Up, th.Down),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "seconds", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "degrees", Min: 0, Max: 180}),
	)
	line.SetXAxis(x).
		AddSeries("angle", angles, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)})).
		AddSeries("reps", reps)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
