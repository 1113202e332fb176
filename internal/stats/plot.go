package stats

import (
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"

	"github.com/bartoszstec/tic-tac-toe/internal/model"
)

// RenderCheckpointPlot writes an HTML page with one line chart per role
// showing win, draw and loss percentages against the training episode.
func RenderCheckpointPlot(path, runID string, checkpoints []model.Checkpoint) error {
	episodes := make([]string, len(checkpoints))
	for i, cp := range checkpoints {
		episodes[i] = strconv.Itoa(cp.Episode)
	}

	page := components.NewPage()
	page.PageTitle = "Training " + runID
	for _, role := range model.Roles {
		page.AddCharts(roleChart(runID, role, episodes, RatesFor(checkpoints, role)))
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := page.Render(f); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "render checkpoint plot")
	}
	return errors.WithStack(f.Close())
}

func roleChart(runID string, role model.Role, episodes []string, rates Rates) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    role.String() + " vs random",
			Subtitle: runID,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "episode"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "%"}),
	)
	line.SetXAxis(episodes).
		AddSeries("win", lineData(rates.Win)).
		AddSeries("draw", lineData(rates.Draw)).
		AddSeries("loss", lineData(rates.Loss))
	return line
}

func lineData(values []float64) []opts.LineData {
	items := make([]opts.LineData, 0, len(values))
	for _, v := range values {
		items = append(items, opts.LineData{Value: v})
	}
	return items
}
