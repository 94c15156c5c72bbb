package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/nirmalj2002/batchlens/pkg/variance"
)

var (
	colorIncrease = color.RGBA{R: 46, G: 139, B: 87, A: 255}  // sea green
	colorDecrease = color.RGBA{R: 178, G: 34, B: 34, A: 255}  // firebrick
	colorRaw      = color.RGBA{R: 70, G: 130, B: 180, A: 255} // steel blue
	colorCPU      = color.RGBA{R: 255, G: 165, B: 0, A: 255}  // orange
	colorSec      = color.RGBA{R: 128, G: 0, B: 128, A: 255}  // purple
)

// WeightedVarianceChart draws the weighted variance of all three
// metrics per top parameter group, as grouped bars in raw/cpu/sec
// order. Increases are green, decreases red, with dashed lines marking
// the percentage threshold in both directions.
func WeightedVarianceChart(groups []variance.GroupSummary, pctThreshold float64, path string) error {
	p := plot.New()
	p.Title.Text = "Weighted variance by parameter group (raw, cpu, sec)"
	p.Y.Label.Text = "weighted % change"

	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.ParameterGroup
	}

	series := []func(variance.GroupSummary) float64{
		func(g variance.GroupSummary) float64 { return g.WeightedPctRaw },
		func(g variance.GroupSummary) float64 { return g.WeightedPctCPU },
		func(g variance.GroupSummary) float64 { return g.WeightedPctSec },
	}

	width := vg.Points(8)
	var firstUp, firstDown *plotter.BarChart
	for si, metric := range series {
		pos := make(plotter.Values, len(groups))
		neg := make(plotter.Values, len(groups))
		for i, g := range groups {
			v := metric(g)
			if math.IsNaN(v) {
				continue
			}
			if v >= 0 {
				pos[i] = v
			} else {
				neg[i] = v
			}
		}

		up, down, err := signedBars(pos, neg, width)
		if err != nil {
			return err
		}
		// Offsets place the three metrics side by side per group.
		up.Offset = vg.Length(si-1) * width
		down.Offset = up.Offset
		p.Add(up, down)
		if si == 0 {
			firstUp, firstDown = up, down
		}
	}

	p.NominalX(names...)
	p.Legend.Add("increase", firstUp)
	p.Legend.Add("decrease", firstDown)
	p.Legend.Top = true

	limit := pctThreshold * 100
	for _, y := range []float64{limit, -limit} {
		line, err := thresholdLine(y, len(groups))
		if err != nil {
			return err
		}
		p.Add(line)
	}

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

// TopGroupsChart draws the absolute weighted variance of each metric,
// stacked per parameter group, so the mix behind a group's total
// ranking is visible.
func TopGroupsChart(groups []variance.GroupSummary, path string) error {
	p := plot.New()
	p.Title.Text = "Top parameter groups by total weighted variance"
	p.Y.Label.Text = "sum |weighted % change|"

	names := make([]string, len(groups))
	raw := make(plotter.Values, len(groups))
	cpu := make(plotter.Values, len(groups))
	sec := make(plotter.Values, len(groups))
	for i, g := range groups {
		names[i] = g.ParameterGroup
		raw[i] = absOrZero(g.WeightedPctRaw)
		cpu[i] = absOrZero(g.WeightedPctCPU)
		sec[i] = absOrZero(g.WeightedPctSec)
	}

	width := vg.Points(24)
	rawBars, err := plotter.NewBarChart(raw, width)
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	cpuBars, err := plotter.NewBarChart(cpu, width)
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	secBars, err := plotter.NewBarChart(sec, width)
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}

	rawBars.Color = colorRaw
	cpuBars.Color = colorCPU
	secBars.Color = colorSec
	rawBars.LineStyle.Width = 0
	cpuBars.LineStyle.Width = 0
	secBars.LineStyle.Width = 0

	cpuBars.StackOn(rawBars)
	secBars.StackOn(cpuBars)

	p.Add(rawBars, cpuBars, secBars)
	p.NominalX(names...)
	p.Legend.Add("raw hours", rawBars)
	p.Legend.Add("cpu hours", cpuBars)
	p.Legend.Add("securities", secBars)
	p.Legend.Top = true

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

// TopModelsChart draws the mean absolute CPU-hour variance per model as
// horizontal bars.
func TopModelsChart(models []variance.ModelSummary, path string) error {
	p := plot.New()
	p.Title.Text = "Top models by CPU-hour variance"
	p.X.Label.Text = "mean |% change|"

	names := make([]string, len(models))
	values := make(plotter.Values, len(models))
	for i, m := range models {
		names[i] = m.ModelName
		if variance.PctDefined(m.MeanAbsPctCPU) {
			values[i] = m.MeanAbsPctCPU * 100
		}
	}

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.Color = colorCPU
	bars.LineStyle.Width = 0
	bars.Horizontal = true

	p.Add(bars)
	p.NominalY(names...)

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

func signedBars(pos, neg plotter.Values, width vg.Length) (*plotter.BarChart, *plotter.BarChart, error) {
	up, err := plotter.NewBarChart(pos, width)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build bar chart: %w", err)
	}
	up.Color = colorIncrease
	up.LineStyle.Width = 0

	down, err := plotter.NewBarChart(neg, width)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build bar chart: %w", err)
	}
	down.Color = colorDecrease
	down.LineStyle.Width = 0
	return up, down, nil
}

func thresholdLine(y float64, n int) (*plotter.Line, error) {
	line, err := plotter.NewLine(plotter.XYs{
		{X: -0.5, Y: y},
		{X: float64(n) - 0.5, Y: y},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build threshold line: %w", err)
	}
	line.LineStyle.Color = color.Gray{Y: 96}
	line.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
	return line, nil
}

func absOrZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Abs(v)
}
