// Package chart renders the dashboard charts as PNG images with gonum/plot.
package chart

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/iwvelando/icms-educacional/internal/dashboard"
	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/measure"
	"github.com/iwvelando/icms-educacional/pkg/revenue"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const format = "png"

var (
	width  = 10 * vg.Inch
	height = 6 * vg.Inch

	observedColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	fitColor       = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	highlightColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Trend draws the composite index history of view together with its trend
// line, which extends one year past the last observation.
func Trend(w io.Writer, view dashboard.IndicatorView) error {
	var points plotter.XYs
	for _, h := range view.History {
		if h.Value.Defined() {
			points = append(points, plotter.XY{X: float64(h.Year), Y: h.Value.Number})
		}
	}
	if len(points) == 0 {
		return fmt.Errorf("no index history for %s: %w", view.Municipality, measure.ErrInsufficientData)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("IQE: %s", view.Municipality)
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = "Ano-Referência"
	p.Y.Label.Text = "IQE"
	p.Add(plotter.NewGrid())

	history, marks, err := plotter.NewLinePoints(points)
	if err != nil {
		return err
	}
	history.Color = observedColor
	history.Width = vg.Points(2)
	marks.GlyphStyle.Color = observedColor
	marks.GlyphStyle.Shape = draw.CircleGlyph{}
	marks.GlyphStyle.Radius = vg.Points(4)
	p.Add(history, marks)
	p.Legend.Add("IQE", history, marks)

	if view.Trend != nil {
		line := make(plotter.XYs, len(view.Trend.Line))
		for i, pt := range view.Trend.Line {
			line[i] = plotter.XY{X: float64(pt.Year), Y: pt.Value}
		}
		fit, err := plotter.NewLine(line)
		if err != nil {
			return err
		}
		fit.Color = fitColor
		fit.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(fit)
		p.Legend.Add(fmt.Sprintf("Tendência (%s)", view.Trend.Direction), fit)
	}
	p.Legend.Top = true

	return write(w, p)
}

// RevenueFit draws the index-revenue scatter of one reference year with the
// fitted line across [0,1]. The highlighted municipality, when present among
// the observations, is drawn in a distinct color.
func RevenueFit(w io.Writer, model revenue.Model, observations []revenue.Observation, highlight string) error {
	if len(observations) == 0 {
		return fmt.Errorf("no observations for %d: %w", model.ReferenceYear, measure.ErrInsufficientData)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("IQE x ICMS Educacional %d (repasse %d), R² %s",
		model.ReferenceYear, model.TransferYear, rSquared(model.RSquared))
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = "IQE"
	p.Y.Label.Text = "ICMS Educacional estimado (R$)"
	p.Add(plotter.NewGrid())

	var others, selected plotter.XYs
	var selectedLabel []string
	for _, o := range observations {
		xy := plotter.XY{X: o.Index, Y: o.Revenue}
		if highlight != "" && dataset.NameKey(o.Municipality) == dataset.NameKey(highlight) {
			selected = append(selected, xy)
			selectedLabel = append(selectedLabel, o.Municipality)
			continue
		}
		others = append(others, xy)
	}

	if len(others) > 0 {
		scatter, err := plotter.NewScatter(others)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = observedColor
		scatter.GlyphStyle.Radius = vg.Points(3)
		p.Add(scatter)
		p.Legend.Add("Municípios", scatter)
	}

	fitLine := model.Line(0, 1, 2)
	line := make(plotter.XYs, len(fitLine))
	for i, o := range fitLine {
		line[i] = plotter.XY{X: o.Index, Y: o.Revenue}
	}
	fit, err := plotter.NewLine(line)
	if err != nil {
		return err
	}
	fit.Color = fitColor
	fit.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
	p.Add(fit)
	p.Legend.Add("Ajuste linear", fit)

	if len(selected) > 0 {
		scatter, err := plotter.NewScatter(selected)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = highlightColor
		scatter.GlyphStyle.Radius = vg.Points(6)
		p.Add(scatter)

		labels, err := plotter.NewLabels(plotter.XYLabels{XYs: selected, Labels: selectedLabel})
		if err != nil {
			return err
		}
		p.Add(labels)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	return write(w, p)
}

// SaveFile renders a chart into dir/name.
func SaveFile(dir, name string, render func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}

func write(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

func rSquared(v measure.Value) string {
	if !v.Defined() {
		return "indefinido"
	}
	return fmt.Sprintf("%.3f", v.Number)
}
