package panorama

import (
	"fmt"
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/stitch/rimage/transform"
)

const (
	residualBins   = 20
	histogramWidth = 40
)

var errNoFiniteResiduals = errors.New("no finite residuals to plot")

// PrintResidualHistogram writes a text histogram of the finite residuals to w.
func PrintResidualHistogram(w io.Writer, residuals []float64) error {
	finite := transform.FiniteResiduals(residuals)
	if len(finite) == 0 {
		return errNoFiniteResiduals
	}
	if lo.Min(finite) == lo.Max(finite) {
		_, err := fmt.Fprintf(w, "%d residuals, all %.4g\n", len(finite), finite[0])
		return err
	}
	return histogram.Fprint(w, histogram.Hist(residualBins, finite), histogram.Linear(histogramWidth))
}

// PlotResiduals saves a histogram of the finite residuals with a vertical marker at the inlier
// threshold. The format follows the file extension (png, svg, pdf, ...).
func PlotResiduals(residuals []float64, maxErr float64, path string) error {
	finite := plotter.Values(transform.FiniteResiduals(residuals))
	if len(finite) == 0 {
		return errNoFiniteResiduals
	}

	p := plot.New()
	p.Title.Text = "correspondence residuals"
	p.X.Label.Text = "distance (px)"
	p.Y.Label.Text = "count"

	hist, err := plotter.NewHist(finite, residualBins)
	if err != nil {
		return errors.Wrap(err, "cannot build histogram")
	}
	p.Add(hist)

	threshold, err := plotter.NewLine(plotter.XYs{
		{X: maxErr, Y: 0},
		{X: maxErr, Y: float64(len(finite))},
	})
	if err != nil {
		return errors.Wrap(err, "cannot build threshold marker")
	}
	p.Add(threshold)
	p.Legend.Add("max_err", threshold)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "cannot save plot %q", path)
	}
	return nil
}
