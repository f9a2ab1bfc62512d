package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/stitch/utils"
)

// NoInlierMSE is the mean squared error reported when no correspondence is an inlier.
const NoInlierMSE = 1e9

// InlierReport is the quality of a homography against a correspondence set.
type InlierReport struct {
	// FitPercent is the fraction of correspondences, in [0, 1], that are inliers.
	FitPercent float64 `json:"fit_percent"`
	// DistMSE is the mean squared distance over inliers, NoInlierMSE if there are none.
	DistMSE float64 `json:"dist_mse"`
	Inliers int     `json:"inliers"`
	Total   int     `json:"total"`
}

// Residuals returns, for every correspondence, the distance between dst[i] and src[i] mapped
// through h and snapped to the nearest pixel. A point mapped to infinity has an infinite
// residual.
func Residuals(h *Homography, src, dst []r2.Point) ([]float64, error) {
	if err := checkCorrespondences(src, dst, 1); err != nil {
		return nil, err
	}
	return residuals(h, src, dst), nil
}

func residuals(h *Homography, src, dst []r2.Point) []float64 {
	out := make([]float64, len(src))
	for i := range src {
		projected := h.Apply(src[i])
		if !isFinitePoint(projected) {
			out[i] = math.Inf(1)
			continue
		}
		snapped := r2.Point{X: math.RoundToEven(projected.X), Y: math.RoundToEven(projected.Y)}
		out[i] = snapped.Sub(dst[i]).Norm()
	}
	return out
}

// ScoreHomography measures how well h maps src onto dst. A correspondence is an inlier when its
// residual is strictly less than maxErr.
func ScoreHomography(h *Homography, src, dst []r2.Point, maxErr float64) (InlierReport, error) {
	if err := checkCorrespondences(src, dst, 1); err != nil {
		return InlierReport{}, err
	}
	return scoreResiduals(residuals(h, src, dst), maxErr), nil
}

func scoreResiduals(dists []float64, maxErr float64) InlierReport {
	report := InlierReport{Total: len(dists)}
	sumSq := 0.0
	for _, d := range dists {
		if d < maxErr {
			report.Inliers++
			sumSq += utils.Square(d)
		}
	}
	report.FitPercent = float64(report.Inliers) / float64(report.Total)
	if report.Inliers == 0 {
		report.DistMSE = NoInlierMSE
	} else {
		report.DistMSE = sumSq / float64(report.Inliers)
	}
	return report
}

// PartitionInliers returns the correspondences h maps within maxErr, preserving their order.
func PartitionInliers(h *Homography, src, dst []r2.Point, maxErr float64) ([]r2.Point, []r2.Point, error) {
	if err := checkCorrespondences(src, dst, 1); err != nil {
		return nil, nil, err
	}
	dists := residuals(h, src, dst)
	isInlier := func(_ r2.Point, i int) bool {
		return dists[i] < maxErr
	}
	return lo.Filter(src, isInlier), lo.Filter(dst, isInlier), nil
}

// ResidualSummary extends an InlierReport with the distribution of the finite residuals.
type ResidualSummary struct {
	InlierReport
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
	// NonFinite counts correspondences whose source point maps to infinity. They are left out of
	// Median, P95 and Max, which stay zero when nothing is finite.
	NonFinite int `json:"non_finite"`
}

// FiniteResiduals returns the residuals that are neither infinite nor NaN.
func FiniteResiduals(residuals []float64) []float64 {
	return lo.Filter(residuals, func(r float64, _ int) bool {
		return !math.IsInf(r, 0) && !math.IsNaN(r)
	})
}

// SummarizeResiduals scores h and describes its residual distribution.
func SummarizeResiduals(h *Homography, src, dst []r2.Point, maxErr float64) (ResidualSummary, error) {
	if err := checkCorrespondences(src, dst, 1); err != nil {
		return ResidualSummary{}, err
	}
	dists := residuals(h, src, dst)
	summary := ResidualSummary{InlierReport: scoreResiduals(dists, maxErr)}
	finite := FiniteResiduals(dists)
	summary.NonFinite = len(dists) - len(finite)
	if len(finite) == 0 {
		return summary, nil
	}

	var err error
	if summary.Median, err = stats.Median(finite); err != nil {
		return ResidualSummary{}, errors.Wrap(err, "median residual")
	}
	if summary.P95, err = stats.Percentile(finite, 95); err != nil {
		return ResidualSummary{}, errors.Wrap(err, "95th percentile residual")
	}
	if summary.Max, err = stats.Max(finite); err != nil {
		return ResidualSummary{}, errors.Wrap(err, "max residual")
	}
	return summary, nil
}

func isFinitePoint(p r2.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
