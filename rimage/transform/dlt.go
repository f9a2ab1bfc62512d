package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MinCorrespondences is the number of point pairs that determine a homography.
const MinCorrespondences = 4

type estimateOptions struct {
	eigen     bool
	normalize bool
}

// EstimateOption configures EstimateHomography.
type EstimateOption func(*estimateOptions)

// WithEigenSolver solves for the homography through the eigenvector of AᵗA with the smallest
// eigenvalue instead of the SVD of A. Squaring A loses precision on poorly conditioned inputs.
func WithEigenSolver() EstimateOption {
	return func(o *estimateOptions) {
		o.eigen = true
	}
}

// WithNormalization conditions both point sets (centroid at the origin, mean distance sqrt(2))
// before solving and undoes it afterwards.
func WithNormalization() EstimateOption {
	return func(o *estimateOptions) {
		o.normalize = true
	}
}

// EstimateHomography computes the homography mapping src[i] to dst[i] with the direct linear
// transform. With exactly 4 points in general position the fit is exact; with more it is the
// algebraic least squares fit. The result has unit Frobenius norm and arbitrary sign.
func EstimateHomography(src, dst []r2.Point, opts ...EstimateOption) (*Homography, error) {
	if err := checkCorrespondences(src, dst, MinCorrespondences); err != nil {
		return nil, err
	}
	var o estimateOptions
	for _, opt := range opts {
		opt(&o)
	}

	srcPts, dstPts := src, dst
	var srcT, dstT *mat.Dense
	if o.normalize {
		var err error
		if srcPts, srcT, err = normalizePoints(src); err != nil {
			return nil, err
		}
		if dstPts, dstT, err = normalizePoints(dst); err != nil {
			return nil, err
		}
	}

	a := dltSystem(srcPts, dstPts)
	var h []float64
	var err error
	if o.eigen {
		h, err = smallestEigenvectorOfGram(a)
	} else {
		h, err = smallestRightSingularVector(a)
	}
	if err != nil {
		return nil, err
	}

	hm := mat.NewDense(3, 3, h)
	if o.normalize {
		// H = T_dst⁻¹ * Ĥ * T_src
		var dstTInv mat.Dense
		if err := dstTInv.Inverse(dstT); err != nil {
			return nil, errors.Wrap(ErrDegenerateConfiguration, err.Error())
		}
		hm.Mul(&dstTInv, hm)
		hm.Mul(hm, srcT)
	}

	for _, v := range hm.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Wrap(ErrDegenerateConfiguration, "estimate is not finite")
		}
	}
	return (&Homography{hm}).UnitNorm(), nil
}

// dltSystem stacks two rows per correspondence (x, y) -> (u, v):
//
//	[x, y, 1, 0, 0, 0, -u*x, -u*y, -u]
//	[0, 0, 0, x, y, 1, -v*x, -v*y, -v]
func dltSystem(src, dst []r2.Point) *mat.Dense {
	a := mat.NewDense(2*len(src), 9, nil)
	for i := range src {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y, -u})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y, -v})
	}
	return a
}
