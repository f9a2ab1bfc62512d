package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// normalizePoints normalizes points as described in Multiple View Geometry, Alg 4.2: the
// centroid moves to the origin and the mean distance to it becomes sqrt(2). The similarity T
// with normalized = T * pt is returned alongside the points.
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense, error) {
	nPoints := len(pts)
	// compute centroid of points
	mu := r2.Point{X: 0, Y: 0}
	for _, pt := range pts {
		mu = mu.Add(pt)
	}
	mu = mu.Mul(1. / float64(nPoints))
	// compute scale factor
	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(mu).Norm() / float64(nPoints)
	}
	if d == 0 {
		return nil, nil, errors.Wrap(ErrDegenerateConfiguration, "all points coincide")
	}
	scale := math.Sqrt(2) / d
	transformData := []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	}
	T := mat.NewDense(3, 3, transformData)
	// apply transform to points
	pointsTransformed := make([]r2.Point, nPoints)
	for i := range pointsTransformed {
		pointsTransformed[i] = pts[i].Sub(mu).Mul(scale)
	}
	return pointsTransformed, T, nil
}

// eye create an identity matrix of size nxn.
func eye(n int) *mat.Dense {
	if n <= 0 {
		return nil
	}
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// matsSVD stores the right singular vectors and singular values of an SVD decomposition.
type matsSVD struct {
	V *mat.Dense
	S []float64
}

// performSVD performs SVD on inputMatrix and returns V and the singular values in decreasing
// order. U is not computed. Returns nil if the factorization fails.
func performSVD(inputMatrix mat.Matrix) *matsSVD {
	var svd mat.SVD
	ok := svd.Factorize(inputMatrix, mat.SVDFullV)
	if !ok {
		return nil
	}

	v := &mat.Dense{}
	svd.VTo(v)
	return &matsSVD{V: v, S: svd.Values(nil)}
}

// smallestRightSingularVector returns the unit vector x minimizing |A x|, the column of V
// belonging to the smallest singular value. For a wide A that is the last column.
func smallestRightSingularVector(a *mat.Dense) ([]float64, error) {
	mats := performSVD(a)
	if mats == nil {
		return nil, errors.Wrap(ErrDegenerateConfiguration, "svd failed to converge")
	}
	_, nCols := mats.V.Dims()
	return mat.Col(nil, nCols-1, mats.V), nil
}

// smallestEigenvectorOfGram returns the eigenvector of the smallest eigenvalue of AᵗA.
func smallestEigenvectorOfGram(a *mat.Dense) ([]float64, error) {
	_, nCols := a.Dims()
	gram := mat.NewSymDense(nCols, nil)
	gram.SymOuterK(1, a.T())

	var eig mat.EigenSym
	if ok := eig.Factorize(gram, true); !ok {
		return nil, errors.Wrap(ErrDegenerateConfiguration, "eigen decomposition failed to converge")
	}
	values := eig.Values(nil)
	minIdx := 0
	for i, v := range values {
		if v < values[minIdx] {
			minIdx = i
		}
	}
	var vectors mat.Dense
	eig.VectorsTo(&vectors)
	return mat.Col(nil, minIdx, &vectors), nil
}
