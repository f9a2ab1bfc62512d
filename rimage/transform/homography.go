// Package transform estimates planar homographies from point correspondences and uses them to
// remap images.
package transform

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 matrix used to transform a plane from the perspective of one 2D camera to
// the perspective of another. A point (x, y) maps to (u/w, v/w) where (u, v, w) = H (x, y, 1).
// Homographies that differ by a nonzero scale are equivalent. A Homography is never mutated
// after construction.
type Homography struct {
	matrix *mat.Dense
}

// NewHomography creates a Homography from 9 values in row-major order.
func NewHomography(vals []float64) (*Homography, error) {
	if len(vals) != 9 {
		return nil, errors.Errorf("input to NewHomography must have length of 9. Has length of %d", len(vals))
	}
	data := make([]float64, 9)
	copy(data, vals)
	return &Homography{mat.NewDense(3, 3, data)}, nil
}

// NewHomographyFromMatrix copies a 3x3 matrix into a Homography.
func NewHomographyFromMatrix(m mat.Matrix) (*Homography, error) {
	if r, c := m.Dims(); r != 3 || c != 3 {
		return nil, errors.Errorf("homography matrix must be 3x3, got %dx%d", r, c)
	}
	return &Homography{mat.DenseCopyOf(m)}, nil
}

// Identity returns the identity homography.
func Identity() *Homography {
	return &Homography{eye(3)}
}

// NewTranslation returns the homography moving every point by (tx, ty).
func NewTranslation(tx, ty float64) *Homography {
	return &Homography{mat.NewDense(3, 3, []float64{
		1, 0, tx,
		0, 1, ty,
		0, 0, 1,
	})}
}

// At returns the entry at [row][col].
func (h *Homography) At(row, col int) float64 {
	return h.matrix.At(row, col)
}

// Values returns the 9 entries in row-major order.
func (h *Homography) Values() []float64 {
	out := make([]float64, 9)
	copy(out, h.matrix.RawMatrix().Data)
	return out
}

// Matrix returns a copy of the underlying matrix.
func (h *Homography) Matrix() *mat.Dense {
	return mat.DenseCopyOf(h.matrix)
}

// Apply maps a point through the homography, dividing by the homogeneous coordinate. A point
// mapped to infinity yields non-finite coordinates.
func (h *Homography) Apply(pt r2.Point) r2.Point {
	x := h.At(0, 0)*pt.X + h.At(0, 1)*pt.Y + h.At(0, 2)
	y := h.At(1, 0)*pt.X + h.At(1, 1)*pt.Y + h.At(1, 2)
	z := h.At(2, 0)*pt.X + h.At(2, 1)*pt.Y + h.At(2, 2)
	return r2.Point{X: x / z, Y: y / z}
}

// ApplyAll maps every point through the homography.
func (h *Homography) ApplyAll(pts []r2.Point) []r2.Point {
	out := make([]r2.Point, len(pts))
	for i, pt := range pts {
		out[i] = h.Apply(pt)
	}
	return out
}

// Inverse returns the inverse homography. ErrSingularHomography is returned when the determinant
// is zero or not finite.
func (h *Homography) Inverse() (*Homography, error) {
	det := mat.Det(h.matrix)
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return nil, errors.Wrapf(ErrSingularHomography, "determinant is %v", det)
	}
	var inv mat.Dense
	if err := inv.Inverse(h.matrix); err != nil {
		// A finite condition number only warns about precision; the inverse is still usable.
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, errors.Wrap(ErrSingularHomography, err.Error())
		}
	}
	return &Homography{&inv}, nil
}

// Mul returns the product h * other, the homography that applies other first and then h.
func (h *Homography) Mul(other *Homography) *Homography {
	var out mat.Dense
	out.Mul(h.matrix, other.matrix)
	return &Homography{&out}
}

// FrobeniusNorm returns the square root of the sum of squared entries.
func (h *Homography) FrobeniusNorm() float64 {
	return mat.Norm(h.matrix, 2)
}

// UnitNorm returns the equivalent homography with unit Frobenius norm. The zero matrix is
// returned unchanged.
func (h *Homography) UnitNorm() *Homography {
	norm := h.FrobeniusNorm()
	if norm == 0 {
		return &Homography{mat.DenseCopyOf(h.matrix)}
	}
	var out mat.Dense
	out.Scale(1/norm, h.matrix)
	return &Homography{&out}
}

// Canonical returns the unit norm representative whose largest magnitude entry is positive.
// Equivalent homographies share a canonical form.
func (h *Homography) Canonical() *Homography {
	unit := h.UnitNorm()
	largest := 0.0
	for _, v := range unit.matrix.RawMatrix().Data {
		if math.Abs(v) > math.Abs(largest) {
			largest = v
		}
	}
	if largest < 0 {
		unit.matrix.Scale(-1, unit.matrix)
	}
	return unit
}

// Equivalent reports whether h and other describe the same mapping up to scale, comparing
// canonical forms entry by entry within tol.
func (h *Homography) Equivalent(other *Homography, tol float64) bool {
	return mat.EqualApprox(h.Canonical().matrix, other.Canonical().matrix, tol)
}

// String formats the matrix over three lines.
func (h *Homography) String() string {
	return fmt.Sprintf("%v", mat.Formatted(h.matrix, mat.Squeeze()))
}

// MarshalJSON encodes the homography as its 9 row-major values.
func (h *Homography) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Values())
}

// UnmarshalJSON decodes 9 row-major values.
func (h *Homography) UnmarshalJSON(data []byte) error {
	var vals []float64
	if err := json.Unmarshal(data, &vals); err != nil {
		return err
	}
	parsed, err := NewHomography(vals)
	if err != nil {
		return err
	}
	*h = *parsed
	return nil
}
