package transform

import (
	"math"

	"gonum.org/v1/gonum/interp"

	"go.viam.com/stitch/rimage"
)

// CubicInterpolator treats the pixels of an image as samples of a smooth surface per channel and
// evaluates that surface anywhere inside the sample hull [0, W-1] x [0, H-1]. Each grid cell is a
// bicubic Hermite patch whose vertex values, first derivatives and cross derivative are shared
// with its neighbors, so the surface is C1. Derivatives come from Akima splines along rows and
// columns. Affine intensity ramps are reproduced exactly. Values are not bit-compatible with a
// Clough-Tocher interpolant over a triangulation of the pixel centers, which agrees only on the
// hull, the fill value outside it and the exact ramps.
//
// Building the interpolator is linear in the number of pixels; it is safe for concurrent use.
type CubicInterpolator struct {
	width, height int
	// per channel, row-major: value, d/dx, d/dy, d2/dxdy
	f, fx, fy, fxy [rimage.Channels][]float64
}

// NewCubicInterpolator precomputes the surface of img.
func NewCubicInterpolator(img *rimage.Image) *CubicInterpolator {
	w, h := img.Width(), img.Height()
	ci := &CubicInterpolator{width: w, height: h}
	for ch := 0; ch < rimage.Channels; ch++ {
		f := make([]float64, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				f[y*w+x] = float64(img.Sample(x, y, ch))
			}
		}
		ci.f[ch] = f
		ci.fx[ch] = gridDerivative(f, w, h, true)
		ci.fy[ch] = gridDerivative(f, w, h, false)
		ci.fxy[ch] = gridDerivative(ci.fx[ch], w, h, false)
	}
	return ci
}

// gridDerivative differentiates a row-major w x h grid along x (alongX) or y.
func gridDerivative(vals []float64, w, h int, alongX bool) []float64 {
	out := make([]float64, len(vals))
	n, lines := h, w
	if alongX {
		n, lines = w, h
	}
	index := func(line, i int) int {
		if alongX {
			return line*w + i
		}
		return i*w + line
	}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	ys := make([]float64, n)
	derivs := make([]float64, n)
	for line := 0; line < lines; line++ {
		for i := range ys {
			ys[i] = vals[index(line, i)]
		}
		derivative1D(xs, ys, derivs)
		for i, d := range derivs {
			out[index(line, i)] = d
		}
	}
	return out
}

// derivative1D writes the slope of unit spaced samples ys at every knot into out.
func derivative1D(xs, ys, out []float64) {
	switch len(ys) {
	case 0:
		return
	case 1:
		out[0] = 0
		return
	case 2:
		out[0] = ys[1] - ys[0]
		out[1] = out[0]
		return
	}
	var spline interp.AkimaSpline
	if err := spline.Fit(xs, ys); err != nil {
		// Fit only rejects malformed knots, which unit spaced xs never are.
		panic(err)
	}
	for i, x := range xs {
		out[i] = spline.PredictDerivative(x)
	}
}

// Bounds returns the size of the sampled image.
func (ci *CubicInterpolator) Bounds() (width, height int) {
	return ci.width, ci.height
}

// InHull reports whether (x, y) lies within the convex hull of the samples.
func (ci *CubicInterpolator) InHull(x, y float64) bool {
	return x >= 0 && y >= 0 && x <= float64(ci.width-1) && y <= float64(ci.height-1)
}

// Interpolate evaluates every channel at (x, y) into out. It returns false, leaving out at zero,
// when the point is outside the hull.
func (ci *CubicInterpolator) Interpolate(x, y float64, out *[rimage.Channels]float64) bool {
	*out = [rimage.Channels]float64{}
	if !ci.InHull(x, y) {
		return false
	}

	x0, t := cell(x, ci.width)
	y0, u := cell(y, ci.height)
	x1 := min(x0+1, ci.width-1)
	y1 := min(y0+1, ci.height-1)

	// Hermite basis along x and y.
	h00t, h10t, h01t, h11t := hermite(t)
	h00u, h10u, h01u, h11u := hermite(u)

	k00 := y0*ci.width + x0
	k10 := y0*ci.width + x1
	k01 := y1*ci.width + x0
	k11 := y1*ci.width + x1

	for ch := 0; ch < rimage.Channels; ch++ {
		f, fx, fy, fxy := ci.f[ch], ci.fx[ch], ci.fy[ch], ci.fxy[ch]
		out[ch] = f[k00]*h00t*h00u + f[k10]*h01t*h00u + f[k01]*h00t*h01u + f[k11]*h01t*h01u +
			fx[k00]*h10t*h00u + fx[k10]*h11t*h00u + fx[k01]*h10t*h01u + fx[k11]*h11t*h01u +
			fy[k00]*h00t*h10u + fy[k10]*h01t*h10u + fy[k01]*h00t*h11u + fy[k11]*h01t*h11u +
			fxy[k00]*h10t*h10u + fxy[k10]*h11t*h10u + fxy[k01]*h10t*h11u + fxy[k11]*h11t*h11u
	}
	return true
}

// cell returns the lower knot of the unit cell holding v and the offset of v into it. The last
// knot belongs to the cell before it.
func cell(v float64, n int) (int, float64) {
	i := int(math.Floor(v))
	if i >= n-1 {
		i = max(n-2, 0)
	}
	return i, v - float64(i)
}

// hermite returns the cubic Hermite basis h00, h10, h01, h11 at t.
func hermite(t float64) (float64, float64, float64, float64) {
	t2 := t * t
	t3 := t2 * t
	return 2*t3 - 3*t2 + 1, t3 - 2*t2 + t, -2*t3 + 3*t2, t3 - t2
}
