package transform

import (
	"image"

	"github.com/golang/geo/r2"

	"go.viam.com/stitch/rimage"
	"go.viam.com/stitch/utils"
)

// ForwardWarp splats every source pixel to the destination pixel nearest to its image under h.
// Source pixels are visited column by column (x outer, y inner) and a later write to the same
// destination pixel replaces an earlier one. Destination pixels that no source pixel lands on
// stay black, so enlarging warps leave holes.
func ForwardWarp(h *Homography, src *rimage.Image, width, height int) *rimage.Image {
	dst := rimage.NewImage(width, height)
	for x := 0; x < src.Width(); x++ {
		for y := 0; y < src.Height(); y++ {
			mapped := h.Apply(r2.Point{X: float64(x), Y: float64(y)})
			if !isFinitePoint(mapped) {
				continue
			}
			p := rimage.RoundPoint(mapped)
			if dst.In(p.X, p.Y) {
				dst.Set(p, src.GetXY(x, y))
			}
		}
	}
	return dst
}

// BackwardWarp fills each destination pixel by mapping it through back, the destination to
// source homography, and interpolating the source there. Pixels whose preimage rounds outside the
// source, or falls outside the hull of its pixel centers, are black.
func BackwardWarp(back *Homography, src *rimage.Image, width, height int) *rimage.Image {
	return BackwardWarpInterpolated(back, NewCubicInterpolator(src), width, height)
}

// BackwardWarpInterpolated is BackwardWarp over a prebuilt interpolator, for warping one source
// several times.
func BackwardWarpInterpolated(back *Homography, ci *CubicInterpolator, width, height int) *rimage.Image {
	dst := rimage.NewImage(width, height)
	srcWidth, srcHeight := ci.Bounds()
	utils.ParallelForEachPixel(image.Point{width, height}, func(x, y int) {
		mapped := back.Apply(r2.Point{X: float64(x), Y: float64(y)})
		if !isFinitePoint(mapped) {
			return
		}
		p := rimage.RoundPoint(mapped)
		if p.X < 0 || p.Y < 0 || p.X >= srcWidth || p.Y >= srcHeight {
			return
		}
		var vals [rimage.Channels]float64
		if !ci.Interpolate(mapped.X, mapped.Y, &vals) {
			return
		}
		var c rimage.Color
		for ch, v := range vals {
			c[ch] = utils.ClampToUint8(v)
		}
		dst.SetXY(x, y, c)
	})
	return dst
}
