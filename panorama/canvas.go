package panorama

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/stitch/rimage"
	"go.viam.com/stitch/rimage/transform"
)

// ErrUnboundedCanvas is returned when a source corner maps to infinity, or so far away that the
// canvas would exceed MaxCanvasPixels.
var ErrUnboundedCanvas = errors.New("source image maps to an unbounded region")

// MaxCanvasPixels is the largest canvas PlanCanvas will plan.
const MaxCanvasPixels = 1 << 28

// Padding is how far, in pixels, the canvas extends past each side of the destination image.
type Padding struct {
	Up    int `json:"up"`
	Down  int `json:"down"`
	Left  int `json:"left"`
	Right int `json:"right"`
}

// PlanCanvas computes the canvas that holds the destination image and the source image mapped
// into it through h. The source corners, in 1-indexed pixel coordinates, are projected and the
// destination extended to cover them. rows and cols truncate the real-valued extents, and each
// Padding field truncates its own extent, so rows >= dstHeight + Up + Down (likewise cols).
func PlanCanvas(srcWidth, srcHeight, dstWidth, dstHeight int, h *transform.Homography) (rows, cols int, pad Padding, err error) {
	var up, down, left, right float64
	dstW, dstH := float64(dstWidth), float64(dstHeight)
	for _, corner := range rimage.Corners(srcWidth, srcHeight) {
		p := h.Apply(corner)
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return 0, 0, Padding{}, errors.Wrapf(ErrUnboundedCanvas, "corner %v", corner)
		}
		if p.Y < 1 {
			up = math.Max(up, math.Abs(p.Y))
		}
		if p.Y > dstH {
			down = math.Max(down, p.Y-dstH)
		}
		if p.X < 1 {
			left = math.Max(left, math.Abs(p.X))
		}
		if p.X > dstW {
			right = math.Max(right, p.X-dstW)
		}
	}

	rowsF, colsF := dstH+up+down, dstW+left+right
	if rowsF > MaxCanvasPixels || colsF > MaxCanvasPixels || rowsF*colsF > MaxCanvasPixels {
		return 0, 0, Padding{}, errors.Wrapf(ErrUnboundedCanvas, "canvas would be %.4g x %.4g", colsF, rowsF)
	}
	rows = int(rowsF)
	cols = int(colsF)
	pad = Padding{Up: int(up), Down: int(down), Left: int(left), Right: int(right)}
	return rows, cols, pad, nil
}

// TranslateBackwardHomography adapts back, a destination to source homography, to canvas
// coordinates: canvas pixel (x, y) is destination pixel (x - padLeft, y - padUp). The result is
// scaled to unit Frobenius norm.
func TranslateBackwardHomography(back *transform.Homography, padLeft, padUp int) *transform.Homography {
	return back.Mul(transform.NewTranslation(-float64(padLeft), -float64(padUp))).UnitNorm()
}
