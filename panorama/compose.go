// Package panorama stitches a source image onto a destination image using a homography fit
// robustly to point correspondences between them.
package panorama

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/stitch/logging"
	"go.viam.com/stitch/rimage"
	"go.viam.com/stitch/rimage/transform"
)

// Result is a panorama and the geometry that produced it.
type Result struct {
	Panorama *rimage.Image
	// Homography maps source pixels to destination pixels.
	Homography *transform.Homography
	// Backward maps canvas pixels to source pixels.
	Backward *transform.Homography
	Padding  Padding
	Report   transform.InlierReport
	Trials   int
}

// Compose fits a homography from src to dst and paints both images onto one canvas: the
// destination image unchanged at its padding offset, and the warped source everywhere else.
func Compose(src, dst *rimage.Image, srcPts, dstPts []r2.Point, config Config, logger logging.Logger) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	fit, err := transform.FitHomographyRANSAC(srcPts, dstPts, config.RANSACConfig(), logger.Sublogger("ransac"))
	if err != nil {
		return nil, errors.Wrap(err, "cannot fit homography")
	}

	rows, cols, pad, err := PlanCanvas(src.Width(), src.Height(), dst.Width(), dst.Height(), fit.Homography)
	if err != nil {
		return nil, err
	}
	logger.Debugw("planned canvas", "rows", rows, "cols", cols, "padding", pad)

	back, err := fit.Homography.Inverse()
	if err != nil {
		return nil, errors.Wrap(err, "cannot invert homography")
	}
	back = TranslateBackwardHomography(back, pad.Left, pad.Up)

	canvas := transform.BackwardWarp(back, src, cols, rows)
	canvas.Paste(dst, image.Point{pad.Left, pad.Up})

	logger.Infow("composed panorama", "width", cols, "height", rows,
		"fit", fit.Report.FitPercent, "mse", fit.Report.DistMSE)
	return &Result{
		Panorama:   canvas,
		Homography: fit.Homography,
		Backward:   back,
		Padding:    pad,
		Report:     fit.Report,
		Trials:     fit.Trials,
	}, nil
}

// Stitch is Compose with default settings apart from the inlier probability and threshold.
func Stitch(src, dst *rimage.Image, srcPts, dstPts []r2.Point, inlierProb, maxErr float64) (*rimage.Image, error) {
	config := DefaultConfig()
	config.InlierProb = inlierProb
	config.MaxErr = maxErr
	result, err := Compose(src, dst, srcPts, dstPts, config, logging.NewBlankLogger("panorama"))
	if err != nil {
		return nil, err
	}
	return result.Panorama, nil
}
