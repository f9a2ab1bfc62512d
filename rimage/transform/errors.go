package transform

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

var (
	// ErrMismatchedCorrespondences is returned when the source and destination point sets differ in length.
	ErrMismatchedCorrespondences = errors.New("source and destination point sets must have the same number of elements")
	// ErrInsufficientCorrespondences is returned when fewer points are given than an estimate needs.
	ErrInsufficientCorrespondences = errors.New("insufficient correspondences")
	// ErrNoCorrespondences is returned when scoring an empty correspondence set.
	ErrNoCorrespondences = errors.New("no correspondences to evaluate")
	// ErrDegenerateConfiguration is returned when the points do not determine a homography.
	ErrDegenerateConfiguration = errors.New("degenerate point configuration")
	// ErrSingularHomography is returned when a homography has no inverse.
	ErrSingularHomography = errors.New("homography is singular")
)

// checkCorrespondences validates that src and dst pair up and hold at least minPoints entries.
func checkCorrespondences(src, dst []r2.Point, minPoints int) error {
	if len(src) != len(dst) {
		return errors.Wrapf(ErrMismatchedCorrespondences, "got %d and %d", len(src), len(dst))
	}
	if len(src) == 0 && minPoints <= 1 {
		return ErrNoCorrespondences
	}
	if len(src) < minPoints {
		return errors.Wrapf(ErrInsufficientCorrespondences, "need at least %d, got %d", minPoints, len(src))
	}
	return nil
}
