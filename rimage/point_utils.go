package rimage

import (
	"image"

	"github.com/golang/geo/r2"

	"go.viam.com/stitch/utils"
)

// PointDistance is the Euclidean distance between a and b.
func PointDistance(a, b r2.Point) float64 {
	return a.Sub(b).Norm()
}

// RoundPoint snaps a real-valued point to the nearest pixel, ties to even.
func RoundPoint(p r2.Point) image.Point {
	return image.Point{utils.RoundHalfEven(p.X), utils.RoundHalfEven(p.Y)}
}

// Corners returns the four corners of a width x height image in 1-indexed pixel coordinates:
// top-left, top-right, bottom-left, bottom-right.
func Corners(width, height int) []r2.Point {
	w, h := float64(width), float64(height)
	return []r2.Point{
		{X: 1, Y: 1},
		{X: w, Y: 1},
		{X: 1, Y: h},
		{X: w, Y: h},
	}
}

// BoundingBox returns the smallest closed rectangle holding every point.
func BoundingBox(pts []r2.Point) r2.Rect {
	return r2.RectFromPoints(pts...)
}

// AllPointsWithin reports whether every point lies in the closed rectangle.
func AllPointsWithin(rect r2.Rect, pts []r2.Point) bool {
	for _, p := range pts {
		if !rect.ContainsPoint(p) {
			return false
		}
	}
	return true
}
