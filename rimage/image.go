// Package rimage holds the dense RGB image type the panorama pipeline reads and writes.
package rimage

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// Channels is the number of 8-bit samples stored per pixel.
const Channels = 3

// Color is a single RGB pixel.
type Color [Channels]uint8

// NewColor returns the pixel (r, g, b).
func NewColor(r, g, b uint8) Color {
	return Color{r, g, b}
}

// NewColorFromColor converts any color to an RGB pixel, dropping alpha.
func NewColorFromColor(c color.Color) Color {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return Color{rgba.R, rgba.G, rgba.B}
}

// RGBA implements color.Color; pixels are fully opaque.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.RGBA{c[0], c[1], c[2], 0xff}.RGBA()
}

// Image is a width x height grid of RGB pixels stored row-major with rows top to bottom.
// The zero pixel is black.
type Image struct {
	data          []uint8
	width, height int
}

// NewImage returns a black image of the given size.
func NewImage(width, height int) *Image {
	if width < 0 || height < 0 {
		panic(errors.Errorf("invalid image size %dx%d", width, height))
	}
	return &Image{
		data:   make([]uint8, width*height*Channels),
		width:  width,
		height: height,
	}
}

// NewImageFromBounds returns a black image as large as the bounds' extent.
func NewImageFromBounds(bounds image.Rectangle) *Image {
	return NewImage(bounds.Dx(), bounds.Dy())
}

// ConvertImage copies a standard image into an Image. The result's origin is the input's
// bounds minimum.
func ConvertImage(img image.Image) *Image {
	if ii, ok := img.(*Image); ok {
		return ii.Clone()
	}
	bounds := img.Bounds()
	ii := NewImageFromBounds(bounds)
	for y := 0; y < ii.height; y++ {
		for x := 0; x < ii.width; x++ {
			ii.SetXY(x, y, NewColorFromColor(img.At(bounds.Min.X+x, bounds.Min.Y+y)))
		}
	}
	return ii
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image.
func (i *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.width, i.height)
}

// At implements image.Image. Out of bounds reads return black.
func (i *Image) At(x, y int) color.Color {
	if !i.In(x, y) {
		return Color{}
	}
	return i.GetXY(x, y)
}

// Width returns the number of columns.
func (i *Image) Width() int {
	return i.width
}

// Height returns the number of rows.
func (i *Image) Height() int {
	return i.height
}

// In reports whether (x, y) addresses a pixel of the image.
func (i *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < i.width && y < i.height
}

func (i *Image) kxy(x, y int) int {
	return ((y * i.width) + x) * Channels
}

// Get returns the pixel at p.
func (i *Image) Get(p image.Point) Color {
	return i.GetXY(p.X, p.Y)
}

// GetXY returns the pixel at column x and row y.
func (i *Image) GetXY(x, y int) Color {
	k := i.kxy(x, y)
	return Color{i.data[k], i.data[k+1], i.data[k+2]}
}

// Set writes the pixel at p.
func (i *Image) Set(p image.Point, c Color) {
	i.SetXY(p.X, p.Y, c)
}

// SetXY writes the pixel at column x and row y.
func (i *Image) SetXY(x, y int, c Color) {
	copy(i.data[i.kxy(x, y):], c[:])
}

// Sample returns channel ch of the pixel at (x, y).
func (i *Image) Sample(x, y, ch int) uint8 {
	return i.data[i.kxy(x, y)+ch]
}

// SetSample writes channel ch of the pixel at (x, y).
func (i *Image) SetSample(x, y, ch int, v uint8) {
	i.data[i.kxy(x, y)+ch] = v
}

// Clone returns a deep copy.
func (i *Image) Clone() *Image {
	ii := &Image{
		data:   make([]uint8, len(i.data)),
		width:  i.width,
		height: i.height,
	}
	copy(ii.data, i.data)
	return ii
}

// Paste copies src into i with src's origin placed at `at`. Pixels falling outside i are
// dropped.
func (i *Image) Paste(src *Image, at image.Point) {
	overlap := src.Bounds().Add(at).Intersect(i.Bounds())
	if overlap.Empty() {
		return
	}
	rowLen := overlap.Dx() * Channels
	for y := overlap.Min.Y; y < overlap.Max.Y; y++ {
		from := src.kxy(overlap.Min.X-at.X, y-at.Y)
		copy(i.data[i.kxy(overlap.Min.X, y):], src.data[from:from+rowLen])
	}
}

// Equal reports whether both images have the same size and pixels.
func (i *Image) Equal(other *Image) bool {
	if i.width != other.width || i.height != other.height {
		return false
	}
	for k, v := range i.data {
		if other.data[k] != v {
			return false
		}
	}
	return true
}

// WriteTo writes the image to a file, choosing the encoding by extension.
func (i *Image) WriteTo(fn string) error {
	return WriteImageToFile(fn, i)
}
