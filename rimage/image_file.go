package rimage

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	// webp inputs are decodable, though never written.
	_ "golang.org/x/image/webp"
)

// ReadImageFromFile decodes an image file (any format imaging understands, or webp, with EXIF
// orientation applied) into an Image.
func ReadImageFromFile(path string) (*Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read image %q", path)
	}
	return ConvertImage(img), nil
}

// WriteImageToFile encodes img to path. The format is chosen from the file extension.
func WriteImageToFile(path string, img image.Image) error {
	if err := imaging.Save(img, path); err != nil {
		return errors.Wrapf(err, "cannot write image %q", path)
	}
	return nil
}
