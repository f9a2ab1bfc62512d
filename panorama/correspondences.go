package panorama

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Correspondences pairs Src[i] in the source image with Dst[i] in the destination image.
type Correspondences struct {
	Src []r2.Point
	Dst []r2.Point
}

// correspondencesFile is the on-disk layout: {src: [[x, y], ...], dst: [[x, y], ...]}.
type correspondencesFile struct {
	Src [][]float64 `json:"src"`
	Dst [][]float64 `json:"dst"`
}

// LoadCorrespondences reads a JSON5 match file.
func LoadCorrespondences(path string) (*Correspondences, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read correspondences")
	}
	return ParseCorrespondences(data)
}

// ParseCorrespondences decodes a JSON5 match document.
func ParseCorrespondences(data []byte) (*Correspondences, error) {
	var raw correspondencesFile
	if err := json5.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "cannot parse correspondences")
	}
	src, err := toPoints(raw.Src)
	if err != nil {
		return nil, errors.Wrap(err, "src")
	}
	dst, err := toPoints(raw.Dst)
	if err != nil {
		return nil, errors.Wrap(err, "dst")
	}
	c := &Correspondences{Src: src, Dst: dst}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that both sides have the same, nonzero, length.
func (c *Correspondences) Validate() error {
	if len(c.Src) != len(c.Dst) {
		return errors.Errorf("have %d source points but %d destination points", len(c.Src), len(c.Dst))
	}
	if len(c.Src) == 0 {
		return errors.New("no correspondences")
	}
	return nil
}

// MarshalJSON writes the on-disk layout.
func (c *Correspondences) MarshalJSON() ([]byte, error) {
	fromPoint := func(p r2.Point, _ int) []float64 { return []float64{p.X, p.Y} }
	return json.Marshal(correspondencesFile{
		Src: lo.Map(c.Src, fromPoint),
		Dst: lo.Map(c.Dst, fromPoint),
	})
}

func toPoints(raw [][]float64) ([]r2.Point, error) {
	for i, pair := range raw {
		if len(pair) != 2 {
			return nil, errors.Errorf("point %d has %d coordinates, want 2", i, len(pair))
		}
	}
	return lo.Map(raw, func(pair []float64, _ int) r2.Point {
		return r2.Point{X: pair[0], Y: pair[1]}
	}), nil
}
