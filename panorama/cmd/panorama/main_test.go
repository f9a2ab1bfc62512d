package main

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/stitch/rimage"
)

func writeTestImage(t *testing.T, path string, c rimage.Color) {
	t.Helper()
	img := rimage.NewImage(4, 4)
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.SetXY(x, y, rimage.NewColor(c[0]+uint8(10*x), c[1]+uint8(10*y), c[2]))
		}
	}
	test.That(t, rimage.WriteImageToFile(path, img), test.ShouldBeNil)
}

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
}

func TestMainErrors(t *testing.T) {
	dir := t.TempDir()
	matches := filepath.Join(dir, "matches.json5")
	writeTestFile(t, matches, `{src: [[0, 0], [1, 0], [0, 1]], dst: [[0, 0], [1, 0], [0, 1]]}`)

	test.That(t, realMain([]string{"xxx"}), test.ShouldNotBeNil)
	test.That(t, realMain([]string{"fit"}), test.ShouldNotBeNil)
	test.That(t, realMain([]string{"fit", "--matches", filepath.Join(dir, "missing.json5")}), test.ShouldNotBeNil)
	test.That(t, realMain([]string{"fit", "--matches", matches}), test.ShouldNotBeNil)
	test.That(t, realMain([]string{"stitch", "--matches", matches}), test.ShouldNotBeNil)
	test.That(t, realMain([]string{"warp", "--src", "a.png"}), test.ShouldNotBeNil)

	err := realMain([]string{"fit", "--matches", matches, "--max-err", "-1"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_err")

	many := filepath.Join(dir, "many.json5")
	writeTestFile(t, many, `{src: [[0, 0], [3, 0], [0, 3], [3, 3]], dst: [[0, 0], [3, 0], [0, 3], [3, 3]]}`)
	err = realMain([]string{"fit", "--matches", many, "--inlier-prob", "1e-5"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "too many ransac trials")

	src := filepath.Join(dir, "src.png")
	h := filepath.Join(dir, "h.json")
	writeTestImage(t, src, rimage.NewColor(1, 2, 3))
	writeTestFile(t, h, `[1, 0, 0, 0, 1, 0, 0, 0, 1]`)
	err = realMain([]string{"warp", "--src", src, "--homography", h, "--width", "100000", "--height", "100000",
		"-o", filepath.Join(dir, "huge.png")})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid output size")
}

func TestMainStitch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "dst.png")
	out := filepath.Join(dir, "pano.png")
	matches := filepath.Join(dir, "matches.json5")
	config := filepath.Join(dir, "config.json5")
	writeTestImage(t, src, rimage.NewColor(20, 20, 90))
	writeTestImage(t, dst, rimage.NewColor(100, 50, 10))
	// src shifted right by 2.5 and down by 0.25
	writeTestFile(t, matches, `{
		src: [[0, 0], [3, 0], [0, 3], [3, 3]],
		dst: [[2.5, 0.25], [5.5, 0.25], [2.5, 3.25], [5.5, 3.25]],
	}`)
	writeTestFile(t, config, `{max_err: 1, sequential: true}`)

	err := realMain([]string{"--debug", "stitch", "--src", src, "--dst", dst, "--matches", matches, "-c", config, "-o", out})
	test.That(t, err, test.ShouldBeNil)

	pano, err := rimage.ReadImageFromFile(out)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pano.Width(), test.ShouldEqual, 6)
	test.That(t, pano.Height(), test.ShouldEqual, 4)
	dstImg, err := rimage.ReadImageFromFile(dst)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pano.GetXY(2, 3), test.ShouldResemble, dstImg.GetXY(2, 3))

	// one slightly perturbed match spreads the residuals out
	fitMatches := filepath.Join(dir, "fit.json5")
	writeTestFile(t, fitMatches, `{
		src: [[0, 0], [3, 0], [0, 3], [3, 3], [1, 2.5]],
		dst: [[2.5, 0.25], [5.5, 0.25], [2.5, 3.25], [5.5, 3.25], [3.6, 2.75]],
	}`)
	plot := filepath.Join(dir, "residuals.png")
	err = realMain([]string{"fit", "--matches", fitMatches, "--seed", "7", "--max-err", "1", "--plot", plot, "--histogram"})
	test.That(t, err, test.ShouldBeNil)
	info, err := os.Stat(plot)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}

func TestMainWarp(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	h := filepath.Join(dir, "h.json")
	writeTestImage(t, src, rimage.NewColor(20, 20, 90))
	writeTestFile(t, h, `[1, 0, 1, 0, 1, 2, 0, 0, 1]`)
	srcImg, err := rimage.ReadImageFromFile(src)
	test.That(t, err, test.ShouldBeNil)

	for _, mode := range []string{modeForward, modeBackward} {
		t.Run(mode, func(t *testing.T) {
			out := filepath.Join(dir, mode+".png")
			err := realMain([]string{"warp", "--src", src, "--homography", h, "--mode", mode, "--width", "6", "-o", out})
			test.That(t, err, test.ShouldBeNil)

			warped, err := rimage.ReadImageFromFile(out)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, warped.Width(), test.ShouldEqual, 6)
			test.That(t, warped.Height(), test.ShouldEqual, 4)
			test.That(t, warped.GetXY(1, 2), test.ShouldResemble, srcImg.GetXY(0, 0))
			test.That(t, warped.GetXY(0, 0), test.ShouldResemble, rimage.Color{})
		})
	}

	out := filepath.Join(dir, "bad.png")
	test.That(t, realMain([]string{"warp", "--src", src, "--homography", h, "--mode", "sideways", "-o", out}), test.ShouldNotBeNil)
	test.That(t, realMain([]string{"warp", "--src", src, "--homography", h, "--height", "0", "-o", out}), test.ShouldNotBeNil)
	writeTestFile(t, h, `[1, 2, 3]`)
	test.That(t, realMain([]string{"warp", "--src", src, "--homography", h, "-o", out}), test.ShouldNotBeNil)
}
