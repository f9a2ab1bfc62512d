// Package main is a command line front end for stitching image pairs.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/stitch/logging"
	"go.viam.com/stitch/panorama"
	"go.viam.com/stitch/rimage"
	"go.viam.com/stitch/rimage/transform"
)

const (
	flagSrc        = "src"
	flagDst        = "dst"
	flagMatches    = "matches"
	flagConfig     = "config"
	flagOut        = "out"
	flagSeed       = "seed"
	flagInlierProb = "inlier-prob"
	flagMaxErr     = "max-err"
	flagDebug      = "debug"
	flagPlot       = "plot"
	flagHistogram  = "histogram"
	flagHomography = "homography"
	flagMode       = "mode"
	flagWidth      = "width"
	flagHeight     = "height"

	modeForward  = "forward"
	modeBackward = "backward"
)

var logger = logging.NewLogger("panorama")

func main() {
	if err := realMain(os.Args[1:]); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func realMain(args []string) error {
	return newApp(os.Stdout).Run(append([]string{"panorama"}, args...))
}

func newApp(out io.Writer) *cli.App {
	fitFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     flagMatches,
			Aliases:  []string{"m"},
			Usage:    "JSON5 `FILE` of src and dst point lists",
			Required: true,
		},
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "load stitching configuration from JSON5 `FILE`",
		},
		&cli.Int64Flag{
			Name:  flagSeed,
			Usage: "override the RANSAC seed",
		},
		&cli.Float64Flag{
			Name:  flagInlierProb,
			Usage: "override the expected inlier fraction",
		},
		&cli.Float64Flag{
			Name:  flagMaxErr,
			Usage: "override the inlier threshold in pixels",
		},
	}

	return &cli.App{
		Name:   "panorama",
		Usage:  "fit homographies and stitch image pairs",
		Writer: out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger.SetLevel(logging.DEBUG)
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return errors.Errorf("unknown command %q", c.Args().First())
			}
			return cli.ShowAppHelp(c)
		},
		Commands: []*cli.Command{
			{
				Name:  "stitch",
				Usage: "warp the source image onto the destination image's plane and compose them",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: flagSrc, Usage: "source image `FILE`", Required: true},
					&cli.StringFlag{Name: flagDst, Usage: "destination image `FILE`", Required: true},
					&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Usage: "output image `FILE`", Required: true},
				}, fitFlags...),
				Action: stitchAction,
			},
			{
				Name:  "fit",
				Usage: "fit a homography to point correspondences and print it with its residuals",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: flagPlot, Usage: "write a residual histogram to `FILE`"},
					&cli.BoolFlag{Name: flagHistogram, Usage: "print a text residual histogram"},
				}, fitFlags...),
				Action: fitAction,
			},
			{
				Name:  "warp",
				Usage: "warp an image through a homography",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagSrc, Usage: "input image `FILE`", Required: true},
					&cli.StringFlag{
						Name:     flagHomography,
						Usage:    "JSON `FILE` holding the 9 row-major source to output homography values",
						Required: true,
					},
					&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Usage: "output image `FILE`", Required: true},
					&cli.StringFlag{Name: flagMode, Value: modeBackward, Usage: "forward or backward"},
					&cli.IntFlag{Name: flagWidth, Usage: "output width, defaults to the input width"},
					&cli.IntFlag{Name: flagHeight, Usage: "output height, defaults to the input height"},
				},
				Action: warpAction,
			},
		},
	}
}

// loadConfig reads --config, if given, and applies flag overrides.
func loadConfig(c *cli.Context) (panorama.Config, error) {
	config := panorama.DefaultConfig()
	if path := c.String(flagConfig); path != "" {
		var err error
		if config, err = panorama.LoadConfig(path); err != nil {
			return panorama.Config{}, err
		}
	}
	if c.IsSet(flagSeed) {
		config.Seed = c.Int64(flagSeed)
	}
	if c.IsSet(flagInlierProb) {
		config.InlierProb = c.Float64(flagInlierProb)
	}
	if c.IsSet(flagMaxErr) {
		config.MaxErr = c.Float64(flagMaxErr)
	}
	return config, config.Validate()
}

func stitchAction(c *cli.Context) error {
	config, err := loadConfig(c)
	if err != nil {
		return err
	}
	matches, err := panorama.LoadCorrespondences(c.String(flagMatches))
	if err != nil {
		return err
	}
	src, err := rimage.ReadImageFromFile(c.String(flagSrc))
	if err != nil {
		return err
	}
	dst, err := rimage.ReadImageFromFile(c.String(flagDst))
	if err != nil {
		return err
	}

	result, err := panorama.Compose(src, dst, matches.Src, matches.Dst, config, logger)
	if err != nil {
		return err
	}
	if err := rimage.WriteImageToFile(c.String(flagOut), result.Panorama); err != nil {
		return err
	}
	return printJSON(c.App.Writer, struct {
		Homography *transform.Homography  `json:"homography"`
		Padding    panorama.Padding       `json:"padding"`
		Report     transform.InlierReport `json:"report"`
		Trials     int                    `json:"trials"`
	}{result.Homography, result.Padding, result.Report, result.Trials})
}

func fitAction(c *cli.Context) error {
	config, err := loadConfig(c)
	if err != nil {
		return err
	}
	matches, err := panorama.LoadCorrespondences(c.String(flagMatches))
	if err != nil {
		return err
	}

	fit, err := transform.FitHomographyRANSAC(matches.Src, matches.Dst, config.RANSACConfig(), logger.Sublogger("ransac"))
	if err != nil {
		return err
	}
	summary, err := transform.SummarizeResiduals(fit.Homography, matches.Src, matches.Dst, config.MaxErr)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, fit.Homography)
	if path, printHist := c.String(flagPlot), c.Bool(flagHistogram); path != "" || printHist {
		residuals, err := transform.Residuals(fit.Homography, matches.Src, matches.Dst)
		if err != nil {
			return err
		}
		if path != "" {
			if err := panorama.PlotResiduals(residuals, config.MaxErr, path); err != nil {
				return err
			}
		}
		if printHist {
			if err := panorama.PrintResidualHistogram(c.App.Writer, residuals); err != nil {
				return err
			}
		}
	}
	return printJSON(c.App.Writer, struct {
		Homography *transform.Homography     `json:"homography"`
		Summary    transform.ResidualSummary `json:"summary"`
		Trials     int                       `json:"trials"`
		Degenerate int                       `json:"degenerate"`
	}{fit.Homography, summary, fit.Trials, fit.Degenerate})
}

func warpAction(c *cli.Context) error {
	//nolint:gosec
	data, err := os.ReadFile(c.String(flagHomography))
	if err != nil {
		return errors.Wrap(err, "cannot read homography")
	}
	var h transform.Homography
	if err := json.Unmarshal(data, &h); err != nil {
		return errors.Wrap(err, "cannot parse homography")
	}

	src, err := rimage.ReadImageFromFile(c.String(flagSrc))
	if err != nil {
		return err
	}
	width, height := src.Width(), src.Height()
	if c.IsSet(flagWidth) {
		width = c.Int(flagWidth)
	}
	if c.IsSet(flagHeight) {
		height = c.Int(flagHeight)
	}
	if width <= 0 || height <= 0 || float64(width)*float64(height) > panorama.MaxCanvasPixels {
		return errors.Errorf("invalid output size %dx%d", width, height)
	}

	var warped *rimage.Image
	switch mode := c.String(flagMode); mode {
	case modeForward:
		warped = transform.ForwardWarp(&h, src, width, height)
	case modeBackward:
		back, err := h.Inverse()
		if err != nil {
			return err
		}
		warped = transform.BackwardWarp(back, src, width, height)
	default:
		return errors.Errorf("unknown warp mode %q, want %q or %q", mode, modeForward, modeBackward)
	}
	return rimage.WriteImageToFile(c.String(flagOut), warped)
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
