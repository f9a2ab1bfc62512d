package transform

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/stitch/logging"
	"go.viam.com/stitch/utils"
)

const (
	// DefaultSuccessProb is the probability that at least one RANSAC sample is outlier free.
	DefaultSuccessProb = 0.99
	// DefaultTargetInlierFraction is the fit below which a RANSAC result is reported as weak.
	DefaultTargetInlierFraction = 0.5
	// DefaultMaxTrials caps the number of RANSAC samples drawn for one fit.
	DefaultMaxTrials = 100000
	// defaultSeed seeds the random source when a config does not supply one.
	defaultSeed = 1
	// trialChunkSize is how many samples are drawn and scored at a time.
	trialChunkSize = 1024
)

// ErrTooManyTrials is returned when the inlier fraction is so low that the required number of
// RANSAC trials exceeds RANSACConfig.MaxTrials.
var ErrTooManyTrials = errors.New("too many ransac trials required")

// RANSACConfig controls FitHomographyRANSAC.
type RANSACConfig struct {
	// InlierProb is the assumed fraction of correct correspondences, in (0, 1].
	InlierProb float64
	// MaxErr is the inlier distance threshold in pixels.
	MaxErr float64
	// SuccessProb defaults to DefaultSuccessProb.
	SuccessProb float64
	// SampleSize defaults to MinCorrespondences.
	SampleSize int
	// TargetInlierFraction defaults to DefaultTargetInlierFraction. It only affects logging.
	TargetInlierFraction float64
	// MaxTrials defaults to DefaultMaxTrials.
	MaxTrials int
	// Rand drives sampling. Defaults to a source with a fixed seed, so runs are reproducible.
	Rand *rand.Rand
	// Parallel scores trials concurrently. Results do not depend on it.
	Parallel bool
	// EstimateOptions are passed to EstimateHomography for every trial.
	EstimateOptions []EstimateOption
}

func (config RANSACConfig) withDefaults() RANSACConfig {
	if config.SuccessProb == 0 {
		config.SuccessProb = DefaultSuccessProb
	}
	if config.SampleSize == 0 {
		config.SampleSize = MinCorrespondences
	}
	if config.TargetInlierFraction == 0 {
		config.TargetInlierFraction = DefaultTargetInlierFraction
	}
	if config.MaxTrials == 0 {
		config.MaxTrials = DefaultMaxTrials
	}
	if config.Rand == nil {
		//nolint:gosec
		config.Rand = rand.New(rand.NewSource(defaultSeed))
	}
	return config
}

// CheckValid returns an error describing the first invalid field.
func (config RANSACConfig) CheckValid() error {
	if !(config.InlierProb > 0 && config.InlierProb <= 1) {
		return errors.Errorf("invalid InlierProb %v, must be in (0, 1]", config.InlierProb)
	}
	if !(config.MaxErr > 0) {
		return errors.Errorf("invalid MaxErr %v, must be positive", config.MaxErr)
	}
	if !(config.SuccessProb > 0 && config.SuccessProb < 1) {
		return errors.Errorf("invalid SuccessProb %v, must be in (0, 1)", config.SuccessProb)
	}
	if config.SampleSize < MinCorrespondences {
		return errors.Errorf("invalid SampleSize %d, must be at least %d", config.SampleSize, MinCorrespondences)
	}
	if config.MaxTrials < 1 {
		return errors.Errorf("invalid MaxTrials %d, must be positive", config.MaxTrials)
	}
	return nil
}

// NumRANSACIterations returns the number of trials needed so that, with probability p, at least
// one sample of n correspondences is free of outliers when a fraction w of them are inliers:
// ceil(ln(1-p) / ln(1-w^n)) + 1. Counts past math.MaxInt32 saturate there.
func NumRANSACIterations(w float64, n int, p float64) int {
	k := trialCount(w, n, p)
	if k > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(k)
}

// trialCount is NumRANSACIterations in float64. It is +Inf when w^n is too small to register.
func trialCount(w float64, n int, p float64) float64 {
	denom := math.Log1p(-math.Pow(w, float64(n)))
	if denom == 0 {
		return math.Inf(1)
	}
	return math.Ceil(math.Log(1-p)/denom) + 1
}

// RANSACResult is the outcome of FitHomographyRANSAC.
type RANSACResult struct {
	Homography *Homography
	// Report scores Homography against the full correspondence set.
	Report InlierReport
	// Trials is the number of samples drawn.
	Trials int
	// Degenerate counts trials whose sample did not determine a homography.
	Degenerate int
}

type ransacTrial struct {
	h      *Homography
	report InlierReport
	err    error
}

// trialTally folds trials, in the order they were drawn, into the best one seen so far.
type trialTally struct {
	best       ransacTrial
	bestIndex  int
	found      bool
	degenerate int
	lastErr    error
}

// add records trial i and reports whether it became the best. A trial replaces the best when its
// fit is at least as good, so the last of several equal fits wins.
func (tally *trialTally) add(i int, trial ransacTrial) bool {
	if trial.err != nil {
		tally.degenerate++
		tally.lastErr = trial.err
		return false
	}
	if tally.found && trial.report.FitPercent < tally.best.report.FitPercent {
		return false
	}
	tally.best = trial
	tally.bestIndex = i
	tally.found = true
	return true
}

func selectBestTrial(trials []ransacTrial) trialTally {
	var tally trialTally
	for i, trial := range trials {
		tally.add(i, trial)
	}
	return tally
}

// FitHomographyRANSAC robustly fits a homography to correspondences that contain outliers. It
// draws a fixed number of minimal samples (see NumRANSACIterations), fits each one, scores the
// fit against every correspondence and keeps the best. Among equally good fits the later trial
// wins. The best fit is always returned, however poor; an error means the input or config was
// invalid or no sample could be fit at all.
func FitHomographyRANSAC(src, dst []r2.Point, config RANSACConfig, logger logging.Logger) (*RANSACResult, error) {
	config = config.withDefaults()
	if err := config.CheckValid(); err != nil {
		return nil, err
	}
	if err := checkCorrespondences(src, dst, config.SampleSize); err != nil {
		return nil, err
	}

	k := trialCount(config.InlierProb, config.SampleSize, config.SuccessProb)
	if k > float64(config.MaxTrials) {
		return nil, errors.Wrapf(ErrTooManyTrials, "inlier probability %v needs %.4g trials, limit is %d",
			config.InlierProb, k, config.MaxTrials)
	}
	numTrials := int(k)
	logger.Debugw("starting ransac", "correspondences", len(src), "trials", numTrials, "maxErr", config.MaxErr)

	runTrial := func(sample []int) ransacTrial {
		sampleSrc := make([]r2.Point, len(sample))
		sampleDst := make([]r2.Point, len(sample))
		for j, idx := range sample {
			sampleSrc[j] = src[idx]
			sampleDst[j] = dst[idx]
		}
		h, err := EstimateHomography(sampleSrc, sampleDst, config.EstimateOptions...)
		if err != nil {
			return ransacTrial{err: err}
		}
		return ransacTrial{h: h, report: scoreResiduals(residuals(h, src, dst), config.MaxErr)}
	}

	// Samples are drawn in order, one chunk at a time, so the outcome only depends on the seed.
	var tally trialTally
	samples := make([][]int, 0, min(numTrials, trialChunkSize))
	trials := make([]ransacTrial, 0, cap(samples))
	for first := 0; first < numTrials; first += trialChunkSize {
		n := min(trialChunkSize, numTrials-first)
		samples = samples[:n]
		trials = trials[:n]
		for i := range samples {
			samples[i] = utils.SampleWithoutReplacement(len(src), config.SampleSize, config.Rand)
		}
		if config.Parallel {
			utils.ParallelForEach(n, func(i int) { trials[i] = runTrial(samples[i]) })
		} else {
			for i := range trials {
				trials[i] = runTrial(samples[i])
			}
		}
		for i, trial := range trials {
			if tally.add(first+i, trial) {
				logger.Debugw("new best ransac trial", "trial", first+i, "fit", trial.report.FitPercent, "mse", trial.report.DistMSE)
			}
		}
	}
	if !tally.found {
		return nil, errors.Wrapf(tally.lastErr, "all %d ransac trials were degenerate", numTrials)
	}
	result := &RANSACResult{
		Homography: tally.best.h,
		Report:     tally.best.report,
		Trials:     numTrials,
		Degenerate: tally.degenerate,
	}

	if result.Report.FitPercent < config.TargetInlierFraction {
		logger.Warnw("best ransac model is below the target inlier fraction",
			"fit", result.Report.FitPercent, "target", config.TargetInlierFraction)
	}
	logger.Debugw("finished ransac", "fit", result.Report.FitPercent, "mse", result.Report.DistMSE,
		"degenerate", result.Degenerate)
	return result, nil
}

// FitHomography is FitHomographyRANSAC with default settings, sampling with rng (a fixed seed
// when nil) and logging nothing.
func FitHomography(src, dst []r2.Point, inlierProb, maxErr float64, rng *rand.Rand) (*Homography, error) {
	result, err := FitHomographyRANSAC(src, dst, RANSACConfig{
		InlierProb: inlierProb,
		MaxErr:     maxErr,
		Rand:       rng,
		Parallel:   true,
	}, logging.NewBlankLogger("ransac"))
	if err != nil {
		return nil, err
	}
	return result.Homography, nil
}
