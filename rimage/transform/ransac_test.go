package transform

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/stitch/logging"
)

func TestNumRANSACIterations(t *testing.T) {
	expected := int(math.Ceil(math.Log(1-0.99)/math.Log(1-math.Pow(0.5, 4)))) + 1
	test.That(t, NumRANSACIterations(0.5, 4, 0.99), test.ShouldEqual, expected)
	test.That(t, NumRANSACIterations(0.5, 4, 0.99), test.ShouldEqual, 73)
	test.That(t, NumRANSACIterations(0.8, 4, 0.99), test.ShouldEqual, 10)
	test.That(t, NumRANSACIterations(1, 4, 0.99), test.ShouldEqual, 1)
	// Fewer inliers need more trials.
	test.That(t, NumRANSACIterations(0.3, 4, 0.99), test.ShouldBeGreaterThan, NumRANSACIterations(0.5, 4, 0.99))
	// Tiny inlier fractions saturate rather than overflow.
	test.That(t, NumRANSACIterations(1e-4, 4, 0.99), test.ShouldEqual, math.MaxInt32)
	test.That(t, NumRANSACIterations(1e-5, 4, 0.99), test.ShouldEqual, math.MaxInt32)
	test.That(t, math.IsInf(trialCount(1e-100, 4, 0.99), 1), test.ShouldBeTrue)
}

func TestSelectBestTrial(t *testing.T) {
	h1 := NewTranslation(1, 0)
	h2 := NewTranslation(2, 0)
	h3 := NewTranslation(3, 0)
	degenerate := ransacTrial{err: ErrDegenerateConfiguration}

	for _, tc := range []struct {
		name       string
		trials     []ransacTrial
		best       int
		degenerate int
	}{
		{
			"later equal fit wins",
			[]ransacTrial{
				{h: h1, report: InlierReport{Inliers: 3, FitPercent: 0.5}},
				{h: h2, report: InlierReport{Inliers: 3, FitPercent: 0.5}},
			},
			1, 0,
		},
		{
			"worse later fit is ignored",
			[]ransacTrial{
				{h: h1, report: InlierReport{Inliers: 4, FitPercent: 0.75}},
				{h: h2, report: InlierReport{Inliers: 3, FitPercent: 0.5}},
			},
			0, 0,
		},
		{
			"degenerate trials are counted and skipped",
			[]ransacTrial{
				{h: h1, report: InlierReport{Inliers: 3, FitPercent: 0.5}},
				degenerate,
				{h: h2, report: InlierReport{Inliers: 3, FitPercent: 0.5}},
				degenerate,
			},
			2, 2,
		},
		{
			"zero fit still counts",
			[]ransacTrial{degenerate, {h: h3}},
			1, 1,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tally := selectBestTrial(tc.trials)
			test.That(t, tally.found, test.ShouldBeTrue)
			test.That(t, tally.bestIndex, test.ShouldEqual, tc.best)
			test.That(t, tally.best.h, test.ShouldEqual, tc.trials[tc.best].h)
			test.That(t, tally.degenerate, test.ShouldEqual, tc.degenerate)
		})
	}

	tally := selectBestTrial([]ransacTrial{degenerate, degenerate})
	test.That(t, tally.found, test.ShouldBeFalse)
	test.That(t, errors.Is(tally.lastErr, ErrDegenerateConfiguration), test.ShouldBeTrue)
}

// contaminated returns n correspondences of which the first inliers follow h exactly and the rest
// are pushed at least 50 pixels off.
func contaminated(h *Homography, n, inliers int, seed int64) ([]r2.Point, []r2.Point) {
	src := randomPoints(n, seed, 320, 240)
	dst := h.ApplyAll(src)
	//nolint:gosec
	r := rand.New(rand.NewSource(seed + 1))
	for i := inliers; i < n; i++ {
		angle := r.Float64() * 2 * math.Pi
		dist := 50 + r.Float64()*100
		dst[i] = dst[i].Add(r2.Point{X: math.Cos(angle), Y: math.Sin(angle)}.Mul(dist))
	}
	return src, dst
}

func TestFitHomographyRANSAC(t *testing.T) {
	h := knownHomography(t)
	src, dst := contaminated(h, 60, 40, 5)
	logger := logging.NewTestLogger(t)

	result, err := FitHomographyRANSAC(src, dst, RANSACConfig{
		InlierProb: 0.5,
		MaxErr:     2,
		//nolint:gosec
		Rand: rand.New(rand.NewSource(17)),
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Trials, test.ShouldEqual, 73)
	test.That(t, result.Report.Inliers, test.ShouldEqual, 40)
	test.That(t, result.Report.FitPercent, test.ShouldAlmostEqual, 40.0/60)
	test.That(t, result.Homography.Equivalent(h, 1e-4), test.ShouldBeTrue)

	inSrc, _, err := PartitionInliers(result.Homography, src, dst, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, inSrc, test.ShouldResemble, src[:40])
}

func TestFitHomographyRANSACDeterministic(t *testing.T) {
	h := knownHomography(t)
	src, dst := contaminated(h, 50, 30, 8)
	logger := logging.NewTestLogger(t)

	run := func(parallel bool) *RANSACResult {
		result, err := FitHomographyRANSAC(src, dst, RANSACConfig{
			InlierProb: 0.6,
			MaxErr:     1.5,
			//nolint:gosec
			Rand:     rand.New(rand.NewSource(99)),
			Parallel: parallel,
		}, logger)
		test.That(t, err, test.ShouldBeNil)
		return result
	}
	first := run(false)
	test.That(t, run(false).Homography.Values(), test.ShouldResemble, first.Homography.Values())
	test.That(t, run(true).Homography.Values(), test.ShouldResemble, first.Homography.Values())
	test.That(t, run(true).Report, test.ShouldResemble, first.Report)
}

func TestFitHomographyRANSACWeakModel(t *testing.T) {
	// Unrelated points: any 4 fit exactly, nothing else does.
	src := randomPoints(12, 21, 300, 300)
	dst := randomPoints(12, 22, 300, 300)
	logger, observed := logging.NewObservedTestLogger(t)

	result, err := FitHomographyRANSAC(src, dst, RANSACConfig{InlierProb: 0.9, MaxErr: 1}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Homography, test.ShouldNotBeNil)
	test.That(t, result.Report.FitPercent, test.ShouldBeLessThan, DefaultTargetInlierFraction)
	test.That(t, result.Report.Inliers, test.ShouldBeGreaterThanOrEqualTo, 4)
	test.That(t, observed.FilterMessage("best ransac model is below the target inlier fraction").Len(), test.ShouldEqual, 1)
}

func TestFitHomographyRANSACErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	pts := randomPoints(3, 1, 10, 10)

	_, err := FitHomographyRANSAC(pts, pts, RANSACConfig{InlierProb: 0.5, MaxErr: 1}, logger)
	test.That(t, errors.Is(err, ErrInsufficientCorrespondences), test.ShouldBeTrue)

	_, err = FitHomographyRANSAC(pts, pts[:2], RANSACConfig{InlierProb: 0.5, MaxErr: 1}, logger)
	test.That(t, errors.Is(err, ErrMismatchedCorrespondences), test.ShouldBeTrue)

	pts = randomPoints(8, 1, 10, 10)
	_, err = FitHomographyRANSAC(pts, pts, RANSACConfig{InlierProb: 0, MaxErr: 1}, logger)
	test.That(t, err, test.ShouldBeError, errors.New("invalid InlierProb 0, must be in (0, 1]"))

	_, err = FitHomographyRANSAC(pts, pts, RANSACConfig{InlierProb: 0.5, MaxErr: -1}, logger)
	test.That(t, err, test.ShouldBeError, errors.New("invalid MaxErr -1, must be positive"))

	_, err = FitHomographyRANSAC(pts, pts, RANSACConfig{InlierProb: 0.5, MaxErr: 1, SuccessProb: 1}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = FitHomographyRANSAC(pts, pts, RANSACConfig{InlierProb: 0.5, MaxErr: 1, SampleSize: 3}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = FitHomographyRANSAC(pts, pts, RANSACConfig{InlierProb: 0.5, MaxErr: 1, MaxTrials: -1}, logger)
	test.That(t, err, test.ShouldBeError, errors.New("invalid MaxTrials -1, must be positive"))
}

func TestFitHomographyRANSACTooManyTrials(t *testing.T) {
	logger := logging.NewTestLogger(t)
	pts := randomPoints(8, 1, 10, 10)

	for _, inlierProb := range []float64{1e-5, 1e-4, 0.01} {
		config := RANSACConfig{InlierProb: inlierProb, MaxErr: 2}
		test.That(t, config.withDefaults().CheckValid(), test.ShouldBeNil)
		_, err := FitHomographyRANSAC(pts, pts, config, logger)
		test.That(t, errors.Is(err, ErrTooManyTrials), test.ShouldBeTrue)
	}

	// 0.5 needs 73 trials.
	_, err := FitHomographyRANSAC(pts, pts, RANSACConfig{InlierProb: 0.5, MaxErr: 2, MaxTrials: 72}, logger)
	test.That(t, errors.Is(err, ErrTooManyTrials), test.ShouldBeTrue)
	result, err := FitHomographyRANSAC(pts, pts, RANSACConfig{InlierProb: 0.5, MaxErr: 2, MaxTrials: 73}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Trials, test.ShouldEqual, 73)
}

func TestFitHomographyRANSACChunks(t *testing.T) {
	h := knownHomography(t)
	src, dst := contaminated(h, 40, 12, 3)
	logger := logging.NewTestLogger(t)

	// 0.2 needs more trials than fit in one chunk.
	trials := NumRANSACIterations(0.2, MinCorrespondences, DefaultSuccessProb)
	test.That(t, trials, test.ShouldBeGreaterThan, trialChunkSize)

	run := func(parallel bool) *RANSACResult {
		result, err := FitHomographyRANSAC(src, dst, RANSACConfig{
			InlierProb: 0.2,
			MaxErr:     2,
			//nolint:gosec
			Rand:     rand.New(rand.NewSource(11)),
			Parallel: parallel,
		}, logger)
		test.That(t, err, test.ShouldBeNil)
		return result
	}
	sequential := run(false)
	parallel := run(true)
	test.That(t, sequential.Trials, test.ShouldEqual, trials)
	test.That(t, parallel.Homography.Values(), test.ShouldResemble, sequential.Homography.Values())
	test.That(t, parallel.Report, test.ShouldResemble, sequential.Report)
	test.That(t, sequential.Report.Inliers, test.ShouldBeGreaterThanOrEqualTo, 12)
}

func TestFitHomography(t *testing.T) {
	h := knownHomography(t)
	src, dst := contaminated(h, 40, 30, 2)

	//nolint:gosec
	est, err := FitHomography(src, dst, 0.5, 2, rand.New(rand.NewSource(4)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, est.Equivalent(h, 1e-4), test.ShouldBeTrue)

	// A nil source falls back to a fixed seed.
	a, err := FitHomography(src, dst, 0.5, 2, nil)
	test.That(t, err, test.ShouldBeNil)
	b, err := FitHomography(src, dst, 0.5, 2, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Values(), test.ShouldResemble, b.Values())
}
