package panorama

import (
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.uber.org/multierr"

	"go.viam.com/stitch/rimage/transform"
)

// Config controls how two images are stitched.
type Config struct {
	// InlierProb is the expected fraction of correct correspondences.
	InlierProb float64 `json:"inlier_prob"`
	// MaxErr is the inlier distance threshold in pixels.
	MaxErr float64 `json:"max_err"`
	// SuccessProb is the probability that RANSAC draws at least one clean sample.
	SuccessProb float64 `json:"success_prob"`
	// Seed seeds RANSAC sampling.
	Seed int64 `json:"seed"`
	// Normalize conditions the points before every homography estimate.
	Normalize bool `json:"normalize"`
	// EigenSolver estimates through AᵗA instead of the SVD of A.
	EigenSolver bool `json:"eigen_solver"`
	// Sequential disables concurrent RANSAC scoring.
	Sequential bool `json:"sequential"`
	// MaxTrials caps the RANSAC trial count. Zero means transform.DefaultMaxTrials.
	MaxTrials int `json:"max_trials"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		InlierProb:  0.5,
		MaxErr:      2,
		SuccessProb: transform.DefaultSuccessProb,
		Seed:        1,
		MaxTrials:   transform.DefaultMaxTrials,
	}
}

// LoadConfig reads a JSON5 config file. Fields missing from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "cannot read config")
	}
	if err := json5.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrapf(err, "cannot parse config %q", path)
	}
	if err := config.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "invalid config %q", path)
	}
	return config, nil
}

// Validate reports every invalid field.
func (config Config) Validate() error {
	var err error
	if !(config.InlierProb > 0 && config.InlierProb <= 1) {
		err = multierr.Append(err, errors.Errorf("inlier_prob must be in (0, 1], got %v", config.InlierProb))
	}
	if !(config.MaxErr > 0) {
		err = multierr.Append(err, errors.Errorf("max_err must be positive, got %v", config.MaxErr))
	}
	if !(config.SuccessProb > 0 && config.SuccessProb < 1) {
		err = multierr.Append(err, errors.Errorf("success_prob must be in (0, 1), got %v", config.SuccessProb))
	}
	if config.MaxTrials < 0 {
		err = multierr.Append(err, errors.Errorf("max_trials must not be negative, got %d", config.MaxTrials))
	}
	return err
}

// RANSACConfig translates the config for the robust fitter.
func (config Config) RANSACConfig() transform.RANSACConfig {
	var opts []transform.EstimateOption
	if config.Normalize {
		opts = append(opts, transform.WithNormalization())
	}
	if config.EigenSolver {
		opts = append(opts, transform.WithEigenSolver())
	}
	return transform.RANSACConfig{
		InlierProb:      config.InlierProb,
		MaxErr:          config.MaxErr,
		SuccessProb:     config.SuccessProb,
		SampleSize:      transform.MinCorrespondences,
		MaxTrials:       config.MaxTrials,
		Rand:            rand.New(rand.NewSource(config.Seed)), //nolint:gosec
		Parallel:        !config.Sequential,
		EstimateOptions: opts,
	}
}
