package panorama

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/stitch/rimage/transform"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	test.That(t, config.Validate(), test.ShouldBeNil)

	rc := config.RANSACConfig()
	test.That(t, rc.CheckValid(), test.ShouldBeNil)
	test.That(t, rc.Parallel, test.ShouldBeTrue)
	test.That(t, rc.EstimateOptions, test.ShouldBeEmpty)
}

func TestConfigValidate(t *testing.T) {
	config := Config{InlierProb: 1.5, MaxErr: -1, SuccessProb: 1}
	err := config.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 3)
	test.That(t, err.Error(), test.ShouldContainSubstring, "inlier_prob")
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_err")
	test.That(t, err.Error(), test.ShouldContainSubstring, "success_prob")

	config = DefaultConfig()
	config.InlierProb = 1
	test.That(t, config.Validate(), test.ShouldBeNil)

	config.MaxTrials = -1
	err = config.Validate()
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 1)
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_trials")
}

func TestConfigMaxTrials(t *testing.T) {
	config := DefaultConfig()
	test.That(t, config.RANSACConfig().MaxTrials, test.ShouldEqual, transform.DefaultMaxTrials)

	config.MaxTrials = 50
	rc := config.RANSACConfig()
	test.That(t, rc.MaxTrials, test.ShouldEqual, 50)
	test.That(t, rc.CheckValid(), test.ShouldBeNil)
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "stitch.json5", `{
		// tighter threshold for synthetic matches
		inlier_prob: 0.8,
		max_err: 1.5,
		normalize: true,
		sequential: true,
	}`)
	config, err := LoadConfig(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, config.InlierProb, test.ShouldEqual, 0.8)
	test.That(t, config.MaxErr, test.ShouldEqual, 1.5)
	test.That(t, config.Normalize, test.ShouldBeTrue)
	test.That(t, config.EigenSolver, test.ShouldBeFalse)
	// untouched fields keep their defaults
	test.That(t, config.SuccessProb, test.ShouldEqual, DefaultConfig().SuccessProb)
	test.That(t, config.Seed, test.ShouldEqual, int64(1))

	rc := config.RANSACConfig()
	test.That(t, rc.Parallel, test.ShouldBeFalse)
	test.That(t, rc.EstimateOptions, test.ShouldHaveLength, 1)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json5"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot read config")

	_, err = LoadConfig(writeFile(t, "bad.json5", `{inlier_prob: `))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot parse config")

	_, err = LoadConfig(writeFile(t, "invalid.json5", `{max_err: 0}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_err must be positive")
}
