// File: internal/healer/runner_test.go
package healer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/remedy-cli/internal/config"
	"github.com/xkilldash9x/remedy-cli/internal/report"
)

const fakeJUnitReport = `<?xml version="1.0"?>
<testsuites><testsuite>
  <testcase name="testAdd" class="CalculatorTest" file="tests/CalculatorTest.php" line="17">
    <failure type="AssertionError">Failed asserting that 5 matches expected 4.</failure>
  </testcase>
</testsuite></testsuites>`

// writeFakePHPUnit installs a shell script that mimics a failing PHPUnit run:
// it writes a canned JUnit report to the --log-junit path and exits non-zero.
func writeFakePHPUnit(t *testing.T, dir string, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake phpunit script requires a POSIX shell")
	}

	reportFixture := filepath.Join(dir, "fixture.xml")
	require.NoError(t, os.WriteFile(reportFixture, []byte(fakeJUnitReport), 0o644))

	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"--version\" ]; then echo 'PHPUnit 10.5.0'; exit 0; fi\n" +
		"while [ $# -gt 0 ]; do\n" +
		"  if [ \"$1\" = \"--log-junit\" ]; then cp '" + reportFixture + "' \"$2\"; shift; fi\n" +
		"  shift\n" +
		"done\n" +
		"exit " + strconv.Itoa(exitCode) + "\n"

	path := filepath.Join(dir, "phpunit")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestNewPHPUnitRunnerPrefersVendoredBinary(t *testing.T) {
	t.Parallel()
	project := t.TempDir()
	vendorBin := filepath.Join(project, "vendor", "bin")
	require.NoError(t, os.MkdirAll(vendorBin, 0o755))
	vendored := writeFakePHPUnit(t, vendorBin, 1)

	runner, err := NewPHPUnitRunner(project, config.RunnerConfig{}, report.NewExtractor(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, vendored, runner.binary)
}

func TestNewPHPUnitRunnerExplicitBinary(t *testing.T) {
	t.Parallel()
	project := t.TempDir()
	explicit := writeFakePHPUnit(t, project, 0)

	runner, err := NewPHPUnitRunner(project, config.RunnerConfig{Binary: explicit}, report.NewExtractor(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, explicit, runner.binary)
	assert.NoError(t, runner.CheckInstallation(context.Background()))
}

func TestCheckInstallationBrokenBinary(t *testing.T) {
	t.Parallel()
	project := t.TempDir()
	broken := filepath.Join(project, "phpunit")
	require.NoError(t, os.WriteFile(broken, []byte("not a program"), 0o644))

	runner, err := NewPHPUnitRunner(project, config.RunnerConfig{Binary: broken}, report.NewExtractor(nil), nil)
	require.NoError(t, err)

	var cfgErr *config.ConfigurationError
	assert.ErrorAs(t, runner.CheckInstallation(context.Background()), &cfgErr)
}

func TestRunFailingSuite(t *testing.T) {
	t.Parallel()
	project := t.TempDir()
	binary := writeFakePHPUnit(t, project, 1)

	runner, err := NewPHPUnitRunner(project, config.RunnerConfig{Binary: binary}, report.NewExtractor(nil), nil)
	require.NoError(t, err)

	outcome, err := runner.Run(context.Background(), RunOptions{})
	require.NoError(t, err, "a failing suite is a normal outcome, not an error")
	assert.False(t, outcome.Passed)
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, "testAdd", outcome.Failures[0].TestName)
	assert.Equal(t, 17, outcome.Failures[0].Line)
}

func TestRunPassingSuite(t *testing.T) {
	t.Parallel()
	project := t.TempDir()
	binary := writeFakePHPUnit(t, project, 0)

	runner, err := NewPHPUnitRunner(project, config.RunnerConfig{Binary: binary}, report.NewExtractor(nil), nil)
	require.NoError(t, err)

	outcome, err := runner.Run(context.Background(), RunOptions{TestPath: "tests/", Filter: "testAdd", Verbose: true})
	require.NoError(t, err)
	assert.True(t, outcome.Passed)
	assert.Empty(t, outcome.Failures)
}

func TestRunCleansUpScratchReport(t *testing.T) {
	// Deliberately sequential: the scratch-file census races with other
	// runner tests when run in parallel.
	project := t.TempDir()
	binary := writeFakePHPUnit(t, project, 1)

	runner, err := NewPHPUnitRunner(project, config.RunnerConfig{Binary: binary}, report.NewExtractor(nil), nil)
	require.NoError(t, err)

	before := countScratchReports(t)
	_, err = runner.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, before, countScratchReports(t), "the scratch JUnit file must be removed")
}

func countScratchReports(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "remedy-junit-*.xml"))
	require.NoError(t, err)
	return len(matches)
}
