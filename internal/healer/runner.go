// File: internal/healer/runner.go
package healer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/internal/config"
	"github.com/xkilldash9x/remedy-cli/internal/report"
)

// RunOptions selects what the test runner executes.
type RunOptions struct {
	// TestPath narrows the run to a file or directory; empty runs the suite.
	TestPath string
	// Filter is passed through to PHPUnit's --filter.
	Filter string
	// Verbose passes --verbose through to PHPUnit.
	Verbose bool
}

// RunOutcome is the result of one test-suite invocation.
type RunOutcome struct {
	Passed   bool
	Output   string
	Failures []report.Failure
}

// TestRunner executes the external test suite and yields structured failures.
type TestRunner interface {
	Run(ctx context.Context, opts RunOptions) (*RunOutcome, error)
}

// PHPUnitRunner runs the PHPUnit binary and captures its JUnit XML report.
type PHPUnitRunner struct {
	projectPath string
	binary      string
	cfg         config.RunnerConfig
	extractor   *report.Extractor
	logger      *zap.Logger
}

// NewPHPUnitRunner locates the PHPUnit binary (explicit config, then the
// project's vendor/bin, then PATH). A missing binary is a configuration
// failure, not a crash.
func NewPHPUnitRunner(projectPath string, cfg config.RunnerConfig, extractor *report.Extractor, logger *zap.Logger) (*PHPUnitRunner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	binary := cfg.Binary
	if binary == "" {
		vendored := filepath.Join(projectPath, "vendor", "bin", "phpunit")
		if info, err := os.Stat(vendored); err == nil && !info.IsDir() {
			binary = vendored
		} else if found, err := exec.LookPath("phpunit"); err == nil {
			binary = found
		} else {
			return nil, &config.ConfigurationError{
				Setting: "runner.binary",
				Reason:  "phpunit not found in vendor/bin or on PATH; install it or set runner.binary",
			}
		}
	}

	return &PHPUnitRunner{
		projectPath: projectPath,
		binary:      binary,
		cfg:         cfg,
		extractor:   extractor,
		logger:      logger.Named("phpunit"),
	}, nil
}

// CheckInstallation verifies the binary actually runs before entering the
// loop.
func (r *PHPUnitRunner) CheckInstallation(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, r.binary, "--version")
	cmd.Dir = r.projectPath
	if output, err := cmd.CombinedOutput(); err != nil {
		return &config.ConfigurationError{
			Setting: "runner.binary",
			Reason:  fmt.Sprintf("%s --version failed: %v (output: %s)", r.binary, err, output),
		}
	}
	return nil
}

// Run executes one test pass. The JUnit XML report goes to a scratch file
// that is removed on every exit path. A non-zero exit with a readable report
// is a normal failing run; anything else is an infrastructure error.
func (r *PHPUnitRunner) Run(ctx context.Context, opts RunOptions) (*RunOutcome, error) {
	reportFile, err := os.CreateTemp("", "remedy-junit-*.xml")
	if err != nil {
		return nil, fmt.Errorf("failed to create report scratch file: %w", err)
	}
	reportPath := reportFile.Name()
	reportFile.Close()
	defer os.Remove(reportPath)

	args := []string{"--log-junit", reportPath}
	if opts.Verbose {
		args = append(args, "--verbose")
	}
	if opts.Filter != "" {
		args = append(args, "--filter", opts.Filter)
	}
	if opts.TestPath != "" {
		args = append(args, opts.TestPath)
	}

	runCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.binary, args...)
	cmd.Dir = r.projectPath
	output, runErr := cmd.CombinedOutput()

	if runCtx.Err() != nil {
		return nil, fmt.Errorf("test run timed out after %s: %w", r.cfg.Timeout, runCtx.Err())
	}
	if runErr != nil {
		if _, isExit := runErr.(*exec.ExitError); !isExit {
			return nil, fmt.Errorf("failed to invoke %s: %w", r.binary, runErr)
		}
	}

	outcome := &RunOutcome{
		Passed: runErr == nil,
		Output: string(output),
	}
	if !outcome.Passed {
		xmlContent, readErr := os.ReadFile(reportPath)
		if readErr != nil {
			r.logger.Warn("Test run failed but no JUnit report was produced.", zap.Error(readErr))
			return outcome, nil
		}
		outcome.Failures = r.extractor.Extract(xmlContent)
	}

	r.logger.Info("Test run complete.",
		zap.Bool("passed", outcome.Passed),
		zap.Int("failures", len(outcome.Failures)))
	return outcome, nil
}
