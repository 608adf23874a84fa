// File: internal/healer/controller.go
package healer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/internal/batch"
	"github.com/xkilldash9x/remedy-cli/internal/config"
	"github.com/xkilldash9x/remedy-cli/internal/oracle"
	"github.com/xkilldash9x/remedy-cli/internal/patch"
)

// State names one phase of the run/diagnose/fix loop.
type State string

const (
	StateRunningTests State = "RUNNING_TESTS"
	StateBatching     State = "BATCHING"
	StateAwaitingFix  State = "AWAITING_FIX"
	StateApplying     State = "APPLYING"
	StateConverged    State = "CONVERGED"
	StateExhausted    State = "EXHAUSTED"
)

// Summary totals one controller run.
type Summary struct {
	SessionID  string
	Iterations int
	FinalState State
	Applied    int
	Failed     int
}

// Converged reports whether the last test run passed.
func (s *Summary) Converged() bool { return s.FinalState == StateConverged }

// Controller drives repeated run → diagnose → fix cycles to convergence or
// iteration exhaustion. It is fully synchronous: the test run, the oracle
// request and every file operation happen strictly in sequence.
type Controller struct {
	runner      TestRunner
	oracle      oracle.Oracle
	engine      *patch.Engine
	resolver    *patch.Resolver
	loopCfg     config.LoopConfig
	runOpts     RunOptions
	projectPath string
	logger      *zap.Logger
	state       State
}

// NewController wires the loop from its collaborators.
func NewController(
	projectPath string,
	runner TestRunner,
	orc oracle.Oracle,
	engine *patch.Engine,
	resolver *patch.Resolver,
	loopCfg config.LoopConfig,
	runOpts RunOptions,
	logger *zap.Logger,
) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		runner:      runner,
		oracle:      orc,
		engine:      engine,
		resolver:    resolver,
		loopCfg:     loopCfg,
		runOpts:     runOpts,
		projectPath: projectPath,
		logger:      logger.Named("healer"),
		state:       StateRunningTests,
	}
}

// State returns the controller's current phase.
func (c *Controller) State() State { return c.state }

// Run executes the loop. Per-directive and per-batch failures are recorded
// and never abort the run; only global convergence or the iteration budget
// ends it. Committed edits persist regardless of the eventual outcome.
func (c *Controller) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{SessionID: uuid.New().String()}
	log := c.logger.With(zap.String("session_id", summary.SessionID))
	log.Info("Starting healing loop.",
		zap.Int("max_iterations", c.loopCfg.MaxIterations),
		zap.Int("batch_size", c.loopCfg.MaxErrorsPerBatch))

	for iteration := 0; iteration < c.loopCfg.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Iterations = iteration + 1
		iterLog := log.With(zap.Int("iteration", iteration+1))

		c.state = StateRunningTests
		outcome, err := c.runner.Run(ctx, c.runOpts)
		if err != nil {
			return summary, err
		}
		if outcome.Passed {
			c.state = StateConverged
			summary.FinalState = StateConverged
			iterLog.Info("All tests pass, converged.")
			return summary, nil
		}

		c.state = StateBatching
		batches := batch.All(outcome.Failures, c.loopCfg.MaxErrorsPerBatch)
		iterLog.Info("Test failures detected.",
			zap.Int("failures", len(outcome.Failures)),
			zap.Int("batches", len(batches)))

		for _, b := range batches {
			c.processBatch(ctx, b, summary, iterLog)
		}
	}

	c.state = StateExhausted
	summary.FinalState = StateExhausted
	log.Warn("Iteration budget exhausted without convergence.",
		zap.Int("iterations", summary.Iterations))
	return summary, nil
}

// processBatch performs one oracle round trip and applies whatever directives
// come back. Every failure here is local to the batch or directive.
func (c *Controller) processBatch(ctx context.Context, b batch.Batch, summary *Summary, log *zap.Logger) {
	batchLog := log.With(zap.Int("batch", b.Index))

	c.state = StateAwaitingFix
	reply, err := c.oracle.Propose(ctx, oracle.Request{
		ProjectPath:  c.projectPath,
		Batch:        b,
		FileContents: c.collectFileContents(b),
	})
	if err != nil {
		// No retry: the batch is abandoned, the iteration continues.
		batchLog.Error("Oracle request failed, abandoning batch.", zap.Error(err))
		summary.Failed += b.BatchSize
		return
	}

	directives, confident := oracle.ParseDirectives(reply)
	if !confident {
		formatErr := &oracle.ResponseFormatError{Mentioned: oracle.ScanMentionedFiles(reply)}
		batchLog.Warn("Oracle reply is low-confidence, nothing will be applied.",
			zap.Error(formatErr))
		summary.Failed += b.BatchSize
		return
	}

	c.state = StateApplying
	for _, d := range directives {
		res := c.engine.Apply(ctx, d)
		if res.Applied {
			summary.Applied++
			batchLog.Info("Directive applied.",
				zap.String("file", d.TargetFile),
				zap.String("strategy", res.Strategy))
			continue
		}
		summary.Failed++
		batchLog.Warn("Directive failed, continuing with remaining directives.",
			zap.String("file", d.TargetFile),
			zap.Error(res.Err))
	}
}

// collectFileContents reads the batch's files for oracle context. The
// protected zone is excluded; unreadable files are simply omitted.
func (c *Controller) collectFileContents(b batch.Batch) map[string]string {
	contents := make(map[string]string, len(b.FileOrder))
	for _, file := range b.FileOrder {
		path, err := c.resolver.Resolve(file)
		if err != nil {
			c.logger.Debug("Skipping unreadable context file.", zap.String("file", file), zap.Error(err))
			continue
		}
		data, err := c.resolver.ReadContext(path)
		if err != nil {
			c.logger.Debug("Skipping protected or unreadable context file.", zap.String("file", file), zap.Error(err))
			continue
		}
		contents[file] = string(data)
	}
	return contents
}

// DryRun executes a single diagnose-only pass: run the tests, extract and
// batch the failures, print a summary, apply nothing.
func (c *Controller) DryRun(ctx context.Context, out io.Writer) (failuresFound bool, err error) {
	if out == nil {
		out = os.Stdout
	}

	c.state = StateRunningTests
	outcome, err := c.runner.Run(ctx, c.runOpts)
	if err != nil {
		return false, err
	}
	if outcome.Passed {
		c.state = StateConverged
		fmt.Fprintln(out, "All tests pass.")
		return false, nil
	}

	c.state = StateBatching
	batches := batch.All(outcome.Failures, c.loopCfg.MaxErrorsPerBatch)
	fmt.Fprintf(out, "Found %d test failures in %d batches.\n", len(outcome.Failures), len(batches))

	if len(batches) > 0 {
		fmt.Fprintln(out, "\nExample batch:")
		first := batches[0]
		for _, file := range first.FileOrder {
			fmt.Fprintf(out, "\nFile: %s\n", file)
			for _, f := range first.FailuresByFile[file] {
				fmt.Fprintf(out, "  Line %d: %s\n", f.Line, f.Message)
			}
		}
	}
	return true, nil
}
