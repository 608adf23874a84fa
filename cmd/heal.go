// File: cmd/heal.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/internal/config"
	"github.com/xkilldash9x/remedy-cli/internal/healer"
	"github.com/xkilldash9x/remedy-cli/internal/observability"
	"github.com/xkilldash9x/remedy-cli/internal/oracle"
	"github.com/xkilldash9x/remedy-cli/internal/patch"
	"github.com/xkilldash9x/remedy-cli/internal/report"
)

// newHealCmd creates and configures the `heal` command, the main loop entry
// point.
func newHealCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heal [project-path]",
		Short: "Run the test suite and iteratively apply oracle-proposed fixes until it passes",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so they override config file and environment with
			// the right precedence.
			if err := viper.BindPFlag("loop.max_errors_per_batch", cmd.Flags().Lookup("max-errors")); err != nil {
				return err
			}
			if err := viper.BindPFlag("loop.max_iterations", cmd.Flags().Lookup("max-iterations")); err != nil {
				return err
			}
			return viper.BindPFlag("patch.force", cmd.Flags().Lookup("force"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := appCfg

			// Flag overrides bound in PreRunE land in viper, not in the
			// already-unmarshaled struct.
			cfg.Loop.MaxErrorsPerBatch = viper.GetInt("loop.max_errors_per_batch")
			cfg.Loop.MaxIterations = viper.GetInt("loop.max_iterations")
			cfg.Patch.Force = viper.GetBool("patch.force")
			if err := cfg.Validate(); err != nil {
				return err
			}

			projectPath, err := resolveProjectPath(args[0])
			if err != nil {
				return err
			}

			testPath, _ := cmd.Flags().GetString("test-path")
			filter, _ := cmd.Flags().GetString("filter")
			verbose, _ := cmd.Flags().GetBool("verbose")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			autoApply, _ := cmd.Flags().GetBool("auto")
			autoSkip, _ := cmd.Flags().GetBool("auto-skip")

			// The decision policy is resolved exactly once per run.
			policy := patch.Interactive
			switch {
			case autoApply:
				policy = patch.AutoApply
			case autoSkip:
				policy = patch.AutoSkip
			}

			controller, err := buildController(ctx, cfg, projectPath, policy, healer.RunOptions{
				TestPath: testPath,
				Filter:   filter,
				Verbose:  verbose,
			}, dryRun, logger)
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Println("Running in dry-run mode (no fixes will be applied)")
				failuresFound, err := controller.DryRun(ctx, os.Stdout)
				if err != nil {
					return err
				}
				if failuresFound {
					return fmt.Errorf("test failures found in dry-run mode")
				}
				return nil
			}

			summary, err := controller.Run(ctx)
			if err != nil {
				return err
			}
			if !summary.Converged() {
				return fmt.Errorf("reached maximum iterations (%d) without fixing all test failures (%d edits applied, %d failed)",
					cfg.Loop.MaxIterations, summary.Applied, summary.Failed)
			}

			fmt.Printf("All tests pass after %d iteration(s); %d edit(s) applied.\n",
				summary.Iterations, summary.Applied)
			return nil
		},
	}

	cmd.Flags().StringP("test-path", "t", "", "Path to a test file or directory")
	cmd.Flags().StringP("filter", "f", "", "PHPUnit filter string")
	cmd.Flags().BoolP("verbose", "v", false, "Run PHPUnit in verbose mode")
	cmd.Flags().IntP("max-errors", "m", 3, "Maximum errors per batch")
	cmd.Flags().IntP("max-iterations", "i", 10, "Maximum iterations to run")
	cmd.Flags().Bool("dry-run", false, "Diagnose only: run tests and print batches, apply nothing")
	cmd.Flags().Bool("auto", false, "Unattended mode: apply every validated edit without asking")
	cmd.Flags().Bool("auto-skip", false, "Unattended mode: skip every optional decision")
	cmd.Flags().Bool("force", false, "Commit edits even when syntax validation fails (dangerous)")
	cmd.MarkFlagsMutuallyExclusive("auto", "auto-skip")

	return cmd
}

// resolveProjectPath expands and validates the positional project argument.
func resolveProjectPath(arg string) (string, error) {
	expanded, err := homedir.Expand(arg)
	if err != nil {
		return "", fmt.Errorf("failed to expand project path: %w", err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", &config.ConfigurationError{
			Setting: "project-path",
			Reason:  fmt.Sprintf("%s is not a directory", abs),
		}
	}
	return abs, nil
}

// buildController performs the dependency wiring for one run. The oracle is
// only constructed for live runs, so a dry run works without a credential.
func buildController(
	ctx context.Context,
	cfg *config.Config,
	projectPath string,
	policy patch.Policy,
	runOpts healer.RunOptions,
	dryRun bool,
	logger *zap.Logger,
) (*healer.Controller, error) {
	extractor := report.NewExtractor(logger)

	runner, err := healer.NewPHPUnitRunner(projectPath, cfg.Runner, extractor, logger)
	if err != nil {
		return nil, err
	}
	if err := runner.CheckInstallation(ctx); err != nil {
		return nil, err
	}

	resolver := patch.NewResolver(projectPath, cfg.Patch.ProtectedDirs, logger)

	var checker patch.SyntaxChecker
	if cfg.Patch.SyntaxChecker == "treesitter" {
		checker = patch.TreeSitterChecker{}
	} else {
		checker = patch.NewPHPLintChecker(cfg.Patch.PHPBinary, cfg.Patch.LintTimeout, logger)
	}

	engine := patch.NewEngine(resolver, checker, patch.EngineOptions{
		Policy:    policy,
		Force:     cfg.Patch.Force,
		Confirmer: &patch.StdioConfirmer{In: os.Stdin, Out: os.Stdout},
	}, logger)

	var orc oracle.Oracle
	if !dryRun {
		orc, err = oracle.New(ctx, cfg.Oracle, logger)
		if err != nil {
			return nil, err
		}
	}

	return healer.NewController(projectPath, runner, orc, engine, resolver, cfg.Loop, runOpts, logger), nil
}
