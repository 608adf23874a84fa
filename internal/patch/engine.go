// File: internal/patch/engine.go
package patch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// BackupSuffix is appended to a file's path for its backup artifact. The
// backup is colocated with the file and overwritten by each subsequent edit of
// the same file.
const BackupSuffix = ".remedy.bak"

// Confirmer answers yes/no questions put to the operator. It is only
// consulted under the Interactive policy.
type Confirmer interface {
	Confirm(prompt string) bool
}

// EngineOptions tunes a patch engine for one run.
type EngineOptions struct {
	Policy Policy
	// Force commits an edit even when validation and self-repair both fail.
	// Opt-in authorization only; never a default.
	Force bool
	// Confirmer resolves Interactive decisions. Required when Policy is
	// Interactive; ignored otherwise.
	Confirmer Confirmer
	// Rules overrides the default self-repair table.
	Rules []RepairRule
}

// Engine applies edit directives to project files with a transaction-like
// guarantee: at any observable point a target file is either exactly its prior
// content or exactly its validated new content.
type Engine struct {
	resolver *Resolver
	checker  SyntaxChecker
	opts     EngineOptions
	logger   *zap.Logger
}

// NewEngine wires a patch engine from its collaborators.
func NewEngine(resolver *Resolver, checker SyntaxChecker, opts EngineOptions, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Rules == nil {
		opts.Rules = defaultRepairRules
	}
	return &Engine{
		resolver: resolver,
		checker:  checker,
		opts:     opts,
		logger:   logger.Named("patch"),
	}
}

// Apply resolves the directive's target, locates the edit region through the
// tier table, and runs the commit protocol. Every failure is local to the
// directive and reported through Result.Err.
func (e *Engine) Apply(ctx context.Context, d Directive) Result {
	path, err := e.resolver.Resolve(d.TargetFile)
	if err != nil {
		return Result{Err: err}
	}

	original, err := os.ReadFile(path)
	if err != nil {
		return Result{Err: &FileResolutionError{Target: d.TargetFile, Reason: err}}
	}
	content := string(original)

	candidate, strategyName, ok := e.locate(content, d)
	if !ok {
		matchErr := &MatchNotFoundError{
			File:      path,
			Search:    d.SearchText,
			Diagnosis: diagnoseMismatch(content, d.SearchText),
		}
		// A manual full-file overwrite is a separately-authorized fallback;
		// the engine never does it silently.
		if e.opts.Policy == Interactive && e.opts.Confirmer != nil && d.ReplaceText != "" {
			prompt := fmt.Sprintf("No edit region matched in %s. Overwrite the entire file with the proposed content?", path)
			if e.opts.Confirmer.Confirm(prompt) {
				e.logger.Warn("Operator authorized manual full-file overwrite.", zap.String("file", path))
				return e.commit(ctx, path, original, []byte(d.ReplaceText), "manual-overwrite")
			}
		}
		return Result{Err: matchErr}
	}

	return e.commit(ctx, path, original, []byte(candidate), strategyName)
}

// locate runs the ordered tier table and computes the candidate content for
// the first strategy that matches.
func (e *Engine) locate(content string, d Directive) (string, string, bool) {
	for _, s := range strategies {
		sp, ok := s.Match(content, d.SearchText)
		if !ok {
			continue
		}
		e.logger.Debug("Matching strategy selected edit region.",
			zap.String("strategy", s.Name),
			zap.Int("start", sp.Start), zap.Int("end", sp.End))
		return content[:sp.Start] + d.ReplaceText + content[sp.End:], s.Name, true
	}
	return "", "", false
}

// commit executes the snapshot/validate/repair/write-or-restore protocol for a
// single file. The target is written only after the candidate content has
// passed validation (or Force is set), so the file never holds a partially
// written intermediate.
func (e *Engine) commit(ctx context.Context, path string, original, candidate []byte, strategyName string) Result {
	perm := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	backupPath := path + BackupSuffix
	if err := os.WriteFile(backupPath, original, perm); err != nil {
		return Result{Strategy: strategyName, Err: fmt.Errorf("failed to write backup %s: %w", backupPath, err)}
	}

	valid, detail, err := e.checker.Check(ctx, path, candidate)
	if err != nil {
		return Result{Strategy: strategyName, BackupPath: backupPath,
			Err: fmt.Errorf("syntax validation of %s failed to run: %w", path, err)}
	}

	if !valid {
		repaired, fired, changed := repair(string(candidate), e.opts.Rules)
		if changed {
			e.logger.Info("Self-repair rules fired on invalid candidate.",
				zap.String("file", path), zap.Strings("rules", fired))
			valid, detail, err = e.checker.Check(ctx, path, []byte(repaired))
			if err != nil {
				return Result{Strategy: strategyName, BackupPath: backupPath,
					Err: fmt.Errorf("syntax re-validation of %s failed to run: %w", path, err)}
			}
			if valid {
				candidate = []byte(repaired)
			}
		}
	}

	if !valid && !e.opts.Force {
		// The target was never touched; it is byte-identical to the backup.
		return Result{
			Strategy:    strategyName,
			SyntaxValid: false,
			BackupPath:  backupPath,
			Err:         &SyntaxRegressionError{File: path, CheckerOut: detail},
		}
	}
	if !valid {
		e.logger.Warn("Force policy committing syntactically invalid content.",
			zap.String("file", path), zap.String("detail", detail))
	}

	if err := writeFileAtomic(path, candidate, perm); err != nil {
		return Result{Strategy: strategyName, BackupPath: backupPath,
			Err: fmt.Errorf("failed to commit %s: %w", path, err)}
	}

	e.logger.Info("Directive applied.",
		zap.String("file", path),
		zap.String("strategy", strategyName),
		zap.Bool("syntax_valid", valid))
	return Result{Applied: true, Strategy: strategyName, SyntaxValid: valid, BackupPath: backupPath}
}

// writeFileAtomic writes data to a scratch file in the target's directory and
// swaps it into place, so readers never observe a truncated file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
