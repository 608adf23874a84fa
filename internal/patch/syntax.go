// File: internal/patch/syntax.go
package patch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"
	"go.uber.org/zap"
)

// SyntaxChecker is a pass/fail oracle over source text. Ok=false with a nil
// error means the content is syntactically invalid; the detail string carries
// the checker's diagnostic.
type SyntaxChecker interface {
	Check(ctx context.Context, filename string, content []byte) (ok bool, detail string, err error)
}

// PHPLintChecker shells out to `php -l`. The candidate content is written to a
// scratch file so the file under edit is never observed in an intermediate
// state by the interpreter.
type PHPLintChecker struct {
	Binary  string
	Timeout time.Duration
	logger  *zap.Logger
}

// NewPHPLintChecker builds a checker around the given interpreter binary
// (default "php").
func NewPHPLintChecker(binary string, timeout time.Duration, logger *zap.Logger) *PHPLintChecker {
	if binary == "" {
		binary = "php"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PHPLintChecker{Binary: binary, Timeout: timeout, logger: logger.Named("php_lint")}
}

func (c *PHPLintChecker) Check(ctx context.Context, filename string, content []byte) (bool, string, error) {
	scratch, err := os.CreateTemp("", "remedy-lint-*"+filepath.Ext(filename))
	if err != nil {
		return false, "", fmt.Errorf("failed to create scratch file for lint: %w", err)
	}
	scratchPath := scratch.Name()
	defer os.Remove(scratchPath)

	if _, err := scratch.Write(content); err != nil {
		scratch.Close()
		return false, "", fmt.Errorf("failed to write scratch file: %w", err)
	}
	if err := scratch.Close(); err != nil {
		return false, "", fmt.Errorf("failed to close scratch file: %w", err)
	}

	lintCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(lintCtx, c.Binary, "-l", scratchPath)
	output, runErr := cmd.CombinedOutput()
	detail := string(bytes.TrimSpace(output))

	if runErr == nil {
		return true, detail, nil
	}
	if lintCtx.Err() != nil {
		return false, "", fmt.Errorf("syntax checker timed out after %s: %w", c.Timeout, lintCtx.Err())
	}
	if _, isExit := runErr.(*exec.ExitError); isExit {
		// Non-zero exit is the lint verdict, not an infrastructure failure.
		c.logger.Debug("Lint rejected candidate content.", zap.String("detail", detail))
		return false, detail, nil
	}
	return false, "", fmt.Errorf("failed to invoke syntax checker %q: %w", c.Binary, runErr)
}

// TreeSitterChecker validates PHP source in-process with a tree-sitter parse.
// It trades `php -l` fidelity for zero external dependencies, which matters in
// environments without a PHP interpreter on PATH.
type TreeSitterChecker struct{}

func (TreeSitterChecker) Check(ctx context.Context, _ string, content []byte) (bool, string, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(php.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return false, "", fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		node := firstErrorNode(root)
		if node != nil {
			point := node.StartPoint()
			return false, fmt.Sprintf("parse error near line %d, column %d", point.Row+1, point.Column+1), nil
		}
		return false, "parse error", nil
	}
	return true, "", nil
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.Type() == "ERROR" || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if found := firstErrorNode(node.Child(i)); found != nil {
			return found
		}
	}
	return nil
}
