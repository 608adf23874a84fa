// File: internal/patch/engine_test.go
package patch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChecker validates content with a predicate instead of a PHP toolchain.
type fakeChecker struct {
	invalid func(content string) bool
	calls   int
}

func (c *fakeChecker) Check(_ context.Context, _ string, content []byte) (bool, string, error) {
	c.calls++
	if c.invalid != nil && c.invalid(string(content)) {
		return false, "synthetic parse error", nil
	}
	return true, "", nil
}

// alwaysValid accepts everything.
func alwaysValid() *fakeChecker { return &fakeChecker{} }

type recordingConfirmer struct {
	answer  bool
	prompts []string
}

func (r *recordingConfirmer) Confirm(prompt string) bool {
	r.prompts = append(r.prompts, prompt)
	return r.answer
}

func newEngineProject(t *testing.T, content string) (root, file string) {
	t.Helper()
	root = t.TempDir()
	file = filepath.Join(root, "src", "Calculator.php")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return root, file
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestApplyExactMatch(t *testing.T) {
	t.Parallel()
	original := "<?php\nclass Calculator {\n    public function add($a, $b) {\n        return $a - $b;\n    }\n}\n"
	root, file := newEngineProject(t, original)

	engine := NewEngine(
		NewResolver(root, []string{"vendor"}, nil),
		alwaysValid(),
		EngineOptions{Policy: AutoApply},
		nil,
	)

	res := engine.Apply(context.Background(), Directive{
		TargetFile:  "src/Calculator.php",
		SearchText:  "return $a - $b;",
		ReplaceText: "return $a + $b;",
	})

	require.NoError(t, res.Err)
	assert.True(t, res.Applied)
	assert.Equal(t, "exact", res.Strategy)
	assert.True(t, res.SyntaxValid)

	want := strings.Replace(original, "return $a - $b;", "return $a + $b;", 1)
	assert.Equal(t, want, readFile(t, file))

	// The backup is colocated and byte-identical to the pre-edit content.
	assert.Equal(t, file+BackupSuffix, res.BackupPath)
	assert.Equal(t, original, readFile(t, res.BackupPath))
}

func TestApplyMatchNotFound(t *testing.T) {
	t.Parallel()
	original := "<?php\n$x = 1;\n$y = 2;\n$z = 3;\n"
	root, file := newEngineProject(t, original)

	engine := NewEngine(
		NewResolver(root, []string{"vendor"}, nil),
		alwaysValid(),
		EngineOptions{Policy: AutoSkip},
		nil,
	)

	res := engine.Apply(context.Background(), Directive{
		TargetFile:  "src/Calculator.php",
		SearchText:  "$x = 1;\n$y = 999;\n$w = 9;",
		ReplaceText: "anything",
	})

	assert.False(t, res.Applied)
	var matchErr *MatchNotFoundError
	require.ErrorAs(t, res.Err, &matchErr)
	assert.Contains(t, matchErr.Diagnosis, "expected to find")

	// The file is byte-identical; no backup was created.
	assert.Equal(t, original, readFile(t, file))
	_, statErr := os.Stat(file + BackupSuffix)
	assert.True(t, os.IsNotExist(statErr))
}

func TestApplySyntaxRegressionRollsBack(t *testing.T) {
	t.Parallel()
	original := "<?php\n$ok = true;\n"
	root, file := newEngineProject(t, original)

	checker := &fakeChecker{invalid: func(content string) bool {
		return strings.Contains(content, "broken")
	}}
	engine := NewEngine(
		NewResolver(root, []string{"vendor"}, nil),
		checker,
		EngineOptions{Policy: AutoApply},
		nil,
	)

	res := engine.Apply(context.Background(), Directive{
		TargetFile:  "src/Calculator.php",
		SearchText:  "$ok = true;",
		ReplaceText: "$ok = broken(",
	})

	assert.False(t, res.Applied)
	assert.False(t, res.SyntaxValid)
	var synErr *SyntaxRegressionError
	require.ErrorAs(t, res.Err, &synErr)
	assert.Equal(t, "synthetic parse error", synErr.CheckerOut)

	assert.Equal(t, original, readFile(t, file), "target must be byte-identical after rollback")
	assert.Equal(t, original, readFile(t, res.BackupPath))
}

func TestApplySelfRepairRecovers(t *testing.T) {
	t.Parallel()
	original := "<?php\nclass A {\n    public function f() {\n        return 1;\n    }\n}\n"
	root, file := newEngineProject(t, original)

	// The checker rejects the doubled modifier the replacement introduces;
	// the repair table removes it and re-validation passes.
	checker := &fakeChecker{invalid: func(content string) bool {
		return strings.Contains(content, "public public")
	}}
	engine := NewEngine(
		NewResolver(root, []string{"vendor"}, nil),
		checker,
		EngineOptions{Policy: AutoApply},
		nil,
	)

	res := engine.Apply(context.Background(), Directive{
		TargetFile:  "src/Calculator.php",
		SearchText:  "public function f() {",
		ReplaceText: "public public function f() {",
	})

	require.NoError(t, res.Err)
	assert.True(t, res.Applied)
	assert.True(t, res.SyntaxValid)
	assert.Equal(t, 2, checker.calls, "one failed validation plus one re-validation")

	got := readFile(t, file)
	assert.NotContains(t, got, "public public")
	assert.Contains(t, got, "public function f() {")
}

func TestApplyForceCommitsInvalidContent(t *testing.T) {
	t.Parallel()
	original := "<?php\n$ok = true;\n"
	root, file := newEngineProject(t, original)

	checker := &fakeChecker{invalid: func(string) bool { return true }}
	engine := NewEngine(
		NewResolver(root, []string{"vendor"}, nil),
		checker,
		EngineOptions{Policy: AutoApply, Force: true},
		nil,
	)

	res := engine.Apply(context.Background(), Directive{
		TargetFile:  "src/Calculator.php",
		SearchText:  "$ok = true;",
		ReplaceText: "$ok = broken(",
	})

	require.NoError(t, res.Err)
	assert.True(t, res.Applied)
	assert.False(t, res.SyntaxValid)
	assert.Contains(t, readFile(t, file), "$ok = broken(")
	assert.Equal(t, original, readFile(t, res.BackupPath), "backup still holds the prior content")
}

func TestApplyProtectedTarget(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	vendored := filepath.Join(root, "vendor", "lib", "Helper.php")
	require.NoError(t, os.MkdirAll(filepath.Dir(vendored), 0o755))
	require.NoError(t, os.WriteFile(vendored, []byte("<?php\n$v = 1;\n"), 0o644))

	engine := NewEngine(
		NewResolver(root, []string{"vendor"}, nil),
		alwaysValid(),
		EngineOptions{Policy: AutoApply, Force: true},
		nil,
	)

	res := engine.Apply(context.Background(), Directive{
		TargetFile:  "vendor/lib/Helper.php",
		SearchText:  "$v = 1;",
		ReplaceText: "$v = 2;",
	})

	assert.False(t, res.Applied)
	assert.ErrorIs(t, res.Err, ErrProtectedPath)
	assert.Equal(t, "<?php\n$v = 1;\n", readFile(t, vendored))
}

func TestApplyInteractiveOverwriteFallback(t *testing.T) {
	t.Parallel()
	original := "<?php\nentirely different content\n"
	root, file := newEngineProject(t, original)

	confirmer := &recordingConfirmer{answer: true}
	engine := NewEngine(
		NewResolver(root, []string{"vendor"}, nil),
		alwaysValid(),
		EngineOptions{Policy: Interactive, Confirmer: confirmer},
		nil,
	)

	replacement := "<?php\nrewritten file\n"
	res := engine.Apply(context.Background(), Directive{
		TargetFile:  "src/Calculator.php",
		SearchText:  "nothing matches this",
		ReplaceText: replacement,
	})

	require.NoError(t, res.Err)
	assert.True(t, res.Applied)
	assert.Equal(t, "manual-overwrite", res.Strategy)
	assert.Len(t, confirmer.prompts, 1)
	assert.Equal(t, replacement, readFile(t, file))
	assert.Equal(t, original, readFile(t, res.BackupPath))
}

func TestApplyInteractiveOverwriteDeclined(t *testing.T) {
	t.Parallel()
	original := "<?php\nentirely different content\n"
	root, file := newEngineProject(t, original)

	confirmer := &recordingConfirmer{answer: false}
	engine := NewEngine(
		NewResolver(root, []string{"vendor"}, nil),
		alwaysValid(),
		EngineOptions{Policy: Interactive, Confirmer: confirmer},
		nil,
	)

	res := engine.Apply(context.Background(), Directive{
		TargetFile:  "src/Calculator.php",
		SearchText:  "nothing matches this",
		ReplaceText: "<?php\nrewritten file\n",
	})

	assert.False(t, res.Applied)
	var matchErr *MatchNotFoundError
	require.ErrorAs(t, res.Err, &matchErr)
	assert.Equal(t, original, readFile(t, file))
}

func TestRepeatedEditsOverwriteBackup(t *testing.T) {
	t.Parallel()
	original := "<?php\n$n = 1;\n"
	root, file := newEngineProject(t, original)

	engine := NewEngine(
		NewResolver(root, []string{"vendor"}, nil),
		alwaysValid(),
		EngineOptions{Policy: AutoApply},
		nil,
	)

	res := engine.Apply(context.Background(), Directive{
		TargetFile: "src/Calculator.php", SearchText: "$n = 1;", ReplaceText: "$n = 2;",
	})
	require.NoError(t, res.Err)
	res = engine.Apply(context.Background(), Directive{
		TargetFile: "src/Calculator.php", SearchText: "$n = 2;", ReplaceText: "$n = 3;",
	})
	require.NoError(t, res.Err)

	// The backup tracks the most recent pre-edit state, not the first.
	assert.Equal(t, "<?php\n$n = 3;\n", readFile(t, file))
	assert.Equal(t, "<?php\n$n = 2;\n", readFile(t, res.BackupPath))
}
