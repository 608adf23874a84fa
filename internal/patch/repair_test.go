// File: internal/patch/repair_test.go
package patch

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		want      string
		wantRules []string
	}{
		{
			name:      "doubled visibility",
			input:     "public public function foo() {}",
			want:      "public function foo() {}",
			wantRules: []string{"doubled-visibility-modifier"},
		},
		{
			name:      "mixed doubled visibility",
			input:     "private public function foo() {}",
			want:      "private function foo() {}",
			wantRules: []string{"doubled-visibility-modifier"},
		},
		{
			name:      "doubled static",
			input:     "public static static function bar() {}",
			want:      "public static function bar() {}",
			wantRules: []string{"doubled-static-modifier"},
		},
		{
			name:      "doubled function keyword",
			input:     "public function function baz() {}",
			want:      "public function baz() {}",
			wantRules: []string{"doubled-function-keyword"},
		},
		{
			name:      "doubled semicolon",
			input:     "return $x;;",
			want:      "return $x;",
			wantRules: []string{"doubled-semicolon"},
		},
		{
			name:      "doubled trailing brace",
			input:     "class A {\n  function f() { return 1; }\n}\n}\n",
			want:      "class A {\n  function f() { return 1; }\n}\n",
			wantRules: []string{"doubled-trailing-brace"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, fired, changed := repair(tc.input, defaultRepairRules)
			assert.True(t, changed)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantRules, fired)
		})
	}
}

func TestRepairLeavesValidContentAlone(t *testing.T) {
	t.Parallel()

	input := "<?php\nclass A {\n  public function f() { return 1; }\n}\n"
	got, fired, changed := repair(input, defaultRepairRules)
	assert.False(t, changed)
	assert.Empty(t, fired)
	assert.Equal(t, input, got)
}

func TestRepairMultiplePasses(t *testing.T) {
	t.Parallel()

	// Tripled modifier needs two passes of the same rule.
	got, fired, changed := repair("public public public function foo() {}", defaultRepairRules)
	assert.True(t, changed)
	assert.Equal(t, "public function foo() {}", got)
	assert.Equal(t, []string{"doubled-visibility-modifier", "doubled-visibility-modifier"}, fired)
}

func TestRepairPassBudget(t *testing.T) {
	t.Parallel()

	// A pathological rule pair that keeps toggling must still terminate.
	rules := []RepairRule{
		{Name: "a-to-b", Pattern: regexp.MustCompile(`a`), Replacement: "b"},
		{Name: "b-to-a", Pattern: regexp.MustCompile(`b`), Replacement: "a"},
	}
	_, fired, changed := repair("a", rules)
	assert.True(t, changed)
	assert.LessOrEqual(t, len(fired), 2*maxRepairPasses)
}
