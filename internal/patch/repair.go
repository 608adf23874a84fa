// File: internal/patch/repair.go
package patch

import "regexp"

// RepairRule rewrites one class of mechanically-introduced defect. Rules are
// data, not code: the table below is ordered and each rule is applied with
// ReplaceAllString until it no longer changes the content.
type RepairRule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// defaultRepairRules covers defects a naive text merge is known to introduce.
// The table is consulted only after a failed syntax validation; content that
// validates on the first pass is never rewritten.
var defaultRepairRules = []RepairRule{
	{
		Name:        "doubled-visibility-modifier",
		Pattern:     regexp.MustCompile(`\b(public|protected|private)\s+(public|protected|private)\s+`),
		Replacement: "$1 ",
	},
	{
		Name:        "doubled-static-modifier",
		Pattern:     regexp.MustCompile(`\bstatic\s+static\s+`),
		Replacement: "static ",
	},
	{
		Name:        "doubled-function-keyword",
		Pattern:     regexp.MustCompile(`\bfunction\s+function\s+`),
		Replacement: "function ",
	},
	{
		Name:        "duplicated-close-tag",
		Pattern:     regexp.MustCompile(`\?>\s*\?>\s*$`),
		Replacement: "?>\n",
	},
	{
		// Both braces must sit at column zero; an indented close brace
		// followed by a top-level one is a normal nested structure.
		Name:        "doubled-trailing-brace",
		Pattern:     regexp.MustCompile(`\n}\s*\n}\s*(\?>)?\s*\z`),
		Replacement: "\n}\n$1",
	},
	{
		Name:        "doubled-semicolon",
		Pattern:     regexp.MustCompile(`;;+`),
		Replacement: ";",
	},
}

// maxRepairPasses bounds the self-repair loop.
const maxRepairPasses = 4

// repair applies the rule table in order until no rule fires or the pass
// budget is exhausted. It returns the rewritten content, the names of the
// rules that fired, and whether anything changed.
func repair(content string, rules []RepairRule) (string, []string, bool) {
	var fired []string
	changed := false

	for pass := 0; pass < maxRepairPasses; pass++ {
		passChanged := false
		for _, rule := range rules {
			rewritten := rule.Pattern.ReplaceAllString(content, rule.Replacement)
			if rewritten != content {
				content = rewritten
				fired = append(fired, rule.Name)
				passChanged = true
			}
		}
		if !passChanged {
			break
		}
		changed = true
	}
	return content, fired, changed
}
