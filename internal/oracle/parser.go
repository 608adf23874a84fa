// File: internal/oracle/parser.go
package oracle

import (
	"regexp"

	"github.com/xkilldash9x/remedy-cli/internal/patch"
)

var (
	// Regex definitions use \x60 for backticks because Go raw strings cannot
	// contain them.

	// directiveRegex matches the fixed three-part grammar: a target-path
	// line, a fenced search block, a fenced replace block. (?s) lets the
	// blocks span lines; surrounding prose is ignored and the grammar may
	// repeat any number of times.
	directiveRegex = regexp.MustCompile(
		"(?ms)^File:[ \t]*(\\S+?)[ \t]*\\n+" +
			"\x60\x60\x60search\\n(.*?)\\n\x60\x60\x60[ \t]*\\n+" +
			"\x60\x60\x60replace\\n(.*?)\\n\x60\x60\x60")

	// mentionedFileRegex powers the advisory fallback scan.
	mentionedFileRegex = regexp.MustCompile(`[\w./-]+\.php\b`)
)

// ParseDirectives extracts edit directives from an oracle reply. It is a pure
// function over the reply text; the boolean is false when zero directives were
// found, marking the result low-confidence.
func ParseDirectives(reply string) ([]patch.Directive, bool) {
	matches := directiveRegex.FindAllStringSubmatch(reply, -1)
	if len(matches) == 0 {
		return nil, false
	}

	directives := make([]patch.Directive, 0, len(matches))
	for _, m := range matches {
		directives = append(directives, patch.Directive{
			TargetFile:  m[1],
			SearchText:  m[2],
			ReplaceText: m[3],
		})
	}
	return directives, true
}

// ScanMentionedFiles is the best-effort fallback for low-confidence replies:
// it collects path-like tokens near the prose so the operator knows where to
// look. Its output is advisory only and never auto-applied.
func ScanMentionedFiles(reply string) []string {
	raw := mentionedFileRegex.FindAllString(reply, -1)
	seen := make(map[string]struct{}, len(raw))
	var files []string
	for _, f := range raw {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		files = append(files, f)
	}
	return files
}
