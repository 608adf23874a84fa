// File: internal/patch/strategies.go
package patch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// strategy locates the region of content that a directive's search text
// intends. Strategies are tried in order and the first hit wins; adding a new
// tier never touches the commit protocol.
type strategy struct {
	Name  string
	Match func(content, search string) (span, bool)
}

// strategies is the ordered tier table.
var strategies = []strategy{
	{Name: "exact", Match: matchExact},
	{Name: "method-boundary", Match: matchMethodBoundary},
	{Name: "line-block", Match: matchLineBlock},
}

// matchExact finds the first verbatim occurrence of the search text.
func matchExact(content, search string) (span, bool) {
	if search == "" {
		return span{}, false
	}
	idx := strings.Index(content, search)
	if idx < 0 {
		return span{}, false
	}
	return span{Start: idx, End: idx + len(search)}, true
}

// functionNameRegex pulls the declared identifier out of the search text.
var functionNameRegex = regexp.MustCompile(`function\s+&?([A-Za-z_]\w*)\s*\(`)

// matchMethodBoundary extracts a function name from the search text and, when
// the file declares that function exactly once, elects its whole body. More
// than one declaration is ambiguous and the tier refuses to guess.
func matchMethodBoundary(content, search string) (span, bool) {
	nameMatch := functionNameRegex.FindStringSubmatch(search)
	if nameMatch == nil {
		return span{}, false
	}
	name := nameMatch[1]

	declRegex := regexp.MustCompile(
		`(?m)^[ \t]*(?:(?:abstract|final|public|protected|private|static)\s+)*function\s+&?` +
			regexp.QuoteMeta(name) + `\s*\(`)
	decls := declRegex.FindAllStringIndex(content, -1)
	if len(decls) != 1 {
		return span{}, false
	}

	start := decls[0][0]
	// Skip the line's leading indentation so it survives the replacement.
	for start < len(content) && (content[start] == ' ' || content[start] == '\t') {
		start++
	}

	end, ok := matchBalancedBody(content, decls[0][1])
	if !ok {
		return span{}, false
	}
	return span{Start: start, End: end}, true
}

// matchBalancedBody scans forward from the end of a declaration header to the
// brace that closes the body, tracking nesting depth. Strings and comments are
// not lexed; for mechanically generated search blocks this is sufficient.
func matchBalancedBody(content string, from int) (int, bool) {
	depth := 0
	opened := false
	for i := from; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
			opened = true
		case '}':
			depth--
			if opened && depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// matchLineBlock slides a window of the search block's line count across the
// file and accepts the first window whose boundary lines each contain the
// corresponding boundary line of the search block as a substring.
func matchLineBlock(content, search string) (span, bool) {
	searchLines := strings.Split(strings.TrimRight(search, "\n"), "\n")
	if len(searchLines) < 2 {
		return span{}, false
	}
	first := strings.TrimSpace(searchLines[0])
	last := strings.TrimSpace(searchLines[len(searchLines)-1])
	if first == "" || last == "" {
		return span{}, false
	}

	contentLines := strings.Split(content, "\n")
	offsets := lineOffsets(content)
	window := len(searchLines)

	for i := 0; i+window <= len(contentLines); i++ {
		if !strings.Contains(contentLines[i], first) {
			continue
		}
		if !strings.Contains(contentLines[i+window-1], last) {
			continue
		}
		start := offsets[i]
		end := offsets[i+window-1] + len(contentLines[i+window-1])
		return span{Start: start, End: end}, true
	}
	return span{}, false
}

// lineOffsets returns the byte offset of the start of each line.
func lineOffsets(content string) []int {
	offsets := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// diagnoseMismatch renders an expected-vs-found summary for manual
// remediation when every tier fails.
func diagnoseMismatch(content, search string) string {
	searchLines := strings.Split(strings.TrimRight(search, "\n"), "\n")
	probe := strings.TrimSpace(searchLines[0])

	var b strings.Builder
	fmt.Fprintf(&b, "expected to find (%d lines):\n", len(searchLines))
	for _, line := range searchLines {
		fmt.Fprintf(&b, "  | %s\n", line)
	}

	if probe != "" {
		if idx := strings.Index(content, probe); idx >= 0 {
			lineNo := 1 + strings.Count(content[:idx], "\n")
			fmt.Fprintf(&b, "closest anchor: first search line occurs at line %d, but the block diverges:\n", lineNo)
			contentLines := strings.Split(content, "\n")
			end := lineNo - 1 + len(searchLines)
			if end > len(contentLines) {
				end = len(contentLines)
			}
			actual := strings.Join(contentLines[lineNo-1:end], "\n")
			b.WriteString(renderDiff(strings.Join(searchLines, "\n"), actual))
			return b.String()
		}
	}
	b.WriteString("no line of the search block occurs in the file\n")
	return b.String()
}

// renderDiff produces a compact line-oriented diff of expected vs found.
func renderDiff(expected, actual string) string {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToChars(expected, actual)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(src, dst, false), lines)

	var b strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
			b.WriteString(prefix + line + "\n")
		}
	}
	return b.String()
}
