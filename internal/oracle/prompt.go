// File: internal/oracle/prompt.go
package oracle

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an expert PHP developer fixing PHPUnit test failures.
You will receive a batch of failing test cases and the contents of the files they implicate.
Propose the minimal edits that make the failing tests pass without weakening the tests themselves.

For every edit, emit exactly this block structure, repeated once per edit, with no markdown around the File line:

File: relative/path/to/File.php
` + "```search" + `
<the exact lines currently in the file>
` + "```" + `
` + "```replace" + `
<the replacement lines>
` + "```" + `

The search block must be copied verbatim from the file contents provided. Keep each edit small and self-contained.`

// BuildPrompt renders the user prompt for one batch: the failure records
// grouped per file in encounter order, followed by the file contents.
func BuildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Project: %s\n", req.ProjectPath)
	fmt.Fprintf(&b, "Failure batch %d (%d of %d total failures in this batch",
		req.Batch.Index+1, req.Batch.BatchSize, req.Batch.TotalFailures)
	if req.Batch.HasMore {
		b.WriteString(", more batches follow")
	}
	b.WriteString(").\n\n## Failing tests\n")

	for _, file := range req.Batch.FileOrder {
		fmt.Fprintf(&b, "\n### %s\n", file)
		for _, f := range req.Batch.FailuresByFile[file] {
			fmt.Fprintf(&b, "- %s::%s", f.ClassName, f.TestName)
			if f.Line > 0 {
				fmt.Fprintf(&b, " (line %d)", f.Line)
			}
			if f.ErrorType != "" {
				fmt.Fprintf(&b, " [%s]", f.ErrorType)
			}
			b.WriteString("\n")
			for _, line := range strings.Split(strings.TrimSpace(f.Message), "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
	}

	b.WriteString("\n## File contents\n")
	for _, file := range req.Batch.FileOrder {
		content, ok := req.FileContents[file]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n### %s\n```php\n%s\n```\n", file, strings.TrimRight(content, "\n"))
	}

	return b.String()
}
