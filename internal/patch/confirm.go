// File: internal/patch/confirm.go
package patch

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// StdioConfirmer asks yes/no questions over a terminal-style reader/writer
// pair. Anything other than "y"/"yes" declines.
type StdioConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (c *StdioConfirmer) Confirm(prompt string) bool {
	fmt.Fprintf(c.Out, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(c.In)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
