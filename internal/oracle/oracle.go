// File: internal/oracle/oracle.go
package oracle

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/remedy-cli/internal/batch"
)

// Request carries one failure batch plus the contents of the files it touches.
type Request struct {
	ProjectPath  string
	Batch        batch.Batch
	FileContents map[string]string
}

// Oracle is the external code-fixing model. The reply is free text expected
// (but not guaranteed) to contain directive blocks per the parser grammar.
// Implementations perform no retry or backoff: a transport failure is terminal
// for the batch that issued it.
type Oracle interface {
	Propose(ctx context.Context, req Request) (string, error)
}

// NetworkError reports an oracle transport failure. The batch that triggered
// it is abandoned; the iteration continues.
type NetworkError struct {
	Provider string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("oracle request to %s failed: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ResponseFormatError reports a reply with no parseable directives. Callers
// degrade to the advisory file scan; nothing is auto-applied.
type ResponseFormatError struct {
	Mentioned []string
}

func (e *ResponseFormatError) Error() string {
	if len(e.Mentioned) == 0 {
		return "oracle reply contained no edit directives"
	}
	return fmt.Sprintf("oracle reply contained no edit directives (files mentioned in prose: %v)", e.Mentioned)
}
