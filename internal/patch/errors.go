// File: internal/patch/errors.go
package patch

import (
	"errors"
	"fmt"
)

// ErrProtectedPath marks any attempt to read or write under the protected
// dependency directory. It is wrapped by FileResolutionError so callers can
// test for it with errors.Is.
var ErrProtectedPath = errors.New("path is inside the protected dependency directory")

// FileResolutionError reports that a directive's target file could not be
// mapped to a writable file inside the project.
type FileResolutionError struct {
	Target string
	Reason error
}

func (e *FileResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve target file %q: %v", e.Target, e.Reason)
}

func (e *FileResolutionError) Unwrap() error { return e.Reason }

// MatchNotFoundError reports that no matching tier located the search text.
// Diagnosis carries an expected-vs-found rendering for manual remediation.
type MatchNotFoundError struct {
	File      string
	Search    string
	Diagnosis string
}

func (e *MatchNotFoundError) Error() string {
	return fmt.Sprintf("no matching strategy located the edit region in %s\n%s", e.File, e.Diagnosis)
}

// SyntaxRegressionError reports that an applied edit broke the file's syntax
// and the bounded self-repair pass could not recover it. The file has been
// restored byte-identical from its backup.
type SyntaxRegressionError struct {
	File       string
	CheckerOut string
}

func (e *SyntaxRegressionError) Error() string {
	return fmt.Sprintf("edit to %s failed syntax validation and was rolled back: %s", e.File, e.CheckerOut)
}
