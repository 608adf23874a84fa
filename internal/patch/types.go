// File: internal/patch/types.go
package patch

// Directive is one proposed file edit extracted from the oracle's reply. The
// target path is project-relative but may arrive malformed (leading "./",
// absolute, wrong separators); the resolver normalizes it.
type Directive struct {
	TargetFile  string
	SearchText  string
	ReplaceText string
}

// Policy decides how apply/skip questions are answered during a run. It is
// resolved once per run and injected into the engine, never re-derived at
// individual decision points.
type Policy int

const (
	// Interactive asks the operator on stdin before risky actions.
	Interactive Policy = iota
	// AutoApply accepts the best available result without asking.
	AutoApply
	// AutoSkip declines every optional action without asking.
	AutoSkip
)

func (p Policy) String() string {
	switch p {
	case AutoApply:
		return "auto-apply"
	case AutoSkip:
		return "auto-skip"
	default:
		return "interactive"
	}
}

// Result describes the outcome of applying a single directive.
type Result struct {
	Applied     bool
	Strategy    string
	SyntaxValid bool
	BackupPath  string
	Err         error
}

// span marks a half-open byte range [Start, End) in the file content that a
// matching strategy elected for replacement.
type span struct {
	Start int
	End   int
}
