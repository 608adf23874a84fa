// File: internal/batch/batcher.go
package batch

import "github.com/xkilldash9x/remedy-cli/internal/report"

// Batch is one bounded, ordered slice of the full failure list, grouped by file
// for the oracle prompt. FileOrder preserves the encounter order of the files
// inside the slice; FailuresByFile is keyed by the same paths.
type Batch struct {
	Index          int
	TotalFailures  int
	BatchSize      int
	HasMore        bool
	FileOrder      []string
	FailuresByFile map[string][]report.Failure
}

// Total returns ceil(n/size) batches for n failures. A non-positive size yields
// zero batches.
func Total(n, size int) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Slice returns failures[index*size : index*size+size], clamped to the list.
func Slice(failures []report.Failure, size, index int) []report.Failure {
	if size <= 0 || index < 0 {
		return nil
	}
	start := index * size
	if start >= len(failures) {
		return nil
	}
	end := start + size
	if end > len(failures) {
		end = len(failures)
	}
	return failures[start:end]
}

// Make builds the batch at the given index. It is stateless and deterministic:
// the batches for index 0..Total-1 partition the failure list exactly, with no
// overlap and no gaps.
func Make(failures []report.Failure, size, index int) Batch {
	window := Slice(failures, size, index)

	byFile := make(map[string][]report.Failure, len(window))
	var order []string
	for _, f := range window {
		if _, seen := byFile[f.File]; !seen {
			order = append(order, f.File)
		}
		byFile[f.File] = append(byFile[f.File], f)
	}

	return Batch{
		Index:          index,
		TotalFailures:  len(failures),
		BatchSize:      len(window),
		HasMore:        index*size+size < len(failures),
		FileOrder:      order,
		FailuresByFile: byFile,
	}
}

// All materializes every batch for the failure list.
func All(failures []report.Failure, size int) []Batch {
	total := Total(len(failures), size)
	batches := make([]Batch, 0, total)
	for i := 0; i < total; i++ {
		batches = append(batches, Make(failures, size, i))
	}
	return batches
}
