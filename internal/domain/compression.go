package domain

import (
	"fmt"
	"iter"
)

// CompressionAttempt is one (width, quality) pair tried by the compressor.
type CompressionAttempt struct {
	Width   int
	Quality float64
}

func (attempt CompressionAttempt) String() string {
	return fmt.Sprintf("%dw@%.2f", attempt.Width, attempt.Quality)
}

// Attempts returns a generator over the attempt ladder in nested-loop order:
// widths outer, qualities inner. The index counts attempts from zero.
func Attempts(widths []int, qualities []float64) iter.Seq2[int, CompressionAttempt] {
	return func(yield func(int, CompressionAttempt) bool) {
		index := 0

		for _, width := range widths {
			for _, quality := range qualities {
				if !yield(index, CompressionAttempt{Width: width, Quality: quality}) {
					return
				}

				index++
			}
		}
	}
}
