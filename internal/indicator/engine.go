package indicator

import (
	"errors"
	"fmt"

	"index-systemv1/internal/model"
)

// ErrBadWindow is returned for non-positive window lengths.
var ErrBadWindow = errors.New("indicator window must be positive")

// DefaultWindows are the trend windows computed by the daily pipeline.
var DefaultWindows = []int{20, 50, 100, 200}

// Engine computes a fixed set of SMA windows over a series. Windows are
// computed independently and merged into one Set keyed by window length.
type Engine struct {
	windows []int
}

// NewEngine creates an engine for the given window lengths. Duplicates are
// collapsed; any non-positive window is rejected up front.
func NewEngine(windows []int) (*Engine, error) {
	seen := make(map[int]bool, len(windows))
	uniq := make([]int, 0, len(windows))
	for _, w := range windows {
		if w < 1 {
			return nil, fmt.Errorf("%w: %d", ErrBadWindow, w)
		}
		if !seen[w] {
			seen[w] = true
			uniq = append(uniq, w)
		}
	}
	return &Engine{windows: uniq}, nil
}

// Windows returns the configured window lengths.
func (e *Engine) Windows() []int {
	out := make([]int, len(e.windows))
	copy(out, e.windows)
	return out
}

// Compute returns one aligned SMA line per configured window.
func (e *Engine) Compute(series model.Series) Set {
	set := make(Set, len(e.windows))
	for _, w := range e.windows {
		set[w] = ComputeSMA(series, w)
	}
	return set
}
