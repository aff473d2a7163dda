// Package sweep runs the backtest over a grid of window pairs in parallel.
//
// Each run is a pure function of (series, config), so the grid fans out over
// one shared read-only series with no locking. Results come back in grid
// order regardless of which worker finished first.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"index-systemv1/internal/backtest"
	"index-systemv1/internal/model"
)

// ErrEmptyGrid is returned when no valid (short, long) pair can be formed
// from the requested windows.
var ErrEmptyGrid = errors.New("sweep grid is empty")

// Spec describes one parameter sweep: the candidate windows for each line and
// the run parameters shared by every cell. Pairs where short >= long are not
// part of the grid.
type Spec struct {
	ShortWindows []int
	LongWindows  []int
	Base         backtest.Config // capital, lag, commission for every cell
	Workers      int             // 0 means one per CPU
}

// Outcome is one grid cell's result. A cell that failed carries its error and
// a nil report; the rest of the sweep is unaffected.
type Outcome struct {
	Config backtest.Config `json:"config"`
	Report *model.Report   `json:"report,omitempty"`
	Err    error           `json:"-"`
}

// Run executes the sweep and returns one outcome per grid cell, ordered by
// (short, long). It stops early when ctx is cancelled; already-finished cells
// are returned alongside ctx.Err().
func Run(ctx context.Context, series model.Series, spec Spec) ([]Outcome, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}

	cfgs := grid(spec)
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("%w: shorts=%v longs=%v", ErrEmptyGrid, spec.ShortWindows, spec.LongWindows)
	}

	workers := spec.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > len(cfgs) {
		workers = len(cfgs)
	}

	results := make([]Outcome, len(cfgs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out, err := backtest.Run(series, cfgs[i])
				if err != nil {
					results[i] = Outcome{Config: cfgs[i], Err: err}
					continue
				}
				rep := out.Report
				results[i] = Outcome{Config: cfgs[i], Report: &rep}
			}
		}()
	}

	var runErr error
feed:
	for i := range cfgs {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return results, runErr
}

// Best returns the outcome with the highest total return among cells that
// completed. ok=false when every cell failed.
func Best(outcomes []Outcome) (Outcome, bool) {
	best := -1
	for i, o := range outcomes {
		if o.Report == nil {
			continue
		}
		if best < 0 || o.Report.TotalReturnPct > outcomes[best].Report.TotalReturnPct {
			best = i
		}
	}
	if best < 0 {
		return Outcome{}, false
	}
	return outcomes[best], true
}

// grid expands the spec into concrete configs, deduplicated and ordered by
// (short, long).
func grid(spec Spec) []backtest.Config {
	shorts := dedupe(spec.ShortWindows)
	longs := dedupe(spec.LongWindows)

	var cfgs []backtest.Config
	for _, s := range shorts {
		for _, l := range longs {
			if s < 1 || s >= l {
				continue
			}
			c := spec.Base
			c.ShortWindow = s
			c.LongWindow = l
			cfgs = append(cfgs, c)
		}
	}
	return cfgs
}

func dedupe(ws []int) []int {
	seen := make(map[int]struct{}, len(ws))
	var out []int
	for _, w := range ws {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Ints(out)
	return out
}
