/*
Package traversal implements the breadth-first and depth-first walks over a grid.
Each walk is a generator: a goroutine that performs the search on a private copy of
the grid and sends a full snapshot down a channel after every visited cell. Pacing
is entirely up to the receiver; a walk proceeds exactly as fast as its steps are
pulled, and stops when its context is cancelled. Nothing here sleeps.
*/
package traversal

import (
	"context"
	"fmt"

	gw "pathviz/grid_world"
)

// Outcome is how a walk ended.
type Outcome int

const (
	// Exhausted means every cell reachable from start was visited without finding the end.
	Exhausted Outcome = iota
	// Reached means the end cell was visited.
	Reached
	// Aborted means the walk's context was cancelled before it finished.
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Exhausted:
		return "exhausted"
	case Reached:
		return "reached"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Step is one visited cell. Snapshot is the whole grid immediately after the cell
// was marked, and belongs to the receiver.
type Step struct {
	// Index counts steps from 1; the start cell is always step 1.
	Index int
	Cell  gw.Coord
	// Depth is the cell's BFS distance from start, or its DFS recursion depth.
	Depth    int
	Snapshot gw.Grid
}

// Result summarizes a finished walk.
type Result struct {
	Algorithm gw.Algorithm
	Outcome   Outcome
	// Visited is the number of steps produced.
	Visited int
	// Distance is the number of moves from start to end along Path, or -1 if the end was not reached.
	Distance int
	// Path runs from start to end inclusive when the end was reached. For BFS it is a
	// shortest path; for DFS it is the recursion stack at the moment the end was found.
	Path []gw.Coord
	// Final is the last snapshot produced, or the walk's starting grid if none was.
	Final gw.Grid
}

// Walk is a lazy, finite sequence of steps. It cannot be restarted: once Steps is
// drained (or the walk's context cancelled) it is spent.
type Walk struct {
	algorithm gw.Algorithm
	steps     chan Step
	result    Result
}

func newWalk(alg gw.Algorithm, g gw.Grid) *Walk {
	return &Walk{
		algorithm: alg,
		steps:     make(chan Step),
		result: Result{
			Algorithm: alg,
			Outcome:   Exhausted,
			Distance:  -1,
			Final:     g,
		},
	}
}

func (w *Walk) Algorithm() gw.Algorithm {
	return w.algorithm
}

// Steps returns the channel of steps, closed when the walk ends.
func (w *Walk) Steps() <-chan Step {
	return w.steps
}

// Result returns the walk's summary. It is only valid after Steps has been closed.
func (w *Walk) Result() Result {
	return w.result
}

// emit sends the step unless the context is cancelled first, in which case the walk is marked aborted.
func (w *Walk) emit(ctx context.Context, step Step) bool {
	if ctx.Err() != nil {
		w.result.Outcome = Aborted
		return false
	}
	select {
	case w.steps <- step:
		w.result.Visited = step.Index
		w.result.Final = step.Snapshot
		return true
	case <-ctx.Done():
		w.result.Outcome = Aborted
		return false
	}
}

// EngineFunc starts a walk over the passed grid.
type EngineFunc func(context.Context, gw.Grid) *Walk

// Engine returns the walk constructor for the passed algorithm.
func Engine(alg gw.Algorithm) (EngineFunc, error) {
	switch alg {
	case gw.BFS:
		return BFS, nil
	case gw.DFS:
		return DFS, nil
	}
	return nil, fmt.Errorf("%w: %q", gw.ErrUnknownAlgorithm, alg)
}

// Drain pulls every remaining step of the walk, without pacing, and returns them along with the result.
func Drain(w *Walk) (steps []Step, result Result) {
	for step := range w.Steps() {
		steps = append(steps, step)
	}
	return steps, w.Result()
}
