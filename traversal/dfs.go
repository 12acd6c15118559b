package traversal

import (
	"context"
	"errors"

	gw "pathviz/grid_world"
)

// errReachedEnd is the cancellation cause recorded once the end cell is visited.
var errReachedEnd = errors.New("reached end")

// dfsWalker holds the state of one depth-first walk. The token is the only thing
// the recursive calls share for stopping: it is cancelled with errReachedEnd when
// the end is found, and inherits cancellation from the caller's context.
type dfsWalker struct {
	walk     *Walk
	grid     gw.Grid
	end      gw.Coord
	visited  [gw.Rows][gw.Cols]bool
	stack    []gw.Coord
	index    int
	finished context.CancelCauseFunc
}

// DFS starts a depth-first walk from the grid's start cell: a recursive pre-order
// visit over the right, down, left, up neighbor order. The walk stops the moment the
// end cell is visited; every pending call observes the cancelled token on entry or
// after its child returns, and backs out without visiting anything further.
func DFS(ctx context.Context, g gw.Grid) *Walk {
	w := newWalk(gw.DFS, g)

	go func() {
		defer close(w.steps)

		token, finished := context.WithCancelCause(ctx)
		defer finished(nil)

		walker := &dfsWalker{
			walk:     w,
			grid:     g,
			end:      g.End(),
			finished: finished,
		}
		walker.grid.ResetVisited(gw.DFS)
		walker.visit(token, walker.grid.Start(), 0)
	}()

	return w
}

func (dw *dfsWalker) visit(token context.Context, cur gw.Coord, depth int) {
	if dw.stopped(token) ||
		!gw.InBounds(cur) ||
		dw.visited[cur.Row][cur.Col] ||
		dw.grid.IsWall(cur) {
		return
	}

	dw.visited[cur.Row][cur.Col] = true
	dw.stack = append(dw.stack, cur)
	defer func() { dw.stack = dw.stack[:len(dw.stack)-1] }()

	dw.grid.MarkVisited(cur, gw.DFS)
	dw.index++
	if !dw.walk.emit(token, Step{
		Index:    dw.index,
		Cell:     cur,
		Depth:    depth,
		Snapshot: dw.grid,
	}) {
		return
	}

	if cur == dw.end {
		dw.walk.result.Outcome = Reached
		dw.walk.result.Distance = depth
		dw.walk.result.Path = append([]gw.Coord(nil), dw.stack...)
		dw.finished(errReachedEnd)
		return
	}

	for _, delta := range gw.Directions {
		dw.visit(token, cur.Add(delta), depth+1)
		if dw.stopped(token) {
			return
		}
	}
}

// stopped reports whether the walk must back out. A token cancelled for any cause other
// than reaching the end means the caller gave up, which marks the walk aborted even when
// the cancellation landed between two steps rather than during a send.
func (dw *dfsWalker) stopped(token context.Context) bool {
	if token.Err() == nil {
		return false
	}
	if !errors.Is(context.Cause(token), errReachedEnd) {
		dw.walk.result.Outcome = Aborted
	}
	return true
}
