package traversal

import (
	"context"

	gw "pathviz/grid_world"
)

// BFS starts a breadth-first walk from the grid's start cell. The frontier is a FIFO
// queue and cells are marked in the private visited matrix when enqueued, so each
// cell is dequeued at most once. Every dequeue produces one step; the walk ends when
// the end cell is dequeued or the frontier empties.
func BFS(ctx context.Context, g gw.Grid) *Walk {
	w := newWalk(gw.BFS, g)

	go func() {
		defer close(w.steps)

		grid := g
		grid.ResetVisited(gw.BFS)
		start, end := grid.Start(), grid.End()

		var visited [gw.Rows][gw.Cols]bool
		var depth [gw.Rows][gw.Cols]int
		parent := map[gw.Coord]gw.Coord{}

		queue := []gw.Coord{start}
		visited[start.Row][start.Col] = true

		for index := 1; len(queue) > 0; index++ {
			cur := queue[0]
			queue = queue[1:]

			grid.MarkVisited(cur, gw.BFS)
			if !w.emit(ctx, Step{
				Index:    index,
				Cell:     cur,
				Depth:    depth[cur.Row][cur.Col],
				Snapshot: grid,
			}) {
				return
			}

			if cur == end {
				w.result.Outcome = Reached
				w.result.Distance = depth[cur.Row][cur.Col]
				w.result.Path = tracePath(parent, start, end)
				return
			}

			for _, next := range gw.Neighbors(cur) {
				if visited[next.Row][next.Col] || grid.IsWall(next) {
					continue
				}
				visited[next.Row][next.Col] = true
				depth[next.Row][next.Col] = depth[cur.Row][cur.Col] + 1
				parent[next] = cur
				queue = append(queue, next)
			}
		}
	}()

	return w
}

// tracePath follows parent links back from end and returns the path in start-to-end order.
func tracePath(parent map[gw.Coord]gw.Coord, start, end gw.Coord) (path []gw.Coord) {
	for c := end; c != start; c = parent[c] {
		path = append(path, c)
	}
	path = append(path, start)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return
}
