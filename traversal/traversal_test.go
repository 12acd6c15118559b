package traversal

import (
	"context"
	"errors"
	"testing"
	"time"

	gw "pathviz/grid_world"

	. "github.com/smartystreets/goconvey/convey"
)

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

// shouldBeWalkablePath checks that consecutive path cells are adjacent and none are walls.
func shouldBeWalkablePath(g gw.Grid, path []gw.Coord) {
	So(len(path), ShouldBeGreaterThan, 0)
	So(path[0], ShouldResemble, g.Start())
	So(path[len(path)-1], ShouldResemble, g.End())
	for i := 1; i < len(path); i++ {
		dist := abs(path[i].Row-path[i-1].Row) + abs(path[i].Col-path[i-1].Col)
		So(dist, ShouldEqual, 1)
		So(g.IsWall(path[i]), ShouldBeFalse)
	}
}

func TestBFS(t *testing.T) {
	Convey("Given an empty grid with the default start and end", t, func() {
		g := gw.Default()
		steps, result := Drain(BFS(context.Background(), g))

		Convey("The end is reached at the manhattan distance", func() {
			So(result.Outcome, ShouldEqual, Reached)
			So(result.Distance, ShouldEqual, 13+25)
			So(len(result.Path), ShouldEqual, 39)
			shouldBeWalkablePath(g, result.Path)
		})

		Convey("Every dequeue produced exactly one step, the last being the end", func() {
			So(result.Visited, ShouldEqual, len(steps))
			for i, step := range steps {
				So(step.Index, ShouldEqual, i+1)
			}
			So(steps[0].Cell, ShouldResemble, gw.DefaultStart)
			So(steps[len(steps)-1].Cell, ShouldResemble, gw.DefaultEnd)
			So(steps[len(steps)-1].Depth, ShouldEqual, 38)
		})

		Convey("Cells at equal distance appear in right, down, left, up order", func() {
			So(steps[1].Cell, ShouldResemble, gw.Coord{Row: 2, Col: 6})
			So(steps[2].Cell, ShouldResemble, gw.Coord{Row: 3, Col: 5})
			So(steps[3].Cell, ShouldResemble, gw.Coord{Row: 2, Col: 4})
			So(steps[4].Cell, ShouldResemble, gw.Coord{Row: 1, Col: 5})
		})

		Convey("Depth never decreases along the step sequence", func() {
			for i := 1; i < len(steps); i++ {
				So(steps[i].Depth, ShouldBeGreaterThanOrEqualTo, steps[i-1].Depth)
			}
		})

		Convey("Snapshots are independent copies", func() {
			first, last := steps[1].Snapshot, steps[len(steps)-1].Snapshot
			So(first.VisitedCount(gw.BFS), ShouldEqual, 1)
			So(last.VisitedCount(gw.BFS), ShouldEqual, len(steps)-2)
			So(result.Final == last, ShouldBeTrue)
			So(g.VisitedCount(gw.BFS), ShouldEqual, 0)
		})

		Convey("Start and end carry no visited flag", func() {
			final := result.Final
			So(final.At(gw.DefaultStart).IsVisitedBFS, ShouldBeFalse)
			So(final.At(gw.DefaultEnd).IsVisitedBFS, ShouldBeFalse)
		})
	})

	Convey("Given a wall row with a single gap at the left edge", t, func() {
		g := gw.Default()
		for col := 1; col < gw.Cols; col++ {
			g.SetWall(gw.Coord{Row: 8, Col: col})
		}
		_, result := Drain(BFS(context.Background(), g))

		Convey("The shortest path detours through the gap", func() {
			So(result.Outcome, ShouldEqual, Reached)
			// start -> (8,0) -> end, both legs unobstructed
			So(result.Distance, ShouldEqual, (6+5)+(7+30))
			So(result.Path, ShouldContain, gw.Coord{Row: 8, Col: 0})
			shouldBeWalkablePath(g, result.Path)
		})
	})

	Convey("Given start and end adjacent", t, func() {
		start, end := gw.Coord{Row: 5, Col: 5}, gw.Coord{Row: 5, Col: 6}
		g, err := gw.New(start, end)
		So(err, ShouldBeNil)
		steps, result := Drain(BFS(context.Background(), g))

		Convey("The end is the dequeue right after start", func() {
			So(len(steps), ShouldEqual, 2)
			So(steps[1].Cell, ShouldResemble, end)
			So(result.Distance, ShouldEqual, 1)
			So(result.Path, ShouldResemble, []gw.Coord{start, end})
		})
	})

	Convey("Given a serpentine maze", t, func() {
		g, err := gw.Serpentine(gw.DefaultStart, gw.DefaultEnd)
		So(err, ShouldBeNil)
		_, bfsResult := Drain(BFS(context.Background(), g))
		_, dfsResult := Drain(DFS(context.Background(), g))

		Convey("BFS finds a path no longer than the DFS one", func() {
			So(bfsResult.Outcome, ShouldEqual, Reached)
			So(dfsResult.Outcome, ShouldEqual, Reached)
			shouldBeWalkablePath(g, bfsResult.Path)
			shouldBeWalkablePath(g, dfsResult.Path)
			So(bfsResult.Distance, ShouldEqual, len(bfsResult.Path)-1)
			So(bfsResult.Distance, ShouldBeLessThanOrEqualTo, dfsResult.Distance)
		})
	})
}

func TestUnreachable(t *testing.T) {
	Convey("Given a solid wall row between start and end", t, func() {
		g, err := gw.Divided(gw.DefaultStart, gw.DefaultEnd)
		So(err, ShouldBeNil)
		// rows 0..7 are on the start side of the wall at row 8
		component := 8 * gw.Cols

		for _, engine := range []EngineFunc{BFS, DFS} {
			walk := engine(context.Background(), g)
			alg := walk.Algorithm()
			_, result := Drain(walk)

			Convey("The "+string(alg)+" walk exhausts the start's component", func() {
				So(result.Outcome, ShouldEqual, Exhausted)
				So(result.Distance, ShouldEqual, -1)
				So(result.Path, ShouldBeNil)
				So(result.Visited, ShouldEqual, component)
				So(result.Final.VisitedCount(alg), ShouldEqual, component-1)

				for col := 0; col < gw.Cols; col++ {
					So(result.Final.IsVisited(gw.Coord{Row: 7, Col: col}, alg), ShouldBeTrue)
					So(result.Final.IsVisited(gw.Coord{Row: 9, Col: col}, alg), ShouldBeFalse)
				}
			})
		}
	})
}

func TestDFS(t *testing.T) {
	Convey("Given an empty grid with the default start and end", t, func() {
		g := gw.Default()
		steps, result := Drain(DFS(context.Background(), g))

		Convey("The walk follows pre-order over right, down, left, up", func() {
			// Right along row 2 to the edge, then down column 39.
			for i := 0; i < 35; i++ {
				So(steps[i].Cell, ShouldResemble, gw.Coord{Row: 2, Col: 5 + i})
				So(steps[i].Depth, ShouldEqual, i)
			}
			So(steps[35].Cell, ShouldResemble, gw.Coord{Row: 3, Col: 39})
			So(steps[51].Cell, ShouldResemble, gw.Coord{Row: 19, Col: 39})
			So(steps[52].Cell, ShouldResemble, gw.Coord{Row: 19, Col: 38})
		})

		Convey("The end is found by snaking back up from the bottom row", func() {
			So(result.Outcome, ShouldEqual, Reached)
			So(result.Visited, ShouldEqual, 217)
			So(result.Distance, ShouldEqual, 216)
			So(len(result.Path), ShouldEqual, 217)
			shouldBeWalkablePath(g, result.Path)
		})

		Convey("Nothing is visited once the end is found", func() {
			So(steps[len(steps)-1].Cell, ShouldResemble, gw.DefaultEnd)
			So(result.Final.VisitedCount(gw.DFS), ShouldEqual, result.Visited-2)
			// Siblings still pending on the stack were never explored.
			So(result.Final.IsVisited(gw.Coord{Row: 3, Col: 38}, gw.DFS), ShouldBeFalse)
			So(result.Final.IsVisited(gw.Coord{Row: 15, Col: 29}, gw.DFS), ShouldBeFalse)
		})

		Convey("Repeated walks produce the same sequence", func() {
			again, _ := Drain(DFS(context.Background(), g))
			So(len(again), ShouldEqual, len(steps))
			for i := range steps {
				So(again[i].Cell, ShouldResemble, steps[i].Cell)
			}
		})
	})
}

func TestIndependentFlags(t *testing.T) {
	Convey("Given a grid after a DFS run", t, func() {
		_, dfsResult := Drain(DFS(context.Background(), gw.Default()))
		afterDFS := dfsResult.Final

		Convey("A BFS run leaves the DFS flags as they were", func() {
			_, bfsResult := Drain(BFS(context.Background(), afterDFS))
			final := bfsResult.Final
			So(final.VisitedCount(gw.DFS), ShouldEqual, afterDFS.VisitedCount(gw.DFS))
			final.ResetVisited(gw.BFS)
			So(final == afterDFS, ShouldBeTrue)

			Convey("And a second DFS run leaves the BFS flags as they were", func() {
				_, again := Drain(DFS(context.Background(), bfsResult.Final))
				So(again.Final.VisitedCount(gw.BFS), ShouldEqual, bfsResult.Final.VisitedCount(gw.BFS))
				So(again.Final.VisitedCount(gw.DFS), ShouldEqual, afterDFS.VisitedCount(gw.DFS))
			})
		})
	})
}

func TestCancellation(t *testing.T) {
	for _, engine := range []EngineFunc{BFS, DFS} {
		Convey("When the consumer stops pulling and cancels", t, func() {
			ctx, cancel := context.WithCancel(context.Background())
			walk := engine(ctx, gw.Default())
			for i := 0; i < 3; i++ {
				<-walk.Steps()
			}
			cancel()
			// Give the walk time to observe the cancellation while blocked on its send.
			time.Sleep(10 * time.Millisecond)
			_, result := Drain(walk)

			Convey("The walk ends as aborted", func() {
				So(result.Outcome, ShouldEqual, Aborted)
				So(result.Visited, ShouldEqual, 3)
				So(result.Path, ShouldBeNil)
			})
		})

		Convey("When the consumer cancels and keeps draining at once", t, func() {
			// The pending send may still win against the cancellation, after which the
			// walk only notices it between steps.
			for i := 0; i < 100; i++ {
				ctx, cancel := context.WithCancel(context.Background())
				walk := engine(ctx, gw.Default())
				for j := 0; j < 3; j++ {
					<-walk.Steps()
				}
				cancel()
				_, result := Drain(walk)

				So(result.Outcome, ShouldEqual, Aborted)
				So(result.Visited, ShouldBeBetweenOrEqual, 3, 4)
				So(result.Path, ShouldBeNil)
			}
		})
	}
}

func TestEngine(t *testing.T) {
	Convey("Engines are looked up by algorithm", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		engine, err := Engine(gw.BFS)
		So(err, ShouldBeNil)
		So(engine(ctx, gw.Default()).Algorithm(), ShouldEqual, gw.BFS)

		_, err = Engine("astar")
		So(errors.Is(err, gw.ErrUnknownAlgorithm), ShouldBeTrue)
	})

	Convey("Outcomes print their names", t, func() {
		So(Reached.String(), ShouldEqual, "reached")
		So(Exhausted.String(), ShouldEqual, "exhausted")
		So(Aborted.String(), ShouldEqual, "aborted")
	})
}
