package animation

import (
	"context"
	"errors"
	"testing"
	"time"

	gw "pathviz/grid_world"
	"pathviz/traversal"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDriverRun(t *testing.T) {
	Convey("Given an unpaced driver", t, func() {
		driver := NewDriver(0, nil)

		Convey("Every step is published in order and the run is timed", func() {
			published := []traversal.Step{}
			report, err := driver.Run(context.Background(), gw.BFS, gw.Default(), func(step traversal.Step) {
				published = append(published, step)
			})
			So(err, ShouldBeNil)
			So(report.Outcome, ShouldEqual, traversal.Reached)
			So(report.Distance, ShouldEqual, 38)
			So(len(published), ShouldEqual, report.Visited)
			So(published[len(published)-1].Cell, ShouldResemble, gw.DefaultEnd)
			So(report.Elapsed, ShouldBeGreaterThan, 0)

			_, parseErr := uuid.Parse(report.RunID)
			So(parseErr, ShouldBeNil)
		})

		Convey("Unknown algorithms are rejected before anything runs", func() {
			_, err := driver.Run(context.Background(), "astar", gw.Default(), func(traversal.Step) {})
			So(errors.Is(err, gw.ErrUnknownAlgorithm), ShouldBeTrue)
		})

		Convey("An unreachable end is still timed", func() {
			g, _ := gw.Divided(gw.DefaultStart, gw.DefaultEnd)
			report, err := driver.Run(context.Background(), gw.DFS, g, func(traversal.Step) {})
			So(err, ShouldBeNil)
			So(report.Outcome, ShouldEqual, traversal.Exhausted)
			So(report.Elapsed, ShouldBeGreaterThan, 0)
		})
	})

	Convey("Given a paced driver", t, func() {
		delay := 5 * time.Millisecond
		driver := NewDriver(delay, nil)
		So(driver.Delay(), ShouldEqual, delay)

		Convey("The run pauses after every step, the last included", func() {
			g, _ := gw.New(gw.Coord{Row: 0, Col: 0}, gw.Coord{Row: 0, Col: 1})
			report, err := driver.Run(context.Background(), gw.BFS, g, func(traversal.Step) {})
			So(err, ShouldBeNil)
			So(report.Visited, ShouldEqual, 2)
			So(report.Elapsed, ShouldBeGreaterThanOrEqualTo, 2*delay)
		})

		Convey("Cancelling mid-run stops the walk", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			count := 0
			report, err := driver.Run(ctx, gw.DFS, gw.Default(), func(traversal.Step) {
				count++
				if count == 3 {
					cancel()
				}
			})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(report.Outcome, ShouldEqual, traversal.Aborted)
			So(report.Visited, ShouldBeLessThan, 217)
			So(report.Path, ShouldBeNil)
		})
	})
}
