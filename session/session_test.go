package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"pathviz/animation"
	gw "pathviz/grid_world"
	"pathviz/traversal"

	. "github.com/smartystreets/goconvey/convey"
)

func newSession(delay time.Duration, opts ...Option) *Session {
	return New(context.Background(), gw.Default(), animation.NewDriver(delay, nil), nil, opts...)
}

// waitFor polls the session until cond holds or a second passes.
func waitFor(s *Session, cond func(Frame) bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond(s.Snapshot()) {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func TestParseMode(t *testing.T) {
	Convey("Modes parse case-insensitively", t, func() {
		mode, err := ParseMode(" Start ")
		So(err, ShouldBeNil)
		So(mode, ShouldEqual, StartMode)

		_, err = ParseMode("erase")
		So(errors.Is(err, ErrUnknownMode), ShouldBeTrue)
	})
}

func TestPaint(t *testing.T) {
	Convey("Given an idle session", t, func() {
		s := newSession(0)
		defer s.Close()

		Convey("Wall mode paints walls but leaves start and end alone", func() {
			So(s.Paint(gw.Coord{Row: 4, Col: 4}), ShouldBeNil)
			So(s.Paint(gw.DefaultStart), ShouldBeNil)

			frame := s.Snapshot()
			So(frame.Grid.IsWall(gw.Coord{Row: 4, Col: 4}), ShouldBeTrue)
			So(frame.Grid.IsWall(gw.DefaultStart), ShouldBeFalse)
		})

		Convey("Start mode moves the start and drops the walls", func() {
			So(s.Paint(gw.Coord{Row: 4, Col: 4}), ShouldBeNil)
			So(s.SetMode(StartMode), ShouldBeNil)
			So(s.Paint(gw.Coord{Row: 0, Col: 0}), ShouldBeNil)

			frame := s.Snapshot()
			So(frame.Mode, ShouldEqual, StartMode)
			So(frame.Grid.Start(), ShouldResemble, gw.Coord{Row: 0, Col: 0})
			So(frame.Grid.End(), ShouldResemble, gw.DefaultEnd)
			So(frame.Grid.IsWall(gw.Coord{Row: 4, Col: 4}), ShouldBeFalse)
		})

		Convey("End mode refuses to put the end on the start", func() {
			So(s.SetMode(EndMode), ShouldBeNil)
			err := s.Paint(gw.DefaultStart)
			So(errors.Is(err, gw.ErrSameCell), ShouldBeTrue)
			So(s.Snapshot().Grid.End(), ShouldResemble, gw.DefaultEnd)
		})

		Convey("Out of bounds cells and unknown modes are rejected", func() {
			So(errors.Is(s.Paint(gw.Coord{Row: gw.Rows, Col: 0}), gw.ErrOutOfBounds), ShouldBeTrue)
			So(errors.Is(s.SetMode("erase"), ErrUnknownMode), ShouldBeTrue)
			So(s.Snapshot().Mode, ShouldEqual, WallMode)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given an idle unpaced session", t, func() {
		s := newSession(0)
		defer s.Close()

		Convey("A synchronous BFS run reaches the end and records its timing", func() {
			report, err := s.Run(context.Background(), gw.BFS)
			So(err, ShouldBeNil)
			So(report.Outcome, ShouldEqual, traversal.Reached)

			frame := s.Snapshot()
			So(frame.Running, ShouldEqual, gw.Algorithm(""))
			So(frame.Last, ShouldNotBeNil)
			So(frame.Last.RunID, ShouldEqual, report.RunID)
			So(frame.Last.Distance, ShouldEqual, report.Distance)
			So(frame.Grid.VisitedCount(gw.BFS), ShouldBeGreaterThan, 0)

			timings := s.Timings()
			So(timings[0].Algorithm, ShouldEqual, gw.BFS)
			So(timings[0].LastMillis, ShouldBeGreaterThanOrEqualTo, 0)
			So(timings[0].Runs, ShouldEqual, 1)
			So(timings[1].LastMillis, ShouldBeLessThan, 0)
		})

		Convey("Both algorithms leave their own visited flags", func() {
			_, err := s.Run(context.Background(), gw.BFS)
			So(err, ShouldBeNil)
			_, err = s.Run(context.Background(), gw.DFS)
			So(err, ShouldBeNil)

			frame := s.Snapshot()
			So(frame.Grid.VisitedCount(gw.BFS), ShouldBeGreaterThan, 0)
			So(frame.Grid.VisitedCount(gw.DFS), ShouldBeGreaterThan, 0)

			Convey("And resetting one algorithm keeps the other", func() {
				So(s.ResetVisited(gw.DFS), ShouldBeNil)
				frame := s.Snapshot()
				So(frame.Grid.VisitedCount(gw.BFS), ShouldBeGreaterThan, 0)
				So(frame.Grid.VisitedCount(gw.DFS), ShouldEqual, 0)
			})
		})

		Convey("Reset keeps start and end but drops walls and visits", func() {
			So(s.Paint(gw.Coord{Row: 9, Col: 9}), ShouldBeNil)
			_, err := s.Run(context.Background(), gw.DFS)
			So(err, ShouldBeNil)

			So(s.Reset(), ShouldBeNil)
			frame := s.Snapshot()
			So(frame.Grid == gw.Default(), ShouldBeTrue)
		})

		Convey("Unknown algorithms are rejected", func() {
			_, err := s.Start("astar")
			So(errors.Is(err, gw.ErrUnknownAlgorithm), ShouldBeTrue)
		})

		Convey("Stop without a run is rejected", func() {
			So(errors.Is(s.Stop(), ErrNoActiveRun), ShouldBeTrue)
		})
	})

	Convey("Given a session with a slow run in progress", t, func() {
		s := newSession(50 * time.Millisecond)
		defer s.Close()

		reports, err := s.Start(gw.BFS)
		So(err, ShouldBeNil)
		So(s.Snapshot().Running, ShouldEqual, gw.BFS)

		Reset(func() {
			_ = s.Stop()
			for range reports {
			}
		})

		Convey("A second run and any paint are refused", func() {
			_, err := s.Start(gw.DFS)
			So(errors.Is(err, ErrRunInProgress), ShouldBeTrue)
			So(errors.Is(s.Paint(gw.Coord{Row: 1, Col: 1}), ErrRunInProgress), ShouldBeTrue)
			So(errors.Is(s.Reset(), ErrRunInProgress), ShouldBeTrue)
			So(errors.Is(s.ResetVisited(), ErrRunInProgress), ShouldBeTrue)

			Convey("While mode changes are still accepted", func() {
				So(s.SetMode(EndMode), ShouldBeNil)
			})
		})

		Convey("Stop aborts it and frees the session", func() {
			So(s.Stop(), ShouldBeNil)
			report := <-reports
			So(report.Outcome, ShouldEqual, traversal.Aborted)

			So(waitFor(s, func(f Frame) bool { return f.Running == "" }), ShouldBeTrue)
			So(s.Snapshot().Last.Outcome, ShouldEqual, traversal.Aborted)
			So(s.Timings()[0].LastMillis, ShouldBeGreaterThanOrEqualTo, 0)

			reports, err = s.Start(gw.DFS)
			So(err, ShouldBeNil)
		})
	})

	Convey("When the run context carries a deadline", t, func() {
		s := newSession(50*time.Millisecond, WithRunContext(
			func(ctx context.Context) (context.Context, context.CancelFunc, error) {
				runCtx, cancel := context.WithTimeout(ctx, 120*time.Millisecond)
				return runCtx, cancel, nil
			}))
		defer s.Close()

		report, err := s.Run(context.Background(), gw.BFS)
		So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		So(report.Outcome, ShouldEqual, traversal.Aborted)
		So(report.Visited, ShouldBeBetweenOrEqual, 1, 4)
	})
}

func TestSubscribe(t *testing.T) {
	Convey("Given a subscriber", t, func() {
		s := newSession(0)
		defer s.Close()
		frames, unsubscribe := s.Subscribe()

		Convey("It receives the current frame immediately", func() {
			frame := <-frames
			So(frame.Grid == gw.Default(), ShouldBeTrue)
			unsubscribe()
		})

		Convey("A reader that falls behind still gets the latest frame", func() {
			for col := 0; col < 10; col++ {
				So(s.Paint(gw.Coord{Row: 10, Col: col}), ShouldBeNil)
			}
			frame := <-frames
			So(frame.Seq, ShouldEqual, s.Snapshot().Seq)
			So(frame.Grid.IsWall(gw.Coord{Row: 10, Col: 9}), ShouldBeTrue)
			unsubscribe()
		})

		Convey("Unsubscribing closes the channel and is idempotent", func() {
			unsubscribe()
			unsubscribe()
			<-frames
			_, ok := <-frames
			So(ok, ShouldBeFalse)
		})

		Convey("Frames during a run end with the finished state", func() {
			<-frames
			report, err := s.Run(context.Background(), gw.BFS)
			So(err, ShouldBeNil)

			frame := <-frames
			So(frame.Running, ShouldEqual, gw.Algorithm(""))
			So(frame.Last.RunID, ShouldEqual, report.RunID)
			So(frame.Grid == report.Final, ShouldBeTrue)
			unsubscribe()
		})
	})
}
