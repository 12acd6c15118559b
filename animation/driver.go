// animation paces a traversal for viewing: the driver pulls one step at a time from
// a walk, hands it to the publisher, and waits out the step delay before pulling the
// next. The walks themselves never wait, so pacing, and stopping, belong here.
package animation

import (
	"context"
	"log/slog"
	"time"

	gw "pathviz/grid_world"
	"pathviz/traversal"

	"github.com/google/uuid"
	channerics "github.com/niceyeti/channerics/channels"
)

// DefaultStepDelay is the pause after each visited cell.
const DefaultStepDelay = 20 * time.Millisecond

// PublishFunc receives each step as it is pulled. It is called synchronously, so it should be quick.
type PublishFunc func(traversal.Step)

// Report is the result of a paced run along with its wall-clock duration.
type Report struct {
	traversal.Result
	RunID string
	// Elapsed runs from the start of the run to its end, pauses included, whatever the outcome.
	Elapsed time.Duration
}

// Driver runs traversals at one step per delay.
type Driver struct {
	delay  time.Duration
	logger *slog.Logger
}

// NewDriver returns a driver pausing for delay after each step. A non-positive delay disables pacing.
func NewDriver(delay time.Duration, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		delay:  delay,
		logger: logger,
	}
}

func (d *Driver) Delay() time.Duration {
	return d.delay
}

// Run walks the grid with the passed algorithm, publishing every step and pausing after each,
// until the walk ends or ctx is cancelled. On cancellation the walk is stopped and the report's
// outcome is traversal.Aborted, returned along with ctx's error.
func (d *Driver) Run(
	ctx context.Context,
	alg gw.Algorithm,
	g gw.Grid,
	publish PublishFunc,
) (report Report, err error) {
	var engine traversal.EngineFunc
	if engine, err = traversal.Engine(alg); err != nil {
		return
	}

	report.RunID = uuid.NewString()
	logger := d.logger.With("run_id", report.RunID, "algorithm", alg)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	walk := engine(runCtx, g)
	pause := d.pacer(runCtx.Done())

	for step := range walk.Steps() {
		publish(step)
		logger.Debug("step", "index", step.Index, "cell", step.Cell, "depth", step.Depth)
		if !pause() {
			break
		}
	}

	// Stop the walk if the loop ended early, and wait for it to close so its result is final.
	cancel()
	for range walk.Steps() {
	}

	report.Result = walk.Result()
	report.Elapsed = time.Since(start)
	if report.Outcome == traversal.Aborted {
		err = ctx.Err()
	}
	return
}

// pacer returns a func blocking until the next tick, which returns false if done closes first.
func (d *Driver) pacer(done <-chan struct{}) func() bool {
	if d.delay <= 0 {
		return func() bool {
			select {
			case <-done:
				return false
			default:
				return true
			}
		}
	}

	ticks := channerics.NewTicker(done, d.delay)
	return func() bool {
		select {
		case <-done:
			return false
		case <-ticks:
			return true
		}
	}
}
