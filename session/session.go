// session owns the displayed grid and serializes the commands applied to it: painting,
// mode changes, and the single traversal run allowed at a time. Views observe it
// through frame subscriptions.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"pathviz/animation"
	"pathviz/atomic_float"
	gw "pathviz/grid_world"
	"pathviz/metrics"
	"pathviz/traversal"
)

// Mode selects what painting a cell does.
type Mode string

const (
	WallMode  Mode = "wall"
	StartMode Mode = "start"
	EndMode   Mode = "end"
)

var (
	ErrRunInProgress = errors.New("run in progress")
	ErrNoActiveRun   = errors.New("no active run")
	ErrUnknownMode   = errors.New("unknown mode")
)

func ParseMode(name string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(name))); mode {
	case WallMode, StartMode, EndMode:
		return mode, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// Timing is the elapsed time of an algorithm's runs in milliseconds. LastMillis is
// negative until the algorithm has run once.
type Timing struct {
	Algorithm   gw.Algorithm
	LastMillis  float64
	TotalMillis float64
	Runs        int64
}

// RunSummary describes the most recently finished run.
type RunSummary struct {
	RunID     string
	Algorithm gw.Algorithm
	Outcome   traversal.Outcome
	Visited   int
	Distance  int
	Path      []gw.Coord
	Millis    float64
}

// Frame is a consistent snapshot of the session. Running is empty when no run is active,
// and Last is nil until a run has finished.
type Frame struct {
	Seq     uint64
	Grid    gw.Grid
	Mode    Mode
	Running gw.Algorithm
	Timings []Timing
	Last    *RunSummary
}

type timing struct {
	last  *atomic_float.AtomicFloat64
	total *atomic_float.AtomicFloat64
	runs  atomic.Int64
}

// add records a run, retrying the total until its compare-and-swap wins.
func (t *timing) add(ms float64) {
	t.last.AtomicSet(ms)
	for _, ok := t.total.AtomicAdd(ms); !ok; _, ok = t.total.AtomicAdd(ms) {
	}
	t.runs.Add(1)
}

// RunContextFunc derives the context of a single run, e.g. to bound it by a deadline.
type RunContextFunc func(context.Context) (context.Context, context.CancelFunc, error)

type Option func(*Session)

// WithRunContext sets how each run's context is derived from its parent.
func WithRunContext(fn RunContextFunc) Option {
	return func(s *Session) {
		s.runContext = fn
	}
}

type Session struct {
	mu      sync.Mutex
	grid    gw.Grid
	mode    Mode
	seq     uint64
	last    *RunSummary
	running gw.Algorithm
	stop    context.CancelFunc

	timings map[gw.Algorithm]*timing
	subs    map[int]chan Frame
	nextSub int

	ctx        context.Context
	driver     *animation.Driver
	runContext RunContextFunc
	logger     *slog.Logger
}

// New returns a session over the passed grid. Asynchronous runs started by Start derive
// from ctx, so cancelling it stops them.
func New(
	ctx context.Context,
	g gw.Grid,
	driver *animation.Driver,
	logger *slog.Logger,
	opts ...Option,
) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		grid:    g,
		mode:    WallMode,
		timings: make(map[gw.Algorithm]*timing, len(gw.Algorithms)),
		subs:    map[int]chan Frame{},
		ctx:     ctx,
		driver:  driver,
		logger:  logger,
		runContext: func(ctx context.Context) (context.Context, context.CancelFunc, error) {
			runCtx, cancel := context.WithCancel(ctx)
			return runCtx, cancel, nil
		},
	}
	for _, alg := range gw.Algorithms {
		s.timings[alg] = &timing{
			last:  atomic_float.NewAtomicFloat64(-1),
			total: atomic_float.NewAtomicFloat64(0),
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current frame.
func (s *Session) Snapshot() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameLocked()
}

// Timings reads the per-algorithm timings without taking the session lock.
func (s *Session) Timings() []Timing {
	timings := make([]Timing, 0, len(gw.Algorithms))
	for _, alg := range gw.Algorithms {
		t := s.timings[alg]
		timings = append(timings, Timing{
			Algorithm:   alg,
			LastMillis:  t.last.AtomicRead(),
			TotalMillis: t.total.AtomicRead(),
			Runs:        t.runs.Load(),
		})
	}
	return timings
}

// Subscribe returns a channel of frames, starting with the current one. The channel holds
// at most one frame: a frame not yet received is replaced by a newer one, so a slow reader
// skips intermediate frames but always ends up with the latest. The returned func
// unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan Frame, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	frames := make(chan Frame, 1)
	frames <- s.frameLocked()
	s.subs[id] = frames

	var once sync.Once
	return frames, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if ch, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
		})
	}
}

// Close stops the active run, if any, and closes every subscription.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
	}
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Session) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return s.reject("mode", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.publishLocked()
	return nil
}

// Paint applies the current mode to the cell: in wall mode the cell becomes a wall, in start
// or end mode the grid is rebuilt with the moved endpoint, dropping walls and visited flags.
func (s *Session) Paint(c gw.Coord) error {
	if !gw.InBounds(c) {
		return s.reject("paint", fmt.Errorf("paint %v: %w", c, gw.ErrOutOfBounds))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != "" {
		return s.reject("paint", fmt.Errorf("paint %v: %w", c, ErrRunInProgress))
	}

	switch s.mode {
	case StartMode, EndMode:
		start, end := s.grid.Start(), s.grid.End()
		if s.mode == StartMode {
			start = c
		} else {
			end = c
		}
		g, err := gw.New(start, end)
		if err != nil {
			return s.reject("paint", fmt.Errorf("paint %v: %w", c, err))
		}
		s.grid = g
	default:
		if !s.grid.SetWall(c) {
			return nil
		}
	}
	s.publishLocked()
	return nil
}

// Start launches a run of alg over the current grid in the background. The returned channel
// receives the run's report once it has finished, and is then closed.
func (s *Session) Start(alg gw.Algorithm) (<-chan animation.Report, error) {
	reports := make(chan animation.Report, 1)
	err := s.begin(s.ctx, alg, func(report animation.Report, _ error) {
		reports <- report
		close(reports)
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

type runResult struct {
	report animation.Report
	err    error
}

// Run runs alg over the current grid and blocks until it finishes. If the run is cancelled,
// by ctx, Stop or the run deadline, the partial report is returned with the cancellation error.
func (s *Session) Run(ctx context.Context, alg gw.Algorithm) (animation.Report, error) {
	results := make(chan runResult, 1)
	err := s.begin(ctx, alg, func(report animation.Report, err error) {
		results <- runResult{report, err}
	})
	if err != nil {
		return animation.Report{}, err
	}
	res := <-results
	return res.report, res.err
}

// Stop cancels the active run. It returns before the run has wound down.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return s.reject("stop", ErrNoActiveRun)
	}
	s.stop()
	return nil
}

// ResetVisited clears the visited flags of the passed algorithms, or of all of them if none are passed.
func (s *Session) ResetVisited(algs ...gw.Algorithm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != "" {
		return s.reject("clear", ErrRunInProgress)
	}
	s.grid.ResetVisited(algs...)
	s.publishLocked()
	return nil
}

// Reset replaces the grid with a fresh one over the same start and end.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != "" {
		return s.reject("reset", ErrRunInProgress)
	}
	g, err := gw.New(s.grid.Start(), s.grid.End())
	if err != nil {
		return err
	}
	s.grid = g
	s.publishLocked()
	return nil
}

func (s *Session) begin(
	parent context.Context,
	alg gw.Algorithm,
	done func(animation.Report, error),
) error {
	if _, err := traversal.Engine(alg); err != nil {
		return s.reject("run", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != "" {
		return s.reject("run", fmt.Errorf("%s: %w", alg, ErrRunInProgress))
	}

	runCtx, cancel, err := s.runContext(parent)
	if err != nil {
		return err
	}
	s.running = alg
	s.stop = cancel
	s.publishLocked()

	go func(g gw.Grid) {
		defer cancel()
		report, err := s.driver.Run(runCtx, alg, g, s.onStep)
		s.finish(alg, report, err)
		done(report, err)
	}(s.grid)

	return nil
}

func (s *Session) onStep(step traversal.Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grid = step.Snapshot
	s.publishLocked()
}

func (s *Session) finish(alg gw.Algorithm, report animation.Report, err error) {
	ms := float64(report.Elapsed.Microseconds()) / 1000
	s.timings[alg].add(ms)
	metrics.ObserveRun(string(alg), report.Outcome.String(), report.Elapsed.Seconds(), report.Visited)

	logger := s.logger.With("run_id", report.RunID, "algorithm", alg)
	if err != nil {
		logger.Info("run stopped", "visited", report.Visited, "elapsed", report.Elapsed, "err", err)
	} else {
		logger.Info("run finished",
			"outcome", report.Outcome,
			"visited", report.Visited,
			"distance", report.Distance,
			"elapsed", report.Elapsed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = ""
	s.stop = nil
	s.last = &RunSummary{
		RunID:     report.RunID,
		Algorithm: alg,
		Outcome:   report.Outcome,
		Visited:   report.Visited,
		Distance:  report.Distance,
		Path:      report.Path,
		Millis:    ms,
	}
	s.publishLocked()
}

func (s *Session) frameLocked() Frame {
	return Frame{
		Seq:     s.seq,
		Grid:    s.grid,
		Mode:    s.mode,
		Running: s.running,
		Timings: s.Timings(),
		Last:    s.last,
	}
}

// publishLocked offers the current frame to every subscriber, replacing any frame they have
// not yet received. Sends happen under the lock, so a drained buffer is always free to refill.
func (s *Session) publishLocked() {
	s.seq++
	frame := s.frameLocked()
	for _, ch := range s.subs {
		select {
		case ch <- frame:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- frame
		}
	}
}

func (s *Session) reject(command string, err error) error {
	metrics.RejectCommand(command, err)
	s.logger.Debug("command rejected", "command", command, "err", err)
	return err
}
