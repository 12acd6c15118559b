// metrics exposes run and command counters for prometheus.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// runsTotal counts finished runs by algorithm and outcome
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathviz_runs_total",
		Help: "Finished traversal runs by algorithm and outcome",
	}, []string{"algorithm", "outcome"})

	// runDuration tracks wall-clock run time, pauses included
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pathviz_run_duration_seconds",
		Help:    "Traversal run duration in seconds, step pauses included",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~30s
	}, []string{"algorithm"})

	// cellsVisited tracks the number of steps per run
	cellsVisited = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pathviz_cells_visited",
		Help:    "Cells visited per traversal run",
		Buckets: []float64{1, 10, 50, 100, 200, 400, 800},
	}, []string{"algorithm"})

	// commandsRejected counts commands refused by the session, by command and reason
	commandsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathviz_commands_rejected_total",
		Help: "Commands rejected by the session by command and reason",
	}, []string{"command", "reason"})

	// viewClients tracks connected websocket clients
	viewClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pathviz_view_clients",
		Help: "Connected websocket view clients",
	})
)

// ObserveRun records a finished run.
func ObserveRun(algorithm, outcome string, seconds float64, visited int) {
	runsTotal.WithLabelValues(algorithm, outcome).Inc()
	runDuration.WithLabelValues(algorithm).Observe(seconds)
	cellsVisited.WithLabelValues(algorithm).Observe(float64(visited))
}

// RejectCommand records a refused command. The reason label is the innermost error's text,
// which is one of the session's sentinel errors and so of bounded cardinality.
func RejectCommand(command string, err error) {
	reason := err
	for unwrapped := errors.Unwrap(reason); unwrapped != nil; unwrapped = errors.Unwrap(reason) {
		reason = unwrapped
	}
	commandsRejected.WithLabelValues(command, reason.Error()).Inc()
}

// ClientConnected and ClientDisconnected track websocket clients.
func ClientConnected()    { viewClients.Inc() }
func ClientDisconnected() { viewClients.Dec() }

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
