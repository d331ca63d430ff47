package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry of the engine
	Registry = prometheus.NewRegistry()

	// ILSLoops counts finished ILS loops
	ILSLoops = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ils_loops_total", Help: "Total ILS loops."},
	)
	// ILSImprovements counts loops that replaced the current best
	ILSImprovements = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ils_improvements_total", Help: "ILS loops accepting a better solution."},
	)
	// PerturbExhausted counts loops skipped because perturbation gave up
	PerturbExhausted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ils_perturb_exhausted_total", Help: "ILS loops skipped after exhausted perturbation."},
	)
	// OperatorExecutions counts local search runs by operator
	OperatorExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "operator_executions_total", Help: "Local search runs by operator."},
		[]string{"op"},
	)
	// StageDuration records pipeline stage durations in seconds
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "stage_duration_seconds", Help: "Pipeline stage duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"stage"},
	)
	// SplitterGroups counts route groups solved by the splitter
	SplitterGroups = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "splitter_groups_total", Help: "Route groups solved by the splitter."},
	)
)

// RegisterDefault registers the engine collectors on Registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(ILSLoops)
		Registry.MustRegister(ILSImprovements)
		Registry.MustRegister(PerturbExhausted)
		Registry.MustRegister(OperatorExecutions)
		Registry.MustRegister(StageDuration)
		Registry.MustRegister(SplitterGroups)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
