package opt

import (
	"cmp"
	"slices"
	"sync"
)

// In-memory store of ILS run metrics for the lifetime of the process.

var (
	mu    sync.Mutex
	store = map[string][]Metrics{} // runID -> metrics per ILS run
)

// RecordMetrics appends the metrics of one ILS run to runID.
func RecordMetrics(runID string, m Metrics) {
	mu.Lock()
	store[runID] = append(store[runID], m)
	mu.Unlock()
}

// GetMetrics returns the metrics recorded for runID, ordered by stage and group.
func GetMetrics(runID string) []Metrics {
	mu.Lock()
	defer mu.Unlock()
	out := append([]Metrics(nil), store[runID]...)
	sortMetrics(out)
	return out
}

// ForgetMetrics drops everything recorded for runID.
func ForgetMetrics(runID string) {
	mu.Lock()
	delete(store, runID)
	mu.Unlock()
}

func sortMetrics(ms []Metrics) {
	slices.SortStableFunc(ms, func(a, b Metrics) int {
		if c := cmp.Compare(a.Stage, b.Stage); c != 0 {
			return c
		}
		return cmp.Compare(a.Group, b.Group)
	})
}
