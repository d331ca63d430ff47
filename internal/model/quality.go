package model

import "fmt"

// Penalty holds the constraint violations of a solution by kind.
type Penalty struct {
	Capacity    []float64 `json:"capacity"` // per compartment
	Duration    float64   `json:"duration"`
	TimeWindow  float64   `json:"timeWindow"`
	Stops       float64   `json:"stops"`
	Precedence  float64   `json:"precedence"`
	PresetDepot float64   `json:"presetDepot"`
}

// Total is the unweighted sum of all violations.
func (p Penalty) Total() float64 {
	t := p.Duration + p.TimeWindow + p.Stops + p.Precedence + p.PresetDepot
	for _, c := range p.Capacity {
		t += c
	}
	return t
}

// Weighted applies the penalty weights.
func (p Penalty) Weighted(w PenaltyWeights) float64 {
	t := w.Duration*p.Duration + w.TimeWindow*p.TimeWindow + w.Stops*p.Stops +
		w.Precedence*p.Precedence + w.PresetDepot*p.PresetDepot
	for _, c := range p.Capacity {
		t += w.Capacity * c
	}
	return t
}

// Quality ranks solutions, feasible or not.
type Quality struct {
	Cost    float64 `json:"cost"`
	Penalty Penalty `json:"penalty"`
	Fitness float64 `json:"fitness"`
}

// Feasible reports a solution without any violation.
func (q Quality) Feasible() bool { return q.Penalty.Total() == 0 }

// Better reports whether q is strictly better than o by more than eps.
func (q Quality) Better(o Quality, eps float64) bool {
	return q.Fitness < o.Fitness-eps
}

func (q Quality) String() string {
	return fmt.Sprintf("fitness=%.3f cost=%.3f penalty=%.3f", q.Fitness, q.Cost, q.Penalty.Total())
}
