package opt

import "routeopt/internal/model"

// Evaluate computes the quality of a giant route from scratch.
//
// Every route starts at its leading depot and returns to it; the trailing
// depot only separates. Cost and penalties are additive over routes, so the
// fitness of a giant route equals the sum of its routes' fitness.
func Evaluate(route []*model.Node, m *model.Model) model.Quality {
	q := model.Quality{Penalty: model.Penalty{Capacity: make([]float64, m.Compartments)}}
	var state []int8
	if m.HasShipments() {
		state = make([]int8, m.NbrOfShipments)
	}
	start := 0
	for i := 1; i < len(route); i++ {
		if !route[i].IsDepot() {
			continue
		}
		if i-start > 1 {
			evalRoute(route[start], route[start+1:i], m, &q, state)
		}
		start = i
	}
	q.Fitness = q.Cost + q.Penalty.Weighted(m.Params.Penalties)
	return q
}

// Check returns the cached quality of s, evaluating and caching it first if needed.
func Check(s *model.Solution, m *model.Model) model.Quality {
	if q, ok := s.Quality(); ok {
		return q
	}
	q := Evaluate(s.GiantRoute(), m)
	s.SetQuality(q)
	return q
}

// routeQuality evaluates a single route given as depot plus stops.
func routeQuality(depot *model.Node, stops []*model.Node, m *model.Model) model.Quality {
	q := model.Quality{Penalty: model.Penalty{Capacity: make([]float64, m.Compartments)}}
	if len(stops) > 0 {
		var state []int8
		if m.HasShipments() {
			state = make([]int8, m.NbrOfShipments)
		}
		evalRoute(depot, stops, m, &q, state)
	}
	q.Fitness = q.Cost + q.Penalty.Weighted(m.Params.Penalties)
	return q
}

func evalRoute(depot *model.Node, stops []*model.Node, m *model.Model, q *model.Quality, state []int8) {
	v := &m.Vehicle

	dist, dur, late := timeline(depot, stops, m)
	q.Cost += v.VarCost*dist + v.FixCost
	q.Penalty.TimeWindow += late
	if dur > v.MaxRouteDuration {
		q.Penalty.Duration += dur - v.MaxRouteDuration
	}

	customers := 0
	for _, nd := range stops {
		if nd.SiteType != model.Customer {
			continue
		}
		customers++
		if !nd.AllowsDepot(depot.Index) {
			q.Penalty.PresetDepot++
		}
	}
	if customers > v.MaxStops {
		q.Penalty.Stops += float64(customers - v.MaxStops)
	}

	for c := 0; c < m.Compartments; c++ {
		cp := v.CapacityOf(c)
		eachSegment(stops, func(seg []*model.Node) {
			peak, pick, deli := segmentPeak(seg, c)
			limit := cp.Combined
			switch {
			case !pick:
				limit = cp.DeliveryOnly
			case !deli:
				limit = cp.PickupOnly
			}
			q.Penalty.Capacity[c] += max(0, peak-limit)
		})
	}

	if state != nil {
		q.Penalty.Precedence += precedenceViolations(stops, state)
	}
}

// timeline drives the route from its depot and back. It returns the
// distance, the duration including waiting and service, and the summed
// lateness against time windows, the depot's closing included.
func timeline(depot *model.Node, stops []*model.Node, m *model.Model) (dist, dur, late float64) {
	t := depot.TimeWindow.Open
	prev := depot
	for _, nd := range stops {
		dist += m.Distance(prev, nd)
		t += m.Time(prev, nd)
		if tw := nd.TimeWindow; tw.Bounded() {
			if t < tw.Open {
				t = tw.Open
			}
			if t > tw.Close {
				late += t - tw.Close
			}
		}
		t += nd.ServiceTime
		prev = nd
	}
	dist += m.Distance(prev, depot)
	t += m.Time(prev, depot)
	if tw := depot.TimeWindow; tw.Bounded() && t > tw.Close {
		late += t - tw.Close
	}
	return dist, t - depot.TimeWindow.Open, late
}

// eachSegment calls fn for every load segment of a route. Replenish nodes
// separate segments.
func eachSegment(stops []*model.Node, fn func(seg []*model.Node)) {
	start := 0
	for i := 0; i <= len(stops); i++ {
		if i < len(stops) && stops[i].SiteType != model.Replenish {
			continue
		}
		fn(stops[start:i])
		start = i + 1
	}
}

// segmentPeak returns the peak load of one load segment and whether it
// picks up or delivers anything. Deliveries without a shipment are loaded at
// the segment start; pickups add load, deliveries remove it.
func segmentPeak(seg []*model.Node, c int) (peak float64, pick, deli bool) {
	load := 0.0
	for _, nd := range seg {
		switch d := demandOf(nd, c); {
		case d > 0:
			deli = true
			if !nd.HasShipment() {
				load += d
			}
		case d < 0:
			pick = true
		}
	}
	peak = load
	for _, nd := range seg {
		load -= demandOf(nd, c)
		peak = max(peak, load)
	}
	return peak, pick, deli
}

// RouteStats returns distance, duration and the peak load per compartment of
// one route.
func RouteStats(depot *model.Node, stops []*model.Node, m *model.Model) (dist, dur float64, load []float64) {
	dist, dur, _ = timeline(depot, stops, m)
	load = make([]float64, m.Compartments)
	for c := range load {
		eachSegment(stops, func(seg []*model.Node) {
			peak, _, _ := segmentPeak(seg, c)
			load[c] = max(load[c], peak)
		})
	}
	return dist, dur, load
}

func demandOf(nd *model.Node, c int) float64 {
	if c < len(nd.Demand) {
		return nd.Demand[c]
	}
	return 0
}

// Shipment states within one route.
const (
	shipNone int8 = iota
	shipOpen
	shipEarly
	shipDone
)

// precedenceViolations counts deliveries seen before their pickup and
// pickups whose delivery is missing from the route. state is all zero on
// entry and is reset before returning.
func precedenceViolations(stops []*model.Node, state []int8) float64 {
	v := 0.0
	for _, nd := range stops {
		if !nd.HasShipment() {
			continue
		}
		s := nd.ShipmentIdx
		if nd.IsPickup() {
			if state[s] == shipEarly {
				state[s] = shipDone
			} else {
				state[s] = shipOpen
			}
			continue
		}
		if state[s] == shipOpen {
			state[s] = shipDone
		} else {
			state[s] = shipEarly
			v++
		}
	}
	for _, nd := range stops {
		if !nd.HasShipment() {
			continue
		}
		if state[nd.ShipmentIdx] == shipOpen {
			v++
		}
		state[nd.ShipmentIdx] = shipNone
	}
	return v
}
