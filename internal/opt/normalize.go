package opt

import (
	"cmp"
	"math"
	"slices"

	"routeopt/internal/model"
)

// Normalize returns a canonical form of s with the same fitness: empty routes
// are dropped, a route is reversed when that leaves its quality unchanged
// and puts the lower customer index first, and routes are ordered by depot
// and first customer.
func Normalize(s *model.Solution, m *model.Model) *model.Solution {
	g := s.GiantRoute()
	if len(g) < 2 {
		return s
	}
	var tours []tour
	for _, r := range model.NonEmptyRoutes(g) {
		t := tour{depot: g[r.Start], stops: append([]*model.Node(nil), g[r.Start+1:r.End]...)}
		if first, last := t.stops[0], t.stops[len(t.stops)-1]; first.Index > last.Index {
			rev := appendSeg(nil, t.stops, true)
			if sameQuality(routeQuality(t.depot, t.stops, m), routeQuality(t.depot, rev, m), m.Params.Eps) {
				t.stops = rev
			}
		}
		tours = append(tours, t)
	}
	slices.SortStableFunc(tours, func(a, b tour) int {
		if c := cmp.Compare(a.depot.Index, b.depot.Index); c != 0 {
			return c
		}
		return cmp.Compare(a.stops[0].Index, b.stops[0].Index)
	})

	route := assemble(tours, g[len(g)-1])
	if len(tours) == 0 {
		route = []*model.Node{g[0], g[len(g)-1]}
	}
	out := model.NewSolution(route)
	out.Unplanned = s.Unplanned
	Check(out, m)
	return out
}

func sameQuality(a, b model.Quality, eps float64) bool {
	return math.Abs(a.Fitness-b.Fitness) <= eps && math.Abs(a.Penalty.Total()-b.Penalty.Total()) <= eps
}
