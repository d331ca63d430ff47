package opt

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"routeopt/internal/model"
)

// Construction operators rebuild all routes from the planned nodes of their
// input. They need the whole solution and are never split.

type tour struct {
	depot *model.Node
	stops []*model.Node
}

// plannedNodes lists the routed non-depot nodes of s.
func plannedNodes(s *model.Solution, op string) ([]*model.Node, error) {
	var out []*model.Node
	for _, nd := range s.GiantRoute() {
		switch nd.SiteType {
		case model.Depot:
		case model.Replenish:
			return nil, fmt.Errorf("%s: %w: replenish nodes are not rebuilt", op, model.ErrUnsupported)
		default:
			out = append(out, nd)
		}
	}
	return out, nil
}

func terminal(s *model.Solution, m *model.Model) *model.Node {
	if g := s.GiantRoute(); len(g) > 0 {
		return g[len(g)-1]
	}
	return m.Depots[0]
}

// assemble concatenates tours into a giant route closed by end.
func assemble(tours []tour, end *model.Node) []*model.Node {
	var out []*model.Node
	for _, t := range tours {
		if len(t.stops) == 0 {
			continue
		}
		out = append(out, t.depot)
		out = append(out, t.stops...)
	}
	if len(out) == 0 {
		out = append(out, end)
	}
	return append(out, end)
}

func rebuilt(s *model.Solution, route []*model.Node, m *model.Model) *model.Solution {
	out := model.NewSolution(route)
	out.Unplanned = s.Unplanned
	Check(out, m)
	return out
}

type savings struct{}

// NewSavings returns the Clarke-Wright savings construction for VRP models.
func NewSavings() Operator { return savings{} }

func (savings) Name() string     { return string(Savings) }
func (savings) Splittable() bool { return false }

func (savings) Execute(s *model.Solution, m *model.Model) (*model.Solution, error) {
	if m.HasShipments() {
		return nil, fmt.Errorf("savings: %w: model has shipments", model.ErrUnsupported)
	}
	nodes, err := plannedNodes(s, "savings")
	if err != nil {
		return nil, err
	}

	byDepot := make(map[*model.Node][]*model.Node, len(m.Depots))
	for _, nd := range nodes {
		d := m.NearestDepot(nd)
		byDepot[d] = append(byDepot[d], nd)
	}
	var tours []tour
	for _, d := range m.Depots {
		for _, stops := range mergeSavings(d, byDepot[d], m) {
			tours = append(tours, tour{depot: d, stops: stops})
		}
	}
	return rebuilt(s, assemble(tours, terminal(s, m)), m), nil
}

type saving struct {
	i, j  int
	value float64
}

// mergeSavings starts with one route per node and merges route ends in
// order of decreasing saving while the merge does not add penalty.
func mergeSavings(d *model.Node, nodes []*model.Node, m *model.Model) [][]*model.Node {
	routes := make([][]*model.Node, len(nodes))
	owner := make([]int, len(nodes))
	pos := make(map[*model.Node]int, len(nodes))
	for i, nd := range nodes {
		routes[i] = []*model.Node{nd}
		owner[i] = i
		pos[nd] = i
	}

	var list []saving
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			v := m.Distance(d, nodes[i]) + m.Distance(nodes[j], d) - m.Distance(nodes[i], nodes[j])
			if v > 0 {
				list = append(list, saving{i: i, j: j, value: v})
			}
		}
	}
	slices.SortStableFunc(list, func(a, b saving) int { return cmp.Compare(b.value, a.value) })

	for _, sv := range list {
		ri, rj := owner[sv.i], owner[sv.j]
		if ri == rj {
			continue
		}
		a, b := routes[ri], routes[rj]
		ci, cj := nodes[sv.i], nodes[sv.j]
		base := routeQuality(d, a, m).Penalty.Total() + routeQuality(d, b, m).Penalty.Total()

		for _, merged := range savingsMerges(a, b, ci, cj) {
			if routeQuality(d, merged, m).Penalty.Total() > base {
				continue
			}
			routes[ri], routes[rj] = merged, nil
			for _, nd := range b {
				owner[pos[nd]] = ri
			}
			break
		}
	}

	out := routes[:0]
	for _, r := range routes {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// savingsMerges lists the merges that join ci and cj when both sit at an end
// of their routes.
func savingsMerges(a, b []*model.Node, ci, cj *model.Node) [][]*model.Node {
	var out [][]*model.Node
	join := func(x, y []*model.Node, revX, revY bool) []*model.Node {
		r := make([]*model.Node, 0, len(x)+len(y))
		r = appendSeg(r, x, revX)
		return appendSeg(r, y, revY)
	}
	aHead, aTail := a[0] == ci, a[len(a)-1] == ci
	bHead, bTail := b[0] == cj, b[len(b)-1] == cj
	if aTail && bHead {
		out = append(out, join(a, b, false, false))
	}
	if bTail && aHead {
		out = append(out, join(b, a, false, false))
	}
	if aTail && bTail {
		out = append(out, join(a, b, false, true))
	}
	if aHead && bHead {
		out = append(out, join(a, b, true, false))
	}
	return out
}

// insertion is the cheapest-insertion construction. Each unit (a single
// node or a pickup with its delivery) goes to the position with the least
// fitness increase, opening a route at the nearest allowed depot when that
// is cheaper and the fleet allows it.
type insertion struct {
	name string
	pdp  bool
}

// NewFirstBest returns the cheapest insertion construction for VRP models.
func NewFirstBest() Operator { return &insertion{name: string(FirstBest)} }

// NewPDPCheapestInsert inserts every shipment's pickup and delivery in one step.
func NewPDPCheapestInsert() Operator { return &insertion{name: string(PDPCheapestInsert), pdp: true} }

func (o *insertion) Name() string     { return o.name }
func (o *insertion) Splittable() bool { return false }

func (o *insertion) Execute(s *model.Solution, m *model.Model) (*model.Solution, error) {
	if !o.pdp && m.HasShipments() {
		return nil, fmt.Errorf("%s: %w: model has shipments", o.name, model.ErrUnsupported)
	}
	nodes, err := plannedNodes(s, o.name)
	if err != nil {
		return nil, err
	}
	units, err := insertionUnits(nodes, m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.name, err)
	}

	var tours []tour
	var fits []float64
	for _, u := range units {
		bestDelta, bestTour := math.Inf(1), -1
		var bestStops []*model.Node
		for ti, t := range tours {
			for _, cand := range insertCandidates(t.stops, u) {
				delta := routeQuality(t.depot, cand, m).Fitness - fits[ti]
				if delta < bestDelta {
					bestDelta, bestTour, bestStops = delta, ti, cand
				}
			}
		}
		if len(tours) < m.Vehicle.Count || bestTour < 0 {
			d := m.NearestDepot(u[0])
			if f := routeQuality(d, u, m).Fitness; f < bestDelta {
				bestDelta, bestTour, bestStops = f, len(tours), u
				tours = append(tours, tour{depot: d})
				fits = append(fits, 0)
			}
		}
		tours[bestTour].stops = bestStops
		fits[bestTour] = routeQuality(tours[bestTour].depot, bestStops, m).Fitness
	}
	return rebuilt(s, assemble(tours, terminal(s, m)), m), nil
}

// insertionUnits pairs pickups with their deliveries and orders the units by
// decreasing distance to their nearest depot.
func insertionUnits(nodes []*model.Node, m *model.Model) ([][]*model.Node, error) {
	pickups := make(map[int]*model.Node)
	for _, nd := range nodes {
		if nd.HasShipment() && nd.IsPickup() {
			pickups[nd.ShipmentIdx] = nd
		}
	}
	var units [][]*model.Node
	for _, nd := range nodes {
		switch {
		case !nd.HasShipment():
			units = append(units, []*model.Node{nd})
		case !nd.IsPickup():
			p, ok := pickups[nd.ShipmentIdx]
			if !ok {
				return nil, fmt.Errorf("%w: delivery %q has no routed pickup", model.ErrStructural, nd.ExternID)
			}
			units = append(units, []*model.Node{p, nd})
		}
	}
	far := func(u []*model.Node) float64 { return m.Distance(m.NearestDepot(u[0]), u[0]) }
	slices.SortStableFunc(units, func(a, b []*model.Node) int {
		if c := cmp.Compare(far(b), far(a)); c != 0 {
			return c
		}
		return cmp.Compare(a[0].Index, b[0].Index)
	})
	return units, nil
}

// insertCandidates lists stops with the unit inserted at every position,
// keeping a pickup before its delivery.
func insertCandidates(stops, u []*model.Node) [][]*model.Node {
	var out [][]*model.Node
	if len(u) == 1 {
		for p := 0; p <= len(stops); p++ {
			c := make([]*model.Node, 0, len(stops)+1)
			c = append(c, stops[:p]...)
			c = append(c, u[0])
			out = append(out, append(c, stops[p:]...))
		}
		return out
	}
	for p := 0; p <= len(stops); p++ {
		for q := p; q <= len(stops); q++ {
			c := make([]*model.Node, 0, len(stops)+2)
			c = append(c, stops[:p]...)
			c = append(c, u[0])
			c = append(c, stops[p:q]...)
			c = append(c, u[1])
			out = append(out, append(c, stops[q:]...))
		}
	}
	return out
}
