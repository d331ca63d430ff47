package opt

import (
	"fmt"
	"math/rand"

	"routeopt/internal/model"
)

// perturb disturbs a copy of base by PerturbVariations random relocations.
// A variation that finds no feasible move within PerturbAttempts restarts
// the whole perturbation, at most PerturbRetries times. An infeasible base
// therefore always ends in ErrExhausted.
func perturb(base *model.Solution, m *model.Model, rng *rand.Rand) (*model.Solution, error) {
	p := m.Params
	for retry := 0; retry < p.PerturbRetries; retry++ {
		route := append([]*model.Node(nil), base.GiantRoute()...)
		ok := true
		for v := 0; v < p.PerturbVariations; v++ {
			next, found, err := relocateRandom(route, m, rng)
			if err != nil {
				return nil, err
			}
			if !found {
				ok = false
				break
			}
			route = next
		}
		if ok {
			out := model.NewSolution(route)
			out.Unplanned = base.Unplanned
			return out, nil
		}
	}
	return nil, fmt.Errorf("perturb: %w: no variation after %d retries", model.ErrExhausted, p.PerturbRetries)
}

// relocateRandom moves a random node, or a random shipment as a pair, to a
// random position. Only a move that leaves the whole solution without
// weighted penalty is kept; it reports false when PerturbAttempts draws found
// none.
func relocateRandom(route []*model.Node, m *model.Model, rng *rand.Rand) ([]*model.Node, bool, error) {
	var movable []int
	for i, nd := range route {
		if !nd.IsDepot() {
			movable = append(movable, i)
		}
	}
	if len(movable) == 0 {
		return route, true, nil
	}

	reduced := make([]*model.Node, 0, len(route))
	for attempt := 0; attempt < m.Params.PerturbAttempts; attempt++ {
		i := movable[rng.Intn(len(movable))]
		nd := route[i]

		var cand []*model.Node
		if nd.HasShipment() {
			pi, di, err := pairOf(route, i)
			if err != nil {
				return nil, false, err
			}
			reduced = removePair(reduced[:0], route, pi, di)
			p := 1 + rng.Intn(len(reduced)-1)
			d := p
			for !reduced[d].IsDepot() {
				d++
			}
			q := p + rng.Intn(d-p+1)
			cand = pdpMove(make([]*model.Node, 0, len(route)), reduced, route[pi], route[di], p, q)
		} else {
			reduced = append(append(reduced[:0], route[:i]...), route[i+1:]...)
			j := 1 + rng.Intn(len(reduced)-1)
			cand = make([]*model.Node, 0, len(route))
			cand = append(cand, reduced[:j]...)
			cand = append(cand, nd)
			cand = append(cand, reduced[j:]...)
		}

		if Evaluate(cand, m).Penalty.Weighted(m.Params.Penalties) == 0 {
			return cand, true, nil
		}
	}
	return nil, false, nil
}

// pairOf locates the pickup and delivery of the shipment at position i. The
// pickup must precede the delivery in the same route.
func pairOf(route []*model.Node, i int) (pi, di int, err error) {
	s := route[i].ShipmentIdx
	if route[i].IsPickup() {
		pi, di = i, -1
		for k := i + 1; k < len(route) && !route[k].IsDepot(); k++ {
			if route[k].ShipmentIdx == s && !route[k].IsPickup() {
				di = k
				break
			}
		}
	} else {
		pi, di = -1, i
		for k := i - 1; k >= 0 && !route[k].IsDepot(); k-- {
			if route[k].ShipmentIdx == s && route[k].IsPickup() {
				pi = k
				break
			}
		}
	}
	if pi < 0 || di < 0 {
		return 0, 0, fmt.Errorf("perturb: %w: shipment %d at %d has no partner in its route", model.ErrStructural, s, i)
	}
	return pi, di, nil
}
