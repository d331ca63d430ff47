package plan

import (
	"fmt"

	"routeopt/internal/model"
)

// BuildInitialSolution gives every customer a route of its own, served from
// its preset or nearest depot. With pickup and delivery enabled each
// shipment shares one route with its pickup first. The result always passes
// model.ValidateGiantRoute.
func BuildInitialSolution(m *model.Model) (*model.Solution, error) {
	if m.HasShipments() && !m.Params.WithPDP {
		return nil, fmt.Errorf("build initial solution: %w: model has shipments but pickup and delivery planning is off", model.ErrIllegalInput)
	}

	route := make([]*model.Node, 0, 2*len(m.Customers)+1)
	open := make(map[int]*model.Node, m.NbrOfShipments)
	for _, nd := range m.Customers {
		if !nd.HasShipment() {
			route = append(route, m.NearestDepot(nd), nd)
			continue
		}
		partner, ok := open[nd.ShipmentIdx]
		if !ok {
			open[nd.ShipmentIdx] = nd
			continue
		}
		delete(open, nd.ShipmentIdx)
		pick, deli := partner, nd
		if !pick.IsPickup() {
			pick, deli = deli, pick
		}
		route = append(route, m.NearestDepot(pick), pick, deli)
	}
	if len(open) > 0 {
		return nil, fmt.Errorf("build initial solution: %w: %d shipments have no partner", model.ErrIllegalInput, len(open))
	}

	// the terminator is a depot without stops; an empty plan still has one
	// empty route
	if len(route) == 0 {
		route = append(route, m.Depots[0])
	}
	route = append(route, m.Depots[0])
	return model.NewSolution(route), nil
}
