package plan

import (
	"fmt"

	"routeopt/internal/model"
)

// Precheck validates the raw input of a planning run and separates the
// customers the vehicle can never carry. A shipment goes to unplanned as a
// whole when either half does not fit.
func Precheck(nodes []*model.Node, vehicle *model.Vehicle, params model.Parameters) (planned, unplanned []*model.Node, err error) {
	if vehicle == nil {
		return nil, nil, fmt.Errorf("precheck: %w: no vehicle given", model.ErrIllegalInput)
	}
	if err := model.ValidateVehicle(vehicle); err != nil {
		return nil, nil, fmt.Errorf("precheck: %w", err)
	}

	depots := map[int]bool{}
	for _, nd := range nodes {
		if nd == nil {
			return nil, nil, fmt.Errorf("precheck: %w: nil node", model.ErrIllegalInput)
		}
		if nd.IsDepot() {
			depots[nd.Index] = true
		}
	}
	if len(depots) == 0 {
		return nil, nil, fmt.Errorf("precheck: %w: no depot is given", model.ErrIllegalInput)
	}

	pairs := map[int][2]*model.Node{}
	for _, nd := range nodes {
		for _, d := range nd.PresetDepots {
			if !depots[d] {
				return nil, nil, fmt.Errorf("precheck: %w: node %q presets unknown depot %d", model.ErrIllegalInput, nd.ExternID, d)
			}
		}
		if !nd.HasShipment() {
			continue
		}
		if nd.SiteType != model.Customer {
			return nil, nil, fmt.Errorf("precheck: %w: %s %q cannot be part of a shipment", model.ErrIllegalInput, nd.SiteType, nd.ExternID)
		}
		pair := pairs[nd.ShipmentIdx]
		half := 1
		if nd.IsPickup() {
			half = 0
		}
		if pair[half] != nil {
			return nil, nil, fmt.Errorf("precheck: %w: shipment %d has two %s nodes", model.ErrIllegalInput, nd.ShipmentIdx, halfName(half))
		}
		pair[half] = nd
		pairs[nd.ShipmentIdx] = pair
	}
	for idx, pair := range pairs {
		if pair[0] == nil || pair[1] == nil {
			return nil, nil, fmt.Errorf("precheck: %w: shipment %d has no partner", model.ErrIllegalInput, idx)
		}
	}
	if len(pairs) > 0 && !params.WithPDP {
		return nil, nil, fmt.Errorf("precheck: %w: input has shipments but pickup and delivery planning is off", model.ErrIllegalInput)
	}

	dropped := map[int]bool{}
	for _, nd := range nodes {
		if nd.SiteType != model.Customer || vehicle.Fits(nd) {
			continue
		}
		dropped[nd.Index] = true
		if nd.HasShipment() {
			pair := pairs[nd.ShipmentIdx]
			dropped[pair[0].Index] = true
			dropped[pair[1].Index] = true
		}
	}
	for _, nd := range nodes {
		if dropped[nd.Index] && nd.SiteType == model.Customer {
			unplanned = append(unplanned, nd)
		} else {
			planned = append(planned, nd)
		}
	}
	return planned, unplanned, nil
}

func halfName(half int) string {
	if half == 0 {
		return "pickup"
	}
	return "delivery"
}
