package model

import "fmt"

// ValidateGiantRoute checks the structural invariants of a giant route
// against the model: depot endpoints, exactly-once visits of every planned
// customer, and pickup-before-delivery inside one route.
func ValidateGiantRoute(route []*Node, m *Model, unplanned []*Node) error {
	if len(route) < 2 {
		return fmt.Errorf("validate: %w: giant route has %d elements", ErrStructural, len(route))
	}
	if !route[0].IsDepot() || !route[len(route)-1].IsDepot() {
		return fmt.Errorf("validate: %w: giant route must start and end with a depot", ErrStructural)
	}

	skip := make(map[*Node]bool, len(unplanned))
	for _, nd := range unplanned {
		skip[nd] = true
	}

	seen := make(map[*Node]int, len(m.Customers))
	for i, nd := range route {
		if !m.Contains(nd) {
			return fmt.Errorf("validate: %w: node %q at %d is not part of the model", ErrStructural, nd.ExternID, i)
		}
		if nd.SiteType != Customer {
			continue
		}
		if skip[nd] {
			return fmt.Errorf("validate: %w: unplanned node %q is routed", ErrStructural, nd.ExternID)
		}
		seen[nd]++
	}
	for _, c := range m.Customers {
		if skip[c] {
			continue
		}
		if seen[c] != 1 {
			return fmt.Errorf("validate: %w: node %q occurs %d times", ErrStructural, c.ExternID, seen[c])
		}
	}

	if !m.HasShipments() {
		return nil
	}
	return validatePrecedence(route, m)
}

func validatePrecedence(route []*Node, m *Model) error {
	routeIdx := RouteIndex(route)
	pick := make([]int, m.NbrOfShipments)
	deli := make([]int, m.NbrOfShipments)
	for i := range pick {
		pick[i], deli[i] = -1, -1
	}
	for i, nd := range route {
		if !nd.HasShipment() {
			continue
		}
		if nd.IsPickup() {
			pick[nd.ShipmentIdx] = i
		} else {
			deli[nd.ShipmentIdx] = i
		}
	}
	for s := range pick {
		p, d := pick[s], deli[s]
		if p < 0 && d < 0 {
			continue
		}
		if p < 0 || d < 0 {
			return fmt.Errorf("validate: %w: shipment %d is only half routed", ErrStructural, s)
		}
		if p > d || routeIdx[p] != routeIdx[d] {
			return fmt.Errorf("validate: %w: shipment %d pickup at %d does not precede delivery at %d in one route", ErrStructural, s, p, d)
		}
	}
	return nil
}
