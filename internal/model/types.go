package model

import "gopkg.in/yaml.v3"

// Core domain types shared by the planner and the optimization engine.

// SiteType classifies a node.
type SiteType int

const (
	Depot SiteType = iota
	Customer
	Replenish
)

func (t SiteType) String() string {
	switch t {
	case Depot:
		return "depot"
	case Customer:
		return "customer"
	case Replenish:
		return "replenish"
	default:
		return "unknown"
	}
}

// NoShipment marks a node that is not part of a pickup/delivery pair.
const NoShipment = -1

// TimeWindow bounds the service start at a node. The zero value is unrestricted.
type TimeWindow struct {
	Open  float64 `yaml:"open" json:"open"`
	Close float64 `yaml:"close" json:"close"`
}

// Bounded reports whether the window restricts anything.
func (tw TimeWindow) Bounded() bool { return tw.Close > 0 }

// Node is a site visited by a route. Nodes are immutable once handed to a Model.
type Node struct {
	// Index is the stable global index of the node within one planning run.
	Index       int
	ExternID    string
	SiteType    SiteType
	X, Y        float64
	Demand      []float64 // per compartment, positive=delivery, negative=pickup
	TimeWindow  TimeWindow
	ServiceTime float64
	ShipmentIdx int
	// PresetDepots lists the global indices of depots allowed to serve this node.
	PresetDepots []int
}

func (n *Node) IsDepot() bool { return n.SiteType == Depot }

// IsPickup reports whether n loads goods onto the vehicle.
func (n *Node) IsPickup() bool {
	for _, d := range n.Demand {
		if d < 0 {
			return true
		}
	}
	return false
}

// HasShipment reports whether n is one half of a pickup/delivery pair.
func (n *Node) HasShipment() bool { return n.ShipmentIdx > NoShipment }

// AllowsDepot reports whether the node may be served from the given depot.
func (n *Node) AllowsDepot(depotIdx int) bool {
	if len(n.PresetDepots) == 0 {
		return true
	}
	for _, d := range n.PresetDepots {
		if d == depotIdx {
			return true
		}
	}
	return false
}

// Capacity is the capacity triple of one compartment.
type Capacity struct {
	PickupOnly   float64 `yaml:"pickupOnly" json:"pickupOnly"`
	DeliveryOnly float64 `yaml:"deliveryOnly" json:"deliveryOnly"`
	Combined     float64 `yaml:"combined" json:"combined"`
}

// SimpleCapacity applies one value to all three capacity kinds.
func SimpleCapacity(v float64) Capacity {
	return Capacity{PickupOnly: v, DeliveryOnly: v, Combined: v}
}

// UnmarshalYAML accepts a mapping or a single number used for all three kinds.
func (c *Capacity) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		var v float64
		if err := n.Decode(&v); err != nil {
			return err
		}
		*c = SimpleCapacity(v)
		return nil
	}
	type plain Capacity
	return n.Decode((*plain)(c))
}

func (c Capacity) valid() bool {
	return c.PickupOnly > 0 && c.DeliveryOnly > 0 && c.Combined > 0
}

func (c Capacity) max() float64 {
	return max(c.PickupOnly, c.DeliveryOnly, c.Combined)
}

// Vehicle describes one vehicle type bound to a planning run.
type Vehicle struct {
	Name             string     `yaml:"name" json:"name"`
	Capacity         []Capacity `yaml:"capacity" json:"capacity"`
	MaxRouteDuration float64    `yaml:"maxRouteDuration" json:"maxRouteDuration"`
	MaxStops         int        `yaml:"maxStops" json:"maxStops"`
	Count            int        `yaml:"count" json:"count"`
	Priority         int        `yaml:"priority" json:"priority"`
	FixCost          float64    `yaml:"fixCost" json:"fixCost"`
	VarCost          float64    `yaml:"varCost" json:"varCost"`
}

// CapacityOf returns the capacity triple of compartment c, unlimited when absent.
func (v *Vehicle) CapacityOf(c int) Capacity {
	if c < len(v.Capacity) {
		return v.Capacity[c]
	}
	return SimpleCapacity(unlimited)
}

// Fits reports whether a single node's demand fits the vehicle at all.
func (v *Vehicle) Fits(n *Node) bool {
	for c, d := range n.Demand {
		if d < 0 {
			d = -d
		}
		if d > v.CapacityOf(c).max() {
			return false
		}
	}
	return true
}

const unlimited = 1e18

// RouteReport summarizes one non-empty route of a solution.
type RouteReport struct {
	Depot    string    `json:"depot"`
	Stops    []string  `json:"stops"`
	Distance float64   `json:"distance"`
	Duration float64   `json:"duration"`
	Cost     float64   `json:"cost"`
	Load     []float64 `json:"load"`
}

// NbrOfStops counts the stops of the route, replenish stops included.
func (r RouteReport) NbrOfStops() int { return len(r.Stops) }
