package model

import "fmt"

// Model is the immutable context of one planning run. It is built once and
// shared by pointer; nothing mutates it after NewModel returns.
type Model struct {
	Nodes     []*Node
	Depots    []*Node
	Customers []*Node
	Vehicle   Vehicle
	Params    Parameters
	Metric    Metric

	NbrOfShipments int
	Compartments   int

	n    int
	pos  []int // global index -> matrix row
	dist []float64
	time []float64
}

// NewVehicle returns a vehicle with one compartment of the given capacity and
// otherwise unrestricted limits.
func NewVehicle(name string, capacity float64) Vehicle {
	return Vehicle{
		Name:             name,
		Capacity:         []Capacity{SimpleCapacity(capacity)},
		MaxRouteDuration: unlimited,
		MaxStops:         1 << 30,
		Count:            1 << 30,
		VarCost:          1,
	}
}

// NewModel validates the input and precomputes distance and time tables.
func NewModel(nodes []*Node, vehicle *Vehicle, metric Metric, params Parameters) (*Model, error) {
	if vehicle == nil {
		return nil, fmt.Errorf("build model: %w: no vehicle given", ErrIllegalInput)
	}
	if err := ValidateVehicle(vehicle); err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	if metric == nil {
		return nil, fmt.Errorf("build model: %w: no metric given", ErrIllegalInput)
	}

	m := &Model{Vehicle: *vehicle, Params: params.WithDefaults(), Metric: metric, n: len(nodes)}
	if m.Vehicle.VarCost == 0 {
		m.Vehicle.VarCost = 1
	}

	maxIdx := -1
	for _, nd := range nodes {
		if nd == nil {
			return nil, fmt.Errorf("build model: %w: nil node", ErrIllegalInput)
		}
		if nd.Index < 0 {
			return nil, fmt.Errorf("build model: %w: node %q has negative index", ErrIllegalInput, nd.ExternID)
		}
		maxIdx = max(maxIdx, nd.Index)
	}
	m.pos = make([]int, maxIdx+1)
	for i := range m.pos {
		m.pos[i] = -1
	}

	for i, nd := range nodes {
		if m.pos[nd.Index] >= 0 {
			return nil, fmt.Errorf("build model: %w: duplicate node index %d", ErrIllegalInput, nd.Index)
		}
		m.pos[nd.Index] = i
		m.Compartments = max(m.Compartments, len(nd.Demand))
		if nd.HasShipment() {
			m.NbrOfShipments = max(m.NbrOfShipments, nd.ShipmentIdx+1)
		}
		switch nd.SiteType {
		case Depot:
			m.Depots = append(m.Depots, nd)
		case Customer:
			m.Customers = append(m.Customers, nd)
		}
	}
	if len(m.Depots) == 0 {
		return nil, fmt.Errorf("build model: %w: no depot is given", ErrIllegalInput)
	}
	m.Nodes = nodes

	m.dist = make([]float64, m.n*m.n)
	m.time = make([]float64, m.n*m.n)
	for i, a := range nodes {
		for j, b := range nodes {
			if i == j {
				continue
			}
			m.dist[i*m.n+j] = metric.Distance(a, b)
			m.time[i*m.n+j] = metric.Time(a, b)
		}
	}
	return m, nil
}

// ValidateVehicle rejects non-positive limits.
func ValidateVehicle(v *Vehicle) error {
	for c, cp := range v.Capacity {
		if !cp.valid() {
			return fmt.Errorf("%w: vehicle %q capacity of compartment %d must be greater than zero", ErrIllegalInput, v.Name, c)
		}
	}
	if v.MaxRouteDuration <= 0 {
		return fmt.Errorf("%w: vehicle %q max route duration must be greater than zero", ErrIllegalInput, v.Name)
	}
	if v.MaxStops <= 0 {
		return fmt.Errorf("%w: vehicle %q max stops must be greater than zero", ErrIllegalInput, v.Name)
	}
	if v.Count <= 0 {
		return fmt.Errorf("%w: vehicle %q count must be greater than zero", ErrIllegalInput, v.Name)
	}
	if v.VarCost < 0 || v.FixCost < 0 {
		return fmt.Errorf("%w: vehicle %q costs must not be negative", ErrIllegalInput, v.Name)
	}
	return nil
}

// Distance between two nodes of the model.
func (m *Model) Distance(a, b *Node) float64 {
	return m.dist[m.pos[a.Index]*m.n+m.pos[b.Index]]
}

// Time between two nodes of the model.
func (m *Model) Time(a, b *Node) float64 {
	return m.time[m.pos[a.Index]*m.n+m.pos[b.Index]]
}

// Contains reports whether the node belongs to this model.
func (m *Model) Contains(nd *Node) bool {
	return nd.Index < len(m.pos) && m.pos[nd.Index] >= 0 && m.Nodes[m.pos[nd.Index]] == nd
}

// HasShipments reports whether the run is a pickup-and-delivery run.
func (m *Model) HasShipments() bool { return m.NbrOfShipments > 0 }

// NearestDepot returns the closest depot allowed for nd.
func (m *Model) NearestDepot(nd *Node) *Node {
	var best *Node
	for _, d := range m.Depots {
		if !nd.AllowsDepot(d.Index) {
			continue
		}
		if best == nil || m.Distance(d, nd) < m.Distance(best, nd) {
			best = d
		}
	}
	if best == nil {
		best = m.Depots[0]
	}
	return best
}
