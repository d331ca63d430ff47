package opt

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"routeopt/internal/model"
)

func depotAt(idx int, x, y float64) *model.Node {
	return &model.Node{Index: idx, ExternID: fmt.Sprintf("D%d", idx), SiteType: model.Depot, X: x, Y: y, ShipmentIdx: model.NoShipment}
}

func customerAt(idx int, x, y, demand float64) *model.Node {
	return &model.Node{Index: idx, ExternID: fmt.Sprintf("C%d", idx), SiteType: model.Customer, X: x, Y: y, Demand: []float64{demand}, ShipmentIdx: model.NoShipment}
}

func shipment(pIdx, qIdx, s int, px, py, qx, qy, amount float64) (*model.Node, *model.Node) {
	p := &model.Node{Index: pIdx, ExternID: fmt.Sprintf("P%d", s), SiteType: model.Customer, X: px, Y: py, Demand: []float64{-amount}, ShipmentIdx: s}
	q := &model.Node{Index: qIdx, ExternID: fmt.Sprintf("Q%d", s), SiteType: model.Customer, X: qx, Y: qy, Demand: []float64{amount}, ShipmentIdx: s}
	return p, q
}

func buildModel(t *testing.T, nodes []*model.Node, capacity float64, params model.Parameters) *model.Model {
	t.Helper()
	v := model.NewVehicle("truck", capacity)
	m, err := model.NewModel(nodes, &v, model.EuclideanMetric{Speed: 1}, params)
	require.NoError(t, err)
	return m
}

// lineInstance is a depot at the origin with n customers at x = 1..n, each
// in its own route. The optimum is one route of cost 2n.
func lineInstance(t *testing.T, n int, params model.Parameters) (*model.Model, *model.Solution) {
	t.Helper()
	d := depotAt(0, 0, 0)
	nodes := []*model.Node{d}
	route := []*model.Node{d}
	for i := 1; i <= n; i++ {
		c := customerAt(i, float64(i), 0, 1)
		nodes = append(nodes, c)
		route = append(route, c, d)
	}
	return buildModel(t, nodes, 1000, params), model.NewSolution(route)
}

// randomInstance scatters n customers around one depot and starts from one
// route per customer.
func randomInstance(t *testing.T, n int, seed int64, capacity float64) (*model.Model, *model.Solution) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	d := depotAt(0, 50, 50)
	nodes := []*model.Node{d}
	route := []*model.Node{d}
	for i := 1; i <= n; i++ {
		c := customerAt(i, rng.Float64()*100, rng.Float64()*100, float64(1+rng.Intn(5)))
		nodes = append(nodes, c)
		route = append(route, c, d)
	}
	return buildModel(t, nodes, capacity, model.DefaultParameters()), model.NewSolution(route)
}

// pdpInstance has n shipments, each in its own route [D, P, Q].
func pdpInstance(t *testing.T, n int, seed int64) (*model.Model, *model.Solution) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	d := depotAt(0, 50, 50)
	nodes := []*model.Node{d}
	route := []*model.Node{d}
	for s := 0; s < n; s++ {
		p, q := shipment(1+2*s, 2+2*s, s, rng.Float64()*100, rng.Float64()*100, rng.Float64()*100, rng.Float64()*100, 2)
		nodes = append(nodes, p, q)
		route = append(route, p, q, d)
	}
	params := model.DefaultParameters()
	params.WithPDP = true
	return buildModel(t, nodes, 10, params), model.NewSolution(route)
}

func requireValid(t *testing.T, s *model.Solution, m *model.Model) {
	t.Helper()
	require.NoError(t, model.ValidateGiantRoute(s.GiantRoute(), m, s.Unplanned))
}

func indices(route []*model.Node) []int {
	out := make([]int, len(route))
	for i, nd := range route {
		out[i] = nd.Index
	}
	return out
}
