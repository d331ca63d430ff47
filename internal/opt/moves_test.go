package opt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"routeopt/internal/model"
)

var allImprovers = []func() Operator{
	NewOpt2, NewOpt2Intra, NewOpt3, NewOpt3PointMove, NewSwap, NewSwapSegment,
	NewSwapSegmentInvert, NewSwapSegmentEq, NewRelocate, NewPathRelocate,
	NewPathExchange, NewPDPRelocate,
}

func TestImproversKeepInvariantsAndNeverWorsen(t *testing.T) {
	m, start := randomInstance(t, 9, 42, 12)
	// merge customers first so intra-route moves have something to do
	s, err := NewLocalSearch(NewRelocate()).Execute(start, m)
	require.NoError(t, err)
	requireValid(t, s, m)

	for _, mk := range allImprovers {
		op := mk()
		t.Run(op.Name(), func(t *testing.T) {
			before := Check(s, m)
			out, err := op.Execute(s, m)
			require.NoError(t, err)
			requireValid(t, out, m)
			require.LessOrEqual(t, Check(out, m).Fitness, before.Fitness)
			require.Equal(t, s.Len(), out.Len())
		})
	}
}

func TestImproversKeepPairsOnPDP(t *testing.T) {
	m, s := pdpInstance(t, 4, 7)
	for _, mk := range allImprovers {
		op := mk()
		t.Run(op.Name(), func(t *testing.T) {
			out, err := NewLocalSearch(op).Execute(s, m)
			require.NoError(t, err)
			requireValid(t, out, m)
			require.Zero(t, Check(out, m).Penalty.Precedence)
			require.LessOrEqual(t, Check(out, m).Fitness, Check(s, m).Fitness)
		})
	}
}

func TestRelocateMergesLine(t *testing.T) {
	m, s := lineInstance(t, 4, model.DefaultParameters())
	out, err := NewLocalSearch(NewRelocate()).Execute(s, m)
	require.NoError(t, err)
	requireValid(t, out, m)
	require.InDelta(t, 8.0, Check(out, m).Cost, 1e-9)
}

func TestNoImprovementReturnsInput(t *testing.T) {
	m, _ := lineInstance(t, 3, model.DefaultParameters())
	d := m.Nodes[0]
	best := model.NewSolution([]*model.Node{d, m.Nodes[1], m.Nodes[2], m.Nodes[3], d})

	for _, mk := range allImprovers {
		op := mk()
		out, err := op.Execute(best, m)
		require.NoError(t, err)
		require.Same(t, best, out, op.Name())
	}
}

func TestOpt2IntraUncrosses(t *testing.T) {
	d := depotAt(0, 0, 0)
	a := customerAt(1, 0, 10, 1)
	b := customerAt(2, 10, 10, 1)
	c := customerAt(3, 10, 0, 1)
	m := buildModel(t, []*model.Node{d, a, b, c}, 100, model.DefaultParameters())

	crossed := model.NewSolution([]*model.Node{d, b, a, c, d})
	out, err := NewOpt2Intra().Execute(crossed, m)
	require.NoError(t, err)
	require.InDelta(t, 40.0, Check(out, m).Cost, 1e-9)
}

func TestPathExchangeSwapsTails(t *testing.T) {
	d := depotAt(0, 0, 0)
	a1 := customerAt(1, 1, 0, 1)
	a2 := customerAt(2, 2, 0, 1)
	b1 := customerAt(3, 0, 1, 1)
	b2 := customerAt(4, 0, 2, 1)
	m := buildModel(t, []*model.Node{d, a1, a2, b1, b2}, 100, model.DefaultParameters())

	s := model.NewSolution([]*model.Node{d, a1, b2, d, b1, a2, d})
	out, err := NewPathExchange().Execute(s, m)
	require.NoError(t, err)
	requireValid(t, out, m)
	require.InDelta(t, 8.0, Check(out, m).Cost, 1e-9)
}

func TestPdpMoveKeepsOrder(t *testing.T) {
	m, s := pdpInstance(t, 2, 3)
	g := s.GiantRoute()
	pi, di := shipmentPositions(g, 0)
	require.Equal(t, 1, pi)
	require.Equal(t, 2, di)

	reduced := removePair(nil, g, pi, di)
	require.Len(t, reduced, len(g)-2)
	for p := 1; p < len(reduced); p++ {
		for q := p; q < len(reduced); q++ {
			cand := pdpMove(nil, reduced, g[pi], g[di], p, q)
			require.NoError(t, model.ValidateGiantRoute(cand, m, nil))
			if reduced[q].IsDepot() {
				break
			}
		}
	}
}

func TestExchangeAndReverse(t *testing.T) {
	_, s := lineInstance(t, 4, model.DefaultParameters())
	g := s.GiantRoute() // D 1 D 2 D 3 D 4 D

	got := indices(exchange(nil, g, 1, 2, 3, 4, false, false))
	require.Equal(t, []int{0, 2, 0, 1, 0, 3, 0, 4, 0}, got)

	got = indices(exchange(nil, g, 1, 1, 3, 6, false, true)) // relocate reversed segment
	require.Equal(t, []int{0, 3, 0, 2, 1, 0, 0, 4, 0}, got)

	got = indices(reverse(nil, g, 1, 4))
	require.Equal(t, []int{0, 2, 0, 1, 0, 3, 0, 4, 0}, got)
}
