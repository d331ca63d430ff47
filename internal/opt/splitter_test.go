package opt

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"routeopt/internal/model"
)

// clustered has two far apart depots with two single-customer routes each.
func clustered(t *testing.T) (*model.Model, *model.Solution) {
	t.Helper()
	d1 := depotAt(0, 0, 0)
	d2 := depotAt(1, 1000, 0)
	a1 := customerAt(2, 1, 0, 1)
	a2 := customerAt(3, 2, 0, 1)
	b1 := customerAt(4, 1001, 0, 1)
	b2 := customerAt(5, 1002, 0, 1)
	m := buildModel(t, []*model.Node{d1, d2, a1, a2, b1, b2}, 100, model.DefaultParameters())
	return m, model.NewSolution([]*model.Node{d1, a1, d1, a2, d2, b1, d2, b2, d1})
}

func TestSplitterGroupsWholeRoutes(t *testing.T) {
	m, s := clustered(t)
	sp := NewSplitter(2, 2, zerolog.Nop())

	groups := sp.groups(s.GiantRoute())
	require.Equal(t, [][2]int{{0, 4}, {4, 8}}, groups)

	out, err := sp.Run(NewRelocate(), s, m)
	require.NoError(t, err)
	requireValid(t, out, m)
	require.Equal(t, s.Len(), out.Len())

	seen := map[*model.Node]int{}
	for _, nd := range out.GiantRoute() {
		if !nd.IsDepot() {
			seen[nd]++
		}
	}
	require.Len(t, seen, 4)
	for _, n := range seen {
		require.Equal(t, 1, n)
	}
}

func TestSplitterMatchesWholeSolution(t *testing.T) {
	m, s := clustered(t)
	ls := NewLocalSearch(NewRelocate())

	whole, err := ls.Execute(s, m)
	require.NoError(t, err)
	split, err := NewSplitter(2, 2, zerolog.Nop()).Run(ls, s, m)
	require.NoError(t, err)

	requireValid(t, split, m)
	require.LessOrEqual(t, Check(split, m).Fitness, Check(whole, m).Fitness+1e-6)
	require.InDelta(t, 8.0, Check(split, m).Cost, 1e-9)
}

func TestSplitterFallsBackToWholeRun(t *testing.T) {
	m, s := lineInstance(t, 3, model.DefaultParameters())
	var calls atomic.Int32
	op := &countingOp{Operator: NewRelocate(), calls: &calls}

	_, err := NewSplitter(10, 2, zerolog.Nop()).Run(op, s, m)
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestSplitterRejectsUnsplittable(t *testing.T) {
	m, s := lineInstance(t, 4, model.DefaultParameters())
	_, err := NewSplitter(1, 2, zerolog.Nop()).Run(NewSavings(), s, m)
	require.True(t, errors.Is(err, model.ErrUnsupported))
}

func TestSplitterRejectsSpanningShipments(t *testing.T) {
	d := depotAt(0, 0, 0)
	p, q := shipment(1, 2, 0, 1, 0, 2, 0, 1)
	m := buildModel(t, []*model.Node{d, p, q}, 10, model.DefaultParameters())
	s := model.NewSolution([]*model.Node{d, p, d, q, d})

	_, err := NewSplitter(1, 2, zerolog.Nop()).Run(NewRelocate(), s, m)
	require.True(t, errors.Is(err, model.ErrUnsupported))
}

func TestSplitterPropagatesGroupErrors(t *testing.T) {
	m, s := clustered(t)
	boom := errors.New("boom")
	_, err := NewSplitter(1, 4, zerolog.Nop()).Run(failingOp{err: boom}, s, m)
	require.ErrorIs(t, err, boom)
}

func TestSplitterForksPerGroup(t *testing.T) {
	m, s := clustered(t)
	ils := NewILS("ils", NewRelocate())
	ils.Loops = 3
	var (
		mu     sync.Mutex
		groups []int
	)
	ils.Record = func(met Metrics) {
		mu.Lock()
		groups = append(groups, met.Group)
		mu.Unlock()
	}
	out, err := NewSplitter(2, 2, zerolog.Nop()).Run(ils, s, m)
	require.NoError(t, err)
	requireValid(t, out, m)
	require.ElementsMatch(t, []int{0, 1}, groups)
}

// twoDepotGroups splits into [D0 a D0 b D1] and [D1 c D0 e D0]. Ordering the
// second group by depot moves its D0 route in front of the shared D1.
func twoDepotGroups(t *testing.T) (*model.Model, *model.Solution) {
	t.Helper()
	d0 := depotAt(0, 0, 0)
	d1 := depotAt(1, 10, 0)
	a := customerAt(2, 1, 0, 1)
	b := customerAt(3, 2, 0, 1)
	c := customerAt(4, 11, 0, 1)
	e := customerAt(5, 0, 1, 1)
	m := buildModel(t, []*model.Node{d0, d1, a, b, c, e}, 100, model.DefaultParameters())
	return m, model.NewSolution([]*model.Node{d0, a, d0, b, d1, c, d0, e, d0})
}

func TestSplitterKeepsChangedLeadingDepot(t *testing.T) {
	m, s := twoDepotGroups(t)
	require.InDelta(t, 10.0, Check(s, m).Cost, 1e-9)

	op := normalizingOp{Operator: NewLocalSearch(NewRelocate())}
	out, err := NewSplitter(2, 1, zerolog.Nop()).Run(op, s, m)
	require.NoError(t, err)
	requireValid(t, out, m)
	require.Equal(t, []int{0, 2, 3, 1, 0, 5, 1, 4, 0}, indices(out.GiantRoute()))
	require.InDelta(t, 8.0, Check(out, m).Cost, 1e-9)
}

func TestSplitterWithNormalizingILS(t *testing.T) {
	m, s := twoDepotGroups(t)
	m.Params.RejectPolicy = model.RejectNormalize

	out, err := NewSplitter(2, 1, zerolog.Nop()).Run(vrpILS(6), s, m)
	require.NoError(t, err)
	requireValid(t, out, m)
	require.InDelta(t, 8.0, Check(out, m).Cost, 1e-9)
}

func TestMergeGroupsSharesClosingDepot(t *testing.T) {
	d0, d1 := depotAt(0, 0, 0), depotAt(1, 10, 0)
	a, b := customerAt(2, 1, 0, 1), customerAt(3, 11, 0, 1)

	shared := mergeGroups([][]*model.Node{{d0, a, d1}, {d1, b, d0}}, 6)
	require.Equal(t, []int{0, 2, 1, 3, 0}, indices(shared))

	changed := mergeGroups([][]*model.Node{{d0, a, d1}, {d0, b, d0}}, 6)
	require.Equal(t, []int{0, 2, 1, 0, 3, 0}, indices(changed))
}

type normalizingOp struct{ Operator }

func (o normalizingOp) Execute(s *model.Solution, m *model.Model) (*model.Solution, error) {
	out, err := o.Operator.Execute(s, m)
	if err != nil {
		return nil, err
	}
	return Normalize(out, m), nil
}

type countingOp struct {
	Operator
	calls *atomic.Int32
}

func (o *countingOp) Execute(s *model.Solution, m *model.Model) (*model.Solution, error) {
	o.calls.Add(1)
	return o.Operator.Execute(s, m)
}

type failingOp struct{ err error }

func (failingOp) Name() string     { return "failing" }
func (failingOp) Splittable() bool { return true }
func (o failingOp) Execute(*model.Solution, *model.Model) (*model.Solution, error) {
	return nil, o.err
}
