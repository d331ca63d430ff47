package opt

import "routeopt/internal/model"

// Operator transforms a solution. Improvement operators return the input
// unchanged when they find no strictly improving move.
type Operator interface {
	Name() string
	// Splittable reports whether the operator may run on a group of whole
	// routes independently of the rest of the solution.
	Splittable() bool
	Execute(s *model.Solution, m *model.Model) (*model.Solution, error)
}

// Forker is implemented by operators that hold random state. Fork returns an
// independent copy drawing from its own stream.
type Forker interface {
	Fork(stream uint64) Operator
}

// fork returns op forked onto stream, or op itself when it holds no state.
func fork(op Operator, stream uint64) Operator {
	if f, ok := op.(Forker); ok {
		return f.Fork(stream)
	}
	return op
}

// search keeps the best strictly improving candidate of one neighborhood
// scan. Candidates are built into buf and adopted by swapping buffers.
type search struct {
	m     *model.Model
	g     []*model.Node
	best  []*model.Node
	bestQ model.Quality
	buf   []*model.Node
	open  []int
	depot []int // depot[i] = number of depots in g[:i]
}

func newSearch(s *model.Solution, m *model.Model) *search {
	g := s.GiantRoute()
	sr := &search{
		m:     m,
		g:     g,
		bestQ: Check(s, m),
		buf:   make([]*model.Node, 0, len(g)),
		depot: make([]int, len(g)+1),
	}
	if m.HasShipments() {
		sr.open = make([]int, m.NbrOfShipments)
	}
	for i, nd := range g {
		sr.depot[i+1] = sr.depot[i]
		if nd.IsDepot() {
			sr.depot[i+1]++
		}
	}
	return sr
}

// next returns an empty candidate buffer.
func (sr *search) next() []*model.Node { return sr.buf[:0] }

// offer scores cand and keeps it if it beats the best so far.
func (sr *search) offer(cand []*model.Node) {
	if sr.open != nil && !pairsIntact(cand, sr.open) {
		return
	}
	q := Evaluate(cand, sr.m)
	if !q.Better(sr.bestQ, sr.m.Params.Eps) {
		return
	}
	old := sr.best
	sr.best, sr.bestQ = cand, q
	if old == nil {
		sr.buf = make([]*model.Node, 0, len(sr.g))
	} else {
		sr.buf = old[:0]
	}
}

// free reports whether g[a:b] holds no depot.
func (sr *search) free(a, b int) bool { return sr.depot[b]-sr.depot[a] == 0 }

// result wraps the best candidate, or returns s when nothing improved.
func (sr *search) result(s *model.Solution) *model.Solution {
	if sr.best == nil {
		return s
	}
	out := model.NewSolution(sr.best)
	out.SetQuality(sr.bestQ)
	out.Unplanned = s.Unplanned
	return out
}

// pairsIntact reports whether every routed delivery follows its pickup in the
// same route. open is scratch space of one entry per shipment.
func pairsIntact(route []*model.Node, open []int) bool {
	for i := range open {
		open[i] = -1
	}
	rid := -1
	for _, nd := range route {
		if nd.IsDepot() {
			rid++
			continue
		}
		if !nd.HasShipment() {
			continue
		}
		if nd.IsPickup() {
			open[nd.ShipmentIdx] = rid
			continue
		}
		if open[nd.ShipmentIdx] != rid {
			return false
		}
		open[nd.ShipmentIdx] = -2
	}
	for _, r := range open {
		if r >= 0 {
			// pickup routed, delivery not in the same route
			return false
		}
	}
	return true
}

// exchange appends g with g[a:b] and g[c:d] swapped, each optionally
// reversed. Requires a <= b <= c <= d. An empty segment turns the exchange
// into a relocation.
func exchange(dst, g []*model.Node, a, b, c, d int, revA, revB bool) []*model.Node {
	dst = append(dst, g[:a]...)
	dst = appendSeg(dst, g[c:d], revB)
	dst = append(dst, g[b:c]...)
	dst = appendSeg(dst, g[a:b], revA)
	return append(dst, g[d:]...)
}

// reverse appends g with g[a:b] reversed.
func reverse(dst, g []*model.Node, a, b int) []*model.Node {
	dst = append(dst, g[:a]...)
	dst = appendSeg(dst, g[a:b], true)
	return append(dst, g[b:]...)
}

func appendSeg(dst, seg []*model.Node, rev bool) []*model.Node {
	if !rev {
		return append(dst, seg...)
	}
	for i := len(seg) - 1; i >= 0; i-- {
		dst = append(dst, seg[i])
	}
	return dst
}

// removePair appends route without the nodes at pi and di (pi < di).
func removePair(dst, route []*model.Node, pi, di int) []*model.Node {
	dst = append(dst, route[:pi]...)
	dst = append(dst, route[pi+1:di]...)
	return append(dst, route[di+1:]...)
}

// pdpMove inserts the pickup before reduced[p] and the delivery before
// reduced[q]. Callers keep 1 <= p <= q and reduced[p:q] free of depots so
// both land in the same route in order.
func pdpMove(dst, reduced []*model.Node, pick, deli *model.Node, p, q int) []*model.Node {
	dst = append(dst, reduced[:p]...)
	dst = append(dst, pick)
	dst = append(dst, reduced[p:q]...)
	dst = append(dst, deli)
	return append(dst, reduced[q:]...)
}

// shipmentPositions returns the pickup and delivery positions of shipment s,
// -1 when absent.
func shipmentPositions(route []*model.Node, s int) (pi, di int) {
	pi, di = -1, -1
	for i, nd := range route {
		if nd.ShipmentIdx != s {
			continue
		}
		if nd.IsPickup() {
			pi = i
		} else {
			di = i
		}
	}
	return pi, di
}

// improver is an improvement operator defined by its neighborhood scan.
type improver struct {
	name string
	scan func(sr *search)
}

func (o *improver) Name() string     { return o.name }
func (o *improver) Splittable() bool { return true }

func (o *improver) Execute(s *model.Solution, m *model.Model) (*model.Solution, error) {
	if s.Len() < 3 {
		return s, nil
	}
	sr := newSearch(s, m)
	o.scan(sr)
	return sr.result(s), nil
}
