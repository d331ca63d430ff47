package opt

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"routeopt/internal/metrics"
	"routeopt/internal/model"
)

// Splitter cuts a giant route at depot boundaries into groups of whole
// routes, solves every group on its own copy and concatenates the results in
// the original order.
type Splitter struct {
	GroupSize int
	Workers   int
	Logger    zerolog.Logger
}

// NewSplitter returns a splitter with the model-independent settings.
func NewSplitter(groupSize, workers int, logger zerolog.Logger) *Splitter {
	return &Splitter{GroupSize: groupSize, Workers: workers, Logger: logger}
}

// Run executes op per group. With fewer than two groups op runs on the
// whole solution.
func (sp *Splitter) Run(op Operator, s *model.Solution, m *model.Model) (*model.Solution, error) {
	if !op.Splittable() {
		return nil, fmt.Errorf("split %s: %w: operator is not splittable", op.Name(), model.ErrUnsupported)
	}
	g := s.GiantRoute()
	if m.HasShipments() && !pairsIntact(g, make([]int, m.NbrOfShipments)) {
		return nil, fmt.Errorf("split %s: %w: shipments span routes", op.Name(), model.ErrUnsupported)
	}

	bounds := sp.groups(g)
	if len(bounds) < 2 {
		return op.Execute(s, m)
	}
	metrics.SplitterGroups.Add(float64(len(bounds)))
	sp.Logger.Debug().Str("op", op.Name()).Int("groups", len(bounds)).Msg("split solution")

	results := make([][]*model.Node, len(bounds))
	var eg errgroup.Group
	eg.SetLimit(max(1, sp.Workers))
	for i, b := range bounds {
		i := i
		sub := append([]*model.Node(nil), g[b[0]:b[1]+1]...)
		gop := fork(op, uint64(i))
		eg.Go(func() error {
			out, err := gop.Execute(model.NewSolution(sub), m)
			if err != nil {
				return fmt.Errorf("split %s: group %d: %w", op.Name(), i, err)
			}
			results[i] = out.GiantRoute()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := model.NewSolution(mergeGroups(results, len(g)))
	out.Unplanned = s.Unplanned
	if Check(out, m).Fitness > Check(s, m).Fitness+m.Params.Eps {
		return s, nil
	}
	return out, nil
}

// mergeGroups concatenates group routes. A group normally starts with the
// closing depot of the previous group, which is then shared. A group whose
// leading depot changed keeps it, and the previous closing depot turns into
// an empty route.
func mergeGroups(results [][]*model.Node, size int) []*model.Node {
	merged := make([]*model.Node, 0, size+len(results))
	merged = append(merged, results[0]...)
	for _, r := range results[1:] {
		if r[0] == merged[len(merged)-1] {
			r = r[1:]
		}
		merged = append(merged, r...)
	}
	return merged
}

// groups returns [start, end] depot positions of each group of GroupSize
// consecutive routes.
func (sp *Splitter) groups(g []*model.Node) [][2]int {
	size := max(1, sp.GroupSize)
	var depots []int
	for i, nd := range g {
		if nd.IsDepot() {
			depots = append(depots, i)
		}
	}
	var out [][2]int
	for k := 0; k+1 < len(depots); k += size {
		end := min(k+size, len(depots)-1)
		out = append(out, [2]int{depots[k], depots[end]})
	}
	return out
}
