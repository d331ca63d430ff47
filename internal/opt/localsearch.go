package opt

import (
	"fmt"

	"routeopt/internal/model"
)

// LocalSearch repeats an operator until a pass brings no strict improvement.
type LocalSearch struct {
	Op Operator
}

// NewLocalSearch wraps op into a fixed-point driver.
func NewLocalSearch(op Operator) *LocalSearch { return &LocalSearch{Op: op} }

func (ls *LocalSearch) Name() string     { return ls.Op.Name() }
func (ls *LocalSearch) Splittable() bool { return ls.Op.Splittable() }

func (ls *LocalSearch) Fork(stream uint64) Operator {
	return &LocalSearch{Op: fork(ls.Op, stream)}
}

func (ls *LocalSearch) Execute(s *model.Solution, m *model.Model) (*model.Solution, error) {
	cur, q := s, Check(s, m)
	for {
		next, err := ls.Op.Execute(cur, m)
		if err != nil {
			return nil, fmt.Errorf("local search %s: %w", ls.Op.Name(), err)
		}
		nq := Check(next, m)
		if !nq.Better(q, m.Params.Eps) {
			return cur, nil
		}
		cur, q = next, nq
	}
}
