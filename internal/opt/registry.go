package opt

import (
	"fmt"

	"github.com/rs/zerolog"

	"routeopt/internal/model"
	"routeopt/internal/status"
)

// OptType names a pipeline stage.
type OptType string

const (
	Savings           OptType = "savings"
	FirstBest         OptType = "first_best"
	Opt2              OptType = "opt2"
	Opt2Intra         OptType = "opt2_intra"
	Opt3              OptType = "opt3"
	Opt3PointMove     OptType = "opt3_pointmove"
	Swap              OptType = "swap"
	SwapSegment       OptType = "swap_segment"
	SwapSegmentInvert OptType = "swap_segment_invert"
	SwapSegmentEq     OptType = "swap_segment_eq"
	Relocate          OptType = "relocate"
	PathRelocate      OptType = "path_relocate"
	PathExchange      OptType = "path_exchange"
	ILSType           OptType = "ils"
	PDPCheapestInsert OptType = "pdp_cheapest_insert"
	PDPRelocate       OptType = "pdp_relocate"
	PDPILS            OptType = "pdp_ils"
)

// Env carries the run context handed to stateful operators.
type Env struct {
	Seed   int64
	Logger zerolog.Logger
	Status *status.Reporter
	Record func(Metrics)
}

var improvers = map[OptType]func() Operator{
	Opt2:              NewOpt2,
	Opt2Intra:         NewOpt2Intra,
	Opt3:              NewOpt3,
	Opt3PointMove:     NewOpt3PointMove,
	Swap:              NewSwap,
	SwapSegment:       NewSwapSegment,
	SwapSegmentInvert: NewSwapSegmentInvert,
	SwapSegmentEq:     NewSwapSegmentEq,
	Relocate:          NewRelocate,
	PathRelocate:      NewPathRelocate,
	PathExchange:      NewPathExchange,
	PDPRelocate:       NewPDPRelocate,
}

// Lookup builds the operator for t. Improvement operators come wrapped in
// the local search driver.
func Lookup(t OptType, env Env) (Operator, error) {
	if f, ok := improvers[t]; ok {
		return NewLocalSearch(f()), nil
	}
	switch t {
	case Savings:
		return NewSavings(), nil
	case FirstBest:
		return NewFirstBest(), nil
	case PDPCheapestInsert:
		return NewPDPCheapestInsert(), nil
	case ILSType:
		return env.ils(string(t), NewRelocate(), NewSwapSegment(), NewOpt2()), nil
	case PDPILS:
		return env.ils(string(t), NewPDPRelocate()), nil
	}
	return nil, fmt.Errorf("lookup: %w: unknown optimization type %q", model.ErrIllegalInput, t)
}

// ParseStages resolves a list of stage names.
func ParseStages(names []string, env Env) ([]Operator, error) {
	ops := make([]Operator, 0, len(names))
	for _, n := range names {
		op, err := Lookup(OptType(n), env)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (env Env) ils(name string, ops ...Operator) *ILS {
	o := NewILS(name, ops...)
	o.Seed = env.Seed
	o.Logger = env.Logger
	o.Status = env.Status
	o.Record = env.Record
	return o
}
