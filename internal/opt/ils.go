package opt

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"routeopt/internal/metrics"
	"routeopt/internal/model"
	"routeopt/internal/status"
)

// Metrics describes one ILS run.
type Metrics struct {
	Stage            string         `json:"stage"`
	Group            int            `json:"group"`
	Loops            int            `json:"loops"`
	Improvements     int            `json:"improvements"`
	PerturbExhausted int            `json:"perturbExhausted"`
	Selections       map[string]int `json:"selections"`
	FinalWeights     []float64      `json:"finalWeights"`
	InitialFitness   float64        `json:"initialFitness"`
	BestFitness      float64        `json:"bestFitness"`
	// Trace holds the best fitness after every loop.
	Trace []float64 `json:"trace"`
}

// ILS is the iterated local search: perturb the current best, intensify with
// adaptively selected operators, accept strict improvements only.
type ILS struct {
	name string
	ops  []Operator
	// Seed of the run; 0 takes the model's seed.
	Seed int64
	// Loops overrides the model's loop count when positive.
	Loops  int
	Logger zerolog.Logger
	Status *status.Reporter
	// Record receives the metrics of every finished run.
	Record func(Metrics)

	group int
}

// NewILS builds an ILS over the given improvement operators.
func NewILS(name string, ops ...Operator) *ILS {
	return &ILS{name: name, ops: ops, Logger: zerolog.Nop(), group: -1}
}

func (o *ILS) Name() string     { return o.name }
func (o *ILS) Splittable() bool { return true }

// Fork returns a copy for splitter group stream with its own random stream.
func (o *ILS) Fork(stream uint64) Operator {
	c := *o
	c.ops = make([]Operator, len(o.ops))
	for i, op := range o.ops {
		c.ops[i] = fork(op, stream)
	}
	if o.Seed != 0 {
		// a zero seed is derived from the model seed in Run
		c.Seed = deriveSeed(o.Seed, stream)
	}
	c.group = int(stream)
	return &c
}

func (o *ILS) Execute(s *model.Solution, m *model.Model) (*model.Solution, error) {
	best, _, err := o.Run(s, m)
	return best, err
}

// Run executes the ILS and returns the best solution with the run metrics.
func (o *ILS) Run(s *model.Solution, m *model.Model) (*model.Solution, Metrics, error) {
	p := m.Params
	seed := o.Seed
	if seed == 0 {
		seed = p.Seed
		if o.group >= 0 {
			seed = deriveSeed(seed, uint64(o.group))
		}
	}
	rng := rngFromSeed(seed)
	loops := p.ILSLoops
	if o.Loops > 0 {
		loops = o.Loops
	}

	best := s
	bestQ := Check(best, m)
	base := best
	weights := make([]float64, len(o.ops))
	for i := range weights {
		weights[i] = 1 / float64(len(weights))
	}
	met := Metrics{
		Stage:          o.name,
		Group:          o.group,
		Selections:     map[string]int{},
		InitialFitness: bestQ.Fitness,
	}
	log := o.Logger.With().Str("op", o.name).Int("group", o.group).Logger()

	for loop := 0; loop < loops; loop++ {
		met.Loops++
		metrics.ILSLoops.Inc()

		cand, err := perturb(base, m, rng)
		if errors.Is(err, model.ErrExhausted) {
			met.PerturbExhausted++
			metrics.PerturbExhausted.Inc()
			log.Debug().Int("loop", loop).Msg("perturbation exhausted, loop skipped")
			met.Trace = append(met.Trace, bestQ.Fitness)
			continue
		}
		if err != nil {
			return nil, met, fmt.Errorf("ils %s: loop %d: %w", o.name, loop, err)
		}

		cand, err = o.intensify(cand, m, rng, weights, &met)
		if err != nil {
			return nil, met, fmt.Errorf("ils %s: loop %d: %w", o.name, loop, err)
		}

		if q := Check(cand, m); q.Better(bestQ, p.Eps) {
			best, bestQ = cand, q
			base = best
			met.Improvements++
			metrics.ILSImprovements.Inc()
			log.Debug().Int("loop", loop).Float64("fitness", q.Fitness).Float64("cost", q.Cost).Msg("new best")
			o.Status.Send(status.Running, o.name, fmt.Sprintf("loop %d improved", loop), q.Fitness)
		} else if p.RejectPolicy == model.RejectNormalize {
			base = Normalize(best, m)
		} else {
			base = best
		}
		met.Trace = append(met.Trace, bestQ.Fitness)
	}

	met.BestFitness = bestQ.Fitness
	met.FinalWeights = weights
	if o.Record != nil {
		o.Record(met)
	}
	return best, met, nil
}

// intensify runs the local search with adaptive operator selection until
// every operator was tried since the last improvement.
func (o *ILS) intensify(s *model.Solution, m *model.Model, rng *rand.Rand, weights []float64, met *Metrics) (*model.Solution, error) {
	cur, q := s, Check(s, m)
	processed := make([]bool, len(o.ops))
	for {
		i := choose(weights, processed, rng)
		if i < 0 {
			return cur, nil
		}
		processed[i] = true
		op := o.ops[i]
		met.Selections[op.Name()]++
		metrics.OperatorExecutions.WithLabelValues(op.Name()).Inc()

		next, err := NewLocalSearch(op).Execute(cur, m)
		if errors.Is(err, model.ErrUnsupported) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if nq := Check(next, m); nq.Better(q, m.Params.Eps) {
			cur, q = next, nq
			weights[i] += 0.1
			clear(processed)
		} else {
			weights[i] = math.Max(0.01, weights[i]*0.999)
		}
		normalizeWeights(weights)
	}
}

// choose draws an index by roulette wheel over the operators not yet
// processed. It returns -1 when all are processed.
func choose(weights []float64, processed []bool, rng *rand.Rand) int {
	sum := 0.0
	last := -1
	for i, w := range weights {
		if !processed[i] {
			sum += w
			last = i
		}
	}
	if last < 0 {
		return -1
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		if processed[i] {
			continue
		}
		acc += w
		if r <= acc {
			return i
		}
	}
	return last
}

func normalizeWeights(w []float64) {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if sum <= 0 {
		return
	}
	for i := range w {
		w[i] /= sum
	}
}
