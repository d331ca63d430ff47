package opt

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"routeopt/internal/metrics"
	"routeopt/internal/model"
	"routeopt/internal/status"
)

// Pipeline applies its stages in order and normalizes the result.
type Pipeline struct {
	Stages   []Operator
	Splitter *Splitter
	Logger   zerolog.Logger
	Status   *status.Reporter
}

// Run executes every stage. A stage failing with ErrUnsupported is reported
// and skipped; any other failure aborts the run.
func (p *Pipeline) Run(s *model.Solution, m *model.Model) (*model.Solution, error) {
	cur := s
	for _, op := range p.Stages {
		start := time.Now()
		next, err := p.runStage(op, cur, m)
		metrics.StageDuration.WithLabelValues(op.Name()).Observe(time.Since(start).Seconds())

		if errors.Is(err, model.ErrUnsupported) {
			p.Logger.Warn().Err(err).Str("stage", op.Name()).Msg("stage skipped")
			p.Status.Send(status.Exception, op.Name(), err.Error(), Check(cur, m).Fitness)
			continue
		}
		if err == nil {
			err = model.ValidateGiantRoute(next.GiantRoute(), m, next.Unplanned)
		}
		if err != nil {
			p.Status.Send(status.Abort, op.Name(), err.Error(), Check(cur, m).Fitness)
			return nil, fmt.Errorf("pipeline: stage %s: %w", op.Name(), err)
		}

		q := Check(next, m)
		p.Logger.Info().
			Str("stage", op.Name()).
			Float64("fitness", q.Fitness).
			Float64("cost", q.Cost).
			Dur("took", time.Since(start)).
			Msg("stage done")
		cur = next
	}

	out := Normalize(cur, m)
	p.Status.Send(status.Finished, "", "optimization finished", Check(out, m).Fitness)
	return out, nil
}

func (p *Pipeline) runStage(op Operator, s *model.Solution, m *model.Model) (*model.Solution, error) {
	if p.Splitter != nil && m.Params.RouteSplitting && op.Splittable() {
		return p.Splitter.Run(op, s, m)
	}
	return op.Execute(s, m)
}
