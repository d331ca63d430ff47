package plan

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"routeopt/internal/model"
	"routeopt/internal/opt"
	"routeopt/internal/status"
)

// Default stage lists used when a Planner names none.
var (
	DefaultStages    = []string{string(opt.Savings), string(opt.Relocate), string(opt.ILSType)}
	DefaultPDPStages = []string{string(opt.PDPCheapestInsert), string(opt.PDPILS)}
)

// Planner plans routes for one vehicle type.
type Planner struct {
	Metric model.Metric
	Params model.Parameters
	// Stages are optimization type names; empty picks DefaultStages or
	// DefaultPDPStages.
	Stages []string
	// Status receives run events; nil disables them.
	Status status.Sink
	Logger zerolog.Logger
}

// Run is the outcome of one planning run.
type Run struct {
	ID       string
	Solution *model.Solution
	Model    *model.Model
	Metrics  []opt.Metrics
	Took     time.Duration
}

// PlanRoute plans nodes with the given vehicle and returns the best solution
// found together with the model it refers to.
func (p *Planner) PlanRoute(nodes []*model.Node, vehicle *model.Vehicle) (*model.Solution, *model.Model, error) {
	run, err := p.Plan(nodes, vehicle)
	if err != nil {
		return nil, nil, err
	}
	return run.Solution, run.Model, nil
}

// Plan is PlanRoute with the run bookkeeping attached.
func (p *Planner) Plan(nodes []*model.Node, vehicle *model.Vehicle) (*Run, error) {
	start := time.Now()
	run := &Run{ID: uuid.NewString()}
	defer opt.ForgetMetrics(run.ID)
	log := p.Logger.With().Str("run", run.ID).Logger()
	rep := status.NewReporter(p.Status, run.ID)
	params := p.Params.WithDefaults()

	planned, unplanned, err := Precheck(nodes, vehicle, params)
	if err != nil {
		return nil, fmt.Errorf("plan route: %w", err)
	}
	if len(unplanned) > 0 {
		log.Warn().Int("unplanned", len(unplanned)).Msg("nodes exceed vehicle capacity")
	}

	m, err := model.NewModel(planned, vehicle, p.Metric, params)
	if err != nil {
		return nil, fmt.Errorf("plan route: %w", err)
	}
	s, err := BuildInitialSolution(m)
	if err != nil {
		return nil, fmt.Errorf("plan route: %w", err)
	}
	s.Unplanned = unplanned
	run.Model = m

	if len(m.Customers) == 0 {
		log.Info().Msg("nothing to plan")
		rep.Send(status.Finished, "", "nothing to plan", opt.Check(s, m).Fitness)
		run.Solution = s
		run.Took = time.Since(start)
		return run, nil
	}

	stages, err := opt.ParseStages(p.stageNames(params), opt.Env{
		Seed:   params.Seed,
		Logger: log,
		Status: rep,
		Record: func(met opt.Metrics) { opt.RecordMetrics(run.ID, met) },
	})
	if err != nil {
		return nil, fmt.Errorf("plan route: parse stages: %w", err)
	}

	pipe := &opt.Pipeline{
		Stages:   stages,
		Splitter: opt.NewSplitter(params.SplitGroupSize, params.SplitWorkers, log),
		Logger:   log,
		Status:   rep,
	}
	log.Info().
		Int("customers", len(m.Customers)).
		Int("depots", len(m.Depots)).
		Float64("fitness", opt.Check(s, m).Fitness).
		Msg("planning started")

	best, err := pipe.Run(s, m)
	if err != nil {
		return nil, fmt.Errorf("plan route: %w", err)
	}
	best.Unplanned = unplanned

	run.Solution = best
	run.Metrics = opt.GetMetrics(run.ID)
	run.Took = time.Since(start)
	q := opt.Check(best, m)
	log.Info().
		Float64("fitness", q.Fitness).
		Float64("cost", q.Cost).
		Bool("feasible", q.Feasible()).
		Dur("took", run.Took).
		Msg("planning finished")
	return run, nil
}

func (p *Planner) stageNames(params model.Parameters) []string {
	switch {
	case len(p.Stages) > 0:
		return p.Stages
	case params.WithPDP:
		return DefaultPDPStages
	default:
		return DefaultStages
	}
}
