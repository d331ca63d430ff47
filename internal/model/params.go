package model

// PenaltyWeights scale each constraint violation into fitness.
type PenaltyWeights struct {
	Capacity    float64 `yaml:"capacity"`
	Duration    float64 `yaml:"duration"`
	TimeWindow  float64 `yaml:"timeWindow"`
	Stops       float64 `yaml:"stops"`
	Precedence  float64 `yaml:"precedence"`
	PresetDepot float64 `yaml:"presetDepot"`
}

// Reject policies for ILS candidates that do not beat the current best.
const (
	RejectDiscard   = "discard"
	RejectNormalize = "normalize"
)

// Parameters are the run parameters of one planning run.
type Parameters struct {
	ILSLoops          int            `yaml:"ilsLoops"`
	RouteSplitting    bool           `yaml:"routeSplitting"`
	SplitGroupSize    int            `yaml:"splitGroupSize"`
	SplitWorkers      int            `yaml:"splitWorkers"`
	WithPDP           bool           `yaml:"withPDP"`
	Penalties         PenaltyWeights `yaml:"penalties"`
	Seed              int64          `yaml:"seed"`
	Eps               float64        `yaml:"eps"`
	PerturbVariations int            `yaml:"perturbVariations"`
	PerturbAttempts   int            `yaml:"perturbAttempts"`
	PerturbRetries    int            `yaml:"perturbRetries"`
	RejectPolicy      string         `yaml:"rejectPolicy"`
}

// DefaultParameters returns the defaults used when a field is left zero.
func DefaultParameters() Parameters {
	return Parameters{
		ILSLoops:       50,
		SplitGroupSize: 10,
		SplitWorkers:   4,
		Penalties: PenaltyWeights{
			Capacity:    1e4,
			Duration:    1e4,
			TimeWindow:  1e4,
			Stops:       1e4,
			Precedence:  1e6,
			PresetDepot: 1e6,
		},
		Seed:              1,
		Eps:               1e-6,
		PerturbVariations: 5,
		PerturbAttempts:   100,
		PerturbRetries:    10,
		RejectPolicy:      RejectNormalize,
	}
}

// WithDefaults fills zero fields from DefaultParameters. Penalty weights are
// defaulted one by one.
func (p Parameters) WithDefaults() Parameters {
	d := DefaultParameters()
	if p.ILSLoops <= 0 {
		p.ILSLoops = d.ILSLoops
	}
	if p.SplitGroupSize <= 0 {
		p.SplitGroupSize = d.SplitGroupSize
	}
	if p.SplitWorkers <= 0 {
		p.SplitWorkers = d.SplitWorkers
	}
	p.Penalties = p.Penalties.withDefaults(d.Penalties)
	if p.Seed == 0 {
		p.Seed = d.Seed
	}
	if p.Eps <= 0 {
		p.Eps = d.Eps
	}
	if p.PerturbVariations <= 0 {
		p.PerturbVariations = d.PerturbVariations
	}
	if p.PerturbAttempts <= 0 {
		p.PerturbAttempts = d.PerturbAttempts
	}
	if p.PerturbRetries <= 0 {
		p.PerturbRetries = d.PerturbRetries
	}
	if p.RejectPolicy == "" {
		p.RejectPolicy = d.RejectPolicy
	}
	return p
}

// withDefaults replaces every non-positive weight with the one from d.
func (w PenaltyWeights) withDefaults(d PenaltyWeights) PenaltyWeights {
	return PenaltyWeights{
		Capacity:    positiveOr(w.Capacity, d.Capacity),
		Duration:    positiveOr(w.Duration, d.Duration),
		TimeWindow:  positiveOr(w.TimeWindow, d.TimeWindow),
		Stops:       positiveOr(w.Stops, d.Stops),
		Precedence:  positiveOr(w.Precedence, d.Precedence),
		PresetDepot: positiveOr(w.PresetDepot, d.PresetDepot),
	}
}

func positiveOr(v, d float64) float64 {
	if v > 0 {
		return v
	}
	return d
}
