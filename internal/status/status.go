package status

import "time"

// Code classifies a status event of a planning run.
type Code string

const (
	Running   Code = "RUNNING"
	Exception Code = "EXCEPTION"
	Abort     Code = "ABORT"
	Finished  Code = "FINISHED"
)

type Event struct {
	RunID   string    `json:"runId"`
	Code    Code      `json:"code"`
	Stage   string    `json:"stage,omitempty"`
	Message string    `json:"message"`
	Fitness float64   `json:"fitness,omitempty"`
	At      time.Time `json:"at"`
}

// Sink receives status events. Implementations must be safe for concurrent use.
type Sink interface {
	Publish(evt Event)
}

// Reporter tags events with a run ID. A nil Reporter discards everything.
type Reporter struct {
	sink  Sink
	runID string
}

func NewReporter(sink Sink, runID string) *Reporter {
	if sink == nil {
		return nil
	}
	return &Reporter{sink: sink, runID: runID}
}

// Send publishes one event.
func (r *Reporter) Send(code Code, stage, msg string, fitness float64) {
	if r == nil {
		return
	}
	r.sink.Publish(Event{RunID: r.runID, Code: code, Stage: stage, Message: msg, Fitness: fitness, At: time.Now()})
}

// RunID returns the tagged run, empty for a nil Reporter.
func (r *Reporter) RunID() string {
	if r == nil {
		return ""
	}
	return r.runID
}

// Multi fans an event out to several sinks.
type Multi []Sink

func (m Multi) Publish(evt Event) {
	for _, s := range m {
		s.Publish(evt)
	}
}
