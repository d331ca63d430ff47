package status

import "github.com/rs/zerolog"

// LogSink writes events to a zerolog logger. EXCEPTION is logged as a
// warning and ABORT as an error.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Publish(evt Event) {
	var e *zerolog.Event
	switch evt.Code {
	case Exception:
		e = s.Logger.Warn()
	case Abort:
		e = s.Logger.Error()
	default:
		e = s.Logger.Info()
	}
	e.Str("run", evt.RunID).
		Str("code", string(evt.Code)).
		Str("stage", evt.Stage).
		Float64("fitness", evt.Fitness).
		Msg(evt.Message)
}
