package status

import "golang.org/x/time/rate"

// Throttled rate-limits RUNNING events. Every other code passes through, so
// failures and the final event are never lost.
type Throttled struct {
	next    Sink
	limiter *rate.Limiter
}

// NewThrottled allows perSecond RUNNING events per second with the given burst.
func NewThrottled(next Sink, perSecond float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (t *Throttled) Publish(evt Event) {
	if evt.Code == Running && !t.limiter.Allow() {
		return
	}
	t.next.Publish(evt)
}
