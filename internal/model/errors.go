package model

import "errors"

var (
	// ErrIllegalInput marks bad caller data; planning aborts before optimization.
	ErrIllegalInput = errors.New("illegal input")
	// ErrStructural marks a broken giant-route invariant. It is a bug, not bad data.
	ErrStructural = errors.New("structural invariant violated")
	// ErrUnsupported is returned by stages that cannot run on the given solution.
	ErrUnsupported = errors.New("unsupported operation")
	// ErrExhausted is returned when a bounded retry loop gives up.
	ErrExhausted = errors.New("attempts exhausted")
)
