package opt

import "routeopt/internal/model"

// Improvement neighborhoods over the giant route. Positions 0 and len-1 are
// the terminal depots and never move.

// maxSegment bounds the segment length of segment moves.
const maxSegment = 3

// NewOpt2 reverses a segment of the giant route, possibly across routes.
func NewOpt2() Operator {
	return &improver{name: string(Opt2), scan: func(sr *search) {
		n := len(sr.g)
		for i := 1; i < n-2; i++ {
			for k := i + 2; k <= n-1; k++ {
				sr.offer(reverse(sr.next(), sr.g, i, k))
			}
		}
	}}
}

// NewOpt2Intra reverses a segment inside one route.
func NewOpt2Intra() Operator {
	return &improver{name: string(Opt2Intra), scan: func(sr *search) {
		for _, r := range model.Routes(sr.g) {
			for i := r.Start + 1; i < r.End-1; i++ {
				for k := i + 2; k <= r.End; k++ {
					sr.offer(reverse(sr.next(), sr.g, i, k))
				}
			}
		}
	}}
}

// NewOpt3 exchanges two adjacent segments of one route, reversing at most one.
func NewOpt3() Operator {
	return &improver{name: string(Opt3), scan: func(sr *search) {
		for _, r := range model.Routes(sr.g) {
			for i := r.Start + 1; i < r.End; i++ {
				for j := i + 1; j < r.End; j++ {
					for k := j + 1; k <= r.End; k++ {
						sr.offer(exchange(sr.next(), sr.g, i, j, j, k, false, false))
						sr.offer(exchange(sr.next(), sr.g, i, j, j, k, true, false))
						sr.offer(exchange(sr.next(), sr.g, i, j, j, k, false, true))
					}
				}
			}
		}
	}}
}

// NewOpt3PointMove swaps one node with a pair of adjacent nodes.
func NewOpt3PointMove() Operator {
	return &improver{name: string(Opt3PointMove), scan: func(sr *search) {
		segmentSwaps(sr, func(la, lb int) bool { return la+lb == 3 && la != lb }, false)
	}}
}

// NewSwap exchanges two nodes.
func NewSwap() Operator {
	return &improver{name: string(Swap), scan: func(sr *search) {
		segmentSwaps(sr, func(la, lb int) bool { return la == 1 && lb == 1 }, false)
	}}
}

// NewSwapSegment exchanges two segments of up to three nodes each.
func NewSwapSegment() Operator {
	return &improver{name: string(SwapSegment), scan: func(sr *search) {
		segmentSwaps(sr, func(int, int) bool { return true }, false)
	}}
}

// NewSwapSegmentInvert exchanges two segments, optionally reversing each.
func NewSwapSegmentInvert() Operator {
	return &improver{name: string(SwapSegmentInvert), scan: func(sr *search) {
		segmentSwaps(sr, func(int, int) bool { return true }, true)
	}}
}

// NewSwapSegmentEq exchanges two segments of equal length.
func NewSwapSegmentEq() Operator {
	return &improver{name: string(SwapSegmentEq), scan: func(sr *search) {
		segmentSwaps(sr, func(la, lb int) bool { return la == lb }, false)
	}}
}

func segmentSwaps(sr *search, lengths func(la, lb int) bool, invert bool) {
	n := len(sr.g)
	for la := 1; la <= maxSegment; la++ {
		for lb := 1; lb <= maxSegment; lb++ {
			if !lengths(la, lb) {
				continue
			}
			for a := 1; a+la <= n-1; a++ {
				b := a + la
				if !sr.free(a, b) {
					continue
				}
				for c := b; c+lb <= n-1; c++ {
					d := c + lb
					if !sr.free(c, d) {
						continue
					}
					sr.offer(exchange(sr.next(), sr.g, a, b, c, d, false, false))
					if !invert {
						continue
					}
					if la > 1 {
						sr.offer(exchange(sr.next(), sr.g, a, b, c, d, true, false))
					}
					if lb > 1 {
						sr.offer(exchange(sr.next(), sr.g, a, b, c, d, false, true))
					}
					if la > 1 && lb > 1 {
						sr.offer(exchange(sr.next(), sr.g, a, b, c, d, true, true))
					}
				}
			}
		}
	}
}

// NewRelocate moves one node to another position.
func NewRelocate() Operator {
	return &improver{name: string(Relocate), scan: func(sr *search) {
		relocations(sr, 1, false)
	}}
}

// NewPathRelocate moves a segment of up to three nodes, optionally reversed.
func NewPathRelocate() Operator {
	return &improver{name: string(PathRelocate), scan: func(sr *search) {
		relocations(sr, maxSegment, true)
	}}
}

func relocations(sr *search, maxLen int, invert bool) {
	n := len(sr.g)
	for l := 1; l <= maxLen; l++ {
		for a := 1; a+l <= n-1; a++ {
			b := a + l
			if !sr.free(a, b) {
				continue
			}
			for j := 1; j <= n-1; j++ {
				if j >= a && j <= b {
					continue
				}
				for _, rev := range []bool{false, true} {
					if rev && (!invert || l == 1) {
						continue
					}
					if j < a {
						sr.offer(exchange(sr.next(), sr.g, j, j, a, b, false, rev))
					} else {
						sr.offer(exchange(sr.next(), sr.g, a, b, j, j, rev, false))
					}
				}
			}
		}
	}
}

// NewPathExchange exchanges the tails of two routes (2-opt*).
func NewPathExchange() Operator {
	return &improver{name: string(PathExchange), scan: func(sr *search) {
		routes := model.Routes(sr.g)
		for x := 0; x < len(routes); x++ {
			r1 := routes[x]
			for y := x + 1; y < len(routes); y++ {
				r2 := routes[y]
				for a := r1.Start + 1; a <= r1.End; a++ {
					for b := r2.Start + 1; b <= r2.End; b++ {
						if a == r1.End && b == r2.End {
							continue
						}
						sr.offer(exchange(sr.next(), sr.g, a, r1.End, b, r2.End, false, false))
					}
				}
			}
		}
	}}
}

// NewPDPRelocate moves a pickup and its delivery together to new positions
// inside one route.
func NewPDPRelocate() Operator {
	return &improver{name: string(PDPRelocate), scan: func(sr *search) {
		if !sr.m.HasShipments() {
			return
		}
		reduced := make([]*model.Node, 0, len(sr.g))
		for s := 0; s < sr.m.NbrOfShipments; s++ {
			pi, di := shipmentPositions(sr.g, s)
			if pi < 0 || di < 0 || pi > di {
				continue
			}
			pick, deli := sr.g[pi], sr.g[di]
			reduced = removePair(reduced[:0], sr.g, pi, di)
			for p := 1; p < len(reduced); p++ {
				for q := p; q < len(reduced); q++ {
					sr.offer(pdpMove(sr.next(), reduced, pick, deli, p, q))
					if reduced[q].IsDepot() {
						break
					}
				}
			}
		}
	}}
}
