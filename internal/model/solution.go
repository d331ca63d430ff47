package model

// Solution is a giant tour: all routes concatenated, separated by depots.
// The first and last elements are depots; two adjacent depots denote an
// unused vehicle slot.
type Solution struct {
	route     []*Node
	quality   *Quality
	Unplanned []*Node
}

// NewSolution wraps a giant route. The slice is owned by the solution afterwards.
func NewSolution(route []*Node) *Solution {
	return &Solution{route: route}
}

// GiantRoute returns the giant route. Callers must not modify it; use
// SetGiantRoute for structural edits.
func (s *Solution) GiantRoute() []*Node { return s.route }

// SetGiantRoute replaces the giant route and drops the cached quality.
func (s *Solution) SetGiantRoute(route []*Node) {
	s.route = route
	s.quality = nil
}

// Len is the length of the giant route including depots.
func (s *Solution) Len() int { return len(s.route) }

// Quality returns the cached quality, if any.
func (s *Solution) Quality() (Quality, bool) {
	if s.quality == nil {
		return Quality{}, false
	}
	return *s.quality, true
}

// SetQuality caches q for the current giant route.
func (s *Solution) SetQuality(q Quality) { s.quality = &q }

// Copy returns a deep copy of the route slice sharing the immutable nodes.
func (s *Solution) Copy() *Solution {
	c := &Solution{route: append([]*Node(nil), s.route...)}
	if s.quality != nil {
		q := *s.quality
		c.quality = &q
	}
	if s.Unplanned != nil {
		c.Unplanned = append([]*Node(nil), s.Unplanned...)
	}
	return c
}

// Route is a half-open range [Start, End) of the giant route: Start is the
// leading depot, End the index of the next depot.
type Route struct {
	Start, End int
}

// Empty reports a route without any stop.
func (r Route) Empty() bool { return r.End-r.Start <= 1 }

// Routes lists every route of the giant route, empty ones included.
func Routes(route []*Node) []Route {
	var out []Route
	start := -1
	for i, nd := range route {
		if !nd.IsDepot() {
			continue
		}
		if start >= 0 {
			out = append(out, Route{Start: start, End: i})
		}
		start = i
	}
	return out
}

// NonEmptyRoutes skips routes without stops.
func NonEmptyRoutes(route []*Node) []Route {
	all := Routes(route)
	out := all[:0]
	for _, r := range all {
		if !r.Empty() {
			out = append(out, r)
		}
	}
	return out
}

// RouteIndex maps every position of the giant route to its route number.
// Depots belong to the route they lead.
func RouteIndex(route []*Node) []int {
	idx := make([]int, len(route))
	id := -1
	for i, nd := range route {
		if nd.IsDepot() {
			id++
		}
		idx[i] = id
	}
	return idx
}
