package plan

import (
	"routeopt/internal/model"
	"routeopt/internal/opt"
)

// Summarize reports every non-empty route of s in giant route order.
func Summarize(s *model.Solution, m *model.Model) []model.RouteReport {
	g := s.GiantRoute()
	routes := model.NonEmptyRoutes(g)
	out := make([]model.RouteReport, 0, len(routes))
	for _, r := range routes {
		depot, stops := g[r.Start], g[r.Start+1:r.End]
		dist, dur, load := opt.RouteStats(depot, stops, m)
		rep := model.RouteReport{
			Depot:    depot.ExternID,
			Stops:    make([]string, 0, len(stops)),
			Distance: dist,
			Duration: dur,
			Cost:     m.Vehicle.VarCost*dist + m.Vehicle.FixCost,
			Load:     load,
		}
		for _, nd := range stops {
			rep.Stops = append(rep.Stops, nd.ExternID)
		}
		out = append(out, rep)
	}
	return out
}
