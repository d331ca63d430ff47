package main

import (
	"routeopt/internal/buildinfo"
	"routeopt/internal/model"
	"routeopt/internal/opt"
	"routeopt/internal/plan"
)

type report struct {
	RunID     string              `json:"runId"`
	Build     map[string]string   `json:"build"`
	Quality   model.Quality       `json:"quality"`
	Feasible  bool                `json:"feasible"`
	Routes    []model.RouteReport `json:"routes"`
	Unplanned []string            `json:"unplanned"`
	Metrics   []opt.Metrics       `json:"metrics,omitempty"`
	TookMS    int64               `json:"tookMs"`
}

func newReport(res *plan.Run) report {
	q := opt.Check(res.Solution, res.Model)
	r := report{
		RunID:     res.ID,
		Build:     buildinfo.Info(),
		Quality:   q,
		Feasible:  q.Feasible(),
		Routes:    plan.Summarize(res.Solution, res.Model),
		Unplanned: make([]string, 0, len(res.Solution.Unplanned)),
		Metrics:   res.Metrics,
		TookMS:    res.Took.Milliseconds(),
	}
	for _, nd := range res.Solution.Unplanned {
		r.Unplanned = append(r.Unplanned, nd.ExternID)
	}
	return r
}
