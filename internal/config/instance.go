package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"routeopt/internal/model"
)

// Metric kinds of an instance file.
const (
	MetricEuclidean = "euclidean"
	MetricHaversine = "haversine"
	MetricMatrix    = "matrix"
)

// Instance is a planning problem as stored in a YAML file.
type Instance struct {
	Metric  MetricSpec    `yaml:"metric"`
	Vehicle model.Vehicle `yaml:"vehicle"`
	Nodes   []NodeSpec    `yaml:"nodes"`
	// NodesCSV names a CSV file whose rows are appended to Nodes. A relative
	// path is resolved against the instance file.
	NodesCSV string `yaml:"nodesCSV"`
}

// MetricSpec selects and parameterizes the distance metric.
type MetricSpec struct {
	Kind string `yaml:"kind"`
	// Speed is the euclidean distance unit per time unit.
	Speed float64 `yaml:"speed"`
	// SpeedKph is the haversine travel speed; times come out in seconds.
	SpeedKph float64 `yaml:"speedKph"`
	// Distance and Duration are indexed by node position in the file.
	Distance [][]float64 `yaml:"distance"`
	Duration [][]float64 `yaml:"duration"`
}

// NodeSpec is one node of an instance file. Depots are referenced by id.
type NodeSpec struct {
	ID           string           `yaml:"id"`
	Type         string           `yaml:"type"`
	X            float64          `yaml:"x"`
	Y            float64          `yaml:"y"`
	Demand       []float64        `yaml:"demand"`
	TimeWindow   model.TimeWindow `yaml:"timeWindow"`
	ServiceTime  float64          `yaml:"serviceTime"`
	Shipment     *int             `yaml:"shipment"`
	PresetDepots []string         `yaml:"presetDepots"`
}

// LoadInstance reads an instance file.
func LoadInstance(path string) (*Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}
	in, err := ParseInstance(data)
	if err != nil {
		return nil, fmt.Errorf("load instance %s: %w", path, err)
	}
	if in.NodesCSV != "" {
		csvPath := in.NodesCSV
		if !filepath.IsAbs(csvPath) {
			csvPath = filepath.Join(filepath.Dir(path), csvPath)
		}
		f, err := os.Open(csvPath)
		if err != nil {
			return nil, fmt.Errorf("load instance: %w", err)
		}
		defer f.Close()
		rows, err := ParseNodesCSV(f)
		if err != nil {
			return nil, fmt.Errorf("load instance %s: %w", csvPath, err)
		}
		in.Nodes = append(in.Nodes, rows...)
	}
	return in, nil
}

// ParseInstance decodes an instance document. Vehicle fields left out keep
// the unrestricted defaults of model.NewVehicle.
func ParseInstance(data []byte) (*Instance, error) {
	in := &Instance{Vehicle: model.NewVehicle("vehicle", 0)}
	in.Vehicle.Capacity = nil
	if err := yaml.Unmarshal(data, in); err != nil {
		return nil, fmt.Errorf("parse instance: %w", err)
	}
	return in, nil
}

// Build turns the instance into model input. Node indices follow file order.
func (in *Instance) Build() ([]*model.Node, *model.Vehicle, model.Metric, error) {
	depots := map[string]int{}
	for i, ns := range in.Nodes {
		if ns.Type == "depot" {
			depots[ns.ID] = i
		}
	}

	nodes := make([]*model.Node, len(in.Nodes))
	seen := make(map[string]bool, len(in.Nodes))
	for i, ns := range in.Nodes {
		if ns.ID == "" || seen[ns.ID] {
			return nil, nil, nil, fmt.Errorf("build instance: %w: node %d needs a unique id", model.ErrIllegalInput, i)
		}
		seen[ns.ID] = true
		typ, err := siteType(ns.Type)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("build instance: node %q: %w", ns.ID, err)
		}
		nd := &model.Node{
			Index:       i,
			ExternID:    ns.ID,
			SiteType:    typ,
			X:           ns.X,
			Y:           ns.Y,
			Demand:      ns.Demand,
			TimeWindow:  ns.TimeWindow,
			ServiceTime: ns.ServiceTime,
			ShipmentIdx: model.NoShipment,
		}
		if ns.Shipment != nil {
			nd.ShipmentIdx = *ns.Shipment
		}
		for _, id := range ns.PresetDepots {
			d, ok := depots[id]
			if !ok {
				return nil, nil, nil, fmt.Errorf("build instance: %w: node %q presets unknown depot %q", model.ErrIllegalInput, ns.ID, id)
			}
			nd.PresetDepots = append(nd.PresetDepots, d)
		}
		nodes[i] = nd
	}

	metric, err := in.Metric.build(len(nodes))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build instance: %w", err)
	}
	v := in.Vehicle
	return nodes, &v, metric, nil
}

func (ms MetricSpec) build(n int) (model.Metric, error) {
	switch ms.Kind {
	case "", MetricEuclidean:
		return model.EuclideanMetric{Speed: ms.Speed}, nil
	case MetricHaversine:
		return model.HaversineMetric{SpeedKph: ms.SpeedKph}, nil
	case MetricMatrix:
		if len(ms.Distance) != n {
			return nil, fmt.Errorf("%w: distance matrix has %d rows for %d nodes", model.ErrIllegalInput, len(ms.Distance), n)
		}
		mm, err := model.NewMatrixMetric(ms.Distance, ms.Duration)
		if err != nil {
			return nil, err
		}
		return mm, nil
	}
	return nil, fmt.Errorf("%w: unknown metric kind %q", model.ErrIllegalInput, ms.Kind)
}

func siteType(s string) (model.SiteType, error) {
	switch s {
	case "depot":
		return model.Depot, nil
	case "", "customer":
		return model.Customer, nil
	case "replenish":
		return model.Replenish, nil
	}
	return 0, fmt.Errorf("%w: unknown node type %q", model.ErrIllegalInput, s)
}
