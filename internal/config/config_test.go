package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"routeopt/internal/model"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, model.DefaultParameters(), cfg.Params)
	require.Equal(t, "info", cfg.LogLevel)
	require.Empty(t, cfg.Stages)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeFile(t, "run.yaml", `
params:
  ilsLoops: 7
  routeSplitting: true
  penalties:
    capacity: 5
stages: [savings, relocate, ils]
status:
  rate: 2.5
metrics:
  addr: ":9100"
logLevel: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Params.ILSLoops)
	require.True(t, cfg.Params.RouteSplitting)
	require.Equal(t, 5.0, cfg.Params.Penalties.Capacity)
	// untouched fields keep their defaults
	require.Equal(t, model.DefaultParameters().Penalties.Precedence, cfg.Params.Penalties.Precedence)
	require.Equal(t, model.DefaultParameters().PerturbAttempts, cfg.Params.PerturbAttempts)
	require.Equal(t, []string{"savings", "relocate", "ils"}, cfg.Stages)
	require.Equal(t, 2.5, cfg.Status.Rate)
	require.Equal(t, 1, cfg.Status.Burst)
	require.Equal(t, ":9100", cfg.Metrics.Addr)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ROUTEOPT_SEED", "42")
	t.Setenv("ROUTEOPT_ILS_LOOPS", "9")
	t.Setenv("ROUTEOPT_SPLIT", "true")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("METRICS_ADDR", ":9200")
	t.Setenv("WEBHOOK_SECRET", "k")

	cfg, err := Load(writeFile(t, "run.yaml", "params:\n  ilsLoops: 3\n"))
	require.NoError(t, err)
	require.Equal(t, int64(42), cfg.Params.Seed)
	require.Equal(t, 9, cfg.Params.ILSLoops)
	require.True(t, cfg.Params.RouteSplitting)
	require.Equal(t, "redis://localhost:6379/0", cfg.Status.RedisURL)
	require.Equal(t, ":9200", cfg.Metrics.Addr)
	require.Equal(t, "k", cfg.Status.WebhookSecret)
}

func TestLoadRejectsBadInput(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "params: [1, 2"))
	require.Error(t, err)

	t.Setenv("ROUTEOPT_ILS_LOOPS", "-1")
	_, err = Load("")
	require.ErrorContains(t, err, "ROUTEOPT_ILS_LOOPS")
}

const instanceDoc = `
metric:
  kind: euclidean
  speed: 2
vehicle:
  name: van
  capacity: [10, {pickupOnly: 4, deliveryOnly: 5, combined: 6}]
  fixCost: 3
nodes:
  - {id: hub, type: depot}
  - {id: north, type: depot, y: 10}
  - {id: a, x: 1, demand: [2, 1]}
  - {id: p, x: 2, demand: [-1], shipment: 0}
  - {id: q, x: 3, demand: [1], shipment: 0, presetDepots: [north]}
  - {id: r, type: replenish, x: 4, timeWindow: {open: 1, close: 9}, serviceTime: 2}
`

func TestParseInstanceBuildsModelInput(t *testing.T) {
	in, err := ParseInstance([]byte(instanceDoc))
	require.NoError(t, err)

	nodes, v, metric, err := in.Build()
	require.NoError(t, err)
	require.Len(t, nodes, 6)

	require.Equal(t, "van", v.Name)
	require.Equal(t, []model.Capacity{model.SimpleCapacity(10), {PickupOnly: 4, DeliveryOnly: 5, Combined: 6}}, v.Capacity)
	require.Equal(t, 3.0, v.FixCost)
	require.Equal(t, 1.0, v.VarCost)
	require.Positive(t, v.MaxStops)
	require.Positive(t, v.MaxRouteDuration)
	require.NoError(t, model.ValidateVehicle(v))

	require.Equal(t, model.EuclideanMetric{Speed: 2}, metric)

	require.Equal(t, model.Depot, nodes[1].SiteType)
	require.Equal(t, model.NoShipment, nodes[2].ShipmentIdx)
	require.Equal(t, 0, nodes[3].ShipmentIdx)
	require.Equal(t, []int{1}, nodes[4].PresetDepots)
	require.Equal(t, model.Replenish, nodes[5].SiteType)
	require.Equal(t, model.TimeWindow{Open: 1, Close: 9}, nodes[5].TimeWindow)
	for i, nd := range nodes {
		require.Equal(t, i, nd.Index)
	}

	_, err = model.NewModel(nodes, v, metric, model.Parameters{WithPDP: true})
	require.NoError(t, err)
}

func TestInstanceMetricKinds(t *testing.T) {
	in, err := ParseInstance([]byte(`
metric: {kind: matrix, distance: [[0, 4], [5, 0]]}
nodes: [{id: d, type: depot}, {id: a}]
`))
	require.NoError(t, err)
	nodes, _, metric, err := in.Build()
	require.NoError(t, err)
	require.Equal(t, 4.0, metric.Distance(nodes[0], nodes[1]))
	require.Equal(t, 5.0, metric.Time(nodes[1], nodes[0]))

	in.Metric = MetricSpec{Kind: MetricHaversine, SpeedKph: 80}
	_, _, metric, err = in.Build()
	require.NoError(t, err)
	require.Equal(t, model.HaversineMetric{SpeedKph: 80}, metric)
}

func TestInstanceRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown type":   "nodes: [{id: d, type: warehouse}]",
		"duplicate id":   "nodes: [{id: d, type: depot}, {id: d}]",
		"missing id":     "nodes: [{type: depot}]",
		"unknown preset": "nodes: [{id: d, type: depot}, {id: a, presetDepots: [x]}]",
		"unknown metric": "metric: {kind: manhattan}\nnodes: [{id: d, type: depot}]",
		"short matrix":   "metric: {kind: matrix, distance: [[0]]}\nnodes: [{id: d, type: depot}, {id: a}]",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			in, err := ParseInstance([]byte(doc))
			require.NoError(t, err)
			_, _, _, err = in.Build()
			require.True(t, errors.Is(err, model.ErrIllegalInput), "got %v", err)
		})
	}

	_, err := LoadInstance(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
}

func TestLoadInstanceFromFile(t *testing.T) {
	in, err := LoadInstance(writeFile(t, "inst.yaml", instanceDoc))
	require.NoError(t, err)
	require.Len(t, in.Nodes, 6)
}

func TestParseNodesCSV(t *testing.T) {
	rows, err := ParseNodesCSV(strings.NewReader(`id,type,x,y,demand,open,close,service,shipment,presetDepots
hub,depot,0,0,,,,,,
a,customer,1,2,3;1,0,50,5,,hub
p,,2,0,-1,,,,0,
q,,3,0,1,,,,0,
`))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, "depot", rows[0].Type)
	require.Equal(t, []float64{3, 1}, rows[1].Demand)
	require.Equal(t, model.TimeWindow{Open: 0, Close: 50}, rows[1].TimeWindow)
	require.Equal(t, 5.0, rows[1].ServiceTime)
	require.Equal(t, []string{"hub"}, rows[1].PresetDepots)
	require.Nil(t, rows[1].Shipment)
	require.Equal(t, 0, *rows[2].Shipment)
	require.Equal(t, "", rows[2].Type)
}

func TestParseNodesCSVRejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"no id column":   "x,y\n1,2\n",
		"unknown column": "id,colour\na,red\n",
		"bad number":     "id,x\na,east\n",
		"bad demand":     "id,demand\na,1;x\n",
		"bad shipment":   "id,shipment\na,-2\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseNodesCSV(strings.NewReader(doc))
			require.True(t, errors.Is(err, model.ErrIllegalInput), "got %v", err)
		})
	}
	_, err := ParseNodesCSV(strings.NewReader(""))
	require.Error(t, err)
}

func TestLoadInstanceAppendsCSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.csv"), []byte("id,x,demand\nc1,1,1\nc2,2,1\n"), 0o600))
	path := filepath.Join(dir, "inst.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodesCSV: orders.csv\nnodes: [{id: hub, type: depot}]\n"), 0o600))

	in, err := LoadInstance(path)
	require.NoError(t, err)
	nodes, _, _, err := in.Build()
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	require.Equal(t, "c2", nodes[2].ExternID)
	require.Equal(t, model.Customer, nodes[2].SiteType)
}
