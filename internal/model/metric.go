package model

import (
	"fmt"
	"math"
)

// Metric yields distance and travel time between two nodes.
type Metric interface {
	Distance(a, b *Node) float64
	Time(a, b *Node) float64
}

// EuclideanMetric uses planar coordinates. Time is distance divided by Speed.
type EuclideanMetric struct {
	Speed float64
}

func (m EuclideanMetric) Distance(a, b *Node) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func (m EuclideanMetric) Time(a, b *Node) float64 {
	return m.Distance(a, b) / speedOrOne(m.Speed)
}

// HaversineMetric treats X as longitude and Y as latitude, in meters and seconds.
type HaversineMetric struct {
	SpeedKph float64
}

func (m HaversineMetric) Distance(a, b *Node) float64 {
	return haversineMeters(a.Y, a.X, b.Y, b.X)
}

func (m HaversineMetric) Time(a, b *Node) float64 {
	kph := m.SpeedKph
	if kph <= 0 {
		kph = 50
	}
	return m.Distance(a, b) / (kph / 3.6)
}

// MatrixMetric looks up explicit tables by global node index.
type MatrixMetric struct {
	Dist [][]float64
	Dur  [][]float64
}

// NewMatrixMetric checks that the tables are square and of equal size.
func NewMatrixMetric(dist, dur [][]float64) (*MatrixMetric, error) {
	if dur == nil {
		dur = dist
	}
	if len(dist) != len(dur) {
		return nil, fmt.Errorf("matrix metric: %w: distance rows %d, time rows %d", ErrIllegalInput, len(dist), len(dur))
	}
	for i := range dist {
		if len(dist[i]) != len(dist) || len(dur[i]) != len(dist) {
			return nil, fmt.Errorf("matrix metric: %w: row %d is not square", ErrIllegalInput, i)
		}
	}
	return &MatrixMetric{Dist: dist, Dur: dur}, nil
}

func (m *MatrixMetric) Distance(a, b *Node) float64 { return m.Dist[a.Index][b.Index] }

func (m *MatrixMetric) Time(a, b *Node) float64 { return m.Dur[a.Index][b.Index] }

func speedOrOne(s float64) float64 {
	if s <= 0 {
		return 1
	}
	return s
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
