package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"routeopt/internal/model"
)

// csvColumns are the recognized header names of a node CSV. Only id is
// required; list cells (demand, presetDepots) separate values with ';'.
var csvColumns = []string{"id", "type", "x", "y", "demand", "open", "close", "service", "shipment", "presetDepots"}

// ParseNodesCSV reads node rows with a header line, as exported by order
// management systems.
func ParseNodesCSV(r io.Reader) ([]NodeSpec, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("parse nodes csv: header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	if _, ok := col["id"]; !ok {
		return nil, fmt.Errorf("parse nodes csv: %w: no id column", model.ErrIllegalInput)
	}
	for name := range col {
		if !known(name) {
			return nil, fmt.Errorf("parse nodes csv: %w: unknown column %q", model.ErrIllegalInput, name)
		}
	}

	var out []NodeSpec
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse nodes csv: %w", err)
		}
		ns, err := nodeRow(rec, col)
		if err != nil {
			return nil, fmt.Errorf("parse nodes csv: line %d: %w", line, err)
		}
		out = append(out, ns)
	}
}

func nodeRow(rec []string, col map[string]int) (NodeSpec, error) {
	cell := func(name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	num := func(name string) (float64, error) {
		v := cell(name)
		if v == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: column %s: %q is not a number", model.ErrIllegalInput, name, v)
		}
		return f, nil
	}

	ns := NodeSpec{ID: cell("id"), Type: cell("type")}
	var err error
	if ns.X, err = num("x"); err != nil {
		return ns, err
	}
	if ns.Y, err = num("y"); err != nil {
		return ns, err
	}
	if ns.TimeWindow.Open, err = num("open"); err != nil {
		return ns, err
	}
	if ns.TimeWindow.Close, err = num("close"); err != nil {
		return ns, err
	}
	if ns.ServiceTime, err = num("service"); err != nil {
		return ns, err
	}
	if v := cell("demand"); v != "" {
		for _, part := range strings.Split(v, ";") {
			d, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return ns, fmt.Errorf("%w: demand %q is not a number", model.ErrIllegalInput, part)
			}
			ns.Demand = append(ns.Demand, d)
		}
	}
	if v := cell("shipment"); v != "" {
		s, err := strconv.Atoi(v)
		if err != nil || s < 0 {
			return ns, fmt.Errorf("%w: shipment %q is not a valid index", model.ErrIllegalInput, v)
		}
		ns.Shipment = &s
	}
	if v := cell("presetDepots"); v != "" {
		for _, id := range strings.Split(v, ";") {
			ns.PresetDepots = append(ns.PresetDepots, strings.TrimSpace(id))
		}
	}
	return ns, nil
}

func known(name string) bool {
	for _, c := range csvColumns {
		if c == name {
			return true
		}
	}
	return false
}
