// Package dataset loads labelled aggregate power readings: one aggregate
// observation per row plus one ground-truth column per appliance label.
//
// Values are scaled by the model precision and truncated to whole units
// on load, so a Table holds exactly the integers the model was trained on.
package dataset

import (
	"math"
	"slices"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
)

// Table is a column-oriented view over a loaded dataset. Rows are ordered
// by strictly increasing timestamp.
type Table struct {
	Labels          []string
	ObservationName string

	Timestamps  []int64
	Observation []int
	// Truth holds one row per timestamp, one value per label in Labels order.
	Truth [][]float64
}

// NewTable validates column lengths and wraps them in a Table.
func NewTable(labels []string, timestamps []int64, observation []int, truth [][]float64) (*Table, error) {
	if len(timestamps) != len(observation) || len(truth) != len(observation) {
		return nil, apperr.Configf("column lengths differ: %d timestamps, %d observations, %d truth rows",
			len(timestamps), len(observation), len(truth))
	}
	for i, row := range truth {
		if len(row) != len(labels) {
			return nil, apperr.Configf("truth row %d has %d values, want %d", i, len(row), len(labels))
		}
	}
	for i := 1; i < len(timestamps); i++ {
		if timestamps[i] <= timestamps[i-1] {
			return nil, apperr.Configf("timestamps not strictly increasing at row %d", i)
		}
	}
	return &Table{
		Labels:      slices.Clone(labels),
		Timestamps:  timestamps,
		Observation: observation,
		Truth:       truth,
	}, nil
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Observation)
}

// Slice returns rows [lo,hi) sharing the underlying storage.
func (t *Table) Slice(lo, hi int) *Table {
	return &Table{
		Labels:          t.Labels,
		ObservationName: t.ObservationName,
		Timestamps:      t.Timestamps[lo:hi:hi],
		Observation:     t.Observation[lo:hi:hi],
		Truth:           t.Truth[lo:hi:hi],
	}
}

// Exclude returns a copy of every row outside [lo,hi), in original order.
func (t *Table) Exclude(lo, hi int) *Table {
	n := t.Len() - (hi - lo)
	out := &Table{
		Labels:          t.Labels,
		ObservationName: t.ObservationName,
		Timestamps:      make([]int64, 0, n),
		Observation:     make([]int, 0, n),
		Truth:           make([][]float64, 0, n),
	}
	out.Timestamps = append(append(out.Timestamps, t.Timestamps[:lo]...), t.Timestamps[hi:]...)
	out.Observation = append(append(out.Observation, t.Observation[:lo]...), t.Observation[hi:]...)
	out.Truth = append(append(out.Truth, t.Truth[:lo]...), t.Truth[hi:]...)
	return out
}

// Denoise replaces every aggregate observation with the sum of its
// ground-truth row.
func (t *Table) Denoise() {
	for i, row := range t.Truth {
		var s float64
		for _, v := range row {
			s += v
		}
		t.Observation[i] = int(math.Round(s))
	}
}

// TruthSum returns the total ground-truth power of row i.
func (t *Table) TruthSum(i int) float64 {
	var s float64
	for _, v := range t.Truth[i] {
		s += v
	}
	return s
}
