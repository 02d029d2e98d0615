package sshmm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	yaml "go.yaml.in/yaml/v3"
)

// Record is the persisted form of one fold of a trained super-state HMM.
// Fields that only a disaggregation algorithm consumes (P0, Pt, sigma, meta)
// are carried through untouched so a model can be written back losslessly.
type Record struct {
	Labels    []string    `json:"labels" yaml:"labels"`
	Precision float64     `json:"precision,omitempty" yaml:"precision,omitempty"`
	Bins      []LabelBins `json:"bins" yaml:"bins"`

	Initial     Distribution `json:"P0,omitempty" yaml:"P0,omitempty"`
	Transitions []Transition `json:"Pt,omitempty" yaml:"Pt,omitempty"`
	Sigma       float64      `json:"sigma,omitempty" yaml:"sigma,omitempty"`

	Meta map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// LabelBins holds the discretisation of one appliance: Peaks[i] is the
// representative power of bin i and Edges[i] the lower bound of bin i+1.
type LabelBins struct {
	Label string    `json:"label" yaml:"label"`
	Edges []float64 `json:"edges" yaml:"edges"`
	Peaks []float64 `json:"peaks" yaml:"peaks"`
}

// Transition is one non-zero entry of the sparse super-state transition matrix.
type Transition struct {
	From int     `json:"from" yaml:"from"`
	To   int     `json:"to" yaml:"to"`
	P    float64 `json:"p" yaml:"p"`
}

// Distribution is a sparse probability vector over super-states. It decodes
// from either a dense array or an object keyed by super-state index.
type Distribution map[int]float64

func (d *Distribution) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = nil
		return nil
	}
	if b[0] == '[' {
		var dense []float64
		if err := json.Unmarshal(b, &dense); err != nil {
			return fmt.Errorf("decode P0 array: %w", err)
		}
		*d = fromDense(dense)
		return nil
	}
	var sparse map[int]float64
	if err := json.Unmarshal(b, &sparse); err != nil {
		return fmt.Errorf("decode P0 object: %w", err)
	}
	*d = sparse
	return nil
}

func (d *Distribution) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var dense []float64
		if err := node.Decode(&dense); err != nil {
			return fmt.Errorf("decode P0 sequence: %w", err)
		}
		*d = fromDense(dense)
		return nil
	}
	var sparse map[int]float64
	if err := node.Decode(&sparse); err != nil {
		return fmt.Errorf("decode P0 mapping: %w", err)
	}
	*d = sparse
	return nil
}

func fromDense(dense []float64) Distribution {
	out := make(Distribution)
	for k, p := range dense {
		if p != 0 {
			out[k] = p
		}
	}
	return out
}

// Clone returns a deep copy of r sharing no slices or maps with it.
func (r Record) Clone() Record {
	out := r
	out.Labels = slices.Clone(r.Labels)
	if r.Bins != nil {
		out.Bins = make([]LabelBins, len(r.Bins))
		for i, b := range r.Bins {
			out.Bins[i] = LabelBins{Label: b.Label, Edges: slices.Clone(b.Edges), Peaks: slices.Clone(b.Peaks)}
		}
	}
	out.Initial = maps.Clone(r.Initial)
	out.Transitions = slices.Clone(r.Transitions)
	if r.Meta != nil {
		out.Meta = cloneValue(r.Meta).(map[string]any)
	}
	return out
}

// cloneValue copies the nested maps and slices JSON and YAML decode into.
func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
