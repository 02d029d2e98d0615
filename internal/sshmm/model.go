// Package sshmm holds the super-state hidden Markov model used for
// disaggregation: per-appliance bins, the mixed-radix mapping between a
// super-state index and its per-appliance bin vector, and the trained
// parameters a disaggregation algorithm consumes.
//
// A Model is immutable once built and safe to share between goroutines.
package sshmm

import (
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
)

// MaxSuperStates bounds Km so every super-state index fits an int32.
const MaxSuperStates = math.MaxInt32

// estimateCacheLimit is the largest Km for which per-state aggregate
// estimates are precomputed at load time.
const estimateCacheLimit = 1 << 20

type Model struct {
	labels  []string
	index   map[string]int
	bins    []int
	strides []int
	km      int

	edges [][]float64
	peaks [][]float64

	estimates []float64

	initial     map[int]float64
	transitions map[int][]Transition
	sigma       float64
	precision   float64

	record Record
}

// FromRecord validates one persisted fold and builds its Model.
// Every validation failure is a ConfigError: the model file is input.
func FromRecord(rec Record) (*Model, error) {
	if len(rec.Labels) == 0 {
		return nil, apperr.Config("model has no labels")
	}
	if len(rec.Bins) != len(rec.Labels) {
		return nil, apperr.Configf("model has %d labels but %d bin definitions", len(rec.Labels), len(rec.Bins))
	}

	m := &Model{
		labels:    slices.Clone(rec.Labels),
		index:     make(map[string]int, len(rec.Labels)),
		bins:      make([]int, len(rec.Labels)),
		strides:   make([]int, len(rec.Labels)),
		edges:     make([][]float64, len(rec.Labels)),
		peaks:     make([][]float64, len(rec.Labels)),
		precision: rec.Precision,
		record:    rec.Clone(),
	}

	for i, label := range rec.Labels {
		label = strings.TrimSpace(label)
		if label == "" {
			return nil, apperr.Configf("label %d is empty", i)
		}
		if _, dup := m.index[label]; dup {
			return nil, apperr.Configf("duplicate label %q", label)
		}
		m.labels[i] = label
		m.index[label] = i

		b := rec.Bins[i]
		if b.Label != "" && strings.TrimSpace(b.Label) != label {
			return nil, apperr.Configf("bin definition %d is for %q, expected %q", i, b.Label, label)
		}
		if len(b.Peaks) == 0 {
			return nil, apperr.Configf("label %q has no bins", label)
		}
		if len(b.Edges) != len(b.Peaks)-1 {
			return nil, apperr.Configf("label %q has %d bins but %d edges (want %d)", label, len(b.Peaks), len(b.Edges), len(b.Peaks)-1)
		}
		for j := 1; j < len(b.Edges); j++ {
			if !(b.Edges[j] > b.Edges[j-1]) {
				return nil, apperr.Configf("label %q edges are not strictly increasing at %d", label, j)
			}
		}
		m.bins[i] = len(b.Peaks)
		m.edges[i] = slices.Clone(b.Edges)
		m.peaks[i] = slices.Clone(b.Peaks)
	}

	km := 1
	for i := len(m.bins) - 1; i >= 0; i-- {
		m.strides[i] = km
		if km > MaxSuperStates/m.bins[i] {
			return nil, apperr.Configf("super-state space overflows %d states", MaxSuperStates)
		}
		km *= m.bins[i]
	}
	m.km = km

	if len(rec.Initial) > 0 {
		m.initial = make(map[int]float64, len(rec.Initial))
		for k, p := range rec.Initial {
			if k < 0 || k >= km {
				return nil, apperr.Configf("P0 references super-state %d outside [0,%d)", k, km)
			}
			if p < 0 || math.IsNaN(p) {
				return nil, apperr.Configf("P0[%d] = %v is not a probability", k, p)
			}
			if p > 0 {
				m.initial[k] = p
			}
		}
	}

	if len(rec.Transitions) > 0 {
		m.transitions = make(map[int][]Transition)
		for _, t := range rec.Transitions {
			if t.From < 0 || t.From >= km || t.To < 0 || t.To >= km {
				return nil, apperr.Configf("transition %d->%d outside [0,%d)", t.From, t.To, km)
			}
			if t.P < 0 || t.P > 1 || math.IsNaN(t.P) {
				return nil, apperr.Configf("transition %d->%d has probability %v", t.From, t.To, t.P)
			}
			if t.P > 0 {
				m.transitions[t.From] = append(m.transitions[t.From], t)
			}
		}
	}

	m.sigma = rec.Sigma
	if m.sigma <= 0 {
		m.sigma = defaultSigma(m.peaks)
	}

	if km <= estimateCacheLimit {
		m.estimates = make([]float64, km)
		for k := range km {
			m.estimates[k] = m.estimateUnchecked(k)
		}
	}

	return m, nil
}

// defaultSigma is half the smallest positive gap between adjacent bin peaks,
// never below one scaled unit.
func defaultSigma(peaks [][]float64) float64 {
	gap := math.Inf(1)
	for _, p := range peaks {
		sorted := slices.Clone(p)
		sort.Float64s(sorted)
		for i := 1; i < len(sorted); i++ {
			if d := sorted[i] - sorted[i-1]; d > 0 && d < gap {
				gap = d
			}
		}
	}
	if math.IsInf(gap, 1) {
		return 1
	}
	return math.Max(1, gap/2)
}

func (m *Model) Labels() []string { return slices.Clone(m.labels) }

func (m *Model) LabelCount() int { return len(m.labels) }

// LabelIndex returns the vector position of label.
func (m *Model) LabelIndex(label string) (int, bool) {
	i, ok := m.index[label]
	return i, ok
}

// BinCounts returns the number of bins per label in label order.
func (m *Model) BinCounts() []int { return slices.Clone(m.bins) }

// Bins returns the number of bins of label, or 0 if the label is unknown.
func (m *Model) Bins(label string) int {
	i, ok := m.index[label]
	if !ok {
		return 0
	}
	return m.bins[i]
}

// SuperStates returns Km, the number of combinatorial super-states.
func (m *Model) SuperStates() int { return m.km }

// Sigma is the emission noise (scaled units) algorithms assume around a
// super-state's aggregate estimate.
func (m *Model) Sigma() float64 { return m.sigma }

// Precision is the scaling factor the model was trained with (0 if unknown).
func (m *Model) Precision() float64 { return m.precision }

// Edges returns a copy of the bin edges of the label at index i.
func (m *Model) Edges(i int) []float64 { return slices.Clone(m.edges[i]) }

// Peaks returns a copy of the representative bin values of the label at index i.
func (m *Model) Peaks(i int) []float64 { return slices.Clone(m.peaks[i]) }

// Peak returns the representative power of bin b of the label at index i.
func (m *Model) Peak(i, b int) (float64, error) {
	if i < 0 || i >= len(m.labels) {
		return 0, apperr.Domainf("label index %d outside [0,%d)", i, len(m.labels))
	}
	if b < 0 || b >= m.bins[i] {
		return 0, apperr.Domainf("bin %d outside [0,%d) for %q", b, m.bins[i], m.labels[i])
	}
	return m.peaks[i][b], nil
}

// Initial returns the sparse initial distribution and whether the model
// carries one. The map must not be modified.
func (m *Model) Initial() (map[int]float64, bool) {
	return m.initial, len(m.initial) > 0
}

// Outgoing returns the sparse transitions leaving super-state k.
// The returned slice must not be modified.
func (m *Model) Outgoing(k int) []Transition { return m.transitions[k] }

// HasTransitions reports whether the model carries a transition matrix.
func (m *Model) HasTransitions() bool { return len(m.transitions) > 0 }

// Record returns a copy of the persisted form the model was built from.
func (m *Model) Record() Record { return m.record.Clone() }

// Decode ("detangle") maps a super-state index to its per-label bin vector.
func (m *Model) Decode(k int) ([]int, error) {
	if k < 0 || k >= m.km {
		return nil, apperr.Domainf("super-state %d outside [0,%d)", k, m.km)
	}
	out := make([]int, len(m.bins))
	for i := range m.bins {
		out[i] = (k / m.strides[i]) % m.bins[i]
	}
	return out, nil
}

// Encode ("entangle") maps a per-label bin vector back to its super-state index.
func (m *Model) Encode(bins []int) (int, error) {
	if err := m.checkBins(bins); err != nil {
		return 0, err
	}
	k := 0
	for i, b := range bins {
		k += b * m.strides[i]
	}
	return k, nil
}

// Breakdown maps each bin to its representative power, one value per label.
func (m *Model) Breakdown(bins []int) ([]float64, error) {
	if err := m.checkBins(bins); err != nil {
		return nil, err
	}
	out := make([]float64, len(bins))
	for i, b := range bins {
		out[i] = m.peaks[i][b]
	}
	return out, nil
}

// Estimate returns the aggregate power a bin vector represents; it always
// equals the sum of Breakdown for the same bins.
func (m *Model) Estimate(bins []int) (float64, error) {
	parts, err := m.Breakdown(bins)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, p := range parts {
		sum += p
	}
	return sum, nil
}

// EstimateState returns the aggregate estimate of super-state k.
func (m *Model) EstimateState(k int) (float64, error) {
	if k < 0 || k >= m.km {
		return 0, apperr.Domainf("super-state %d outside [0,%d)", k, m.km)
	}
	if m.estimates != nil {
		return m.estimates[k], nil
	}
	return m.estimateUnchecked(k), nil
}

func (m *Model) estimateUnchecked(k int) float64 {
	var sum float64
	for i := range m.bins {
		sum += m.peaks[i][(k/m.strides[i])%m.bins[i]]
	}
	return sum
}

// BinOf classifies a raw reading of the label at index i using the edges
// stored in the model.
func (m *Model) BinOf(i int, value float64) (int, error) {
	if i < 0 || i >= len(m.labels) {
		return 0, apperr.Domainf("label index %d outside [0,%d)", i, len(m.labels))
	}
	if math.IsNaN(value) {
		return 0, apperr.Domainf("reading for %q is NaN", m.labels[i])
	}
	edges := m.edges[i]
	return sort.Search(len(edges), func(j int) bool { return edges[j] > value }), nil
}

// ObsToBins classifies one ground-truth vector (label order) into bins.
func (m *Model) ObsToBins(truth []float64) ([]int, error) {
	if len(truth) != len(m.labels) {
		return nil, apperr.Domainf("ground truth has %d values, model has %d labels", len(truth), len(m.labels))
	}
	out := make([]int, len(truth))
	for i, v := range truth {
		b, err := m.BinOf(i, v)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func (m *Model) checkBins(bins []int) error {
	if len(bins) != len(m.bins) {
		return apperr.Domainf("bin vector has %d entries, model has %d labels", len(bins), len(m.bins))
	}
	for i, b := range bins {
		if b < 0 || b >= m.bins[i] {
			return apperr.Domainf("bin %d outside [0,%d) for %q", b, m.bins[i], m.labels[i])
		}
	}
	return nil
}
