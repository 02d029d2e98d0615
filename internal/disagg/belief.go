package disagg

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/idlab-discover/nilmeval-cli/internal/sshmm"
)

// pruneBelow drops normalised belief mass too small to matter, keeping
// beliefs sparse between steps.
const pruneBelow = 1e-12

// states caches the normalised uniform distribution over every super-state
// of the last model it served. Transition-free models predict it every step.
type states struct {
	model   *sshmm.Model
	uniform weighted
}

// uniformOf returns the cached uniform distribution of m. Its slices are
// shared and must not be modified.
func (c *states) uniformOf(m *sshmm.Model) weighted {
	if c.model != m {
		km := m.SuperStates()
		w := weighted{states: make([]int, km), weights: make([]float64, km)}
		p := 1 / float64(km)
		for k := range km {
			w.states[k] = k
			w.weights[k] = p
		}
		c.model, c.uniform = m, w
	}
	return c.uniform
}

// prior returns P0 when the model carries one, otherwise the uniform
// distribution over every super-state.
func (c *states) prior(m *sshmm.Model) weighted {
	if p0, ok := m.Initial(); ok {
		return fromMap(p0)
	}
	return c.uniformOf(m)
}

// predict pushes a belief through the sparse transition matrix. combine
// merges the contributions reaching the same state (sum for filtering,
// max for Viterbi). A state without outgoing transitions keeps its mass.
// Callers handle transition-free models with the uniform distribution.
func predict(m *sshmm.Model, belief map[int]float64, combine func(a, b float64) float64) map[int]float64 {
	out := make(map[int]float64, len(belief))
	for _, from := range sortedStates(belief) {
		b := belief[from]
		edges := m.Outgoing(from)
		if len(edges) == 0 {
			out[from] = combine(out[from], b)
			continue
		}
		for _, t := range edges {
			out[t.To] = combine(out[t.To], b*t.P)
		}
	}
	return out
}

func sum(a, b float64) float64 { return a + b }

// emission is the likelihood of observing y while in super-state k.
func emission(m *sshmm.Model, k int, y float64) float64 {
	est, err := m.EstimateState(k)
	if err != nil {
		return 0
	}
	return distuv.Normal{Mu: est, Sigma: m.Sigma()}.Prob(y)
}

// weighted holds a candidate set with aligned weights.
type weighted struct {
	states  []int
	weights []float64
}

// weigh multiplies every predicted weight by the emission likelihood of y.
// The result is not normalised.
func weigh(m *sshmm.Model, pred weighted, y float64) weighted {
	w := make([]float64, len(pred.states))
	for i, k := range pred.states {
		w[i] = pred.weights[i] * emission(m, k, y)
	}
	return weighted{states: pred.states, weights: w}
}

// total returns the weight mass, or 0 when it underflowed or is not finite.
func (w weighted) total() float64 {
	if len(w.weights) == 0 {
		return 0
	}
	t := floats.Sum(w.weights)
	if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
		return 0
	}
	return t
}

// bestIdx is the position of the largest weight; ties go to the lowest
// super-state index because states are sorted.
func (w weighted) bestIdx() int {
	return floats.MaxIdx(w.weights)
}

func (w weighted) nonZero() int {
	n := 0
	for _, v := range w.weights {
		if v > 0 {
			n++
		}
	}
	return n
}

func (w weighted) snapshot() *mat.VecDense {
	if len(w.weights) == 0 {
		return nil
	}
	return mat.NewVecDense(len(w.weights), append([]float64(nil), w.weights...))
}

// belief converts the weights back to a sparse map, pruning negligible mass.
func (w weighted) belief() map[int]float64 {
	out := make(map[int]float64, len(w.states))
	for i, k := range w.states {
		if w.weights[i] > pruneBelow {
			out[k] = w.weights[i]
		}
	}
	return out
}

func toWeighted(m map[int]float64) weighted {
	states := sortedStates(m)
	w := make([]float64, len(states))
	for i, k := range states {
		w[i] = m[k]
	}
	return weighted{states: states, weights: w}
}

// fromMap builds weights from a sparse map normalised to sum 1.
func fromMap(m map[int]float64) weighted {
	out := toWeighted(m)
	if t := out.total(); t > 0 {
		floats.Scale(1/t, out.weights)
	}
	return out
}

// unseen is the result for a step whose posterior mass vanished: the best
// predicted state with probability 0.
func unseen(pred weighted) Result {
	res := Result{Total: len(pred.states)}
	if len(pred.states) > 0 {
		res.SuperState = pred.states[pred.bestIdx()]
		res.Candidates = pred.states
		res.Snapshot = pred.snapshot()
	}
	return res
}
