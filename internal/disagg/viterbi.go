package disagg

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/idlab-discover/nilmeval-cli/internal/sshmm"
)

// Viterbi tracks the max-product path score of every super-state online.
// Scores are rescaled so the best state is 1 after every step; the reported
// probability is the best score's share of the total.
type Viterbi struct {
	delta map[int]float64
	cache states
}

func NewViterbi() *Viterbi { return &Viterbi{} }

func (v *Viterbi) Name() string { return "viterbi" }

func (v *Viterbi) Infer(m *sshmm.Model, r Reading) Result {
	if m == nil || m.SuperStates() == 0 {
		return Result{}
	}
	if !m.HasTransitions() {
		pred := v.cache.uniformOf(m)
		post := weigh(m, pred, float64(r.Current))
		if post.total() == 0 {
			return unseen(pred)
		}
		return v.score(post, false)
	}

	if len(v.delta) == 0 {
		v.delta = seed(m, v.cache.prior(m), float64(r.Previous))
	}
	pred := toWeighted(predict(m, v.delta, math.Max))
	post := weigh(m, pred, float64(r.Current))
	if post.total() == 0 {
		norm := fromMap(predict(m, v.delta, math.Max))
		v.delta = norm.belief()
		return unseen(norm)
	}
	return v.score(post, true)
}

// score reports the best state of a non-empty posterior. When keep is set
// the posterior, rescaled so the best state is 1, becomes the next path
// scores.
func (v *Viterbi) score(post weighted, keep bool) Result {
	t := post.total()
	idx := post.bestIdx()
	best := post.weights[idx]
	prob := best / t
	floats.Scale(1/best, post.weights)
	if keep {
		v.delta = post.belief()
	}

	return Result{
		Probability: prob,
		SuperState:  post.states[idx],
		Snapshot:    post.snapshot(),
		Candidates:  post.states,
		Converged:   post.nonZero(),
		Total:       len(post.states),
	}
}
