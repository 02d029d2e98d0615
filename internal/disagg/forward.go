package disagg

import (
	"gonum.org/v1/gonum/floats"

	"github.com/idlab-discover/nilmeval-cli/internal/sshmm"
)

// Forward is an online sum-product filter. Each step predicts the belief
// through the transition matrix, weighs it by the emission likelihood of
// the current reading and reports the most probable super-state.
type Forward struct {
	belief map[int]float64
	cache  states
}

func NewForward() *Forward { return &Forward{} }

func (f *Forward) Name() string { return "forward" }

func (f *Forward) Infer(m *sshmm.Model, r Reading) Result {
	if m == nil || m.SuperStates() == 0 {
		return Result{}
	}
	chained := m.HasTransitions()

	var pred weighted
	if chained {
		if len(f.belief) == 0 {
			f.belief = seed(m, f.cache.prior(m), float64(r.Previous))
		}
		pred = fromMap(predict(m, f.belief, sum))
	} else {
		// Without transitions every step predicts the uniform distribution.
		pred = f.cache.uniformOf(m)
	}
	post := weigh(m, pred, float64(r.Current))
	t := post.total()
	if t == 0 {
		if chained {
			f.belief = pred.belief()
		}
		return unseen(pred)
	}
	floats.Scale(1/t, post.weights)
	if chained {
		f.belief = post.belief()
	}

	idx := post.bestIdx()
	return Result{
		Probability: post.weights[idx],
		SuperState:  post.states[idx],
		Snapshot:    post.snapshot(),
		Candidates:  post.states,
		Converged:   post.nonZero(),
		Total:       len(post.states),
	}
}

// seed conditions the prior p on the reading preceding the first step. When
// the reading is unexplained by every state the unconditioned prior is kept.
func seed(m *sshmm.Model, p weighted, y float64) map[int]float64 {
	post := weigh(m, p, y)
	if t := post.total(); t > 0 {
		floats.Scale(1/t, post.weights)
		return post.belief()
	}
	return p.belief()
}
