package disagg

import (
	"math"

	"github.com/idlab-discover/nilmeval-cli/internal/sshmm"
)

// Nearest ignores history and picks the super-state whose aggregate
// estimate is closest to the current reading.
type Nearest struct{}

func NewNearest() *Nearest { return &Nearest{} }

func (n *Nearest) Name() string { return "nearest" }

func (n *Nearest) Infer(m *sshmm.Model, r Reading) Result {
	if m == nil || m.SuperStates() == 0 {
		return Result{}
	}
	y := float64(r.Current)
	km := m.SuperStates()

	best, bestDist := 0, math.Inf(1)
	var mass float64
	within := 0
	for k := range km {
		est, err := m.EstimateState(k)
		if err != nil {
			continue
		}
		d := math.Abs(y - est)
		if d < bestDist {
			best, bestDist = k, d
		}
		if d <= m.Sigma() {
			within++
		}
		mass += emission(m, k, y)
	}

	res := Result{
		SuperState: best,
		Candidates: []int{best},
		Converged:  within,
		Total:      km,
	}
	if mass > 0 && !math.IsInf(mass, 0) && !math.IsNaN(mass) {
		res.Probability = math.Min(1, emission(m, best, y)/mass)
	}
	return res
}
