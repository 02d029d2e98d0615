package disagg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
	"github.com/idlab-discover/nilmeval-cli/internal/sshmm"
)

// Super-state estimates: 0=100, 1=120, 2=130, 3=150; default sigma is 10.
func twoByTwo(t *testing.T, mutate func(*sshmm.Record)) *sshmm.Model {
	t.Helper()
	rec := sshmm.Record{
		Labels: []string{"fridge", "heater"},
		Bins: []sshmm.LabelBins{
			{Label: "fridge", Edges: []float64{65}, Peaks: []float64{50, 80}},
			{Label: "heater", Edges: []float64{60}, Peaks: []float64{50, 70}},
		},
	}
	if mutate != nil {
		mutate(&rec)
	}
	m, err := sshmm.FromRecord(rec)
	require.NoError(t, err)
	return m
}

func TestRegistry_Names(t *testing.T) {
	names := Names()
	assert.Subset(t, names, []string{"forward", "nearest", "viterbi"})
	assert.IsNonDecreasing(t, names)
	assert.NotEmpty(t, Describe("forward"))
}

func TestRegistry_NewIsCaseInsensitive(t *testing.T) {
	a, err := New(" Forward ")
	require.NoError(t, err)
	assert.Equal(t, "forward", a.Name())

	b, err := New("forward")
	require.NoError(t, err)
	assert.NotSame(t, a, b, "every call yields a fresh instance")
}

func TestRegistry_Unknown(t *testing.T) {
	_, err := New("does-not-exist")
	require.Error(t, err)
	assert.True(t, apperr.IsConfig(err))
}

func TestRegister(t *testing.T) {
	require.NoError(t, Register("test-nearest-alias", "alias", func() Algorithm { return NewNearest() }))
	err := Register("TEST-nearest-alias", "again", func() Algorithm { return NewNearest() })
	assert.True(t, apperr.IsConfig(err))
	assert.True(t, apperr.IsConfig(Register("", "x", nil)))

	a, err := New("test-nearest-alias")
	require.NoError(t, err)
	assert.Equal(t, "nearest", a.Name())
}

func TestReading_Delta(t *testing.T) {
	assert.Equal(t, 50, Reading{Previous: 100, Current: 150}.Delta())
	assert.Equal(t, 0, Reading{Previous: 7, Current: 7}.Delta())
}

func TestNearest(t *testing.T) {
	m := twoByTwo(t, nil)
	n := NewNearest()

	res := n.Infer(m, Reading{Previous: 150, Current: 150})
	assert.Equal(t, 3, res.SuperState)
	assert.Greater(t, res.Probability, 0.8)
	assert.LessOrEqual(t, res.Probability, 1.0)
	assert.Equal(t, 4, res.Total)
	assert.LessOrEqual(t, res.Converged, res.Total)

	res = n.Infer(m, Reading{Previous: 150, Current: 118})
	assert.Equal(t, 1, res.SuperState)
}

func TestForward_NoTransitions(t *testing.T) {
	m := twoByTwo(t, nil)
	f := NewForward()

	res := f.Infer(m, Reading{Previous: 100, Current: 100})
	assert.Equal(t, 0, res.SuperState)

	res = f.Infer(m, Reading{Previous: 100, Current: 150})
	assert.Equal(t, 3, res.SuperState)
	assert.InDelta(t, 0.87, res.Probability, 0.02)
	require.NotNil(t, res.Snapshot)
	assert.Equal(t, len(res.Candidates), res.Snapshot.Len())
	assert.LessOrEqual(t, res.Converged, res.Total)
}

func TestNoTransitions_UniformBuiltOnce(t *testing.T) {
	m := twoByTwo(t, nil)
	f := NewForward()
	v := NewViterbi()

	for _, y := range []int{100, 150, 5000, 120} {
		f.Infer(m, Reading{Previous: 100, Current: y})
		v.Infer(m, Reading{Previous: 100, Current: y})
	}
	assert.Nil(t, f.belief)
	assert.Nil(t, v.delta)

	for _, c := range []*states{&f.cache, &v.cache} {
		require.Same(t, m, c.model)
		assert.Equal(t, []int{0, 1, 2, 3}, c.uniform.states)
		assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, c.uniform.weights)
	}
	first := &f.cache.uniform.weights[0]
	f.Infer(m, Reading{Previous: 100, Current: 130})
	assert.Same(t, first, &f.cache.uniform.weights[0])

	other := twoByTwo(t, func(r *sshmm.Record) {
		r.Bins[1] = sshmm.LabelBins{Label: "heater", Edges: []float64{60, 80}, Peaks: []float64{50, 70, 90}}
	})
	res := f.Infer(other, Reading{Previous: 100, Current: 100})
	assert.Equal(t, 6, res.Total)
	assert.Len(t, f.cache.uniform.weights, 6)
}

func TestForward_TransitionsConstrainPath(t *testing.T) {
	m := twoByTwo(t, func(r *sshmm.Record) {
		r.Initial = sshmm.Distribution{0: 1}
		r.Transitions = []sshmm.Transition{{From: 0, To: 0, P: 1}}
	})
	f := NewForward()

	// Only state 0 is reachable, however far the reading drifts.
	res := f.Infer(m, Reading{Previous: 100, Current: 140})
	assert.Equal(t, 0, res.SuperState)
	assert.InDelta(t, 1.0, res.Probability, 1e-9)
	assert.Equal(t, 1, res.Total)
}

func TestForward_UnseenRecovers(t *testing.T) {
	m := twoByTwo(t, nil)
	f := NewForward()

	res := f.Infer(m, Reading{Previous: 100, Current: 1_000_000})
	assert.True(t, res.Unseen())
	assert.Zero(t, res.Probability)
	assert.GreaterOrEqual(t, res.SuperState, 0)
	assert.Less(t, res.SuperState, m.SuperStates())

	res = f.Infer(m, Reading{Previous: 1_000_000, Current: 150})
	assert.False(t, res.Unseen())
	assert.Equal(t, 3, res.SuperState)
}

func TestViterbi(t *testing.T) {
	m := twoByTwo(t, func(r *sshmm.Record) {
		for from := range 4 {
			for to := range 4 {
				p := 0.1
				if from == to {
					p = 0.7
				}
				r.Transitions = append(r.Transitions, sshmm.Transition{From: from, To: to, P: p})
			}
		}
	})
	v := NewViterbi()
	assert.Equal(t, "viterbi", v.Name())

	readings := []int{100, 100, 150, 150, 120}
	want := []int{0, 0, 3, 3, 1}
	prev := readings[0]
	for i, y := range readings {
		res := v.Infer(m, Reading{Previous: prev, Current: y})
		assert.Equal(t, want[i], res.SuperState, "step %d", i)
		assert.Greater(t, res.Probability, 0.0)
		assert.LessOrEqual(t, res.Probability, 1.0)
		assert.LessOrEqual(t, res.Converged, res.Total)
		prev = y
	}
}

func TestViterbi_Unseen(t *testing.T) {
	m := twoByTwo(t, nil)
	v := NewViterbi()
	res := v.Infer(m, Reading{Previous: 100, Current: -1_000_000})
	assert.True(t, res.Unseen())
	res = v.Infer(m, Reading{Previous: -1_000_000, Current: 100})
	assert.Equal(t, 0, res.SuperState)
}

func TestInfer_NilModel(t *testing.T) {
	for _, name := range []string{"forward", "viterbi", "nearest"} {
		a, err := New(name)
		require.NoError(t, err)
		res := a.Infer(nil, Reading{})
		assert.True(t, res.Unseen(), name)
	}
}
