package accuracy

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
)

func step(t *testing.T, a *Accumulator, fold int, pb, tb []int, py, ty []float64, states int) {
	t.Helper()
	require.NoError(t, a.ClassificationResult(fold, pb, tb, states))
	require.NoError(t, a.MeasurementResult(fold, py, ty))
}

func TestNewAccumulator_Validation(t *testing.T) {
	_, err := NewAccumulator(nil, 1)
	assert.True(t, apperr.IsConfig(err))
	_, err = NewAccumulator([]string{"a"}, 0)
	assert.True(t, apperr.IsConfig(err))
}

func TestEmpty(t *testing.T) {
	a, err := NewAccumulator([]string{"a", "b"}, 2)
	require.NoError(t, err)
	assert.Zero(t, a.FSFscore())
	assert.Zero(t, a.EstAcc())
	m, err := a.Metrics(1, Step)
	require.NoError(t, err)
	assert.Zero(t, m.Steps)
}

func TestPerfectPrediction(t *testing.T) {
	a, err := NewAccumulator([]string{"a", "b"}, 1)
	require.NoError(t, err)
	step(t, a, 0, []int{1, 0}, []int{1, 0}, []float64{50, 0}, []float64{50, 0}, 4)
	step(t, a, 0, []int{2, 1}, []int{2, 1}, []float64{80, 70}, []float64{80, 70}, 4)

	assert.InDelta(t, 1.0, a.FSFscore(), 1e-12)
	assert.InDelta(t, 1.0, a.EstAcc(), 1e-12)
}

func TestDisjointPrediction(t *testing.T) {
	a, err := NewAccumulator([]string{"a", "b"}, 1)
	require.NoError(t, err)
	for range 10 {
		step(t, a, 0, []int{1, 0}, []int{0, 1}, []float64{60, 0}, []float64{0, 60}, 4)
	}
	assert.Zero(t, a.FSFscore())
	assert.Zero(t, a.EstAcc())
}

func TestOnlyTrueNegatives(t *testing.T) {
	a, err := NewAccumulator([]string{"a"}, 1)
	require.NoError(t, err)
	step(t, a, 0, []int{0}, []int{0}, []float64{0}, []float64{0}, 2)
	assert.Equal(t, 1.0, a.FSFscore())
	assert.Equal(t, 1.0, a.EstAcc())
}

func TestPartialCredit(t *testing.T) {
	a, err := NewAccumulator([]string{"a"}, 1)
	require.NoError(t, err)
	// Both on, one bin apart out of 4 states: tp=1, inacc=0.25.
	step(t, a, 0, []int{1}, []int{2}, []float64{50}, []float64{80}, 4)

	assert.InDelta(t, 0.75, a.FSFscore(), 1e-12)
	// 1 - 30/(2*80)
	assert.InDelta(t, 1-30.0/160, a.EstAcc(), 1e-12)
}

func TestPartialCreditCapped(t *testing.T) {
	a, err := NewAccumulator([]string{"a"}, 1)
	require.NoError(t, err)
	step(t, a, 0, []int{9}, []int{1}, []float64{0}, []float64{10}, 2)
	assert.Zero(t, a.FSFscore())
}

func TestPairingEnforced(t *testing.T) {
	a, err := NewAccumulator([]string{"a"}, 1)
	require.NoError(t, err)

	err = a.MeasurementResult(0, []float64{1}, []float64{1})
	assert.True(t, apperr.IsDomain(err), "measurement first")

	require.NoError(t, a.ClassificationResult(0, []int{1}, []int{1}, 2))
	err = a.ClassificationResult(0, []int{1}, []int{1}, 2)
	assert.True(t, apperr.IsDomain(err), "two classifications in a row")
}

func TestDomainErrors(t *testing.T) {
	a, err := NewAccumulator([]string{"a", "b"}, 1)
	require.NoError(t, err)
	assert.True(t, apperr.IsDomain(a.ClassificationResult(0, []int{1}, []int{1, 0}, 2)))
	assert.True(t, apperr.IsDomain(a.ClassificationResult(1, []int{1, 0}, []int{1, 0}, 2)))
	assert.True(t, apperr.IsDomain(a.ClassificationResult(0, []int{1, 0}, []int{1, 0}, 0)))
	assert.True(t, apperr.IsDomain(a.Reset(-1)))
	_, err = a.Metrics(3, Cumulative)
	assert.True(t, apperr.IsDomain(err))
}

func TestResetIsolatesFolds(t *testing.T) {
	a, err := NewAccumulator([]string{"a"}, 2)
	require.NoError(t, err)
	step(t, a, 0, []int{1}, []int{1}, []float64{10}, []float64{10}, 2)
	step(t, a, 1, []int{1}, []int{0}, []float64{10}, []float64{0}, 2)

	before, err := a.Metrics(1, Step)
	require.NoError(t, err)
	require.NoError(t, a.Reset(0))

	after, err := a.Metrics(1, Step)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	cleared, err := a.Metrics(0, Step)
	require.NoError(t, err)
	assert.Zero(t, cleared.Steps)

	total, err := a.Metrics(0, Cumulative)
	require.NoError(t, err)
	assert.Equal(t, 1, total.Steps)
	assert.Equal(t, 1.0, total.FSFscore)
}

func TestWindowVsCumulative(t *testing.T) {
	a, err := NewAccumulator([]string{"a"}, 1)
	require.NoError(t, err)
	step(t, a, 0, []int{1}, []int{0}, []float64{10}, []float64{0}, 2)
	require.NoError(t, a.Reset(0))
	step(t, a, 0, []int{1}, []int{1}, []float64{10}, []float64{10}, 2)

	w, err := a.Metrics(0, Step)
	require.NoError(t, err)
	assert.Equal(t, 1.0, w.FSFscore)

	c, err := a.Metrics(0, Cumulative)
	require.NoError(t, err)
	assert.Less(t, c.FSFscore, 1.0)
	assert.Equal(t, 2, c.Steps)

	f, err := a.FoldFSFscore(0)
	require.NoError(t, err)
	assert.Equal(t, c.FSFscore, f)
}

func TestLabelMetrics(t *testing.T) {
	a, err := NewAccumulator([]string{"a", "b"}, 1)
	require.NoError(t, err)
	step(t, a, 0, []int{1, 1}, []int{1, 0}, []float64{10, 4}, []float64{10, 0}, 2)
	step(t, a, 0, []int{1, 0}, []int{1, 0}, []float64{10, 0}, []float64{10, 0}, 2)

	lm, err := a.LabelMetrics(0)
	require.NoError(t, err)
	require.Len(t, lm, 2)
	assert.Equal(t, "a", lm[0].Label)
	assert.Equal(t, 1.0, lm[0].FSFscore)
	assert.Zero(t, lm[0].RMSE)
	assert.Zero(t, lm[1].FSFscore)
	assert.InDelta(t, 4/1.4142135623730951, lm[1].RMSE, 1e-9)
}

func TestMetricsBounded(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	a, err := NewAccumulator([]string{"a", "b", "c"}, 3)
	require.NoError(t, err)
	for range 500 {
		fold := r.IntN(3)
		pb := []int{r.IntN(5), r.IntN(5), r.IntN(5)}
		tb := []int{r.IntN(5), r.IntN(5), r.IntN(5)}
		py := []float64{r.Float64() * 1e4, -r.Float64() * 100, 0}
		ty := []float64{r.Float64() * 10, r.Float64(), -r.Float64() * 50}
		step(t, a, fold, pb, tb, py, ty, 1+r.IntN(3))

		for _, v := range []float64{a.FSFscore(), a.EstAcc()} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestConcurrentFolds(t *testing.T) {
	const folds = 8
	a, err := NewAccumulator([]string{"a"}, folds)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for f := range folds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = a.Reset(f)
				_ = a.ClassificationResult(f, []int{1}, []int{1}, 2)
				_ = a.MeasurementResult(f, []float64{5}, []float64{5})
			}
		}()
	}
	wg.Wait()

	for f := range folds {
		m, err := a.Metrics(f, Cumulative)
		require.NoError(t, err)
		assert.Equal(t, 100, m.Steps)
		assert.Equal(t, 1.0, m.FSFscore)
	}
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("")
	require.NoError(t, err)
	assert.Equal(t, Cumulative, w)
	w, err = ParseWindow("STEP")
	require.NoError(t, err)
	assert.Equal(t, Step, w)
	assert.Equal(t, "step", w.String())
	_, err = ParseWindow("hourly")
	assert.True(t, apperr.IsConfig(err))
}
