// Package accuracy scores disaggregation results against ground truth.
//
// Classification is scored with the finite-state F-score (FS-fscore): a
// true positive whose predicted bin differs from the true bin only earns
// partial credit. Measurement is scored with estimation accuracy (Est.Acc),
// the share of total ground-truth power that was assigned correctly.
//
// Every fold keeps two tallies: one cumulative since the fold started and
// one "window" tally that Reset clears.
package accuracy

import (
	"math"
	"strings"
	"sync"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
)

// Window selects which tally a metric is computed over.
type Window int

const (
	// Cumulative covers every step since the fold started.
	Cumulative Window = iota
	// Step covers the steps since the last Reset.
	Step
)

func (w Window) String() string {
	if w == Step {
		return "step"
	}
	return "cumulative"
}

// ParseWindow accepts "cumulative" (or "") and "step".
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cumulative", "fold":
		return Cumulative, nil
	case "step", "instant":
		return Step, nil
	default:
		return Cumulative, apperr.Configf("unknown metrics window %q (want cumulative or step)", s)
	}
}

// Metrics is a snapshot of both scores over one window.
type Metrics struct {
	FSFscore float64
	EstAcc   float64
	Steps    int
}

// LabelMetrics breaks a fold's cumulative scores down per appliance.
type LabelMetrics struct {
	Label    string
	FSFscore float64
	EstAcc   float64
	RMSE     float64
}

type counts struct {
	tp, tn, fp, fn float64
	inacc          float64
}

type measures struct {
	absErr  float64
	sqErr   float64
	trueAbs float64
	estSum  float64
	n       int
}

type tally struct {
	cls   []counts
	meas  []measures
	steps int
}

func newTally(labels int) tally {
	return tally{cls: make([]counts, labels), meas: make([]measures, labels)}
}

type foldState struct {
	total   tally
	window  tally
	pending bool
}

// Accumulator collects classification and measurement results for every
// fold. It is safe for concurrent use; folds never share state.
type Accumulator struct {
	mu     sync.Mutex
	labels []string
	folds  []foldState
}

func NewAccumulator(labels []string, folds int) (*Accumulator, error) {
	if len(labels) == 0 {
		return nil, apperr.Config("accuracy needs at least one label")
	}
	if folds < 1 {
		return nil, apperr.Configf("fold count %d must be at least 1", folds)
	}
	a := &Accumulator{
		labels: append([]string(nil), labels...),
		folds:  make([]foldState, folds),
	}
	for i := range a.folds {
		a.folds[i] = foldState{total: newTally(len(labels)), window: newTally(len(labels))}
	}
	return a, nil
}

func (a *Accumulator) Labels() []string { return append([]string(nil), a.labels...) }

func (a *Accumulator) Folds() int { return len(a.folds) }

// Reset clears the window tally of one fold. Other folds and the fold's
// cumulative tally are untouched.
func (a *Accumulator) Reset(fold int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkFold(fold); err != nil {
		return err
	}
	a.folds[fold].window = newTally(len(a.labels))
	return nil
}

// ClassificationResult scores predicted bins against true bins. states is
// the divisor of the partial-credit penalty. Every call must be followed
// by a MeasurementResult for the same fold.
func (a *Accumulator) ClassificationResult(fold int, predicted, truth []int, states int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkFold(fold); err != nil {
		return err
	}
	if len(predicted) != len(a.labels) || len(truth) != len(a.labels) {
		return apperr.Domainf("classification vectors have %d and %d entries, want %d", len(predicted), len(truth), len(a.labels))
	}
	if states < 1 {
		return apperr.Domainf("state count %d must be positive", states)
	}
	fs := &a.folds[fold]
	if fs.pending {
		return apperr.Domainf("fold %d: classification result without a measurement for the previous step", fold)
	}
	for _, t := range []*tally{&fs.total, &fs.window} {
		for i := range predicted {
			classify(&t.cls[i], predicted[i], truth[i], states)
		}
		t.steps++
	}
	fs.pending = true
	return nil
}

func classify(c *counts, p, t, states int) {
	switch {
	case p > 0 && t > 0:
		c.tp++
		d := math.Abs(float64(p - t))
		c.inacc += math.Min(1, d/float64(states))
	case p == 0 && t == 0:
		c.tn++
	case p > 0:
		c.fp++
	default:
		c.fn++
	}
}

// MeasurementResult scores estimated power against true power. It must
// follow the ClassificationResult of the same step.
func (a *Accumulator) MeasurementResult(fold int, predicted, truth []float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkFold(fold); err != nil {
		return err
	}
	if len(predicted) != len(a.labels) || len(truth) != len(a.labels) {
		return apperr.Domainf("measurement vectors have %d and %d entries, want %d", len(predicted), len(truth), len(a.labels))
	}
	fs := &a.folds[fold]
	if !fs.pending {
		return apperr.Domainf("fold %d: measurement result without a classification result", fold)
	}
	for _, t := range []*tally{&fs.total, &fs.window} {
		for i := range predicted {
			m := &t.meas[i]
			e := predicted[i] - truth[i]
			m.absErr += math.Abs(e)
			m.sqErr += e * e
			m.trueAbs += math.Abs(truth[i])
			m.estSum += predicted[i]
			m.n++
		}
	}
	fs.pending = false
	return nil
}

// FSFscore is the cumulative FS-fscore over every fold and label.
func (a *Accumulator) FSFscore() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var c counts
	steps := 0
	for _, fs := range a.folds {
		for _, l := range fs.total.cls {
			c = c.add(l)
		}
		steps += fs.total.steps
	}
	return fscore(c, steps)
}

// EstAcc is the cumulative estimation accuracy over every fold and label.
func (a *Accumulator) EstAcc() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var m measures
	for _, fs := range a.folds {
		for _, l := range fs.total.meas {
			m = m.add(l)
		}
	}
	return estacc(m)
}

func (a *Accumulator) FoldFSFscore(fold int) (float64, error) {
	m, err := a.Metrics(fold, Cumulative)
	return m.FSFscore, err
}

func (a *Accumulator) FoldEstAcc(fold int) (float64, error) {
	m, err := a.Metrics(fold, Cumulative)
	return m.EstAcc, err
}

// Metrics returns both scores for one fold over the chosen window.
func (a *Accumulator) Metrics(fold int, w Window) (Metrics, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkFold(fold); err != nil {
		return Metrics{}, err
	}
	t := a.folds[fold].total
	if w == Step {
		t = a.folds[fold].window
	}
	var c counts
	var m measures
	for i := range a.labels {
		c = c.add(t.cls[i])
		m = m.add(t.meas[i])
	}
	return Metrics{FSFscore: fscore(c, t.steps), EstAcc: estacc(m), Steps: t.steps}, nil
}

// LabelMetrics returns the cumulative scores of one fold per label.
func (a *Accumulator) LabelMetrics(fold int) ([]LabelMetrics, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkFold(fold); err != nil {
		return nil, err
	}
	t := a.folds[fold].total
	out := make([]LabelMetrics, len(a.labels))
	for i, l := range a.labels {
		out[i] = LabelMetrics{
			Label:    l,
			FSFscore: fscore(t.cls[i], t.steps),
			EstAcc:   estacc(t.meas[i]),
		}
		if n := t.meas[i].n; n > 0 {
			out[i].RMSE = math.Sqrt(t.meas[i].sqErr / float64(n))
		}
	}
	return out, nil
}

func (a *Accumulator) checkFold(fold int) error {
	if fold < 0 || fold >= len(a.folds) {
		return apperr.Domainf("fold %d outside [0,%d)", fold, len(a.folds))
	}
	return nil
}

func (c counts) add(o counts) counts {
	return counts{tp: c.tp + o.tp, tn: c.tn + o.tn, fp: c.fp + o.fp, fn: c.fn + o.fn, inacc: c.inacc + o.inacc}
}

func (m measures) add(o measures) measures {
	return measures{
		absErr:  m.absErr + o.absErr,
		sqErr:   m.sqErr + o.sqErr,
		trueAbs: m.trueAbs + o.trueAbs,
		estSum:  m.estSum + o.estSum,
		n:       m.n + o.n,
	}
}

func fscore(c counts, steps int) float64 {
	if steps == 0 {
		return 0
	}
	if c.tp+c.fp+c.fn == 0 {
		return 1
	}
	tpp := c.tp - c.inacc
	var p, r float64
	if c.tp+c.fp > 0 {
		p = tpp / (c.tp + c.fp)
	}
	if c.tp+c.fn > 0 {
		r = tpp / (c.tp + c.fn)
	}
	if p+r <= 0 {
		return 0
	}
	return clamp(2 * p * r / (p + r))
}

func estacc(m measures) float64 {
	if m.n == 0 {
		return 0
	}
	if m.trueAbs == 0 {
		if m.absErr == 0 {
			return 1
		}
		return 0
	}
	return clamp(1 - m.absErr/(2*m.trueAbs))
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
