// Package evaluator drives a disaggregation algorithm over the testing rows
// of every fold and scores each step against ground truth.
//
// Each fold runs INIT (model, fresh algorithm instance, testing table),
// then one STEP per consecutive pair of readings, then DONE. Every fold owns
// its algorithm instance; models are shared read-only and the accumulator
// keeps per-fold state, so folds can run concurrently.
package evaluator

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/idlab-discover/nilmeval-cli/internal/accuracy"
	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
	"github.com/idlab-discover/nilmeval-cli/internal/dataset"
	"github.com/idlab-discover/nilmeval-cli/internal/disagg"
	"github.com/idlab-discover/nilmeval-cli/internal/folding"
	"github.com/idlab-discover/nilmeval-cli/internal/sshmm"
)

// StepRecord is the report of one inference step.
type StepRecord struct {
	Fold      int
	Step      int
	Timestamp int64

	Reading int
	Delta   int
	// SCP counts labels whose ground-truth bin changed since the previous step.
	SCP int

	Unseen      bool
	Probability float64
	SuperState  int
	Converged   int
	Candidates  int

	// Noise is the reading minus the total ground-truth power.
	Noise    float64
	FSFscore float64
	EstAcc   float64
	Latency  time.Duration

	Estimated []float64
	Truth     []float64
	HasTruth  bool
}

// FoldSummary is the DONE state of one fold.
type FoldSummary struct {
	Fold      int
	Steps     int
	Unseen    int
	Elapsed   time.Duration
	InferTime time.Duration
	HasTruth  bool
	Metrics   accuracy.Metrics
	Labels    []accuracy.LabelMetrics
}

// MeanLatency is the average inference time per step.
func (s FoldSummary) MeanLatency() time.Duration {
	if s.Steps == 0 {
		return 0
	}
	return s.InferTime / time.Duration(s.Steps)
}

// Summary covers every fold of a run.
type Summary struct {
	Algorithm string
	Labels    []string
	Folds     []FoldSummary
	FSFscore  float64
	EstAcc    float64
	Elapsed   time.Duration
}

// AverageFoldTime is the mean wall time spent per fold.
func (s Summary) AverageFoldTime() time.Duration {
	if len(s.Folds) == 0 {
		return 0
	}
	var total time.Duration
	for _, f := range s.Folds {
		total += f.Elapsed
	}
	return total / time.Duration(len(s.Folds))
}

// Options configures an evaluation.
type Options struct {
	// Algorithm builds one fresh instance per fold.
	Algorithm disagg.Factory
	// Window selects the metrics reported on each StepRecord.
	Window accuracy.Window
	// Parallel evaluates folds concurrently; Workers bounds the goroutines
	// (GOMAXPROCS when zero).
	Parallel bool
	Workers  int

	// OnStep receives every StepRecord. With Parallel it is called from
	// several goroutines at once.
	OnStep     func(StepRecord)
	OnProgress ProgressCallback
}

// FoldInput is everything one fold needs. The testing table is passed
// explicitly; nothing is read from shared state.
type FoldInput struct {
	Fold     int
	Model    *sshmm.Model
	Testing  *dataset.Table
	Accuracy *accuracy.Accumulator
}

func (in FoldInput) validate(opts Options) error {
	switch {
	case opts.Algorithm == nil:
		return apperr.Config("no disaggregation algorithm selected")
	case in.Model == nil:
		return apperr.Configf("fold %d has no model", in.Fold)
	case in.Testing == nil:
		return apperr.Configf("fold %d has no testing data", in.Fold)
	case in.Accuracy == nil:
		return apperr.Configf("fold %d has no accuracy accumulator", in.Fold)
	}
	if !slices.Equal(in.Testing.Labels, in.Model.Labels()) {
		return apperr.Configf("dataset labels %v do not match model labels %v", in.Testing.Labels, in.Model.Labels())
	}
	return nil
}

// EvaluateFold runs one fold to completion. Cancellation is checked between
// steps, so the accumulator never sees half a step. On error the summary
// covers the steps completed so far.
func EvaluateFold(ctx context.Context, in FoldInput, opts Options) (FoldSummary, error) {
	sum := FoldSummary{Fold: in.Fold}
	if err := in.validate(opts); err != nil {
		return sum, err
	}
	progress := opts.progress()
	n := in.Testing.Len()

	st := &stepper{
		fold:   in.Fold,
		model:  in.Model,
		algo:   opts.Algorithm(),
		acc:    in.Accuracy,
		window: opts.Window,
	}
	logf(in.Fold, "start: %d rows, algorithm=%s, Km=%d", n, st.algo.Name(), in.Model.SuperStates())
	progress(ProgressEvent{Type: EventFoldStart, Fold: in.Fold, Steps: max(0, n-1)})

	start := time.Now()
	if n > 0 {
		bins, err := in.Model.ObsToBins(in.Testing.Truth[0])
		if err != nil {
			return sum, fmt.Errorf("fold %d row 0: %w", in.Fold, err)
		}
		st.prevBins = bins
	}

	var runErr error
	for i := 1; i < n; i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		r := disagg.Reading{Previous: in.Testing.Observation[i-1], Current: in.Testing.Observation[i]}
		rec, err := st.step(i, in.Testing.Timestamps[i], r, in.Testing.Truth[i])
		if err != nil {
			runErr = fmt.Errorf("fold %d step %d: %w", in.Fold, i, err)
			progress(ProgressEvent{Type: EventError, Fold: in.Fold, Step: i, Error: runErr})
			break
		}
		if opts.OnStep != nil {
			opts.OnStep(rec)
		}
		progress(ProgressEvent{Type: EventStep, Fold: in.Fold, Step: i, Steps: n - 1})
	}

	st.summarize(&sum)
	sum.Elapsed = time.Since(start)
	if runErr != nil {
		logf(in.Fold, "stopped after %d steps: %v", sum.Steps, runErr)
		return sum, runErr
	}
	logf(in.Fold, "done: %d steps, %d unseen, FS-fscore=%.4f Est.Acc=%.4f", sum.Steps, sum.Unseen, sum.Metrics.FSFscore, sum.Metrics.EstAcc)
	progress(ProgressEvent{Type: EventFoldComplete, Fold: in.Fold, Steps: sum.Steps, Elapsed: sum.Elapsed, Summary: &sum})
	return sum, nil
}

// Run evaluates every fold of folds against the matching fold of models.
// A failing fold stops only itself; the summary still reports every fold
// and the first error is returned alongside it.
func Run(ctx context.Context, models *sshmm.Set, folds *folding.Folding, opts Options) (Summary, error) {
	if models == nil || folds == nil {
		return Summary{}, apperr.Config("evaluation needs a model and a dataset")
	}
	if opts.Algorithm == nil {
		return Summary{}, apperr.Config("no disaggregation algorithm selected")
	}
	if models.Len() != folds.Count() {
		return Summary{}, apperr.Configf("model was trained for %d folds but the dataset is split into %d", models.Len(), folds.Count())
	}
	acc, err := accuracy.NewAccumulator(models.Labels(), folds.Count())
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Algorithm: opts.Algorithm().Name(),
		Labels:    models.Labels(),
		Folds:     make([]FoldSummary, folds.Count()),
	}
	for i := range summary.Folds {
		summary.Folds[i].Fold = i
	}
	progress := opts.progress()
	progress(ProgressEvent{Type: EventRunStart, Folds: folds.Count()})
	start := time.Now()

	evaluate := func(f folding.Fold) error {
		m, err := models.Fold(f.Index)
		if err != nil {
			return err
		}
		s, err := EvaluateFold(ctx, FoldInput{Fold: f.Index, Model: m, Testing: f.Testing, Accuracy: acc}, opts)
		summary.Folds[f.Index] = s
		return err
	}

	var runErr error
	if opts.Parallel {
		var g errgroup.Group
		workers := opts.Workers
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		g.SetLimit(workers)
		for i := range folds.Count() {
			g.Go(func() error { return evaluate(folds.Fold(i)) })
		}
		runErr = g.Wait()
	} else {
		for f := range folds.Folds() {
			if err := evaluate(f); err != nil && runErr == nil {
				runErr = err
			}
			if ctx.Err() != nil {
				break
			}
		}
	}

	summary.FSFscore = acc.FSFscore()
	summary.EstAcc = acc.EstAcc()
	summary.Elapsed = time.Since(start)
	progress(ProgressEvent{Type: EventRunComplete, Folds: folds.Count(), Elapsed: summary.Elapsed, Error: runErr})
	return summary, runErr
}
