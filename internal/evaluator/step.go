package evaluator

import (
	"time"

	"github.com/idlab-discover/nilmeval-cli/internal/accuracy"
	"github.com/idlab-discover/nilmeval-cli/internal/disagg"
	"github.com/idlab-discover/nilmeval-cli/internal/sshmm"
)

// stepper carries the per-fold state of the STEP phase.
type stepper struct {
	fold   int
	model  *sshmm.Model
	algo   disagg.Algorithm
	acc    *accuracy.Accumulator
	window accuracy.Window

	prevBins []int
	steps    int
	unseen   int
	infer    time.Duration
	truthed  bool
}

// step infers one reading and, when truth is given, scores it.
func (s *stepper) step(n int, ts int64, r disagg.Reading, truth []float64) (StepRecord, error) {
	if s.acc != nil {
		if err := s.acc.Reset(s.fold); err != nil {
			return StepRecord{}, err
		}
	}

	start := time.Now()
	res := s.algo.Infer(s.model, r)
	latency := time.Since(start)

	bins, err := s.model.Decode(res.SuperState)
	if err != nil {
		return StepRecord{}, err
	}
	est, err := s.model.Breakdown(bins)
	if err != nil {
		return StepRecord{}, err
	}

	rec := StepRecord{
		Fold:        s.fold,
		Step:        n,
		Timestamp:   ts,
		Reading:     r.Current,
		Delta:       r.Delta(),
		Unseen:      res.Unseen(),
		Probability: res.Probability,
		SuperState:  res.SuperState,
		Converged:   res.Converged,
		Candidates:  res.Total,
		Latency:     latency,
		Estimated:   est,
	}

	if truth != nil && s.acc != nil {
		trueBins, err := s.model.ObsToBins(truth)
		if err != nil {
			return StepRecord{}, err
		}
		if err := s.acc.ClassificationResult(s.fold, bins, trueBins, s.model.SuperStates()); err != nil {
			return StepRecord{}, err
		}
		if err := s.acc.MeasurementResult(s.fold, est, truth); err != nil {
			return StepRecord{}, err
		}
		m, err := s.acc.Metrics(s.fold, s.window)
		if err != nil {
			return StepRecord{}, err
		}

		var total float64
		for _, v := range truth {
			total += v
		}
		rec.HasTruth = true
		rec.Truth = truth
		rec.Noise = float64(r.Current) - total
		rec.FSFscore = m.FSFscore
		rec.EstAcc = m.EstAcc
		rec.SCP = changed(s.prevBins, trueBins)
		s.prevBins = trueBins
		s.truthed = true
	}

	s.steps++
	s.infer += latency
	if rec.Unseen {
		s.unseen++
	}
	return rec, nil
}

func (s *stepper) summarize(sum *FoldSummary) {
	sum.Steps = s.steps
	sum.Unseen = s.unseen
	sum.InferTime = s.infer
	sum.HasTruth = s.truthed
	if s.acc == nil || !s.truthed {
		return
	}
	if m, err := s.acc.Metrics(s.fold, accuracy.Cumulative); err == nil {
		sum.Metrics = m
	}
	if lm, err := s.acc.LabelMetrics(s.fold); err == nil {
		sum.Labels = lm
	}
}

// changed counts positions that differ; a missing previous vector counts
// as no change.
func changed(prev, cur []int) int {
	if len(prev) != len(cur) {
		return 0
	}
	n := 0
	for i := range cur {
		if prev[i] != cur[i] {
			n++
		}
	}
	return n
}
