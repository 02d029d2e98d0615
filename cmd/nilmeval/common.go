package cmd

import (
	"io"
	"strings"

	"github.com/spf13/viper"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
	"github.com/idlab-discover/nilmeval-cli/internal/builder"
	"github.com/idlab-discover/nilmeval-cli/internal/dataset"
	"github.com/idlab-discover/nilmeval-cli/internal/disagg"
	"github.com/idlab-discover/nilmeval-cli/internal/evaluator"
	"github.com/idlab-discover/nilmeval-cli/internal/recorder"
	"github.com/idlab-discover/nilmeval-cli/internal/sshmm"
	"github.com/idlab-discover/nilmeval-cli/internal/stream"
	"github.com/idlab-discover/nilmeval-cli/internal/ui"
)

// logLevel resolves <section>.log-level from flags, config and environment.
func logLevel(section string) (string, error) {
	level := strings.ToLower(strings.TrimSpace(viper.GetString(section + ".log-level")))
	if level == "" {
		level = "standard"
	}
	switch level {
	case "quiet", "standard", "debug":
		return level, nil
	default:
		return "", apperr.Configf("invalid --log-level %q (expected quiet|standard|debug)", level)
	}
}

// wireLogging points package loggers at w. Standard shows loading and
// recording; debug adds per-fold evaluator and model construction logs.
func wireLogging(w io.Writer, level string) func() {
	if level == "quiet" {
		return func() {}
	}
	dataset.SetLogger(w)
	stream.SetLogger(w)
	recorder.SetLogger(w)
	builder.SetLogger(w)
	if level == "debug" {
		evaluator.SetLogger(w)
		sshmm.SetLogger(w)
	}
	return func() {
		for _, set := range []func(io.Writer){
			dataset.SetLogger, stream.SetLogger, recorder.SetLogger, builder.SetLogger,
			evaluator.SetLogger, sshmm.SetLogger,
		} {
			set(nil)
		}
	}
}

// resolveAlgorithm picks the algorithm named in config, or asks the user.
func resolveAlgorithm(name string, interactive bool) (string, disagg.Factory, error) {
	if interactive {
		choices := make([]ui.AlgorithmChoice, 0)
		for _, n := range disagg.Names() {
			choices = append(choices, ui.AlgorithmChoice{Name: n, Description: disagg.Describe(n)})
		}
		picked, err := ui.SelectAlgorithm(choices, name)
		if err != nil {
			return "", nil, err
		}
		name = picked
	}
	f, err := disagg.FactoryFor(name)
	if err != nil {
		return "", nil, err
	}
	return name, f, nil
}

// resolvePrecision prefers an explicit flag, then the model's own scaling.
func resolvePrecision(flag float64, m *sshmm.Model) float64 {
	if flag > 0 {
		return flag
	}
	if p := m.Precision(); p > 0 {
		return p
	}
	return 1
}

func stepView(r evaluator.StepRecord, folds int, unit string) ui.StepView {
	return ui.StepView{
		Fold:     r.Fold,
		Folds:    folds,
		Step:     r.Step,
		Reading:  r.Reading,
		Delta:    r.Delta,
		Unit:     unit,
		SCP:      r.SCP,
		Unseen:   r.Unseen,
		HasTruth: r.HasTruth,
		FSFscore: r.FSFscore,
		EstAcc:   r.EstAcc,
		Latency:  r.Latency,
	}
}

func foldView(s evaluator.FoldSummary, folds int) ui.FoldView {
	v := ui.FoldView{
		Fold:        s.Fold,
		Folds:       folds,
		Steps:       s.Steps,
		Unseen:      s.Unseen,
		Elapsed:     s.Elapsed,
		MeanLatency: s.MeanLatency(),
		HasTruth:    s.HasTruth,
		FSFscore:    s.Metrics.FSFscore,
		EstAcc:      s.Metrics.EstAcc,
	}
	for _, l := range s.Labels {
		v.Labels = append(v.Labels, ui.LabelView{Label: l.Label, FSFscore: l.FSFscore, EstAcc: l.EstAcc, RMSE: l.RMSE})
	}
	return v
}

// foldProgress drives the live fold list of view from evaluator progress.
func foldProgress(view *ui.EvaluateUI) evaluator.ProgressCallback {
	var folds int
	return func(ev evaluator.ProgressEvent) {
		switch ev.Type {
		case evaluator.EventRunStart:
			folds = ev.Folds
			view.StartFolds(ev.Folds)
		case evaluator.EventFoldStart:
			view.FoldStarted(ev.Fold, ev.Steps)
		case evaluator.EventStep:
			if ev.Step%100 == 0 {
				view.FoldProgress(ev.Fold, ev.Step, ev.Steps)
			}
		case evaluator.EventFoldComplete:
			if ev.Summary != nil {
				view.FoldDone(foldView(*ev.Summary, folds))
			}
		case evaluator.EventError:
			view.FoldFailed(ev.Fold, ev.Error)
		case evaluator.EventRunComplete:
			view.FinishFolds()
		}
	}
}

func foldViews(sum evaluator.Summary) []ui.FoldView {
	out := make([]ui.FoldView, len(sum.Folds))
	for i, f := range sum.Folds {
		out[i] = foldView(f, len(sum.Folds))
	}
	return out
}

func summaryView(sum evaluator.Summary) ui.SummaryView {
	v := ui.SummaryView{
		Algorithm:   sum.Algorithm,
		Folds:       len(sum.Folds),
		FSFscore:    sum.FSFscore,
		EstAcc:      sum.EstAcc,
		Elapsed:     sum.Elapsed,
		AverageFold: sum.AverageFoldTime(),
	}
	for _, f := range sum.Folds {
		if f.HasTruth {
			v.HasTruth = true
			break
		}
	}
	return v
}
