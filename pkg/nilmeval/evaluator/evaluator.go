// Package evaluator is the public entry point for running a k-fold
// disaggregation evaluation from files.
package evaluator

import (
	"context"

	"github.com/idlab-discover/nilmeval-cli/internal/accuracy"
	"github.com/idlab-discover/nilmeval-cli/internal/dataset"
	"github.com/idlab-discover/nilmeval-cli/internal/disagg"
	ievaluator "github.com/idlab-discover/nilmeval-cli/internal/evaluator"
	"github.com/idlab-discover/nilmeval-cli/internal/folding"
	modelio "github.com/idlab-discover/nilmeval-cli/internal/io"
)

type (
	Summary     = ievaluator.Summary
	FoldSummary = ievaluator.FoldSummary
	StepRecord  = ievaluator.StepRecord
)

type EvaluateOptions struct {
	// Algorithm is a registered algorithm name; empty means "forward".
	Algorithm string
	// Window is "cumulative" (default) or "step".
	Window   string
	Parallel bool
	// Precision overrides the model's scaling when positive.
	Precision         float64
	Denoised          bool
	ObservationColumn string
	OnStep            func(StepRecord)
}

// Evaluate loads a model and a dataset and evaluates every fold.
func Evaluate(ctx context.Context, modelPath, datasetPath string, opts EvaluateOptions) (Summary, error) {
	name := opts.Algorithm
	if name == "" {
		name = "forward"
	}
	factory, err := disagg.FactoryFor(name)
	if err != nil {
		return Summary{}, err
	}
	window, err := accuracy.ParseWindow(opts.Window)
	if err != nil {
		return Summary{}, err
	}

	models, err := modelio.LoadModel(modelPath, "auto")
	if err != nil {
		return Summary{}, err
	}
	first, err := models.Fold(0)
	if err != nil {
		return Summary{}, err
	}
	precision := opts.Precision
	if precision <= 0 {
		precision = first.Precision()
	}
	table, err := dataset.LoadCSV(datasetPath, dataset.Options{
		Labels:            models.Labels(),
		Precision:         precision,
		Denoised:          opts.Denoised,
		ObservationColumn: opts.ObservationColumn,
	})
	if err != nil {
		return Summary{}, err
	}
	folds, err := folding.New(table, models.Len())
	if err != nil {
		return Summary{}, err
	}
	return ievaluator.Run(ctx, models, folds, ievaluator.Options{
		Algorithm: factory,
		Window:    window,
		Parallel:  opts.Parallel,
		OnStep:    opts.OnStep,
	})
}

// Algorithms lists the registered algorithm names.
func Algorithms() []string { return disagg.Names() }
