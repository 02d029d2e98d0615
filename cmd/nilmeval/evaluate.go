package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/idlab-discover/nilmeval-cli/internal/accuracy"
	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
	"github.com/idlab-discover/nilmeval-cli/internal/builder"
	"github.com/idlab-discover/nilmeval-cli/internal/dataset"
	"github.com/idlab-discover/nilmeval-cli/internal/evaluator"
	"github.com/idlab-discover/nilmeval-cli/internal/folding"
	modelio "github.com/idlab-discover/nilmeval-cli/internal/io"
	"github.com/idlab-discover/nilmeval-cli/internal/recorder"
	"github.com/idlab-discover/nilmeval-cli/internal/sshmm"
	"github.com/idlab-discover/nilmeval-cli/internal/ui"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a trained model fold by fold against a labelled dataset",
	Long: "Splits the dataset into as many contiguous folds as the model has, replays every fold step by step " +
		"through the selected disaggregation algorithm and reports FS-fscore and estimation accuracy.",
	RunE: runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	level, err := logLevel("evaluate")
	if err != nil {
		return err
	}
	quiet := level == "quiet"
	defer wireLogging(cmd.ErrOrStderr(), level)()

	modelPath := strings.TrimSpace(viper.GetString("evaluate.model"))
	dataPath := strings.TrimSpace(viper.GetString("evaluate.dataset"))
	if modelPath == "" || dataPath == "" {
		return apperr.Config("--model and --dataset are required")
	}

	window, err := accuracy.ParseWindow(viper.GetString("evaluate.window"))
	if err != nil {
		return err
	}
	algoName, factory, err := resolveAlgorithm(viper.GetString("evaluate.algorithm"), viper.GetBool("evaluate.interactive"))
	if err != nil {
		return err
	}

	models, err := modelio.LoadModel(modelPath, viper.GetString("evaluate.model-format"))
	if err != nil {
		return err
	}
	first, err := models.Fold(0)
	if err != nil {
		return err
	}
	table, err := dataset.LoadCSV(dataPath, dataset.Options{
		Labels:            models.Labels(),
		Precision:         resolvePrecision(viper.GetFloat64("evaluate.precision"), first),
		Denoised:          viper.GetBool("evaluate.denoised"),
		ObservationColumn: viper.GetString("evaluate.observation"),
		TimestampColumn:   viper.GetString("evaluate.timestamp"),
	})
	if err != nil {
		return err
	}
	folds, err := folding.New(table, models.Len())
	if err != nil {
		return err
	}

	plain := viper.GetBool("evaluate.plain-summary")
	showSteps := viper.GetBool("evaluate.steps") && !plain
	unit := viper.GetString("evaluate.measure")
	out := cmd.OutOrStdout()
	view := ui.NewEvaluateUI(out, quiet, plain)

	var run *recorder.Run
	if dbPath := viper.GetString("evaluate.record"); dbPath != "" {
		store, err := recorder.NewStore(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		run, err = store.BeginRun(recorder.RunInfo{
			Mode: "evaluate", Algorithm: algoName, ModelPath: modelPath, InputPath: dataPath,
			Labels: models.Labels(), Folds: models.Len(), Window: window.String(),
		})
		if err != nil {
			return err
		}
	}

	onFold := foldProgress(view)
	opts := evaluator.Options{
		Algorithm: factory,
		Window:    window,
		Parallel:  viper.GetBool("evaluate.parallel"),
		Workers:   viper.GetInt("evaluate.workers"),
		OnStep: func(r evaluator.StepRecord) {
			if showSteps {
				view.Step(stepView(r, models.Len(), unit))
			}
			if run != nil {
				run.RecordStep(r)
			}
		},
		OnProgress: func(ev evaluator.ProgressEvent) {
			if !showSteps {
				onFold(ev)
			}
		},
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
	defer stop()
	sum, runErr := evaluator.Run(ctx, models, folds, opts)

	if run != nil {
		for _, f := range sum.Folds {
			if err := run.RecordFold(f); err != nil && runErr == nil {
				runErr = err
			}
		}
		if err := run.Finish(sum, runErr); err != nil && runErr == nil {
			runErr = err
		}
	}

	sv := summaryView(sum)
	if run != nil {
		sv.RunID = run.ID
	}
	if bomOut := viper.GetString("evaluate.bom-out"); bomOut != "" && runErr == nil {
		if err := writeEvaluatedBOM(models, modelPath, dataPath, bomOut, sum); err != nil {
			return err
		}
		sv.BOMPath = bomOut
	}

	if plain {
		ui.PrintPlainSummary(out, sv, foldViews(sum))
	} else {
		for _, f := range foldViews(sum) {
			view.PrintFold(f)
		}
		view.PrintSummary(sv)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		view.PrintError(runErr)
	}
	return runErr
}

// writeEvaluatedBOM builds (or reads with --bom-in) the model card and
// records the evaluation scores on it.
func writeEvaluatedBOM(models *sshmm.Set, modelPath, dataPath, out string, sum evaluator.Summary) error {
	var bom *cdx.BOM
	var err error
	if in := viper.GetString("evaluate.bom-in"); in != "" {
		bom, err = modelio.ReadBOM(in, "auto")
	} else {
		bom, err = builder.NewBOMBuilder(builder.DefaultOptions()).Build(builder.BuildContext{
			ModelPath: modelPath,
			Models:    models,
			Dataset:   dataPath,
		})
	}
	if err != nil {
		return fmt.Errorf("model card: %w", err)
	}
	if err := builder.AttachPerformance(bom, sum); err != nil {
		return err
	}
	return modelio.WriteBOM(bom, out, "auto", viper.GetString("evaluate.spec"))
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	f := evaluateCmd.Flags()
	f.StringP("model", "m", "", "Trained model file (json|yaml), one record per fold")
	f.String("model-format", "auto", "Model file format: json|yaml|auto")
	f.StringP("dataset", "d", "", "Labelled dataset CSV")
	f.Float64P("precision", "p", 0, "Scale applied to every value before truncation (default: the model's precision, else 1)")
	f.String("measure", "W", "Unit suffix shown next to readings (e.g. W or A)")
	f.Bool("denoised", false, "Replace the aggregate with the sum of the appliance columns")
	f.String("observation", "", "Aggregate column (default: first column that is neither timestamp nor label)")
	f.String("timestamp", "", "Timestamp column (default: first column)")
	f.StringP("algorithm", "a", "forward", "Disaggregation algorithm (see 'nilmeval algorithms')")
	f.String("window", "cumulative", "Metrics window reported per step: cumulative|step")
	f.Bool("parallel", false, "Evaluate folds concurrently")
	f.Int("workers", 0, "Concurrent folds with --parallel (default GOMAXPROCS)")
	f.Bool("steps", true, "Print one line per step")
	f.String("record", "", "Record the run into this SQLite database")
	f.String("bom-out", "", "Write a CycloneDX model card with the scores to this path")
	f.String("bom-in", "", "Attach the scores to this existing model card instead of building one")
	f.String("spec", "", "CycloneDX spec version for --bom-out (1.5|1.6)")
	f.Bool("plain-summary", false, "Print machine-readable key=value summary lines (no styling)")
	f.BoolP("interactive", "i", false, "Pick the algorithm interactively")
	f.String("log-level", "", "Log level: quiet|standard|debug")

	bindFlags("evaluate", evaluateCmd)
}

// bindFlags binds every local flag of cmd to <section>.<flag> in viper.
func bindFlags(section string, cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(fl *pflag.Flag) {
		_ = viper.BindPFlag(section+"."+fl.Name, fl)
	})
}
