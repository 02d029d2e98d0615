package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idlab-discover/nilmeval-cli/internal/accuracy"
	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
	"github.com/idlab-discover/nilmeval-cli/internal/evaluator"
	modelio "github.com/idlab-discover/nilmeval-cli/internal/io"
	"github.com/idlab-discover/nilmeval-cli/internal/recorder"
	"github.com/idlab-discover/nilmeval-cli/internal/stream"
	"github.com/idlab-discover/nilmeval-cli/internal/ui"
)

var realtimeCmd = &cobra.Command{
	Use:   "realtime",
	Short: "Disaggregate a live or recorded stream of aggregate readings",
	Long: "Reads aggregate readings one at a time from a file, a serial device or stdin (\"-\") and disaggregates " +
		"each with a single-fold model. Accuracy is only reported when a paired ground-truth CSV is given with --truth.",
	RunE: runRealtime,
}

func runRealtime(cmd *cobra.Command, args []string) error {
	level, err := logLevel("realtime")
	if err != nil {
		return err
	}
	defer wireLogging(cmd.ErrOrStderr(), level)()

	modelPath := strings.TrimSpace(viper.GetString("realtime.model"))
	inputPath := strings.TrimSpace(viper.GetString("realtime.input"))
	if modelPath == "" || inputPath == "" {
		return apperr.Config("--model and --input are required")
	}
	format, err := stream.ParseFormat(viper.GetString("realtime.input-format"))
	if err != nil {
		return err
	}
	window, err := accuracy.ParseWindow(viper.GetString("realtime.window"))
	if err != nil {
		return err
	}
	algoName, factory, err := resolveAlgorithm(viper.GetString("realtime.algorithm"), viper.GetBool("realtime.interactive"))
	if err != nil {
		return err
	}

	models, err := modelio.LoadModel(modelPath, viper.GetString("realtime.model-format"))
	if err != nil {
		return err
	}
	model, err := models.Single()
	if err != nil {
		return err
	}
	precision := resolvePrecision(viper.GetFloat64("realtime.precision"), model)

	src, closer, err := stream.Open(inputPath, format, precision)
	if err != nil {
		return err
	}
	defer closer.Close()

	in := evaluator.StreamInput{Model: model, Source: src, Interval: viper.GetDuration("realtime.interval")}
	if truthPath := viper.GetString("realtime.truth"); truthPath != "" {
		truth, tc, err := stream.OpenTruth(truthPath, model.Labels(), precision)
		if err != nil {
			return err
		}
		defer tc.Close()
		in.Truth = truth
	}

	var run *recorder.Run
	if dbPath := viper.GetString("realtime.record"); dbPath != "" {
		store, err := recorder.NewStore(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		run, err = store.BeginRun(recorder.RunInfo{
			Mode: "realtime", Algorithm: algoName, ModelPath: modelPath, InputPath: inputPath,
			Labels: model.Labels(), Folds: 1, Window: window.String(),
		})
		if err != nil {
			return err
		}
	}

	plain := viper.GetBool("realtime.plain-summary")
	unit := viper.GetString("realtime.measure")
	view := ui.NewEvaluateUI(cmd.OutOrStdout(), level == "quiet", plain)

	opts := evaluator.Options{
		Algorithm: factory,
		Window:    window,
		OnStep: func(r evaluator.StepRecord) {
			view.Step(stepView(r, 1, unit))
			if run != nil {
				run.RecordStep(r)
			}
		},
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
	defer stop()
	fold, runErr := evaluator.Stream(ctx, in, opts)
	// Ctrl-C is how a live session ends.
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	sum := evaluator.Summary{
		Algorithm: algoName,
		Labels:    model.Labels(),
		Folds:     []evaluator.FoldSummary{fold},
		FSFscore:  fold.Metrics.FSFscore,
		EstAcc:    fold.Metrics.EstAcc,
		Elapsed:   fold.Elapsed,
	}
	if run != nil {
		if err := run.RecordFold(fold); err != nil && runErr == nil {
			runErr = err
		}
		if err := run.Finish(sum, runErr); err != nil && runErr == nil {
			runErr = err
		}
	}

	sv := summaryView(sum)
	if run != nil {
		sv.RunID = run.ID
	}
	if plain {
		ui.PrintPlainSummary(cmd.OutOrStdout(), sv, foldViews(sum))
	} else {
		view.PrintFold(foldView(fold, 1))
		view.PrintSummary(sv)
	}
	view.PrintError(runErr)
	return runErr
}

func init() {
	f := realtimeCmd.Flags()
	f.StringP("model", "m", "", "Trained single-fold model file (json|yaml)")
	f.String("model-format", "auto", "Model file format: json|yaml|auto")
	f.StringP("input", "I", "", "Reading source: file, serial device or - for stdin")
	f.String("input-format", "lines", "Reading format: lines (one value per line) | emu2 (Rainforest EMU-2 XML)")
	f.Duration("interval", 0, "Minimum time between readings (e.g. 1s to replay a file at meter pace)")
	f.String("truth", "", "Ground-truth CSV paired row by row with the readings")
	f.Float64P("precision", "p", 0, "Scale applied to every value before truncation (default: the model's precision, else 1)")
	f.String("measure", "W", "Unit suffix shown next to readings")
	f.StringP("algorithm", "a", "forward", "Disaggregation algorithm (see 'nilmeval algorithms')")
	f.String("window", "cumulative", "Metrics window reported per step: cumulative|step")
	f.String("record", "", "Record the session into this SQLite database")
	f.Bool("plain-summary", false, "Plain output (no styling)")
	f.BoolP("interactive", "i", false, "Pick the algorithm interactively")
	f.String("log-level", "", "Log level: quiet|standard|debug")

	bindFlags("realtime", realtimeCmd)
}
