package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/idlab-discover/nilmeval-cli/internal/accuracy"
	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
	"github.com/idlab-discover/nilmeval-cli/internal/disagg"
	"github.com/idlab-discover/nilmeval-cli/internal/sshmm"
	"github.com/idlab-discover/nilmeval-cli/internal/stream"
)

// StreamInput configures a live evaluation against a single-fold model.
type StreamInput struct {
	Model  *sshmm.Model
	Source stream.Source
	// Truth pairs one ground-truth row with every reading. Without it no
	// accuracy is reported.
	Truth    stream.TruthSource
	Interval time.Duration
}

// Stream evaluates readings as they arrive until the source ends or ctx is
// cancelled. The first reading is paired with itself. Every reading is one
// step.
func Stream(ctx context.Context, in StreamInput, opts Options) (FoldSummary, error) {
	var sum FoldSummary
	switch {
	case opts.Algorithm == nil:
		return sum, apperr.Config("no disaggregation algorithm selected")
	case in.Model == nil:
		return sum, apperr.Config("streaming needs a model")
	case in.Source == nil:
		return sum, apperr.Config("streaming needs an input source")
	}

	st := &stepper{model: in.Model, algo: opts.Algorithm(), window: opts.Window}
	if in.Truth != nil {
		acc, err := accuracy.NewAccumulator(in.Model.Labels(), 1)
		if err != nil {
			return sum, err
		}
		st.acc = acc
	}
	progress := opts.progress()
	progress(ProgressEvent{Type: EventFoldStart, Folds: 1})
	logf(0, "streaming: algorithm=%s, Km=%d, truth=%v", st.algo.Name(), in.Model.SuperStates(), in.Truth != nil)

	pctx, cancel := context.WithCancel(ctx)
	defer cancel()
	items := stream.Produce(pctx, in.Source, in.Interval)

	start := time.Now()
	truth := in.Truth
	prev, first := 0, true
	var runErr error
loop:
	for {
		var item stream.Item
		select {
		case <-ctx.Done():
			// A source blocked in Next may ignore ctx; the producer exits on
			// its next send.
			break loop
		case it, ok := <-items:
			if !ok {
				break loop
			}
			item = it
		}
		if item.Err != nil {
			runErr = fmt.Errorf("read input: %w", item.Err)
			break
		}
		cur := item.Sample.Value
		if first {
			prev, first = cur, false
		}

		var row []float64
		if truth != nil {
			r, err := truth.Next()
			switch {
			case errors.Is(err, io.EOF):
				logf(0, "truth feed ended after %d readings; accuracy is frozen", st.steps)
				truth = nil
			case err != nil:
				runErr = fmt.Errorf("read truth: %w", err)
			default:
				row = r
			}
			if runErr != nil {
				break
			}
		}

		rec, err := st.step(st.steps+1, item.Sample.Time.Unix(), disagg.Reading{Previous: prev, Current: cur}, row)
		if err != nil {
			runErr = fmt.Errorf("step %d: %w", st.steps+1, err)
			break
		}
		if opts.OnStep != nil {
			opts.OnStep(rec)
		}
		progress(ProgressEvent{Type: EventStep, Step: rec.Step})
		prev = cur
	}
	if runErr == nil {
		runErr = ctx.Err()
	}

	st.summarize(&sum)
	sum.Elapsed = time.Since(start)
	if runErr != nil {
		progress(ProgressEvent{Type: EventError, Error: runErr})
		return sum, runErr
	}
	progress(ProgressEvent{Type: EventFoldComplete, Steps: sum.Steps, Elapsed: sum.Elapsed, Summary: &sum})
	return sum, nil
}
