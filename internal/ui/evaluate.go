package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// StepView is what one evaluation step shows on screen.
type StepView struct {
	Fold    int
	Folds   int
	Step    int
	Reading int
	Delta   int
	Unit    string
	SCP     int
	Unseen  bool

	HasTruth bool
	FSFscore float64
	EstAcc   float64
	Latency  time.Duration
}

type LabelView struct {
	Label    string
	FSFscore float64
	EstAcc   float64
	RMSE     float64
}

type FoldView struct {
	Fold        int
	Folds       int
	Steps       int
	Unseen      int
	Elapsed     time.Duration
	MeanLatency time.Duration
	HasTruth    bool
	FSFscore    float64
	EstAcc      float64
	Labels      []LabelView
}

type SummaryView struct {
	Algorithm   string
	Folds       int
	HasTruth    bool
	FSFscore    float64
	EstAcc      float64
	Elapsed     time.Duration
	AverageFold time.Duration
	RunID       string
	BOMPath     string
}

// EvaluateUI renders the evaluate and realtime commands. Plain mode writes
// unstyled lines suitable for log files and pipes.
type EvaluateUI struct {
	writer io.Writer
	quiet  bool
	plain  bool

	mu       sync.Mutex
	workflow *Workflow
	tasks    map[int]int
}

func NewEvaluateUI(w io.Writer, quiet, plain bool) *EvaluateUI {
	return &EvaluateUI{writer: w, quiet: quiet, plain: plain, tasks: map[int]int{}}
}

// FormatStepPlain renders a step in the fixed-width plain layout.
func FormatStepPlain(s StepView) string {
	var b strings.Builder
	if s.Folds > 1 {
		fmt.Fprintf(&b, "Fold %d | ", s.Fold)
	}
	fmt.Fprintf(&b, "Input Power %5d%s Δ %4d%s | SCP %2d | ", s.Reading, s.Unit, s.Delta, s.Unit, s.SCP)
	if s.HasTruth {
		fmt.Fprintf(&b, "FS-fscore %.4f | Est.Accuracy %.4f | ", s.FSFscore, s.EstAcc)
	} else {
		b.WriteString("FS-fscore    n/a | Est.Accuracy    n/a | ")
	}
	fmt.Fprintf(&b, "Processing Time %7.3fms", ms(s.Latency))
	if s.Unseen {
		b.WriteString(" | unseen")
	}
	return b.String()
}

func formatStepStyled(s StepView) string {
	var b strings.Builder
	if s.Folds > 1 {
		b.WriteString(Muted.Render(fmt.Sprintf("[%d] ", s.Fold)))
	}
	b.WriteString(Bold.Render(fmt.Sprintf("%5d%s", s.Reading, s.Unit)))
	b.WriteString(Dim.Render(fmt.Sprintf(" Δ %+5d%s", s.Delta, s.Unit)))
	scp := fmt.Sprintf(" SCP %2d", s.SCP)
	if s.SCP > 0 {
		b.WriteString(StepChange.Render(scp))
	} else {
		b.WriteString(Dim.Render(scp))
	}
	if s.HasTruth {
		b.WriteString(fmt.Sprintf("  FS %s  Acc %s", score(s.FSFscore), score(s.EstAcc)))
	}
	b.WriteString(Muted.Render(fmt.Sprintf("  %7.3fms", ms(s.Latency))))
	if s.Unseen {
		b.WriteString(" " + StepUnseen.Render(WarnMark+" unseen"))
	}
	return b.String()
}

// score colours a [0,1] metric by quality band.
func score(v float64) string {
	s := fmt.Sprintf("%.4f", v)
	switch {
	case v >= 0.8:
		return Success.Render(s)
	case v >= 0.5:
		return Warning.Render(s)
	default:
		return Error.Render(s)
	}
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// Step prints one step line.
func (e *EvaluateUI) Step(s StepView) {
	if e.quiet {
		return
	}
	line := FormatStepPlain(s)
	if !e.plain {
		line = formatStepStyled(s)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintln(e.writer, line)
}

// StartFolds shows a live task list for folds. Only used when step lines
// are hidden, since both redraw the same terminal region.
func (e *EvaluateUI) StartFolds(folds int) {
	if e.quiet || e.plain {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workflow = NewWorkflow(e.writer)
	for i := range folds {
		e.tasks[i] = e.workflow.AddTask(fmt.Sprintf("Fold %d/%d", i+1, folds))
	}
	e.workflow.Start()
}

func (e *EvaluateUI) task(fold int) (*Workflow, int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx, ok := e.tasks[fold]
	return e.workflow, idx, ok && e.workflow != nil
}

func (e *EvaluateUI) FoldStarted(fold, steps int) {
	if wf, idx, ok := e.task(fold); ok {
		wf.StartTask(idx, fmt.Sprintf("%d steps", steps))
	}
}

func (e *EvaluateUI) FoldProgress(fold, step, steps int) {
	if wf, idx, ok := e.task(fold); ok {
		wf.UpdateMessage(idx, fmt.Sprintf("step %d/%d", step, steps))
	}
}

func (e *EvaluateUI) FoldDone(v FoldView) {
	if wf, idx, ok := e.task(v.Fold); ok {
		msg := fmt.Sprintf("%d steps in %s", v.Steps, v.Elapsed.Round(time.Millisecond))
		if v.HasTruth {
			msg += fmt.Sprintf(", FS %.4f, Acc %.4f", v.FSFscore, v.EstAcc)
		}
		wf.CompleteTask(idx, msg)
	}
}

func (e *EvaluateUI) FoldFailed(fold int, err error) {
	if wf, idx, ok := e.task(fold); ok {
		wf.FailTask(idx, err.Error())
	}
}

// FinishFolds stops the live task list.
func (e *EvaluateUI) FinishFolds() {
	e.mu.Lock()
	wf := e.workflow
	e.workflow = nil
	e.mu.Unlock()
	if wf != nil {
		wf.Stop()
	}
}

// PrintFold prints the summary of a finished fold.
func (e *EvaluateUI) PrintFold(v FoldView) {
	if e.quiet {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.plain {
		fmt.Fprintf(e.writer, "Fold %d/%d: steps=%d unseen=%d time=%s mean_latency=%.3fms",
			v.Fold+1, v.Folds, v.Steps, v.Unseen, v.Elapsed.Round(time.Millisecond), ms(v.MeanLatency))
		if v.HasTruth {
			fmt.Fprintf(e.writer, " fs_fscore=%.4f est_acc=%.4f", v.FSFscore, v.EstAcc)
		}
		fmt.Fprintln(e.writer)
		return
	}

	var b strings.Builder
	b.WriteString(SectionHeader.Render(fmt.Sprintf("Fold %d/%d", v.Fold+1, v.Folds)))
	b.WriteString("\n\n")
	b.WriteString(FormatKeyValue("Steps", fmt.Sprintf("%d", v.Steps)))
	b.WriteString("\n")
	b.WriteString(FormatKeyValue("Unseen", fmt.Sprintf("%d", v.Unseen)))
	b.WriteString("\n")
	b.WriteString(FormatKeyValue("Test time", v.Elapsed.Round(time.Millisecond).String()))
	b.WriteString("\n")
	b.WriteString(FormatKeyValue("Mean latency", fmt.Sprintf("%.3fms", ms(v.MeanLatency))))
	if v.HasTruth {
		b.WriteString("\n")
		b.WriteString(FormatKeyValue("FS-fscore", score(v.FSFscore)))
		b.WriteString("\n")
		b.WriteString(FormatKeyValue("Est.Accuracy", score(v.EstAcc)))
		if len(v.Labels) > 0 {
			b.WriteString("\n\n")
			b.WriteString(Bold.Render("Per appliance"))
			for _, l := range v.Labels {
				b.WriteString(fmt.Sprintf("\n  %s %-14s FS %s  Acc %s  RMSE %.2f",
					Muted.Render("•"), l.Label, score(l.FSFscore), score(l.EstAcc), l.RMSE))
			}
		}
	}
	fmt.Fprintln(e.writer, Box.Render(b.String()))
}

// PrintSummary prints the overall result of a run.
func (e *EvaluateUI) PrintSummary(v SummaryView) {
	if e.quiet {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.plain {
		fmt.Fprintf(e.writer, "Test time: %s\n", v.Elapsed.Round(time.Millisecond))
		fmt.Fprintf(e.writer, "Average fold time: %s\n", v.AverageFold.Round(time.Millisecond))
		if v.HasTruth {
			fmt.Fprintf(e.writer, "FS-fscore: %.4f\nEst.Accuracy: %.4f\n", v.FSFscore, v.EstAcc)
		}
		return
	}

	var b strings.Builder
	b.WriteString(Success.Bold(true).Render("Evaluation Complete"))
	b.WriteString("\n\n")
	b.WriteString(FormatKeyValue("Algorithm", v.Algorithm))
	b.WriteString("\n")
	b.WriteString(FormatKeyValue("Folds", fmt.Sprintf("%d", v.Folds)))
	b.WriteString("\n")
	b.WriteString(FormatKeyValue("Test time", v.Elapsed.Round(time.Millisecond).String()))
	b.WriteString("\n")
	b.WriteString(FormatKeyValue("Average fold time", v.AverageFold.Round(time.Millisecond).String()))
	if v.HasTruth {
		b.WriteString("\n")
		b.WriteString(FormatKeyValue("FS-fscore", score(v.FSFscore)))
		b.WriteString("\n")
		b.WriteString(FormatKeyValue("Est.Accuracy", score(v.EstAcc)))
	}
	if v.RunID != "" {
		b.WriteString("\n")
		b.WriteString(FormatKeyValue("Run", v.RunID))
	}
	if v.BOMPath != "" {
		b.WriteString("\n")
		b.WriteString(FormatKeyValue("Model card", v.BOMPath))
	}
	fmt.Fprintln(e.writer, SuccessBox.Render(b.String()))
}

// PrintPlainSummary writes machine-readable key=value lines, one per fold
// plus one for the run.
func PrintPlainSummary(w io.Writer, v SummaryView, folds []FoldView) {
	for _, f := range folds {
		fmt.Fprintf(w, "fold=%d steps=%d unseen=%d elapsed_ms=%d", f.Fold, f.Steps, f.Unseen, f.Elapsed.Milliseconds())
		if f.HasTruth {
			fmt.Fprintf(w, " fs_fscore=%.4f est_acc=%.4f", f.FSFscore, f.EstAcc)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "algorithm=%s folds=%d elapsed_ms=%d", v.Algorithm, v.Folds, v.Elapsed.Milliseconds())
	if v.HasTruth {
		fmt.Fprintf(w, " fs_fscore=%.4f est_acc=%.4f", v.FSFscore, v.EstAcc)
	}
	if v.RunID != "" {
		fmt.Fprintf(w, " run=%s", v.RunID)
	}
	fmt.Fprintln(w)
}

// PrintError reports a failure in an error box (plain: one line).
func (e *EvaluateUI) PrintError(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.plain {
		fmt.Fprintf(e.writer, "error: %v\n", err)
		return
	}
	fmt.Fprintln(e.writer, ErrorBox.Render(CrossMark+" "+err.Error()))
}
