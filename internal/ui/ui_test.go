package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestColorAppliesANSICodes(t *testing.T) {
	got := Color("hello", FgGreen)
	if want := FgGreen + "hello" + Reset; got != want {
		t.Fatalf("Color() = %q, want %q", got, want)
	}
}

func TestFormatStepPlain(t *testing.T) {
	tests := []struct {
		name string
		step StepView
		want string
	}{
		{
			name: "with truth",
			step: StepView{Reading: 150, Delta: 50, Unit: "W", SCP: 2, HasTruth: true, FSFscore: 1, EstAcc: 0.95, Latency: 1500 * time.Microsecond},
			want: "Input Power   150W Δ   50W | SCP  2 | FS-fscore 1.0000 | Est.Accuracy 0.9500 | Processing Time   1.500ms",
		},
		{
			name: "without truth",
			step: StepView{Reading: 90, Delta: -10, Unit: "A"},
			want: "Input Power    90A Δ  -10A | SCP  0 | FS-fscore    n/a | Est.Accuracy    n/a | Processing Time   0.000ms",
		},
		{
			name: "multi fold unseen",
			step: StepView{Fold: 1, Folds: 3, Reading: 7, Unit: "W", Unseen: true},
			want: "Fold 1 | Input Power     7W Δ    0W | SCP  0 | FS-fscore    n/a | Est.Accuracy    n/a | Processing Time   0.000ms | unseen",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatStepPlain(tt.step); got != tt.want {
				t.Fatalf("FormatStepPlain()\n got %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestEvaluateUI_Quiet(t *testing.T) {
	var buf bytes.Buffer
	e := NewEvaluateUI(&buf, true, false)
	e.Step(StepView{Reading: 1})
	e.PrintFold(FoldView{Folds: 1})
	e.PrintSummary(SummaryView{})
	if buf.Len() != 0 {
		t.Fatalf("quiet UI wrote %q", buf.String())
	}
}

func TestEvaluateUI_PlainFoldAndSummary(t *testing.T) {
	var buf bytes.Buffer
	e := NewEvaluateUI(&buf, false, true)
	e.PrintFold(FoldView{Fold: 0, Folds: 2, Steps: 10, Unseen: 1, HasTruth: true, FSFscore: 0.5, EstAcc: 0.25})
	e.PrintSummary(SummaryView{HasTruth: true, FSFscore: 0.5, EstAcc: 0.25, Elapsed: 2 * time.Second})
	out := buf.String()
	for _, want := range []string{"Fold 1/2: steps=10 unseen=1", "fs_fscore=0.5000 est_acc=0.2500", "Test time: 2s", "FS-fscore: 0.5000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEvaluateUI_StyledBoxes(t *testing.T) {
	var buf bytes.Buffer
	e := NewEvaluateUI(&buf, false, false)
	e.PrintFold(FoldView{Fold: 1, Folds: 2, Steps: 4, HasTruth: true, Labels: []LabelView{{Label: "fridge", RMSE: 1.5}}})
	e.PrintSummary(SummaryView{Algorithm: "viterbi", Folds: 2, RunID: "abc", BOMPath: "card.json"})
	out := buf.String()
	for _, want := range []string{"Fold 2/2", "fridge", "RMSE 1.50", "Evaluation Complete", "viterbi", "abc", "card.json"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintPlainSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintPlainSummary(&buf,
		SummaryView{Algorithm: "forward", Folds: 2, HasTruth: true, FSFscore: 1, EstAcc: 1, RunID: "r1"},
		[]FoldView{{Fold: 0, Steps: 3, HasTruth: true, FSFscore: 1, EstAcc: 1}, {Fold: 1, Steps: 2}},
	)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if lines[1] != "fold=1 steps=2 unseen=0 elapsed_ms=0" {
		t.Errorf("fold line = %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "fs_fscore=1.0000 est_acc=1.0000 run=r1") {
		t.Errorf("run line = %q", lines[2])
	}
}

func TestEvaluateUI_PrintErrorPlain(t *testing.T) {
	var buf bytes.Buffer
	NewEvaluateUI(&buf, false, true).PrintError(errors.New("boom"))
	if buf.String() != "error: boom\n" {
		t.Fatalf("PrintError = %q", buf.String())
	}
}

func TestWorkflow_TaskTransitions(t *testing.T) {
	var buf bytes.Buffer
	wf := NewWorkflow(&buf)
	a := wf.AddTask("Fold 1/2")
	b := wf.AddTask("Fold 2/2")
	wf.StartTask(a, "running")
	wf.CompleteTask(a, "done")
	wf.FailTask(b, "bad input")
	wf.UpdateMessage(99, "ignored")
	wf.Stop()
	wf.Stop()

	tasks := wf.Tasks()
	if tasks[a].Status != TaskDone || tasks[b].Status != TaskFailed {
		t.Fatalf("statuses = %v, %v", tasks[a].Status, tasks[b].Status)
	}
	out := buf.String()
	if !strings.Contains(out, "→ done") || !strings.Contains(out, "→ bad input") {
		t.Fatalf("final render missing messages:\n%s", out)
	}
}

func TestEvaluateUI_FoldWorkflow(t *testing.T) {
	var buf bytes.Buffer
	e := NewEvaluateUI(&buf, false, false)
	e.StartFolds(2)
	e.FoldStarted(0, 5)
	e.FoldProgress(0, 3, 5)
	e.FoldDone(FoldView{Fold: 0, Steps: 5, HasTruth: true, FSFscore: 1, EstAcc: 1})
	e.FoldFailed(1, errors.New("broken fold"))
	e.FinishFolds()

	out := buf.String()
	if !strings.Contains(out, "5 steps") || !strings.Contains(out, "broken fold") {
		t.Fatalf("workflow output:\n%s", out)
	}
}

func TestAlgorithmOptions(t *testing.T) {
	opts := algorithmOptions([]AlgorithmChoice{{Name: "forward", Description: "filter"}, {Name: "nearest"}})
	if len(opts) != 2 {
		t.Fatalf("got %d options", len(opts))
	}
	if opts[0].Value != "forward" || opts[1].Value != "nearest" {
		t.Fatalf("values = %q, %q", opts[0].Value, opts[1].Value)
	}
	if !strings.Contains(opts[0].Key, "filter") {
		t.Fatalf("description missing from %q", opts[0].Key)
	}
}

func TestSelectAlgorithm_Empty(t *testing.T) {
	if _, err := SelectAlgorithm(nil, ""); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
