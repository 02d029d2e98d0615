package recorder

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/idlab-discover/nilmeval-cli/internal/accuracy"
	"github.com/idlab-discover/nilmeval-cli/internal/evaluator"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordRun(t *testing.T) {
	s := tempDB(t)
	run, err := s.BeginRun(RunInfo{
		Mode:      "evaluate",
		Algorithm: "forward",
		Labels:    []string{"fridge", "heater"},
		Folds:     2,
		Window:    "cumulative",
	})
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected non-empty run ID")
	}

	for fold := range 2 {
		for i := 1; i <= flushEvery+3; i++ {
			run.RecordStep(evaluator.StepRecord{
				Fold:      fold,
				Step:      i,
				Timestamp: int64(i),
				Reading:   150,
				Latency:   time.Millisecond,
				Estimated: []float64{80, 70},
				Truth:     []float64{80, 70},
				HasTruth:  fold == 0,
			})
		}
		err := run.RecordFold(evaluator.FoldSummary{
			Fold:     fold,
			Steps:    flushEvery + 3,
			HasTruth: fold == 0,
			Metrics:  accuracy.Metrics{FSFscore: 1, EstAcc: 1, Steps: flushEvery + 3},
			Labels:   []accuracy.LabelMetrics{{Label: "fridge", FSFscore: 1}},
		})
		if err != nil {
			t.Fatalf("RecordFold: %v", err)
		}
	}

	if err := run.Finish(evaluator.Summary{FSFscore: 0.5, EstAcc: 0.75}, nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	row, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if row.Status != "done" || row.Algorithm != "forward" || len(row.Labels) != 2 {
		t.Fatalf("unexpected run row: %+v", row)
	}
	if row.StepCount != 2*(flushEvery+3) {
		t.Fatalf("expected %d steps, got %d", 2*(flushEvery+3), row.StepCount)
	}
	if !row.FSFscore.Valid || row.FSFscore.Float64 != 0.5 {
		t.Fatalf("unexpected fs-fscore %+v", row.FSFscore)
	}

	per, err := s.FoldSteps(run.ID)
	if err != nil {
		t.Fatalf("FoldSteps: %v", err)
	}
	if per[0] != flushEvery+3 || per[1] != flushEvery+3 {
		t.Fatalf("unexpected per-fold counts: %v", per)
	}
}

func TestFinishFailed(t *testing.T) {
	s := tempDB(t)
	run, err := s.BeginRun(RunInfo{Mode: "realtime", Algorithm: "nearest", Labels: []string{"a"}, Folds: 1})
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := run.Finish(evaluator.Summary{}, errors.New("boom")); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	row, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if row.Status != "failed" {
		t.Fatalf("expected failed status, got %q", row.Status)
	}
}

func TestGetRun_Missing(t *testing.T) {
	s := tempDB(t)
	if _, err := s.GetRun("nope"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}
