// Package recorder persists evaluation runs to SQLite: one row per run,
// per fold summary and per step.
package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/idlab-discover/nilmeval-cli/internal/evaluator"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	started_at   TEXT NOT NULL,
	finished_at  TEXT,
	mode         TEXT NOT NULL,
	algorithm    TEXT NOT NULL,
	model_path   TEXT,
	input_path   TEXT,
	labels_json  TEXT NOT NULL,
	folds        INTEGER NOT NULL,
	metrics_window TEXT NOT NULL,
	fs_fscore    REAL,
	est_acc      REAL,
	elapsed_ms   REAL,
	status       TEXT NOT NULL,
	error        TEXT
);

CREATE TABLE IF NOT EXISTS fold_summaries (
	run_id       TEXT NOT NULL,
	fold         INTEGER NOT NULL,
	steps        INTEGER NOT NULL,
	unseen       INTEGER NOT NULL,
	elapsed_ms   REAL NOT NULL,
	infer_ms     REAL NOT NULL,
	fs_fscore    REAL,
	est_acc      REAL,
	labels_json  TEXT,
	PRIMARY KEY (run_id, fold),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS steps (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id         TEXT NOT NULL,
	fold           INTEGER NOT NULL,
	step           INTEGER NOT NULL,
	ts             INTEGER NOT NULL,
	reading        INTEGER NOT NULL,
	delta          INTEGER NOT NULL,
	scp            INTEGER NOT NULL,
	unseen         INTEGER NOT NULL,
	probability    REAL NOT NULL,
	super_state    INTEGER NOT NULL,
	noise          REAL,
	fs_fscore      REAL,
	est_acc        REAL,
	latency_us     REAL NOT NULL,
	estimated_json TEXT NOT NULL,
	truth_json     TEXT,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS steps_run_fold ON steps(run_id, fold, step);
`

// flushEvery bounds how many steps are buffered before a write.
const flushEvery = 256

// Store manages recorded runs in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunInfo describes a run when it starts.
type RunInfo struct {
	Mode      string // "evaluate" or "realtime"
	Algorithm string
	ModelPath string
	InputPath string
	Labels    []string
	Folds     int
	Window    string
}

// Run buffers the steps of one run. Its methods are safe for concurrent use.
type Run struct {
	ID string

	store   *Store
	mu      sync.Mutex
	pending []evaluator.StepRecord
	err     error
}

// BeginRun inserts a run row and returns its recorder.
func (s *Store) BeginRun(info RunInfo) (*Run, error) {
	id := uuid.New().String()
	labels, err := json.Marshal(info.Labels)
	if err != nil {
		return nil, fmt.Errorf("marshal labels: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, started_at, mode, algorithm, model_path, input_path, labels_json, folds, metrics_window, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'running')`,
		id, time.Now().UTC().Format(time.RFC3339Nano), info.Mode, info.Algorithm,
		info.ModelPath, info.InputPath, string(labels), info.Folds, info.Window,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	logf(id, "recording %s run (%s, %d fold(s))", info.Mode, info.Algorithm, info.Folds)
	return &Run{ID: id, store: s}, nil
}

// RecordStep buffers one step; it fits evaluator.Options.OnStep. Write
// errors are kept and returned by Flush and Finish.
func (r *Run) RecordStep(rec evaluator.StepRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, rec)
	if len(r.pending) >= flushEvery {
		r.flushLocked()
	}
}

// Flush writes buffered steps.
func (r *Run) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked()
	return r.err
}

func (r *Run) flushLocked() {
	if len(r.pending) == 0 || r.err != nil {
		return
	}
	if err := r.store.insertSteps(r.ID, r.pending); err != nil {
		r.err = err
		logf(r.ID, "step write failed: %v", err)
	}
	r.pending = r.pending[:0]
}

// RecordFold writes a fold summary.
func (r *Run) RecordFold(f evaluator.FoldSummary) error {
	labels, err := json.Marshal(f.Labels)
	if err != nil {
		return fmt.Errorf("marshal label metrics: %w", err)
	}
	var fs, ea any
	if f.HasTruth {
		fs, ea = f.Metrics.FSFscore, f.Metrics.EstAcc
	}
	_, err = r.store.db.Exec(
		`INSERT INTO fold_summaries (run_id, fold, steps, unseen, elapsed_ms, infer_ms, fs_fscore, est_acc, labels_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, fold) DO UPDATE SET
		   steps = excluded.steps, unseen = excluded.unseen, elapsed_ms = excluded.elapsed_ms,
		   infer_ms = excluded.infer_ms, fs_fscore = excluded.fs_fscore, est_acc = excluded.est_acc,
		   labels_json = excluded.labels_json`,
		r.ID, f.Fold, f.Steps, f.Unseen, ms(f.Elapsed), ms(f.InferTime), fs, ea, string(labels),
	)
	if err != nil {
		return fmt.Errorf("insert fold summary: %w", err)
	}
	return nil
}

// Finish flushes pending steps and closes the run row. runErr marks the
// run failed.
func (r *Run) Finish(sum evaluator.Summary, runErr error) error {
	if err := r.Flush(); err != nil {
		return err
	}
	status, msg := "done", ""
	if runErr != nil {
		status, msg = "failed", runErr.Error()
	}
	_, err := r.store.db.Exec(
		`UPDATE runs SET finished_at = ?, fs_fscore = ?, est_acc = ?, elapsed_ms = ?, status = ?, error = ?
		 WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), sum.FSFscore, sum.EstAcc, ms(sum.Elapsed), status, msg, r.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	logf(r.ID, "run %s", status)
	return nil
}

func (s *Store) insertSteps(runID string, recs []evaluator.StepRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO steps (run_id, fold, step, ts, reading, delta, scp, unseen, probability, super_state,
		                    noise, fs_fscore, est_acc, latency_us, estimated_json, truth_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		est, err := json.Marshal(rec.Estimated)
		if err != nil {
			return fmt.Errorf("marshal estimate: %w", err)
		}
		var noise, fs, ea, truth any
		if rec.HasTruth {
			t, err := json.Marshal(rec.Truth)
			if err != nil {
				return fmt.Errorf("marshal truth: %w", err)
			}
			noise, fs, ea, truth = rec.Noise, rec.FSFscore, rec.EstAcc, string(t)
		}
		_, err = stmt.Exec(runID, rec.Fold, rec.Step, rec.Timestamp, rec.Reading, rec.Delta, rec.SCP,
			boolInt(rec.Unseen), rec.Probability, rec.SuperState, noise, fs, ea,
			float64(rec.Latency.Nanoseconds())/1e3, string(est), truth)
		if err != nil {
			return fmt.Errorf("insert step: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1e3 }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
