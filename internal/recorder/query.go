package recorder

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// RunRow is a recorded run as stored.
type RunRow struct {
	ID        string
	Mode      string
	Algorithm string
	Labels    []string
	Folds     int
	Status    string
	FSFscore  sql.NullFloat64
	EstAcc    sql.NullFloat64
	StepCount int
}

// GetRun loads one run with its step count.
func (s *Store) GetRun(id string) (RunRow, error) {
	var (
		row    RunRow
		labels string
	)
	err := s.db.QueryRow(
		`SELECT r.run_id, r.mode, r.algorithm, r.labels_json, r.folds, r.status, r.fs_fscore, r.est_acc,
		        (SELECT COUNT(*) FROM steps s WHERE s.run_id = r.run_id)
		 FROM runs r WHERE r.run_id = ?`, id,
	).Scan(&row.ID, &row.Mode, &row.Algorithm, &labels, &row.Folds, &row.Status, &row.FSFscore, &row.EstAcc, &row.StepCount)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRow{}, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return RunRow{}, fmt.Errorf("query run: %w", err)
	}
	if err := json.Unmarshal([]byte(labels), &row.Labels); err != nil {
		return RunRow{}, fmt.Errorf("decode labels: %w", err)
	}
	return row, nil
}

// FoldSteps returns how many steps were recorded per fold.
func (s *Store) FoldSteps(id string) (map[int]int, error) {
	rows, err := s.db.Query(`SELECT fold, COUNT(*) FROM steps WHERE run_id = ? GROUP BY fold`, id)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var fold, n int
		if err := rows.Scan(&fold, &n); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out[fold] = n
	}
	return out, rows.Err()
}
