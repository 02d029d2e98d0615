package sshmm

import (
	"slices"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
)

// Set holds one Model per cross-validation fold. Folds are never mixed:
// fold i of an evaluation always runs against Fold(i).
type Set struct {
	folds []*Model
}

// NewSet builds every fold and checks they agree on label order.
func NewSet(records []Record) (*Set, error) {
	if len(records) == 0 {
		return nil, apperr.Config("model contains no folds")
	}
	s := &Set{folds: make([]*Model, 0, len(records))}
	for i, rec := range records {
		m, err := FromRecord(rec)
		if err != nil {
			return nil, apperr.Configf("fold %d: %v", i, err)
		}
		if i > 0 && !slices.Equal(m.labels, s.folds[0].labels) {
			return nil, apperr.Configf("fold %d labels %v differ from fold 0 labels %v", i, m.labels, s.folds[0].labels)
		}
		s.folds = append(s.folds, m)
	}
	logf("", "loaded %d fold(s), labels=%v", len(s.folds), s.folds[0].labels)
	return s, nil
}

// Len returns the number of folds the model was trained with.
func (s *Set) Len() int { return len(s.folds) }

// Fold returns the model of fold i.
func (s *Set) Fold(i int) (*Model, error) {
	if i < 0 || i >= len(s.folds) {
		return nil, apperr.Domainf("fold %d outside [0,%d)", i, len(s.folds))
	}
	return s.folds[i], nil
}

// Single returns the only fold. Using a multi-fold model where a single
// fold is required is a configuration error, never a silent truncation.
func (s *Set) Single() (*Model, error) {
	if len(s.folds) != 1 {
		return nil, apperr.Configf("model was trained for %d-fold cross-validation; use a single fold model", len(s.folds))
	}
	return s.folds[0], nil
}

// Labels returns the label order shared by every fold.
func (s *Set) Labels() []string { return s.folds[0].Labels() }

// Records returns the persisted form of every fold.
func (s *Set) Records() []Record {
	out := make([]Record, len(s.folds))
	for i, m := range s.folds {
		out[i] = m.Record()
	}
	return out
}
