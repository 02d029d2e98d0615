package stream

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
)

// TruthSource yields one ground-truth row per reading, in label order.
type TruthSource interface {
	Next() ([]float64, error)
}

// CSVTruth reads ground truth from a CSV file with a header naming every
// label. Extra columns are ignored.
type CSVTruth struct {
	r         *csv.Reader
	cols      []int
	precision float64
	line      int
}

func NewCSVTruth(r io.Reader, labels []string, precision float64) (*CSVTruth, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperr.Config("truth feed is empty")
		}
		return nil, fmt.Errorf("truth header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	cols := make([]int, len(labels))
	for i, l := range labels {
		c := slices.Index(header, l)
		if c < 0 {
			return nil, apperr.Configf("truth feed has no column for label %q", l)
		}
		cols[i] = c
	}
	return &CSVTruth{r: cr, cols: cols, precision: precision, line: 1}, nil
}

func (t *CSVTruth) Next() ([]float64, error) {
	rec, err := t.r.Read()
	if err != nil {
		return nil, err
	}
	t.line++
	row := make([]float64, len(t.cols))
	for i, c := range t.cols {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[c]), 64)
		if err != nil {
			return nil, fmt.Errorf("truth line %d: %w", t.line, err)
		}
		n, err := scale(v, t.precision)
		if err != nil {
			return nil, fmt.Errorf("truth line %d: %w", t.line, err)
		}
		row[i] = float64(n)
	}
	return row, nil
}
