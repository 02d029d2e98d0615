package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
)

// Options select and scale the columns of a CSV dataset.
type Options struct {
	// Labels are the appliance columns, in model label order.
	Labels []string
	// Precision multiplies every value before truncation (e.g. 10 turns A into dA).
	Precision float64
	// Denoised replaces the aggregate with the sum of the label columns.
	Denoised bool
	// ObservationColumn names the aggregate column. Empty picks the first
	// column that is neither the timestamp nor a label.
	ObservationColumn string
	// TimestampColumn names the time column. Empty picks the first column.
	TimestampColumn string
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// LoadCSV reads a dataset file.
func LoadCSV(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	logf("", "loaded %s: %d rows, observation=%q, labels=%v", path, t.Len(), t.ObservationName, t.Labels)
	return t, nil
}

// ReadCSV parses a dataset with a header row.
func ReadCSV(r io.Reader, opts Options) (*Table, error) {
	if len(opts.Labels) == 0 {
		return nil, apperr.Config("dataset needs at least one label column")
	}
	precision := opts.Precision
	if precision == 0 {
		precision = 1
	}
	if precision < 0 || math.IsNaN(precision) || math.IsInf(precision, 0) {
		return nil, apperr.Configf("precision %v must be a positive number", opts.Precision)
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperr.Config("dataset is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	tsCol := 0
	if opts.TimestampColumn != "" {
		if tsCol = slices.Index(header, opts.TimestampColumn); tsCol < 0 {
			return nil, apperr.Configf("timestamp column %q not found", opts.TimestampColumn)
		}
	}

	labelCols := make([]int, len(opts.Labels))
	for i, l := range opts.Labels {
		c := slices.Index(header, l)
		if c < 0 {
			return nil, apperr.Configf("label column %q not found in dataset header", l)
		}
		labelCols[i] = c
	}

	obsCol := -1
	if opts.ObservationColumn != "" {
		if obsCol = slices.Index(header, opts.ObservationColumn); obsCol < 0 {
			return nil, apperr.Configf("observation column %q not found", opts.ObservationColumn)
		}
	} else {
		for c := range header {
			if c != tsCol && !slices.Contains(labelCols, c) {
				obsCol = c
				break
			}
		}
		if obsCol < 0 && !opts.Denoised {
			return nil, apperr.Config("dataset has no aggregate observation column")
		}
	}

	var (
		timestamps []int64
		obs        []int
		truth      [][]float64
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := parseTimestamp(rec[tsCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := make([]float64, len(labelCols))
		for i, c := range labelCols {
			v, err := scaled(rec[c], precision)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, header[c], err)
			}
			row[i] = float64(v)
		}
		o := 0
		if obsCol >= 0 {
			if o, err = scaled(rec[obsCol], precision); err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, header[obsCol], err)
			}
		}

		timestamps = append(timestamps, ts)
		obs = append(obs, o)
		truth = append(truth, row)
	}

	t, err := NewTable(opts.Labels, timestamps, obs, truth)
	if err != nil {
		return nil, err
	}
	if obsCol >= 0 {
		t.ObservationName = header[obsCol]
	}
	if opts.Denoised {
		t.Denoise()
		t.ObservationName = "denoised"
	}
	if n := irregular(timestamps); n > 0 {
		logf("", "irregular sampling: %d of %d intervals differ from the first", n, len(timestamps)-1)
	}
	return t, nil
}

// maxScaled bounds scaled values so the int conversion stays exact.
const maxScaled = 1 << 53

func scaled(s string, precision float64) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	// Round away float noise before truncating (0.57*100 must stay 57).
	x := math.Trunc(math.Round(v*precision*1e6) / 1e6)
	if math.IsNaN(x) || math.Abs(x) > maxScaled {
		return 0, fmt.Errorf("value %q out of range", s)
	}
	return int(x), nil
}

func parseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), nil
	}
	for _, layout := range timeLayouts {
		if tm, err := time.Parse(layout, s); err == nil {
			return tm.Unix(), nil
		}
	}
	return 0, fmt.Errorf("unrecognised timestamp %q", s)
}

// irregular counts sampling intervals that differ from the first one.
func irregular(ts []int64) int {
	if len(ts) < 3 {
		return 0
	}
	step := ts[1] - ts[0]
	n := 0
	for i := 2; i < len(ts); i++ {
		if ts[i]-ts[i-1] != step {
			n++
		}
	}
	return n
}
