package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// LineSource reads one numeric reading per line. Blank lines and lines
// starting with '#' are skipped.
type LineSource struct {
	sc        *bufio.Scanner
	precision float64
	line      int
	now       func() time.Time
}

func NewLineSource(r io.Reader, precision float64) *LineSource {
	return &LineSource{sc: bufio.NewScanner(r), precision: precision, now: time.Now}
}

func (s *LineSource) Next(ctx context.Context) (Sample, error) {
	for s.sc.Scan() {
		if err := ctx.Err(); err != nil {
			return Sample{}, err
		}
		s.line++
		text := strings.TrimSpace(s.sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Sample{}, fmt.Errorf("line %d: %w", s.line, err)
		}
		n, err := scale(v, s.precision)
		if err != nil {
			return Sample{}, fmt.Errorf("line %d: %w", s.line, err)
		}
		return Sample{Time: s.now(), Value: n}, nil
	}
	if err := s.sc.Err(); err != nil {
		return Sample{}, err
	}
	return Sample{}, io.EOF
}
