package stream

import (
	"io"
	"os"
	"strings"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
)

// Format names a live input encoding.
type Format string

const (
	FormatLines Format = "lines"
	FormatEMU2  Format = "emu2"
)

// ParseFormat accepts "lines" (or "") and "emu2".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatLines:
		return FormatLines, nil
	case FormatEMU2:
		return f, nil
	default:
		return "", apperr.Configf("unknown input format %q (want lines or emu2)", s)
	}
}

// Open opens path (a regular file, a named pipe, a serial device or "-"
// for stdin) and wraps it in the Source for format. The returned closer
// releases the underlying file.
func Open(path string, format Format, precision float64) (Source, io.Closer, error) {
	format, err := ParseFormat(string(format))
	if err != nil {
		return nil, nil, err
	}

	var rc io.ReadCloser
	if path == "-" {
		rc = io.NopCloser(os.Stdin)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		rc = f
	}

	if format == FormatEMU2 {
		logf(path, "reading EMU-2 InstantaneousDemand fragments (precision %g)", precision)
		return NewEMU2Source(rc, precision), rc, nil
	}
	logf(path, "reading one value per line (precision %g)", precision)
	return NewLineSource(rc, precision), rc, nil
}

// OpenTruth opens a ground-truth CSV feed for labels.
func OpenTruth(path string, labels []string, precision float64) (*CSVTruth, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	t, err := NewCSVTruth(f, labels, precision)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	logf(path, "paired ground truth for %d labels", len(labels))
	return t, f, nil
}
