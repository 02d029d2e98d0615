package stream

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// emu2Epoch is the zero of EMU-2 TimeStamp fields.
var emu2Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

type instantaneousDemand struct {
	TimeStamp  string `xml:"TimeStamp"`
	Demand     string `xml:"Demand"`
	Multiplier string `xml:"Multiplier"`
	Divisor    string `xml:"Divisor"`
}

// EMU2Source decodes <InstantaneousDemand> fragments written by a
// Rainforest EMU-2 meter bridge. Other fragments are skipped. Demand is
// reported in kW and converted to W before scaling.
type EMU2Source struct {
	dec       *xml.Decoder
	precision float64
}

func NewEMU2Source(r io.Reader, precision float64) *EMU2Source {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	return &EMU2Source{dec: dec, precision: precision}
}

func (s *EMU2Source) Next(ctx context.Context) (Sample, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Sample{}, err
		}
		tok, err := s.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Sample{}, io.EOF
			}
			return Sample{}, fmt.Errorf("emu2: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "InstantaneousDemand" {
			continue
		}
		var d instantaneousDemand
		if err := s.dec.DecodeElement(&d, &start); err != nil {
			return Sample{}, fmt.Errorf("emu2: %w", err)
		}
		return d.sample(s.precision)
	}
}

func (d instantaneousDemand) sample(precision float64) (Sample, error) {
	demand, err := hexInt(d.Demand, true)
	if err != nil {
		return Sample{}, fmt.Errorf("emu2 demand: %w", err)
	}
	mul, err := hexInt(d.Multiplier, false)
	if err != nil {
		return Sample{}, fmt.Errorf("emu2 multiplier: %w", err)
	}
	div, err := hexInt(d.Divisor, false)
	if err != nil {
		return Sample{}, fmt.Errorf("emu2 divisor: %w", err)
	}
	if mul == 0 {
		mul = 1
	}
	if div == 0 {
		div = 1
	}
	watts := float64(demand) * float64(mul) / float64(div) * 1000

	ts := time.Now()
	if d.TimeStamp != "" {
		if secs, err := hexInt(d.TimeStamp, false); err == nil {
			ts = emu2Epoch.Add(time.Duration(secs) * time.Second)
		}
	}
	n, err := scale(watts, precision)
	if err != nil {
		return Sample{}, fmt.Errorf("emu2 demand: %w", err)
	}
	return Sample{Time: ts, Value: n}, nil
}

// hexInt parses a 0x-prefixed field. Demand is a signed 32-bit value
// (negative while exporting).
func hexInt(s string, signed bool) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return 0, nil
	}
	u, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	if signed {
		return int64(int32(uint32(u))), nil
	}
	return int64(u), nil
}
