// Package stream produces live aggregate readings from a line-oriented file,
// a serial device or an EMU-2 smart meter feed.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// Sample is one integer-scaled aggregate reading.
type Sample struct {
	Time  time.Time
	Value int
}

// Source yields samples until it returns io.EOF.
type Source interface {
	Next(ctx context.Context) (Sample, error)
}

// Item is what Produce delivers: a sample or the error that ended the feed.
type Item struct {
	Sample Sample
	Err    error
}

// Produce reads src on its own goroutine and delivers samples over the
// returned channel, pacing reads by interval when it is positive. The
// channel is closed at end of input, on cancellation, or after delivering
// a read error. End of input itself is not delivered.
func Produce(ctx context.Context, src Source, interval time.Duration) <-chan Item {
	out := make(chan Item)
	go func() {
		defer close(out)

		var tick <-chan time.Time
		if interval > 0 {
			t := time.NewTicker(interval)
			defer t.Stop()
			tick = t.C
		}

		for first := true; ; first = false {
			if !first && tick != nil {
				select {
				case <-ctx.Done():
					return
				case <-tick:
				}
			}

			s, err := src.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			item := Item{Sample: s, Err: err}
			select {
			case <-ctx.Done():
				return
			case out <- item:
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

// maxReading bounds scaled readings so the int conversion stays exact.
const maxReading = 1 << 53

// scale converts a raw reading to the model's integer units. Non-finite
// readings and readings too large for an int are rejected.
func scale(v, precision float64) (int, error) {
	if precision == 0 {
		precision = 1
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite reading %v", v)
	}
	x := math.Trunc(math.Round(v*precision*1e6) / 1e6)
	if math.IsNaN(x) || math.Abs(x) > maxReading {
		return 0, fmt.Errorf("reading %v out of range", v)
	}
	return int(x), nil
}
