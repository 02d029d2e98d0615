// Package folding splits a dataset into K contiguous cross-validation folds.
package folding

import (
	"iter"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
	"github.com/idlab-discover/nilmeval-cli/internal/dataset"
)

// Fold is one cross-validation split. Priors is every row outside Testing,
// in original order; it is empty when there is a single fold.
type Fold struct {
	Index   int
	Priors  *dataset.Table
	Testing *dataset.Table
}

type Folding struct {
	table  *dataset.Table
	bounds []int
}

// New plans k deterministic folds over table. The first len%k segments are
// one row longer than the rest.
func New(table *dataset.Table, k int) (*Folding, error) {
	n := table.Len()
	if k < 1 {
		return nil, apperr.Configf("fold count %d must be at least 1", k)
	}
	if k > n {
		return nil, apperr.Configf("fold count %d exceeds the %d rows of the dataset", k, n)
	}

	bounds := make([]int, k+1)
	size, extra := n/k, n%k
	for i := range k {
		bounds[i+1] = bounds[i] + size
		if i < extra {
			bounds[i+1]++
		}
	}
	return &Folding{table: table, bounds: bounds}, nil
}

func (f *Folding) Count() int { return len(f.bounds) - 1 }

// Bounds returns the [lo,hi) row range tested by fold i.
func (f *Folding) Bounds(i int) (lo, hi int) { return f.bounds[i], f.bounds[i+1] }

// Fold materialises fold i.
func (f *Folding) Fold(i int) Fold {
	lo, hi := f.Bounds(i)
	fold := Fold{Index: i, Testing: f.table.Slice(lo, hi)}
	if f.Count() == 1 {
		fold.Priors = f.table.Slice(0, 0)
	} else {
		fold.Priors = f.table.Exclude(lo, hi)
	}
	return fold
}

// Folds yields every fold in index order. Priors are only copied when a
// fold is reached.
func (f *Folding) Folds() iter.Seq[Fold] {
	return func(yield func(Fold) bool) {
		for i := range f.Count() {
			if !yield(f.Fold(i)) {
				return
			}
		}
	}
}
