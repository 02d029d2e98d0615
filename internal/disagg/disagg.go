// Package disagg defines the disaggregation algorithm capability and the
// registry of built-in strategies.
//
// An Algorithm instance owns its belief state between calls and must not be
// shared between folds; resolve a fresh instance per fold with New.
package disagg

import (
	"slices"
	"sort"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
	"github.com/idlab-discover/nilmeval-cli/internal/sshmm"
)

// Reading is the pair of the two most recent integer-scaled aggregate values.
// The first reading of a stream has Previous == Current.
type Reading struct {
	Previous int
	Current  int
}

// Delta returns Current - Previous.
func (r Reading) Delta() int { return r.Current - r.Previous }

// Result is the outcome of one inference step.
type Result struct {
	// Probability of SuperState in [0,1]; 0 marks an unseen pattern.
	Probability float64
	SuperState  int

	// Snapshot is the posterior over Candidates (same order); diagnostic only.
	Snapshot   *mat.VecDense
	Candidates []int

	// Converged counts candidates that kept a non-zero weight out of Total
	// candidates evaluated.
	Converged int
	Total     int
}

// Unseen reports whether the step produced no usable probability.
func (r Result) Unseen() bool { return r.Probability == 0 }

// Algorithm infers the super-state behind the latest aggregate reading.
// Infer never fails: a degenerate model or an underflowing posterior yields
// Probability 0 and the best available guess.
type Algorithm interface {
	Name() string
	Infer(m *sshmm.Model, r Reading) Result
}

// Factory builds a fresh Algorithm instance.
type Factory func() Algorithm

type entry struct {
	factory     Factory
	description string
}

var (
	registryMu sync.RWMutex
	registry   = map[string]entry{
		"forward": {
			factory:     func() Algorithm { return NewForward() },
			description: "online forward filter over sparse super-state beliefs",
		},
		"viterbi": {
			factory:     func() Algorithm { return NewViterbi() },
			description: "online max-product (Viterbi) tracking of the best super-state",
		},
		"nearest": {
			factory:     func() Algorithm { return NewNearest() },
			description: "stateless: super-state whose estimate is closest to the reading",
		},
	}
)

// Register adds a named strategy. Names are case-insensitive.
func Register(name, description string, f Factory) error {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || f == nil {
		return apperr.Config("algorithm registration needs a name and a factory")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[key]; ok {
		return apperr.Configf("algorithm %q already registered", key)
	}
	registry[key] = entry{factory: f, description: description}
	return nil
}

// New resolves name to a fresh Algorithm instance.
func New(name string) (Algorithm, error) {
	f, err := FactoryFor(name)
	if err != nil {
		return nil, err
	}
	return f(), nil
}

// FactoryFor returns the constructor registered under name.
func FactoryFor(name string) (Factory, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	registryMu.RLock()
	e, ok := registry[key]
	registryMu.RUnlock()
	if !ok {
		return nil, apperr.Configf("unknown algorithm %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return e.factory, nil
}

// Names lists registered strategies in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Describe returns the one-line description of a registered strategy.
func Describe(name string) string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[strings.ToLower(strings.TrimSpace(name))].description
}

func sortedStates(m map[int]float64) []int {
	states := make([]int, 0, len(m))
	for k := range m {
		states = append(states, k)
	}
	slices.Sort(states)
	return states
}
