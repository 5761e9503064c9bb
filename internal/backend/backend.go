// Package backend connects docking optimization to external quantum
// execution services. The expectation values driving the optimizer and the
// measured histograms interpreting its result are produced remotely; nothing
// in this package simulates state evolution. Backends register under a name
// and are picked per job, either explicitly or by register capacity.
package backend

import (
	"context"
	"sort"
	"sync"

	"github.com/copyleftdev/QDOCK/internal/errors"
	"github.com/copyleftdev/QDOCK/internal/qaoa"
)

// Backend is one quantum execution service. Observe is the expectation
// evaluator the optimization loop calls serially; Sample measures the
// optimized ansatz for result interpretation.
type Backend interface {
	qaoa.Evaluator

	// Name identifies the backend within a registry.
	Name() string
	// MaxQubits is the widest register the backend accepts.
	MaxQubits() int
	// IsSimulator reports whether the backend simulates rather than runs
	// on hardware.
	IsSimulator() bool
	// Sample executes the measured ansatz at the given parameters and
	// returns the histogram of shots computational-basis measurements.
	Sample(ctx context.Context, ansatz *qaoa.Ansatz, params []float64, shots int) (Counts, error)
}

// Counts is a histogram of measured bitstrings. Keys follow the register
// convention used everywhere else: character i of a bitstring is the
// outcome of qubit i.
type Counts map[string]int

// Shots returns the total number of measurements in the histogram.
func (c Counts) Shots() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Outcome pairs a measured bitstring with its count.
type Outcome struct {
	Bitstring string `json:"bitstring"`
	Count     int    `json:"count"`
}

// Top returns the k most frequent outcomes, most frequent first. Ties break
// toward the lexicographically smaller bitstring so the order is
// deterministic. k beyond the histogram size returns every outcome.
func (c Counts) Top(k int) []Outcome {
	if k <= 0 {
		return nil
	}
	outcomes := make([]Outcome, 0, len(c))
	for b, n := range c {
		outcomes = append(outcomes, Outcome{Bitstring: b, Count: n})
	}
	sort.Slice(outcomes, func(i, j int) bool {
		if outcomes[i].Count != outcomes[j].Count {
			return outcomes[i].Count > outcomes[j].Count
		}
		return outcomes[i].Bitstring < outcomes[j].Bitstring
	})
	if k < len(outcomes) {
		outcomes = outcomes[:k]
	}
	return outcomes
}

// Registry holds the configured backends for a process. Registration
// happens at startup; reads happen while jobs run.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry returns an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds a backend under its name. Registering a nil backend, an
// empty name, or a name already taken is an error: backends are referenced
// by name from job requests and must not change silently.
func (r *Registry) Register(b Backend) error {
	if b == nil {
		return errors.New("cannot register a nil backend").WithComponent("backend")
	}
	name := b.Name()
	if name == "" {
		return errors.New("cannot register a backend without a name").WithComponent("backend")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.backends[name]; taken {
		return errors.Errorf("backend %q is already registered", name).WithComponent("backend")
	}
	r.backends[name] = b
	return nil
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	return b, ok
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select picks a backend able to hold numQubits qubits. Among adequate
// backends the tightest capacity wins, keeping wide simulators free for
// wide registers; capacity ties break toward the lexicographically smaller
// name so selection is deterministic.
func (r *Registry) Select(numQubits int) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Backend
	for _, b := range r.backends {
		if b.MaxQubits() < numQubits {
			continue
		}
		switch {
		case best == nil:
			best = b
		case b.MaxQubits() < best.MaxQubits():
			best = b
		case b.MaxQubits() == best.MaxQubits() && b.Name() < best.Name():
			best = b
		}
	}
	if best == nil {
		return nil, errors.Errorf("no registered backend fits %d qubits", numQubits).
			WithOperation("Registry.Select").WithComponent("backend")
	}
	return best, nil
}
