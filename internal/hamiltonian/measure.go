package hamiltonian

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrNotDiagonal reports an attempt to evaluate a Hamiltonian with X or Y
// operators classically; only I/Z sums have bitstring eigenvalues.
var ErrNotDiagonal = errors.New("hamiltonian is not diagonal")

// EvalBitstring returns the classical energy of a measured bitstring under a
// diagonal Hamiltonian. Character i of the bitstring is the outcome of qubit
// i; '1' corresponds to Z eigenvalue −1. The energy is the real part of the
// coefficient sum weighted by each word's eigenvalue on the bitstring.
func (h *Hamiltonian) EvalBitstring(bitstring string) (float64, error) {
	if len(bitstring) != h.numQubits {
		return 0, fmt.Errorf("bitstring length %d does not match %d qubits", len(bitstring), h.numQubits)
	}

	z := make([]float64, len(bitstring))
	for i := 0; i < len(bitstring); i++ {
		switch bitstring[i] {
		case '0':
			z[i] = 1
		case '1':
			z[i] = -1
		default:
			return 0, fmt.Errorf("bitstring has non-binary character %q at position %d", bitstring[i], i)
		}
	}

	energy := 0.0
	for _, w := range h.order {
		eig := 1.0
		for i := 0; i < len(w); i++ {
			switch w[i] {
			case 'I':
			case 'Z':
				eig *= z[i]
			default:
				return 0, fmt.Errorf("%w: word %q has %q on qubit %d", ErrNotDiagonal, string(w), w[i], i)
			}
		}
		energy += real(h.coeffs[w]) * eig
	}
	return energy, nil
}

// ExpectationFromCounts computes the sample expectation value and standard
// deviation of the diagonal Hamiltonian under a measured counts histogram.
// Each distinct bitstring's classical energy is weighted by its shot count.
func (h *Hamiltonian) ExpectationFromCounts(counts map[string]int) (mean, std float64, err error) {
	if len(counts) == 0 {
		return 0, 0, errors.New("empty counts histogram")
	}

	// Fixed enumeration keeps the floating-point reduction reproducible.
	bitstrings := make([]string, 0, len(counts))
	for b := range counts {
		bitstrings = append(bitstrings, b)
	}
	sort.Strings(bitstrings)

	energies := make([]float64, 0, len(counts))
	weights := make([]float64, 0, len(counts))
	for _, b := range bitstrings {
		shots := counts[b]
		if shots <= 0 {
			return 0, 0, fmt.Errorf("bitstring %q has non-positive count %d", b, shots)
		}
		e, err := h.EvalBitstring(b)
		if err != nil {
			return 0, 0, err
		}
		energies = append(energies, e)
		weights = append(weights, float64(shots))
	}

	mean = stat.Mean(energies, weights)
	std = stat.StdDev(energies, weights)
	return mean, std, nil
}
