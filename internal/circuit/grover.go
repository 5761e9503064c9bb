package circuit

import (
	"fmt"
	"math"
)

// MarkedBits expands a marked item into per-qubit bits, qubit 0 first: bit i
// of the returned slice is the i-th least significant bit of marked. The
// ordering matches the Pauli-word and bitstring convention used elsewhere,
// where position i always refers to qubit i.
func MarkedBits(marked uint64, numQubits int) []int {
	bits := make([]int, numQubits)
	for i := 0; i < numQubits; i++ {
		bits[i] = int(marked >> i & 1)
	}
	return bits
}

// Oracle appends a phase oracle flipping the sign of the marked bit pattern:
// qubits whose marked bit is zero are conjugated with X around a
// multi-controlled Z on the last qubit.
func Oracle(p *Program, markedBits []int) {
	for q, bit := range markedBits {
		if bit == 0 {
			p.X(q)
		}
	}
	controls := make([]int, p.NumQubits-1)
	for q := range controls {
		controls[q] = q
	}
	p.CZ(controls, p.NumQubits-1)
	for q, bit := range markedBits {
		if bit == 0 {
			p.X(q)
		}
	}
}

// Diffusion appends the inversion-about-mean operator: H and X on every
// qubit around a multi-controlled Z, then X and H again.
func Diffusion(p *Program) {
	p.HAll()
	for q := 0; q < p.NumQubits; q++ {
		p.X(q)
	}
	controls := make([]int, p.NumQubits-1)
	for q := range controls {
		controls[q] = q
	}
	p.CZ(controls, p.NumQubits-1)
	for q := 0; q < p.NumQubits; q++ {
		p.X(q)
	}
	p.HAll()
}

// Search builds a full Grover program for one marked item: uniform
// superposition, then the oracle/diffusion pair for the given number of
// iterations, then measurement of the whole register.
func Search(numQubits int, marked uint64, iterations int) (*Program, error) {
	if numQubits < 2 {
		return nil, fmt.Errorf("grover search needs at least 2 qubits, got %d", numQubits)
	}
	if numQubits < 64 && marked >= 1<<uint(numQubits) {
		return nil, fmt.Errorf("marked item %d does not fit in %d qubits", marked, numQubits)
	}
	if iterations < 1 {
		return nil, fmt.Errorf("iteration count must be positive, got %d", iterations)
	}

	bits := MarkedBits(marked, numQubits)
	p := New(numQubits)
	p.HAll()
	for i := 0; i < iterations; i++ {
		Oracle(p, bits)
		Diffusion(p)
	}
	p.MeasureAll()
	return p, nil
}

// OptimalIterations returns the oracle application count maximizing the
// success probability for a single marked item among 2^numQubits states,
// ⌊π/4·√(2^n)⌋.
func OptimalIterations(numQubits int) int {
	n := math.Exp2(float64(numQubits))
	return int(math.Floor(math.Pi / 4 * math.Sqrt(n)))
}
