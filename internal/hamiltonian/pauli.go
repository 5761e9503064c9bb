// Package hamiltonian builds Pauli-operator sums for docking objectives.
//
// A Hamiltonian is an accumulating map from Pauli words to complex
// coefficients: adding the same word twice merges coefficients instead of
// overwriting, so every distinct per-qubit operator assignment owns exactly
// one entry. Construction order is remembered and drives the flattened
// representation handed to circuit evaluators.
package hamiltonian

import (
	"fmt"
	"strings"
)

// A Word is a tensor product of single-qubit Pauli operators rendered as a
// fixed-length string over the alphabet {I, X, Y, Z}. Character i, counting
// from the left, acts on qubit i. The same convention orders measured
// bitstrings: character i of a bitstring is the outcome of qubit i.
type Word string

// Identity returns the all-identity word on n qubits.
func Identity(n int) Word {
	return Word(strings.Repeat("I", n))
}

// SingleZ returns the n-qubit word with Z on qubit i and identity elsewhere.
func SingleZ(n, i int) Word {
	b := []byte(strings.Repeat("I", n))
	b[i] = 'Z'
	return Word(b)
}

// DoubleZ returns the n-qubit word with Z on qubits i and j.
func DoubleZ(n, i, j int) Word {
	b := []byte(strings.Repeat("I", n))
	b[i] = 'Z'
	b[j] = 'Z'
	return Word(b)
}

// Validate checks that the word has one operator per qubit and stays within
// the Pauli alphabet.
func (w Word) Validate(numQubits int) error {
	if len(w) != numQubits {
		return fmt.Errorf("pauli word %q has %d characters, want %d", string(w), len(w), numQubits)
	}
	for i := 0; i < len(w); i++ {
		switch w[i] {
		case 'I', 'X', 'Y', 'Z':
		default:
			return fmt.Errorf("pauli word %q has invalid operator %q at qubit %d", string(w), w[i], i)
		}
	}
	return nil
}

// Diagonal reports whether the word is diagonal in the computational basis,
// i.e. contains only I and Z operators.
func (w Word) Diagonal() bool {
	for i := 0; i < len(w); i++ {
		if w[i] != 'I' && w[i] != 'Z' {
			return false
		}
	}
	return true
}

// Support returns the qubit indices carrying a non-identity operator.
func (w Word) Support() []int {
	var qubits []int
	for i := 0; i < len(w); i++ {
		if w[i] != 'I' {
			qubits = append(qubits, i)
		}
	}
	return qubits
}

// Hamiltonian is a weighted sum of Pauli words built additively. The zero
// value is not usable; create instances with New.
type Hamiltonian struct {
	numQubits int
	coeffs    map[Word]complex128
	order     []Word
}

// New returns an empty Hamiltonian over numQubits qubits.
func New(numQubits int) *Hamiltonian {
	return &Hamiltonian{
		numQubits: numQubits,
		coeffs:    make(map[Word]complex128),
	}
}

// NumQubits returns the register width every word in the sum spans.
func (h *Hamiltonian) NumQubits() int { return h.numQubits }

// Len returns the number of distinct Pauli words in the sum. Words whose
// contributions cancel to zero still count: entry presence follows
// construction, not coefficient value.
func (h *Hamiltonian) Len() int { return len(h.order) }

// Add accumulates coeff onto the word's entry, creating the entry on first
// sight. The word must span exactly NumQubits qubits; constructors such as
// Identity, SingleZ and DoubleZ guarantee that.
func (h *Hamiltonian) Add(w Word, coeff complex128) {
	if _, ok := h.coeffs[w]; !ok {
		h.order = append(h.order, w)
	}
	h.coeffs[w] += coeff
}

// Coefficient returns the accumulated coefficient of a word, or zero if the
// word never appeared.
func (h *Hamiltonian) Coefficient(w Word) complex128 {
	return h.coeffs[w]
}

// String renders the sum one term per line in construction order.
func (h *Hamiltonian) String() string {
	var b strings.Builder
	for _, w := range h.order {
		c := h.coeffs[w]
		fmt.Fprintf(&b, "(%g%+gi) %s\n", real(c), imag(c), string(w))
	}
	return b.String()
}
