package qaoa

import (
	"fmt"

	"github.com/copyleftdev/QDOCK/internal/circuit"
	"github.com/copyleftdev/QDOCK/internal/hamiltonian"
)

// Ansatz fixes the DC-QAOA circuit family for one docking Hamiltonian: the
// register width, the layer count, and the flattened term coefficients and
// words the layers exponentiate. Values are immutable after construction;
// one Ansatz serves every evaluation of an optimization run.
type Ansatz struct {
	NumQubits    int
	NumLayers    int
	Coefficients []complex128
	Words        []hamiltonian.Word
}

// NewAnsatz validates the layout: positive register and layer counts,
// index-aligned coefficient/word slices, and words spanning the register.
func NewAnsatz(numQubits, numLayers int, coefficients []complex128, words []hamiltonian.Word) (*Ansatz, error) {
	if numQubits < 1 {
		return nil, fmt.Errorf("ansatz needs at least one qubit, got %d", numQubits)
	}
	if numLayers < 1 {
		return nil, fmt.Errorf("ansatz needs at least one layer, got %d", numLayers)
	}
	if len(coefficients) != len(words) {
		return nil, fmt.Errorf("ansatz has %d coefficients but %d words", len(coefficients), len(words))
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("ansatz needs at least one hamiltonian term")
	}
	for i, w := range words {
		if err := w.Validate(numQubits); err != nil {
			return nil, fmt.Errorf("ansatz word %d: %w", i, err)
		}
	}
	return &Ansatz{
		NumQubits:    numQubits,
		NumLayers:    numLayers,
		Coefficients: coefficients,
		Words:        words,
	}, nil
}

// FromHamiltonian flattens h and builds the ansatz over its register.
func FromHamiltonian(h *hamiltonian.Hamiltonian, numLayers int) (*Ansatz, error) {
	coefficients, words := h.Flatten()
	return NewAnsatz(h.NumQubits(), numLayers, coefficients, words)
}

// TermCount returns the number of Hamiltonian terms per layer.
func (a *Ansatz) TermCount() int { return len(a.Words) }

// ParameterCount returns the flat parameter vector length one program build
// consumes: per layer, one angle per Hamiltonian term plus two rotation
// angles per qubit.
func (a *Ansatz) ParameterCount() int {
	return (2*a.NumQubits + len(a.Words)) * a.NumLayers
}

// Program emits the ansatz gate sequence at the given parameters: Hadamard
// on every qubit, then per layer one exp-Pauli gate per term with angle
// params[k]·Re(coefficient), followed by one rx and one ry per qubit.
// Parameters are consumed strictly sequentially in exactly that order.
func (a *Ansatz) Program(params []float64) (*circuit.Program, error) {
	if len(params) != a.ParameterCount() {
		return nil, fmt.Errorf("%w: got %d parameters, ansatz consumes %d",
			ErrDimensionMismatch, len(params), a.ParameterCount())
	}

	p := circuit.New(a.NumQubits)
	p.HAll()
	k := 0
	for layer := 0; layer < a.NumLayers; layer++ {
		for i, w := range a.Words {
			p.ExpPauli(params[k]*real(a.Coefficients[i]), string(w))
			k++
		}
		for q := 0; q < a.NumQubits; q++ {
			p.RX(params[k], q)
			k++
		}
		for q := 0; q < a.NumQubits; q++ {
			p.RY(params[k], q)
			k++
		}
	}
	return p, nil
}
