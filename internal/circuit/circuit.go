// Package circuit describes gate programs as plain data. Programs are built
// locally and handed to an execution backend; no gate semantics are applied
// in-process.
package circuit

// GateOp is a single gate application. Qubits lists targets (for controlled
// gates, controls first and the target last), Params carries rotation
// angles, and Word holds the Pauli word of an exponential-of-Pauli gate.
type GateOp struct {
	Name   string    `json:"name"`
	Qubits []int     `json:"qubits,omitempty"`
	Params []float64 `json:"params,omitempty"`
	Word   string    `json:"word,omitempty"`
}

// Program is an ordered gate sequence over a fixed qubit register.
type Program struct {
	NumQubits int      `json:"num_qubits"`
	Gates     []GateOp `json:"gates"`
}

// New returns an empty program over numQubits qubits.
func New(numQubits int) *Program {
	return &Program{NumQubits: numQubits}
}

// Depth returns the number of gate operations in the program.
func (p *Program) Depth() int { return len(p.Gates) }

func (p *Program) append(g GateOp) {
	p.Gates = append(p.Gates, g)
}

// H appends a Hadamard on qubit q.
func (p *Program) H(q int) {
	p.append(GateOp{Name: "h", Qubits: []int{q}})
}

// HAll appends a Hadamard on every qubit in register order.
func (p *Program) HAll() {
	for q := 0; q < p.NumQubits; q++ {
		p.H(q)
	}
}

// X appends a Pauli-X on qubit q.
func (p *Program) X(q int) {
	p.append(GateOp{Name: "x", Qubits: []int{q}})
}

// RX appends a rotation about the X axis by theta on qubit q.
func (p *Program) RX(theta float64, q int) {
	p.append(GateOp{Name: "rx", Qubits: []int{q}, Params: []float64{theta}})
}

// RY appends a rotation about the Y axis by theta on qubit q.
func (p *Program) RY(theta float64, q int) {
	p.append(GateOp{Name: "ry", Qubits: []int{q}, Params: []float64{theta}})
}

// CZ appends a controlled-Z with the given controls and target.
func (p *Program) CZ(controls []int, target int) {
	qubits := make([]int, 0, len(controls)+1)
	qubits = append(qubits, controls...)
	qubits = append(qubits, target)
	p.append(GateOp{Name: "cz", Qubits: qubits})
}

// ExpPauli appends the Pauli-word evolution gate exp(-i·theta·W), the
// Trotterized building block of the DC-QAOA ansatz. The word spans the whole
// register; the exact phase convention belongs to the executing backend.
func (p *Program) ExpPauli(theta float64, word string) {
	p.append(GateOp{Name: "exp_pauli", Params: []float64{theta}, Word: word})
}

// MeasureAll appends a computational-basis measurement of the full register.
func (p *Program) MeasureAll() {
	qubits := make([]int, p.NumQubits)
	for q := range qubits {
		qubits[q] = q
	}
	p.append(GateOp{Name: "mz", Qubits: qubits})
}
