package hamiltonian

// Flatten serializes the sum into two index-aligned slices: coefficients[i]
// belongs to words[i]. Enumeration follows construction order, so repeated
// calls on the same Hamiltonian yield identical slices. The slices are fresh
// copies; mutating them does not touch the Hamiltonian.
func (h *Hamiltonian) Flatten() (coefficients []complex128, words []Word) {
	coefficients = make([]complex128, 0, len(h.order))
	words = make([]Word, 0, len(h.order))
	for _, w := range h.order {
		coefficients = append(coefficients, h.coeffs[w])
		words = append(words, w)
	}
	return coefficients, words
}
