package docking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// referenceGraph is the six-point docking instance used throughout the
// package tests: two molecules with three candidate contacts each.
func referenceGraph() Graph {
	return Graph{
		Nodes:    []int{0, 1, 2, 3, 4, 5},
		Weights:  []float64{0.6686, 0.6686, 0.6686, 0.1453, 0.1453, 0.1453},
		NonEdges: [][2]int{{0, 3}, {1, 4}, {2, 5}},
	}
}

func TestGraphValidate(t *testing.T) {
	tests := []struct {
		name    string
		graph   Graph
		wantErr string
	}{
		{
			name:  "reference graph is valid",
			graph: referenceGraph(),
		},
		{
			name: "single node no non-edges",
			graph: Graph{
				Nodes:   []int{0},
				Weights: []float64{1.0},
			},
		},
		{
			name:    "empty graph",
			graph:   Graph{},
			wantErr: "no nodes",
		},
		{
			name: "weight length mismatch",
			graph: Graph{
				Nodes:   []int{0, 1, 2},
				Weights: []float64{1.0, 2.0},
			},
			wantErr: "3 nodes but 2 weights",
		},
		{
			name: "duplicate node id",
			graph: Graph{
				Nodes:   []int{0, 1, 1},
				Weights: []float64{1.0, 2.0, 3.0},
			},
			wantErr: "duplicate node id 1",
		},
		{
			name: "self pair",
			graph: Graph{
				Nodes:    []int{0, 1},
				Weights:  []float64{1.0, 2.0},
				NonEdges: [][2]int{{1, 1}},
			},
			wantErr: "self-pair",
		},
		{
			name: "unordered non-edge",
			graph: Graph{
				Nodes:    []int{0, 1},
				Weights:  []float64{1.0, 2.0},
				NonEdges: [][2]int{{1, 0}},
			},
			wantErr: "not ordered",
		},
		{
			name: "unknown node in non-edge",
			graph: Graph{
				Nodes:    []int{0, 1},
				Weights:  []float64{1.0, 2.0},
				NonEdges: [][2]int{{0, 7}},
			},
			wantErr: "unknown node 7",
		},
		{
			name: "duplicate non-edge",
			graph: Graph{
				Nodes:    []int{0, 1, 2},
				Weights:  []float64{1.0, 2.0, 3.0},
				NonEdges: [][2]int{{0, 1}, {0, 1}},
			},
			wantErr: "duplicate non-edge",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.graph.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidGraph)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNonEdgesFromEdges(t *testing.T) {
	tests := []struct {
		name  string
		nodes []int
		edges [][2]int
		want  [][2]int
	}{
		{
			name:  "complete graph has no non-edges",
			nodes: []int{0, 1, 2},
			edges: [][2]int{{0, 1}, {0, 2}, {1, 2}},
			want:  nil,
		},
		{
			name:  "empty edge set yields all pairs",
			nodes: []int{0, 1, 2},
			edges: nil,
			want:  [][2]int{{0, 1}, {0, 2}, {1, 2}},
		},
		{
			name:  "reference instance",
			nodes: []int{0, 1, 2, 3, 4, 5},
			edges: [][2]int{
				{0, 1}, {0, 2}, {0, 4}, {0, 5},
				{1, 2}, {1, 3}, {1, 5},
				{2, 3}, {2, 4},
				{3, 4}, {3, 5},
				{4, 5},
			},
			want: [][2]int{{0, 3}, {1, 4}, {2, 5}},
		},
		{
			name:  "edge orientation is ignored",
			nodes: []int{0, 1, 2},
			edges: [][2]int{{1, 0}, {2, 0}},
			want:  [][2]int{{1, 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NonEdgesFromEdges(tt.nodes, tt.edges)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGraphDecode(t *testing.T) {
	g := referenceGraph()

	tests := []struct {
		name       string
		bitstring  string
		wantNodes  []int
		wantWeight float64
		feasible   bool
		wantErr    string
	}{
		{
			name:       "strong-side clique",
			bitstring:  "111000",
			wantNodes:  []int{0, 1, 2},
			wantWeight: 3 * 0.6686,
			feasible:   true,
		},
		{
			name:       "weak-side clique",
			bitstring:  "000111",
			wantNodes:  []int{3, 4, 5},
			wantWeight: 3 * 0.1453,
			feasible:   true,
		},
		{
			name:       "violating selection",
			bitstring:  "100100",
			wantNodes:  []int{0, 3},
			wantWeight: 0.6686 + 0.1453,
			feasible:   false,
		},
		{
			name:      "empty selection",
			bitstring: "000000",
			feasible:  true,
		},
		{
			name:      "length mismatch",
			bitstring: "1110",
			wantErr:   "does not match",
		},
		{
			name:      "non-binary character",
			bitstring: "11x000",
			wantErr:   "non-binary character",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand, err := g.Decode(tt.bitstring)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bitstring, cand.Bitstring)
			assert.Equal(t, tt.wantNodes, cand.Nodes)
			assert.InDelta(t, tt.wantWeight, cand.TotalWeight, 1e-12)
			assert.Equal(t, tt.feasible, cand.Feasible())
		})
	}
}

func TestGraphDecodeViolations(t *testing.T) {
	g := referenceGraph()

	cand, err := g.Decode("110110")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 3, 4}, cand.Nodes)
	assert.Equal(t, [][2]int{{0, 3}, {1, 4}}, cand.Violations)
	assert.False(t, cand.Feasible())
}
