package points

import (
	"fmt"
	"slices"
)

// Node is one input particle. X and Y are optional explicit coordinates in
// simulation space.
type Node struct {
	ID     string
	X, Y   *float32
	Size   *float32
	Color  string
	Values map[string]float32
}

// GraphData holds the input nodes and the mapping from input index to the
// dense sorted index that addresses GPU texels.
type GraphData struct {
	Nodes []Node

	sortedByInput []int
	inputBySorted []int
}

// NewGraphData maps every node to its own input index.
func NewGraphData(nodes []Node) *GraphData {
	identity := make([]int, len(nodes))
	for i := range identity {
		identity[i] = i
	}
	return &GraphData{
		Nodes:         nodes,
		sortedByInput: identity,
		inputBySorted: slices.Clone(identity),
	}
}

// SetOrder assigns sorted indices: order[k] is the input index of the
// particle with sorted index k. Inputs missing from order have no sorted
// index and are skipped by every buffer build.
func (g *GraphData) SetOrder(order []int) error {
	sortedByInput := make([]int, len(g.Nodes))
	for i := range sortedByInput {
		sortedByInput[i] = -1
	}
	for k, input := range order {
		if input < 0 || input >= len(g.Nodes) {
			return fmt.Errorf("sorted index %d: input index %d out of range", k, input)
		}
		if sortedByInput[input] != -1 {
			return fmt.Errorf("input index %d listed twice", input)
		}
		sortedByInput[input] = k
	}
	g.sortedByInput = sortedByInput
	g.inputBySorted = append([]int(nil), order...)
	return nil
}

// Count is the number of particles with a sorted index.
func (g *GraphData) Count() int {
	if g == nil {
		return 0
	}
	return len(g.inputBySorted)
}

func (g *GraphData) SortedIndexByInputIndex(input int) (int, bool) {
	if g == nil || input < 0 || input >= len(g.sortedByInput) {
		return 0, false
	}
	s := g.sortedByInput[input]
	return s, s >= 0
}

func (g *GraphData) InputIndexBySortedIndex(sorted int) (int, bool) {
	if g == nil || sorted < 0 || sorted >= len(g.inputBySorted) {
		return 0, false
	}
	return g.inputBySorted[sorted], true
}

// eachSorted calls fn for every node that has a sorted index.
func (g *GraphData) eachSorted(fn func(sorted int, n *Node)) {
	if g == nil {
		return
	}
	for i := range g.Nodes {
		if s, ok := g.SortedIndexByInputIndex(i); ok {
			fn(s, &g.Nodes[i])
		}
	}
}

// SortedIndices maps input indices to sorted indices, dropping inputs
// that have none.
func (g *GraphData) SortedIndices(inputs []int) []int {
	out := make([]int, 0, len(inputs))
	for _, in := range inputs {
		if s, ok := g.SortedIndexByInputIndex(in); ok {
			out = append(out, s)
		}
	}
	return out
}
