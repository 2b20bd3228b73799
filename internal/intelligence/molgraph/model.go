// Package molgraph converts molecules into graph tensors for message-passing
// networks: integer node and edge feature rows, a bidirectional edge list,
// per-atom coordinates and atomic numbers.
package molgraph

import (
	"fmt"
)

// Graph is the tensor form of one molecule. Edge columns come in pairs: column
// 2k is (i→j) and column 2k+1 is (j→i) for the k-th bond, and EdgeAttr[c]
// describes column c.
type Graph struct {
	// X holds one feature row per atom, in atom order.
	X [][]int64
	// EdgeIndex holds source (row 0) and target (row 1) node indices.
	EdgeIndex [2][]int64
	// EdgeAttr holds one feature row per edge column.
	EdgeAttr [][]int64
	// Pos holds the 3D coordinates per atom.
	Pos [][3]float64
	// Z holds the atomic number per atom.
	Z []int64
}

// NumNodes returns the number of atoms.
func (g *Graph) NumNodes() int {
	return len(g.X)
}

// NumEdges returns the number of directed edge columns (twice the bond count).
func (g *Graph) NumEdges() int {
	return len(g.EdgeIndex[0])
}

// Validate checks the structural invariants of the graph.
func (g *Graph) Validate() error {
	n := g.NumNodes()
	if len(g.Pos) != n || len(g.Z) != n {
		return fmt.Errorf("molgraph: %d nodes but %d positions and %d atomic numbers", n, len(g.Pos), len(g.Z))
	}
	e := g.NumEdges()
	if len(g.EdgeIndex[1]) != e || len(g.EdgeAttr) != e {
		return fmt.Errorf("molgraph: edge index rows %d/%d and %d edge attribute rows",
			len(g.EdgeIndex[0]), len(g.EdgeIndex[1]), len(g.EdgeAttr))
	}
	if e%2 != 0 {
		return fmt.Errorf("molgraph: odd number of edge columns %d", e)
	}
	for c := 0; c < e; c += 2 {
		src, dst := g.EdgeIndex[0][c], g.EdgeIndex[1][c]
		if src < 0 || dst < 0 || src >= int64(n) || dst >= int64(n) {
			return fmt.Errorf("molgraph: edge column %d references node outside [0,%d)", c, n)
		}
		if g.EdgeIndex[0][c+1] != dst || g.EdgeIndex[1][c+1] != src {
			return fmt.Errorf("molgraph: edge columns %d and %d are not a reversed pair", c, c+1)
		}
	}
	return nil
}
