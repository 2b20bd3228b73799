package molgraph

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/turtacn/ShiftGraph/internal/domain/molecule"
)

// connectionGraph builds the undirected atom graph of mol; node IDs are atom indices.
func connectionGraph(mol *molecule.Molecule) *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for i := range mol.Atoms {
		g.AddNode(simple.Node(i))
	}
	for _, b := range mol.Bonds {
		if b.Begin == b.End {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(b.Begin), simple.Node(b.End)))
	}
	return g
}

// ringMembership marks every bond that lies on a cycle, and every atom with at
// least one such bond. A bond is on a cycle iff its ends stay connected once
// the bond itself is removed.
func ringMembership(mol *molecule.Molecule, g *simple.UndirectedGraph) (atoms, bonds []bool) {
	atoms = make([]bool, len(mol.Atoms))
	bonds = make([]bool, len(mol.Bonds))
	for k, b := range mol.Bonds {
		if b.Begin == b.End {
			continue
		}
		u, v := simple.Node(b.Begin), simple.Node(b.End)
		g.RemoveEdge(u.ID(), v.ID())
		if topo.PathExistsIn(g, u, v) {
			bonds[k] = true
			atoms[b.Begin] = true
			atoms[b.End] = true
		}
		g.SetEdge(g.NewEdge(u, v))
	}
	return atoms, bonds
}

// cycleBasis returns a fundamental set of cycles as ordered atom index lists
// in which consecutive atoms (and the last and first) are bonded.
func cycleBasis(g *simple.UndirectedGraph) [][]int {
	raw := topo.UndirectedCyclesIn(g)
	out := make([][]int, 0, len(raw))
	for _, c := range raw {
		if len(c) > 1 && c[0].ID() == c[len(c)-1].ID() {
			c = c[:len(c)-1]
		}
		if len(c) < 3 {
			continue
		}
		cycle := make([]int, len(c))
		for i, n := range c {
			cycle[i] = int(n.ID())
		}
		out = append(out, cycle)
	}
	return out
}
