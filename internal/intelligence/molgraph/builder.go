package molgraph

import (
	"github.com/turtacn/ShiftGraph/internal/domain/molecule"
)

// Builder converts molecules into graphs with a fixed feature encoder.
type Builder struct {
	enc FeatureEncoder
}

// NewBuilder returns a builder using enc, or the OGB encoder when enc is nil.
func NewBuilder(enc FeatureEncoder) *Builder {
	if enc == nil {
		enc = NewOGBEncoder()
	}
	return &Builder{enc: enc}
}

// Encoder returns the encoder in use.
func (b *Builder) Encoder() FeatureEncoder {
	return b.enc
}

// Build returns the graph of mol, or false when the molecule has no bonds.
// Each bond contributes the column pair (i→j), (j→i) carrying the same
// feature row. Coordinates come from the conformer; atoms without one get the
// origin.
func (b *Builder) Build(mol *molecule.Molecule) (*Graph, bool) {
	if mol == nil || len(mol.Bonds) == 0 {
		return nil, false
	}
	p := Perceive(mol)
	n := len(mol.Atoms)

	g := &Graph{
		X:   make([][]int64, n),
		Pos: make([][3]float64, n),
		Z:   make([]int64, n),
	}
	for i, atom := range mol.Atoms {
		g.X[i] = b.enc.EncodeAtom(p, i)
		g.Z[i] = int64(atom.AtomicNum)
	}
	if mol.Conformer != nil && len(mol.Conformer.Coords) == n {
		copy(g.Pos, mol.Conformer.Coords)
	}

	e := 2 * len(mol.Bonds)
	g.EdgeIndex[0] = make([]int64, 0, e)
	g.EdgeIndex[1] = make([]int64, 0, e)
	g.EdgeAttr = make([][]int64, 0, e)
	for k, bond := range mol.Bonds {
		feat := b.enc.EncodeBond(p, k)
		i, j := int64(bond.Begin), int64(bond.End)
		g.EdgeIndex[0] = append(g.EdgeIndex[0], i, j)
		g.EdgeIndex[1] = append(g.EdgeIndex[1], j, i)
		g.EdgeAttr = append(g.EdgeAttr, feat, feat)
	}
	return g, true
}
