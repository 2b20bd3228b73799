// Package molecule provides the core domain model for NMR-annotated molecules:
// the connection table read from a structure file, its conformer, its data
// items, and the per-nucleus chemical-shift maps extracted from those items.
package molecule

import (
	"math"

	mtypes "github.com/turtacn/ShiftGraph/pkg/types/molecule"
)

// BondOrderAromatic is the V2000 bond type used for aromatic bonds.
const BondOrderAromatic = 4

// Atom is a single entry of the atom block.
type Atom struct {
	Symbol       string
	AtomicNum    int
	FormalCharge int
	Radicals     int
	// Parity is the V2000 stereo parity: 0 none, 1 odd, 2 even, 3 either.
	Parity   int
	MassDiff int
	// Isotope is the absolute mass number from M  ISO, or 0 for natural abundance.
	Isotope int
	// HCountHint is the raw V2000 hydrogen count query field (0 means unset).
	HCountHint int
}

// Bond connects two atoms by their 0-based indices.
type Bond struct {
	Begin int
	End   int
	// Order is 1, 2, 3 or BondOrderAromatic. V2000 query types 5..8 are kept as read.
	Order int
	// Stereo is the raw V2000 bond stereo field.
	Stereo int
}

// Other returns the atom at the opposite end of the bond from i.
func (b Bond) Other(i int) int {
	if b.Begin == i {
		return b.End
	}
	return b.Begin
}

// IsAromatic reports whether the bond is marked aromatic in the source.
func (b Bond) IsAromatic() bool {
	return b.Order == BondOrderAromatic
}

// Conformer holds one coordinate triple per atom.
type Conformer struct {
	Coords [][3]float64
	// Is3D is taken from the dimension code of the header program line.
	Is3D bool
}

// Usable reports whether the conformer carries finite coordinates for n atoms
// and, when require3D is set, is three-dimensional. A conformer counts as 3D if
// the header says so or any z coordinate is non-zero.
func (c *Conformer) Usable(n int, require3D bool) bool {
	if c == nil || len(c.Coords) != n {
		return false
	}
	anyZ := false
	for _, p := range c.Coords {
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
		if p[2] != 0 {
			anyZ = true
		}
	}
	if !require3D {
		return true
	}
	return c.Is3D || anyZ
}

// Properties is an insertion-ordered set of SDF data items.
type Properties struct {
	keys   []string
	values map[string]string
}

// NewProperties returns an empty property set.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]string)}
}

// Set stores value under key. A repeated key keeps its first position and the
// last value, which is how structure toolkits treat duplicate data items.
func (p *Properties) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value stored under key.
func (p *Properties) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of distinct keys.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Molecule is one record of a structure file.
type Molecule struct {
	// Name is the header title line.
	Name      string
	Atoms     []Atom
	Bonds     []Bond
	Conformer *Conformer

	Properties *Properties

	// MolBlock is the verbatim connection table text, kept so curated output
	// reproduces the input structure exactly.
	MolBlock string

	// Spectra holds the shift map per nucleus for every nucleus whose
	// annotations parsed. Filled by Ingest.
	Spectra map[mtypes.Nucleus]ShiftMap

	// SpectrumErrors holds the parse failure per nucleus. Filled by Ingest.
	SpectrumErrors map[mtypes.Nucleus]error
}

// NumAtoms returns the number of atoms.
func (m *Molecule) NumAtoms() int {
	return len(m.Atoms)
}

// NumBonds returns the number of bonds.
func (m *Molecule) NumBonds() int {
	return len(m.Bonds)
}

// Symbols returns the distinct element symbols present in the molecule.
func (m *Molecule) Symbols() map[string]struct{} {
	out := make(map[string]struct{}, len(m.Atoms))
	for _, a := range m.Atoms {
		out[a.Symbol] = struct{}{}
	}
	return out
}

// Adjacency returns, for each atom, the indices into Bonds of its incident bonds.
func (m *Molecule) Adjacency() [][]int {
	adj := make([][]int, len(m.Atoms))
	for k, b := range m.Bonds {
		adj[b.Begin] = append(adj[b.Begin], k)
		adj[b.End] = append(adj[b.End], k)
	}
	return adj
}
