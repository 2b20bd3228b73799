package molgraph

import (
	"math"

	"github.com/turtacn/ShiftGraph/internal/domain/molecule"
)

// Hybridization of an atom, following the usual toolkit categories.
type Hybridization int

const (
	HybridUnspecified Hybridization = iota
	HybridS
	HybridSP
	HybridSP2
	HybridSP3
	HybridSP3D
	HybridSP3D2
)

// Chirality tag of an atom.
type Chirality int

const (
	ChiralUnspecified Chirality = iota
	ChiralCW
	ChiralCCW
	ChiralOther
)

// BondType of a bond after aromaticity perception.
type BondType int

const (
	BondSingle BondType = iota
	BondDouble
	BondTriple
	BondAromatic
	BondOther
)

// BondStereo of a double bond.
type BondStereo int

const (
	StereoNone BondStereo = iota
	StereoZ
	StereoE
	StereoCis
	StereoTrans
	StereoAny
)

// V2000 bond stereo value meaning "either" on a double bond.
const v2000DoubleEither = 3

// Perception holds the chemistry derived from a connection table: ring
// membership, aromaticity, implicit hydrogens, hybridisation, conjugation and
// double-bond stereo. It stands in for toolkit sanitisation and is computed
// once per molecule.
type Perception struct {
	Mol *molecule.Molecule

	adj [][]int

	RingAtom      []bool
	RingBond      []bool
	AromaticAtom  []bool
	AromaticBond  []bool
	ImplicitH     []int
	Hybridization []Hybridization
	Conjugated    []bool
	Stereo        []BondStereo
}

// Perceive derives the per-atom and per-bond chemistry of mol.
func Perceive(mol *molecule.Molecule) *Perception {
	p := &Perception{Mol: mol, adj: mol.Adjacency()}
	g := connectionGraph(mol)
	p.RingAtom, p.RingBond = ringMembership(mol, g)
	p.perceiveAromaticity(cycleBasis(g))
	p.ImplicitH = make([]int, len(mol.Atoms))
	for i := range mol.Atoms {
		p.ImplicitH[i] = p.implicitHydrogens(i)
	}
	p.Hybridization = make([]Hybridization, len(mol.Atoms))
	for i := range mol.Atoms {
		p.Hybridization[i] = p.hybridization(i)
	}
	p.Conjugated = make([]bool, len(mol.Bonds))
	p.Stereo = make([]BondStereo, len(mol.Bonds))
	for k := range mol.Bonds {
		p.Conjugated[k] = p.conjugated(k)
		p.Stereo[k] = p.stereo(k)
	}
	return p
}

// Degree is the number of explicit neighbours of atom i.
func (p *Perception) Degree(i int) int {
	return len(p.adj[i])
}

// TotalDegree counts explicit neighbours plus implicit hydrogens.
func (p *Perception) TotalDegree(i int) int {
	return len(p.adj[i]) + p.ImplicitH[i]
}

// Chirality maps the atom-block parity to a chirality tag.
func (p *Perception) Chirality(i int) Chirality {
	switch p.Mol.Atoms[i].Parity {
	case 1:
		return ChiralCW
	case 2:
		return ChiralCCW
	}
	return ChiralUnspecified
}

// BondType reports the perceived type of bond k.
func (p *Perception) BondType(k int) BondType {
	if p.AromaticBond[k] {
		return BondAromatic
	}
	switch p.Mol.Bonds[k].Order {
	case 1:
		return BondSingle
	case 2:
		return BondDouble
	case 3:
		return BondTriple
	}
	return BondOther
}

// perceiveAromaticity marks file-declared aromatic bonds, then applies a
// Hückel 4n+2 count to every basis cycle of 5 to 10 atoms. Ring bonds that
// join two aromatic atoms of such cycles (fusion bonds) become aromatic too.
func (p *Perception) perceiveAromaticity(cycles [][]int) {
	mol := p.Mol
	p.AromaticAtom = make([]bool, len(mol.Atoms))
	p.AromaticBond = make([]bool, len(mol.Bonds))
	for k, b := range mol.Bonds {
		if b.IsAromatic() {
			p.AromaticBond[k] = true
			p.AromaticAtom[b.Begin] = true
			p.AromaticAtom[b.End] = true
		}
	}

	fromCycle := make([]bool, len(mol.Atoms))
	for _, cycle := range cycles {
		if len(cycle) < 5 || len(cycle) > 10 {
			continue
		}
		bonds, ok := p.cycleBonds(cycle)
		if !ok || !p.huckel(cycle, bonds) {
			continue
		}
		for _, a := range cycle {
			p.AromaticAtom[a] = true
			fromCycle[a] = true
		}
		for _, k := range bonds {
			p.AromaticBond[k] = true
		}
	}
	for k, b := range mol.Bonds {
		if p.RingBond[k] && fromCycle[b.Begin] && fromCycle[b.End] {
			p.AromaticBond[k] = true
		}
	}
}

// cycleBonds returns the bond indices joining consecutive cycle atoms.
func (p *Perception) cycleBonds(cycle []int) ([]int, bool) {
	out := make([]int, 0, len(cycle))
	for i, a := range cycle {
		next := cycle[(i+1)%len(cycle)]
		k := p.bondBetween(a, next)
		if k < 0 {
			return nil, false
		}
		out = append(out, k)
	}
	return out, true
}

func (p *Perception) bondBetween(a, b int) int {
	for _, k := range p.adj[a] {
		if p.Mol.Bonds[k].Other(a) == b {
			return k
		}
	}
	return -1
}

// huckel counts pi electrons contributed by each cycle atom and reports
// whether the total is 4n+2.
func (p *Perception) huckel(cycle []int, cycleBonds []int) bool {
	inCycle := make(map[int]bool, len(cycleBonds))
	for _, k := range cycleBonds {
		inCycle[k] = true
	}
	total := 0
	for _, a := range cycle {
		e, ok := p.piElectrons(a, inCycle)
		if !ok {
			return false
		}
		total += e
	}
	return total >= 2 && (total-2)%4 == 0
}

func (p *Perception) piElectrons(a int, inCycle map[int]bool) (int, bool) {
	atom := p.Mol.Atoms[a]
	exoDouble := -1
	for _, k := range p.adj[a] {
		b := p.Mol.Bonds[k]
		switch {
		case inCycle[k] && (b.Order == 2 || b.IsAromatic()):
			return 1, true
		case !inCycle[k] && b.Order == 2:
			exoDouble = b.Other(a)
		case b.Order == 3:
			return 0, false
		}
	}
	if exoDouble >= 0 {
		other := p.Mol.Atoms[exoDouble]
		switch {
		case p.RingAtom[exoDouble] && (other.AtomicNum == 6 || other.AtomicNum == 7):
			return 1, true
		case other.AtomicNum == 7 || other.AtomicNum == 8 || other.AtomicNum == 16:
			return 0, true
		}
		return 0, false
	}
	switch {
	case atom.AtomicNum == 6 && atom.FormalCharge == -1:
		return 2, true
	case atom.AtomicNum == 6 && atom.FormalCharge == 1:
		return 0, true
	case atom.AtomicNum == 5:
		return 0, true
	case molecule.IsChalcogenOrPnictogen(atom.AtomicNum) && atom.FormalCharge <= 0 && len(p.adj[a]) <= 3:
		return 2, true
	}
	return 0, false
}

// explicitValence sums bond orders around atom i, counting aromatic bonds as 1.5.
func (p *Perception) explicitValence(i int) int {
	v := 0.0
	for _, k := range p.adj[i] {
		switch o := p.Mol.Bonds[k].Order; {
		case o == molecule.BondOrderAromatic:
			v += 1.5
		case o >= 1 && o <= 3:
			v += float64(o)
		default:
			v++
		}
	}
	return int(v + 0.1)
}

// implicitHydrogens fills the smallest allowed valence at or above the
// explicit valence. Charges shift the allowed valences the way they do for
// the organic subset: up for pnictogens, chalcogens and halogens, down for
// carbon-group atoms and hydrogen, opposite to the charge for boron.
func (p *Perception) implicitHydrogens(i int) int {
	atom := p.Mol.Atoms[i]
	valences := molecule.DefaultValences(atom.AtomicNum)
	if len(valences) == 0 || atom.Radicals > 0 {
		return 0
	}
	shift := 0
	switch atom.AtomicNum {
	case 7, 8, 9, 15, 16, 17, 35, 53:
		shift = atom.FormalCharge
	case 1, 6, 14:
		shift = -absInt(atom.FormalCharge)
	case 5:
		shift = -atom.FormalCharge
	}
	ev := p.explicitValence(i)
	for _, v := range valences {
		if allowed := v + shift; allowed >= ev {
			return allowed - ev
		}
	}
	return 0
}

func (p *Perception) countBonds(i int) (doubles, triples, aromatic int) {
	for _, k := range p.adj[i] {
		switch {
		case p.AromaticBond[k]:
			aromatic++
		case p.Mol.Bonds[k].Order == 2:
			doubles++
		case p.Mol.Bonds[k].Order == 3:
			triples++
		}
	}
	return
}

// unsaturated reports whether atom i has a multiple or aromatic bond other than skip.
func (p *Perception) unsaturated(i, skip int) bool {
	for _, k := range p.adj[i] {
		if k == skip {
			continue
		}
		if p.AromaticBond[k] || p.Mol.Bonds[k].Order == 2 || p.Mol.Bonds[k].Order == 3 {
			return true
		}
	}
	return false
}

// lonePairDonor reports whether atom i is a neutral or anionic N, O, S or P
// with only single bonds.
func (p *Perception) lonePairDonor(i int) bool {
	atom := p.Mol.Atoms[i]
	if !molecule.IsChalcogenOrPnictogen(atom.AtomicNum) || atom.FormalCharge > 0 {
		return false
	}
	return !p.unsaturated(i, -1) && p.TotalDegree(i) <= 3
}

func (p *Perception) hybridization(i int) Hybridization {
	atom := p.Mol.Atoms[i]
	if atom.AtomicNum == 1 {
		return HybridS
	}
	deg := p.TotalDegree(i)
	switch {
	case deg == 0:
		return HybridS
	case deg >= 6:
		return HybridSP3D2
	case deg == 5:
		return HybridSP3D
	}
	doubles, triples, aromatic := p.countBonds(i)
	switch {
	case deg <= 2 && (triples > 0 || doubles >= 2):
		return HybridSP
	case deg <= 3 && (doubles > 0 || aromatic > 0 || p.AromaticAtom[i]):
		return HybridSP2
	case deg <= 3 && p.lonePairDonor(i) && p.hasUnsaturatedNeighbour(i):
		return HybridSP2
	}
	return HybridSP3
}

func (p *Perception) hasUnsaturatedNeighbour(i int) bool {
	for _, k := range p.adj[i] {
		if p.unsaturated(p.Mol.Bonds[k].Other(i), k) {
			return true
		}
	}
	return false
}

// conjugated reports whether bond k belongs to a delocalised system: aromatic
// bonds, multiple bonds next to another multiple bond or a lone-pair donor,
// and single bonds between two such centres.
func (p *Perception) conjugated(k int) bool {
	if p.AromaticBond[k] {
		return true
	}
	b := p.Mol.Bonds[k]
	switch b.Order {
	case 2, 3:
		for _, end := range []int{b.Begin, b.End} {
			if p.unsaturated(end, k) {
				return true
			}
			for _, nk := range p.adj[end] {
				if nk == k {
					continue
				}
				nb := p.Mol.Bonds[nk].Other(end)
				if p.unsaturated(nb, nk) || p.lonePairDonor(nb) {
					return true
				}
			}
		}
		return false
	case 1:
		ua, ub := p.unsaturated(b.Begin, k), p.unsaturated(b.End, k)
		return (ua && ub) || (ua && p.lonePairDonor(b.End)) || (ub && p.lonePairDonor(b.Begin))
	}
	return false
}

// stereo assigns E/Z to acyclic double bonds from 3D coordinates, ranking the
// substituents on each end by atomic number. Unrankable ends leave StereoNone;
// the V2000 "either" flag yields StereoAny.
func (p *Perception) stereo(k int) BondStereo {
	b := p.Mol.Bonds[k]
	if b.Order != 2 || p.AromaticBond[k] {
		return StereoNone
	}
	if b.Stereo == v2000DoubleEither {
		return StereoAny
	}
	if p.RingBond[k] {
		return StereoNone
	}
	conf := p.Mol.Conformer
	if conf == nil || len(conf.Coords) != len(p.Mol.Atoms) {
		return StereoNone
	}
	sa, ok := p.topSubstituent(b.Begin, k)
	if !ok {
		return StereoNone
	}
	sb, ok := p.topSubstituent(b.End, k)
	if !ok {
		return StereoNone
	}

	pos := conf.Coords
	axis := sub(pos[b.End], pos[b.Begin])
	norm := math.Sqrt(dot(axis, axis))
	if norm == 0 {
		return StereoNone
	}
	axis = scale(axis, 1/norm)
	va := reject(sub(pos[sa], pos[b.Begin]), axis)
	vb := reject(sub(pos[sb], pos[b.End]), axis)
	d := dot(va, vb)
	switch {
	case d > 1e-6:
		return StereoZ
	case d < -1e-6:
		return StereoE
	}
	return StereoNone
}

// topSubstituent returns the highest-ranked neighbour of atom a other than via
// bond k. Ends with no explicit substituent, more than two, or a tie between
// two are unrankable.
func (p *Perception) topSubstituent(a, k int) (int, bool) {
	var subs []int
	for _, nk := range p.adj[a] {
		if nk != k {
			subs = append(subs, p.Mol.Bonds[nk].Other(a))
		}
	}
	switch len(subs) {
	case 1:
		if p.ImplicitH[a] > 1 {
			return 0, false
		}
		return subs[0], true
	case 2:
		z0, z1 := p.Mol.Atoms[subs[0]].AtomicNum, p.Mol.Atoms[subs[1]].AtomicNum
		switch {
		case z0 > z1:
			return subs[0], true
		case z1 > z0:
			return subs[1], true
		}
	}
	return 0, false
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sub(a, b [3]float64) [3]float64 { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func dot(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func scale(a [3]float64, s float64) [3]float64 { return [3]float64{a[0] * s, a[1] * s, a[2] * s} }

// reject removes the component of v along the unit vector u.
func reject(v, u [3]float64) [3]float64 {
	return sub(v, scale(u, dot(v, u)))
}
