package molgraph

import (
	"github.com/turtacn/ShiftGraph/internal/domain/molecule"
)

// FeatureEncoder maps perceived atoms and bonds to fixed-width integer rows.
type FeatureEncoder interface {
	AtomFeatureDim() int
	BondFeatureDim() int
	EncodeAtom(p *Perception, i int) []int64
	EncodeBond(p *Perception, b int) []int64
}

// Allowable value lists of the OGB molecule featurisation. Values outside a
// list map to its last position, the "misc" bucket.
var (
	ogbChirality     = []Chirality{ChiralUnspecified, ChiralCW, ChiralCCW, ChiralOther}
	ogbDegree        = rangeInts(0, 10)
	ogbFormalCharge  = rangeInts(-5, 5)
	ogbNumHs         = rangeInts(0, 8)
	ogbRadicals      = rangeInts(0, 4)
	ogbHybridization = []Hybridization{HybridSP, HybridSP2, HybridSP3, HybridSP3D, HybridSP3D2}
	ogbBondType      = []BondType{BondSingle, BondDouble, BondTriple, BondAromatic}
	ogbBondStereo    = []BondStereo{StereoNone, StereoZ, StereoE, StereoCis, StereoTrans, StereoAny}
)

// OGBAtomFeatureDims are the vocabulary sizes of the nine atom features.
var OGBAtomFeatureDims = []int{
	molecule.MaxAtomicNum + 1,
	len(ogbChirality) + 1,
	len(ogbDegree) + 1,
	len(ogbFormalCharge) + 1,
	len(ogbNumHs) + 1,
	len(ogbRadicals) + 1,
	len(ogbHybridization) + 1,
	2,
	2,
}

// OGBBondFeatureDims are the vocabulary sizes of the three bond features.
var OGBBondFeatureDims = []int{len(ogbBondType) + 1, len(ogbBondStereo), 2}

// OGBEncoder is the default encoder: atom rows are [atomic_num, chirality,
// degree, formal_charge, num_hs, radical_electrons, hybridization,
// is_aromatic, is_in_ring] and bond rows are [bond_type, stereo,
// is_conjugated].
type OGBEncoder struct{}

// NewOGBEncoder returns the default encoder.
func NewOGBEncoder() *OGBEncoder {
	return &OGBEncoder{}
}

func (*OGBEncoder) AtomFeatureDim() int { return len(OGBAtomFeatureDims) }

func (*OGBEncoder) BondFeatureDim() int { return len(OGBBondFeatureDims) }

func (*OGBEncoder) EncodeAtom(p *Perception, i int) []int64 {
	atom := p.Mol.Atoms[i]
	z := atom.AtomicNum - 1
	if z < 0 || z >= molecule.MaxAtomicNum {
		z = molecule.MaxAtomicNum
	}
	return []int64{
		int64(z),
		safeIndex(ogbChirality, p.Chirality(i)),
		safeIndex(ogbDegree, p.TotalDegree(i)),
		safeIndex(ogbFormalCharge, atom.FormalCharge),
		safeIndex(ogbNumHs, p.ImplicitH[i]),
		safeIndex(ogbRadicals, atom.Radicals),
		safeIndex(ogbHybridization, p.Hybridization[i]),
		boolIndex(p.AromaticAtom[i]),
		boolIndex(p.RingAtom[i]),
	}
}

func (*OGBEncoder) EncodeBond(p *Perception, b int) []int64 {
	return []int64{
		safeIndex(ogbBondType, p.BondType(b)),
		safeIndex(ogbBondStereo, p.Stereo[b]),
		boolIndex(p.Conjugated[b]),
	}
}

func safeIndex[T comparable](allowed []T, v T) int64 {
	for i, a := range allowed {
		if a == v {
			return int64(i)
		}
	}
	return int64(len(allowed))
}

func boolIndex(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func rangeInts(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		out = append(out, v)
	}
	return out
}
