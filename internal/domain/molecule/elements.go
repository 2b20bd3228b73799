package molecule

import (
	"sort"
	"strings"
)

// periodicTable lists element symbols by atomic number; index 0 is unused.
var periodicTable = [...]string{
	"",
	"H", "He",
	"Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
	"K", "Ca", "Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr",
	"Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd",
	"In", "Sn", "Sb", "Te", "I", "Xe",
	"Cs", "Ba",
	"La", "Ce", "Pr", "Nd", "Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb", "Lu",
	"Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg",
	"Tl", "Pb", "Bi", "Po", "At", "Rn",
	"Fr", "Ra",
	"Ac", "Th", "Pa", "U", "Np", "Pu", "Am", "Cm", "Bk", "Cf", "Es", "Fm", "Md", "No", "Lr",
	"Rf", "Db", "Sg", "Bh", "Hs", "Mt", "Ds", "Rg", "Cn",
	"Nh", "Fl", "Mc", "Lv", "Ts", "Og",
}

// MaxAtomicNum is the largest atomic number known to the table.
const MaxAtomicNum = len(periodicTable) - 1

var symbolToNum = func() map[string]int {
	m := make(map[string]int, len(periodicTable))
	for z, s := range periodicTable {
		if z > 0 {
			m[s] = z
		}
	}
	// Deuterium and tritium are written as distinct symbols in some files.
	m["D"] = 1
	m["T"] = 1
	return m
}()

// AtomicNumber returns the atomic number of symbol, or 0 if unknown.
func AtomicNumber(symbol string) int {
	return symbolToNum[symbol]
}

// Symbol returns the element symbol for atomic number z, or "" if out of range.
func Symbol(z int) string {
	if z < 1 || z > MaxAtomicNum {
		return ""
	}
	return periodicTable[z]
}

// defaultValences lists the allowed neutral valences used to infer implicit
// hydrogens for the organic subset. Elements missing here get none.
var defaultValences = map[int][]int{
	1:  {1},
	5:  {3},
	6:  {4},
	7:  {3},
	8:  {2},
	9:  {1},
	14: {4},
	15: {3, 5},
	16: {2, 4, 6},
	17: {1},
	35: {1},
	53: {1, 3, 5},
}

// DefaultValences returns the allowed neutral valences of atomic number z.
func DefaultValences(z int) []int {
	return defaultValences[z]
}

// IsChalcogenOrPnictogen reports whether z is in group 15 or 16 of the
// organic subset; these atoms can donate a lone pair.
func IsChalcogenOrPnictogen(z int) bool {
	switch z {
	case 7, 8, 15, 16, 33, 34:
		return true
	}
	return false
}

// DefaultAllowedElements is the element whitelist applied before feature
// extraction and by curation.
var DefaultAllowedElements = []string{"H", "B", "C", "O", "N", "F", "Si", "P", "S", "Cl", "Br", "I"}

// ElementFilter accepts molecules whose atoms are all drawn from Allowed.
type ElementFilter struct {
	allowed map[string]struct{}
}

// NewElementFilter builds a filter over symbols. An empty list selects
// DefaultAllowedElements.
func NewElementFilter(symbols ...string) *ElementFilter {
	if len(symbols) == 0 {
		symbols = DefaultAllowedElements
	}
	f := &ElementFilter{allowed: make(map[string]struct{}, len(symbols))}
	for _, s := range symbols {
		f.allowed[strings.TrimSpace(s)] = struct{}{}
	}
	return f
}

// Allows reports whether every atom symbol of mol is in the allowed set.
func (f *ElementFilter) Allows(mol *Molecule) bool {
	return len(f.Disallowed(mol)) == 0
}

// Disallowed returns the sorted symbols of mol outside the allowed set.
func (f *ElementFilter) Disallowed(mol *Molecule) []string {
	var out []string
	for s := range mol.Symbols() {
		if _, ok := f.allowed[s]; !ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Allowed returns the allowed symbols, sorted.
func (f *ElementFilter) Allowed() []string {
	out := make([]string, 0, len(f.allowed))
	for s := range f.allowed {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
