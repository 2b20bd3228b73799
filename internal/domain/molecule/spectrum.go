package molecule

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
	mtypes "github.com/turtacn/ShiftGraph/pkg/types/molecule"
)

// ShiftMap maps an atom index to its aggregated chemical shift.
type ShiftMap map[int]float64

// Indices returns the atom indices of m in ascending order.
func (m ShiftMap) Indices() []int {
	out := make([]int, 0, len(m))
	for i := range m {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Observation is one "shift;multiplicity;atom" entry of a spectrum annotation.
type Observation struct {
	Shift     float64
	AtomIndex int
}

var spectrumKeyPatterns = func() map[mtypes.Nucleus]*regexp.Regexp {
	m := make(map[mtypes.Nucleus]*regexp.Regexp, len(mtypes.AllNuclei))
	for _, n := range mtypes.AllNuclei {
		m[n] = regexp.MustCompile(`^Spectrum ` + regexp.QuoteMeta(string(n)) + `(\s|$)`)
	}
	return m
}()

// SpectrumKeyPattern returns the pattern matching data item keys that carry
// annotations for nucleus, e.g. "Spectrum 13C 0".
func SpectrumKeyPattern(nucleus mtypes.Nucleus) *regexp.Regexp {
	return spectrumKeyPatterns[nucleus]
}

// IsSpectrumKey reports whether key annotates nucleus.
func IsSpectrumKey(key string, nucleus mtypes.Nucleus) bool {
	re := SpectrumKeyPattern(nucleus)
	return re != nil && re.MatchString(key)
}

// ParseSpectrumValue parses "shift;mult;idx|shift;mult;idx|...". The trailing
// empty group left by the final separator is dropped; every other group must
// have exactly three fields with a numeric shift and an integer atom index.
func ParseSpectrumValue(value string) ([]Observation, error) {
	groups := strings.Split(value, "|")
	if strings.TrimSpace(groups[len(groups)-1]) == "" {
		groups = groups[:len(groups)-1]
	}
	out := make([]Observation, 0, len(groups))
	for gi, g := range groups {
		fields := strings.Split(g, ";")
		if len(fields) != 3 {
			return nil, apperrors.New(apperrors.CodeSpectrumParse, "spectrum entry must have 3 fields").
				WithDetail(fmt.Sprintf("entry %d %q has %d", gi, g, len(fields)))
		}
		shift, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeSpectrumParse, "invalid shift value").
				WithDetail(fmt.Sprintf("entry %d %q", gi, g))
		}
		idx, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeSpectrumParse, "invalid atom index").
				WithDetail(fmt.Sprintf("entry %d %q", gi, g))
		}
		out = append(out, Observation{Shift: shift, AtomIndex: idx})
	}
	return out, nil
}

// ExtractShifts collects observations from every data item of mol that
// annotates nucleus and reduces them to one median shift per atom. Atoms
// without observations are absent from the result, as are observations whose
// index falls outside the atom block.
func ExtractShifts(mol *Molecule, nucleus mtypes.Nucleus) (ShiftMap, error) {
	grouped := make(map[int][]float64)
	for _, key := range mol.Properties.Keys() {
		if !IsSpectrumKey(key, nucleus) {
			continue
		}
		value, _ := mol.Properties.Get(key)
		obs, err := ParseSpectrumValue(value)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeSpectrumParse, "failed to parse spectrum annotation").
				WithDetail(key)
		}
		for _, o := range obs {
			if o.AtomIndex < 0 || o.AtomIndex >= mol.NumAtoms() {
				continue
			}
			grouped[o.AtomIndex] = append(grouped[o.AtomIndex], o.Shift)
		}
	}

	shifts := make(ShiftMap, len(grouped))
	for idx, values := range grouped {
		shifts[idx] = Median(values)
	}
	return shifts, nil
}

// Median returns the median of values; an even count averages the two middle
// values. The input is not modified. Median of an empty slice is 0.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// HasSpectrum reports whether any data item of mol annotates nucleus.
func HasSpectrum(mol *Molecule, nucleus mtypes.Nucleus) bool {
	for _, key := range mol.Properties.Keys() {
		if IsSpectrumKey(key, nucleus) {
			return true
		}
	}
	return false
}

// Ingest runs the extractor once per supported nucleus and stores the shift
// maps and parse errors on mol.
func Ingest(mol *Molecule) {
	mol.Spectra = make(map[mtypes.Nucleus]ShiftMap, len(mtypes.AllNuclei))
	mol.SpectrumErrors = make(map[mtypes.Nucleus]error)
	for _, n := range mtypes.AllNuclei {
		shifts, err := ExtractShifts(mol, n)
		if err != nil {
			mol.SpectrumErrors[n] = err
			continue
		}
		mol.Spectra[n] = shifts
	}
}
