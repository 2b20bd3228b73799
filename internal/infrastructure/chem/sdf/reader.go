// Package sdf reads and writes MDL structure-data files (V2000 connection
// tables followed by data items, one record per "$$$$" terminator).
package sdf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/turtacn/ShiftGraph/internal/domain/molecule"
	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
)

// RecordTerminator ends every record.
const RecordTerminator = "$$$$"

// Record is one entry of an SDF stream. Exactly one of Molecule and ParseErr
// is set.
type Record struct {
	// Index is the 0-based position of the record in the stream.
	Index    int
	Molecule *molecule.Molecule
	ParseErr error
}

// Source yields records one at a time and returns io.EOF after the last one.
type Source interface {
	Next() (*Record, error)
}

// Reader iterates an SDF stream record by record. A malformed record is
// returned with ParseErr set and iteration continues with the next record.
type Reader struct {
	r     *bufio.Reader
	index int
	done  bool
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next record, or io.EOF when the stream is exhausted. Other
// errors come from the underlying reader and are not per-record.
func (rd *Reader) Next() (*Record, error) {
	if rd.done {
		return nil, io.EOF
	}
	var lines []string
	for {
		line, err := rd.r.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		atEOF := err == io.EOF
		if line != "" || !atEOF {
			line = strings.TrimRight(line, "\r\n")
			if strings.TrimRight(line, " \t") == RecordTerminator {
				return rd.emit(lines), nil
			}
			lines = append(lines, line)
		}
		if atEOF {
			rd.done = true
			if isBlank(lines) {
				return nil, io.EOF
			}
			return rd.emit(lines), nil
		}
	}
}

func (rd *Reader) emit(lines []string) *Record {
	rec := &Record{Index: rd.index}
	rd.index++
	mol, err := ParseRecord(lines)
	if err != nil {
		rec.ParseErr = apperrors.Wrap(err, apperrors.CodeRecordParse, "unparsable record").
			WithDetail(fmt.Sprintf("record %d", rec.Index))
		return rec
	}
	rec.Molecule = mol
	return rec
}

func isBlank(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return true
}

// ReadFile parses every record of the file at path.
func ReadFile(path string) ([]*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []*Record
	rd := NewReader(f)
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

// ParseRecord parses the lines of one record, terminator excluded.
func ParseRecord(lines []string) (*molecule.Molecule, error) {
	if len(lines) < 4 {
		return nil, fmt.Errorf("record has %d lines, header and counts line need 4", len(lines))
	}
	counts := lines[3]
	if strings.Contains(counts, "V3000") {
		return nil, fmt.Errorf("V3000 connection tables are not supported")
	}
	nAtoms, err := fixedInt(counts, 0, 3)
	if err != nil {
		return nil, fmt.Errorf("counts line: atom count: %w", err)
	}
	nBonds, err := fixedInt(counts, 3, 6)
	if err != nil {
		return nil, fmt.Errorf("counts line: bond count: %w", err)
	}
	if nAtoms < 0 || nBonds < 0 {
		return nil, fmt.Errorf("counts line: negative counts")
	}
	if len(lines) < 4+nAtoms+nBonds {
		return nil, fmt.Errorf("record truncated: counts line declares %d atoms and %d bonds", nAtoms, nBonds)
	}

	mol := &molecule.Molecule{
		Name:       strings.TrimRight(lines[0], " \t"),
		Atoms:      make([]molecule.Atom, nAtoms),
		Bonds:      make([]molecule.Bond, 0, nBonds),
		Properties: molecule.NewProperties(),
	}
	conf := &molecule.Conformer{
		Coords: make([][3]float64, nAtoms),
		Is3D:   strings.TrimSpace(field(lines[1], 20, 22)) == "3D",
	}

	pos := 4
	for i := 0; i < nAtoms; i++ {
		atom, xyz, err := parseAtomLine(lines[pos])
		if err != nil {
			return nil, fmt.Errorf("atom %d: %w", i+1, err)
		}
		mol.Atoms[i] = atom
		conf.Coords[i] = xyz
		pos++
	}
	mol.Conformer = conf

	seen := make(map[[2]int]struct{}, nBonds)
	for i := 0; i < nBonds; i++ {
		bond, err := parseBondLine(lines[pos], nAtoms)
		if err != nil {
			return nil, fmt.Errorf("bond %d: %w", i+1, err)
		}
		key := [2]int{bond.Begin, bond.End}
		if key[0] > key[1] {
			key[0], key[1] = key[1], key[0]
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("bond %d: duplicate bond between atoms %d and %d", i+1, key[0]+1, key[1]+1)
		}
		seen[key] = struct{}{}
		mol.Bonds = append(mol.Bonds, bond)
		pos++
	}

	end, err := parsePropertyBlock(lines, pos, mol)
	if err != nil {
		return nil, err
	}
	mol.MolBlock = strings.Join(lines[:end], "\n") + "\n"

	if err := parseDataItems(lines[end:], mol.Properties); err != nil {
		return nil, err
	}
	return mol, nil
}

func parseAtomLine(line string) (molecule.Atom, [3]float64, error) {
	var xyz [3]float64
	if len(line) < 34 {
		return molecule.Atom{}, xyz, fmt.Errorf("line too short (%d columns)", len(line))
	}
	for k := 0; k < 3; k++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(field(line, k*10, k*10+10)), 64)
		if err != nil {
			return molecule.Atom{}, xyz, fmt.Errorf("coordinate %d: %w", k, err)
		}
		xyz[k] = v
	}
	symbol := strings.TrimSpace(field(line, 31, 34))
	z := molecule.AtomicNumber(symbol)
	if z == 0 {
		return molecule.Atom{}, xyz, fmt.Errorf("unknown element symbol %q", symbol)
	}
	atom := molecule.Atom{Symbol: symbol, AtomicNum: z}
	if symbol == "D" || symbol == "T" {
		atom.Symbol = "H"
		atom.Isotope = map[string]int{"D": 2, "T": 3}[symbol]
	}

	optional := func(start, end int) (int, error) {
		s := strings.TrimSpace(field(line, start, end))
		if s == "" {
			return 0, nil
		}
		return strconv.Atoi(s)
	}
	var err error
	if atom.MassDiff, err = optional(34, 36); err != nil {
		return atom, xyz, fmt.Errorf("mass difference: %w", err)
	}
	chargeCode, err := optional(36, 39)
	if err != nil {
		return atom, xyz, fmt.Errorf("charge: %w", err)
	}
	switch {
	case chargeCode == 4:
		atom.Radicals = 1
	case chargeCode >= 1 && chargeCode <= 7:
		atom.FormalCharge = 4 - chargeCode
	}
	if atom.Parity, err = optional(39, 42); err != nil {
		return atom, xyz, fmt.Errorf("stereo parity: %w", err)
	}
	if atom.HCountHint, err = optional(42, 45); err != nil {
		return atom, xyz, fmt.Errorf("hydrogen count: %w", err)
	}
	return atom, xyz, nil
}

func parseBondLine(line string, nAtoms int) (molecule.Bond, error) {
	if len(line) < 9 {
		return molecule.Bond{}, fmt.Errorf("line too short (%d columns)", len(line))
	}
	a, err := fixedInt(line, 0, 3)
	if err != nil {
		return molecule.Bond{}, fmt.Errorf("first atom: %w", err)
	}
	b, err := fixedInt(line, 3, 6)
	if err != nil {
		return molecule.Bond{}, fmt.Errorf("second atom: %w", err)
	}
	order, err := fixedInt(line, 6, 9)
	if err != nil {
		return molecule.Bond{}, fmt.Errorf("bond type: %w", err)
	}
	if a < 1 || a > nAtoms || b < 1 || b > nAtoms {
		return molecule.Bond{}, fmt.Errorf("atom index out of range (%d, %d) for %d atoms", a, b, nAtoms)
	}
	if a == b {
		return molecule.Bond{}, fmt.Errorf("self bond on atom %d", a)
	}
	if order < 1 || order > 8 {
		return molecule.Bond{}, fmt.Errorf("invalid bond type %d", order)
	}
	bond := molecule.Bond{Begin: a - 1, End: b - 1, Order: order}
	if s := strings.TrimSpace(field(line, 9, 12)); s != "" {
		if bond.Stereo, err = strconv.Atoi(s); err != nil {
			return molecule.Bond{}, fmt.Errorf("bond stereo: %w", err)
		}
	}
	return bond, nil
}

// parsePropertyBlock applies M  CHG / RAD / ISO lines and returns the index of
// the first line after the connection table ("M  END" inclusive).
func parsePropertyBlock(lines []string, pos int, mol *molecule.Molecule) (int, error) {
	chargesReset, radicalsReset := false, false
	for ; pos < len(lines); pos++ {
		line := lines[pos]
		if strings.HasPrefix(line, "M  END") {
			return pos + 1, nil
		}
		if strings.HasPrefix(line, ">") {
			return pos, nil
		}
		if !strings.HasPrefix(line, "M  ") || len(line) < 6 {
			continue
		}
		tag := line[3:6]
		if tag != "CHG" && tag != "RAD" && tag != "ISO" {
			continue
		}
		pairs, err := parseAtomValuePairs(line, len(mol.Atoms))
		if err != nil {
			return 0, fmt.Errorf("M  %s: %w", tag, err)
		}
		switch tag {
		case "CHG":
			if !chargesReset {
				for i := range mol.Atoms {
					mol.Atoms[i].FormalCharge = 0
				}
				chargesReset = true
			}
			for _, p := range pairs {
				mol.Atoms[p[0]].FormalCharge = p[1]
			}
		case "RAD":
			if !radicalsReset {
				for i := range mol.Atoms {
					mol.Atoms[i].Radicals = 0
				}
				radicalsReset = true
			}
			for _, p := range pairs {
				mol.Atoms[p[0]].Radicals = radicalElectrons(p[1])
			}
		case "ISO":
			for _, p := range pairs {
				mol.Atoms[p[0]].Isotope = p[1]
			}
		}
	}
	return pos, nil
}

// radicalElectrons converts the M  RAD code (1 singlet, 2 doublet, 3 triplet)
// to a number of unpaired electrons.
func radicalElectrons(code int) int {
	switch code {
	case 2:
		return 1
	case 1, 3:
		return 2
	}
	return 0
}

// parseAtomValuePairs reads "M  XXXnn8 aaa vvv ..." entries; atom indices are
// returned 0-based.
func parseAtomValuePairs(line string, nAtoms int) ([][2]int, error) {
	fields := strings.Fields(line[6:])
	if len(fields) == 0 {
		return nil, fmt.Errorf("missing entry count")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("entry count: %w", err)
	}
	if len(fields) < 1+2*n {
		return nil, fmt.Errorf("declares %d entries, found %d values", n, len(fields)-1)
	}
	out := make([][2]int, 0, n)
	for k := 0; k < n; k++ {
		a, err := strconv.Atoi(fields[1+2*k])
		if err != nil {
			return nil, err
		}
		v, err := strconv.Atoi(fields[2+2*k])
		if err != nil {
			return nil, err
		}
		if a < 1 || a > nAtoms {
			return nil, fmt.Errorf("atom index %d out of range", a)
		}
		out = append(out, [2]int{a - 1, v})
	}
	return out, nil
}

// parseDataItems reads "> <Key>" headers followed by value lines up to a blank
// line. Multi-line values are joined with "\n".
func parseDataItems(lines []string, props *molecule.Properties) error {
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if !strings.HasPrefix(line, ">") {
			continue
		}
		open := strings.Index(line, "<")
		if open < 0 {
			return fmt.Errorf("data header %q has no <key>", line)
		}
		closing := strings.Index(line[open:], ">")
		if closing < 0 {
			return fmt.Errorf("data header %q has no <key>", line)
		}
		key := line[open+1 : open+closing]
		var value []string
		for i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != "" {
			i++
			value = append(value, lines[i])
		}
		props.Set(key, strings.Join(value, "\n"))
	}
	return nil
}

// field returns line[start:end] clipped to the line length.
func field(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end > len(line) {
		end = len(line)
	}
	return line[start:end]
}

func fixedInt(line string, start, end int) (int, error) {
	return strconv.Atoi(strings.TrimSpace(field(line, start, end)))
}
