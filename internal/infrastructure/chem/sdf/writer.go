package sdf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/turtacn/ShiftGraph/internal/domain/molecule"
)

// programLine is written when a connection table has to be generated. The
// dimension code sits at columns 21-22.
const programLine = "  SHFTGRPH0000000000%s\n"

// Writer writes molecules as SDF records. Molecules read by Reader keep their
// original connection table text; all data items are written in order.
type Writer struct {
	w     *bufio.Writer
	count int
}

// NewWriter wraps w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one record.
func (wr *Writer) Write(mol *molecule.Molecule) error {
	block := mol.MolBlock
	if block == "" {
		block = MolBlock(mol)
	}
	if _, err := wr.w.WriteString(block); err != nil {
		return err
	}
	if !strings.HasSuffix(block, "\n") {
		if err := wr.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	for _, key := range mol.Properties.Keys() {
		value, _ := mol.Properties.Get(key)
		if _, err := fmt.Fprintf(wr.w, "> <%s>\n%s\n\n", key, value); err != nil {
			return err
		}
	}
	if _, err := wr.w.WriteString(RecordTerminator + "\n"); err != nil {
		return err
	}
	wr.count++
	return nil
}

// Count returns the number of records written.
func (wr *Writer) Count() int {
	return wr.count
}

// Flush writes buffered data to the underlying writer.
func (wr *Writer) Flush() error {
	return wr.w.Flush()
}

// WriteFile writes mols to path, replacing any existing file.
func WriteFile(path string, mols []*molecule.Molecule) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	wr := NewWriter(f)
	for _, mol := range mols {
		if err = wr.Write(mol); err != nil {
			return err
		}
	}
	return wr.Flush()
}

// MolBlock renders a V2000 connection table for mol, ending with "M  END".
func MolBlock(mol *molecule.Molecule) string {
	var sb strings.Builder
	dim := "2D"
	if mol.Conformer != nil && mol.Conformer.Is3D {
		dim = "3D"
	}
	sb.WriteString(mol.Name)
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, programLine, dim)
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "%3d%3d  0  0  0  0  0  0  0  0999 V2000\n", len(mol.Atoms), len(mol.Bonds))

	var charges, radicals, isotopes [][2]int
	for i, a := range mol.Atoms {
		var xyz [3]float64
		if mol.Conformer != nil && i < len(mol.Conformer.Coords) {
			xyz = mol.Conformer.Coords[i]
		}
		fmt.Fprintf(&sb, "%10.4f%10.4f%10.4f %-3s%2d%3d%3d%3d  0  0  0  0  0  0  0  0  0\n",
			xyz[0], xyz[1], xyz[2], a.Symbol, a.MassDiff, 0, a.Parity, a.HCountHint)
		if a.FormalCharge != 0 {
			charges = append(charges, [2]int{i + 1, a.FormalCharge})
		}
		if a.Radicals != 0 {
			radicals = append(radicals, [2]int{i + 1, radicalCode(a.Radicals)})
		}
		if a.Isotope != 0 {
			isotopes = append(isotopes, [2]int{i + 1, a.Isotope})
		}
	}
	for _, b := range mol.Bonds {
		fmt.Fprintf(&sb, "%3d%3d%3d%3d\n", b.Begin+1, b.End+1, b.Order, b.Stereo)
	}
	writeAtomValueLines(&sb, "CHG", charges)
	writeAtomValueLines(&sb, "RAD", radicals)
	writeAtomValueLines(&sb, "ISO", isotopes)
	sb.WriteString("M  END\n")
	return sb.String()
}

func radicalCode(electrons int) int {
	if electrons == 1 {
		return 2
	}
	return 3
}

// writeAtomValueLines emits at most eight entries per property line.
func writeAtomValueLines(sb *strings.Builder, tag string, pairs [][2]int) {
	for len(pairs) > 0 {
		n := len(pairs)
		if n > 8 {
			n = 8
		}
		fmt.Fprintf(sb, "M  %s%3d", tag, n)
		for _, p := range pairs[:n] {
			fmt.Fprintf(sb, " %3d %3d", p[0], p[1])
		}
		sb.WriteByte('\n')
		pairs = pairs[n:]
	}
}
