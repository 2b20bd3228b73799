package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FixtureAtom is one atom line of a fixture record.
type FixtureAtom struct {
	Symbol  string
	X, Y, Z float64
	// ChargeCode is the raw V2000 charge column.
	ChargeCode int
	Parity     int
}

// FixtureBond uses 1-based atom numbers as written in the file.
type FixtureBond struct {
	A, B, Order int
	Stereo      int
}

// FixtureMolecule renders a V2000 record in fixed-column layout.
type FixtureMolecule struct {
	Name  string
	Dim   string
	Atoms []FixtureAtom
	Bonds []FixtureBond
	// Extra lines placed before "M  END".
	PropertyLines []string
	// Props are data items in order: key, value, key, value...
	Props []string
}

// SDF renders the record including the "$$$$" terminator.
func (m FixtureMolecule) SDF() string {
	var sb strings.Builder
	dim := m.Dim
	if dim == "" {
		dim = "3D"
	}
	sb.WriteString(m.Name + "\n")
	fmt.Fprintf(&sb, "  FIXTURE 0101000000%s\n", dim)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%3d%3d  0  0  0  0  0  0  0  0999 V2000\n", len(m.Atoms), len(m.Bonds))
	for _, a := range m.Atoms {
		fmt.Fprintf(&sb, "%10.4f%10.4f%10.4f %-3s 0%3d%3d  0  0  0  0  0  0  0  0  0\n",
			a.X, a.Y, a.Z, a.Symbol, a.ChargeCode, a.Parity)
	}
	for _, b := range m.Bonds {
		fmt.Fprintf(&sb, "%3d%3d%3d%3d\n", b.A, b.B, b.Order, b.Stereo)
	}
	for _, l := range m.PropertyLines {
		sb.WriteString(l + "\n")
	}
	sb.WriteString("M  END\n")
	for i := 0; i+1 < len(m.Props); i += 2 {
		fmt.Fprintf(&sb, "> <%s>\n%s\n\n", m.Props[i], m.Props[i+1])
	}
	sb.WriteString("$$$$\n")
	return sb.String()
}

// WithProps returns a copy of m with the given data items replacing its own.
func (m FixtureMolecule) WithProps(props ...string) FixtureMolecule {
	m.Props = props
	return m
}

// WithName returns a copy of m renamed.
func (m FixtureMolecule) WithName(name string) FixtureMolecule {
	m.Name = name
	return m
}

// Ethanol is heavy-atom ethanol (C-C-O) with 3D coordinates and a carbon
// spectrum labelling both carbons.
func Ethanol() FixtureMolecule {
	return FixtureMolecule{
		Name: "ethanol",
		Atoms: []FixtureAtom{
			{Symbol: "C", X: -1.2, Y: 0.1, Z: 0.3},
			{Symbol: "C", X: 0.2, Y: -0.4, Z: 0.1},
			{Symbol: "O", X: 1.1, Y: 0.6, Z: -0.2},
		},
		Bonds: []FixtureBond{{A: 1, B: 2, Order: 1}, {A: 2, B: 3, Order: 1}},
		Props: []string{"Spectrum 13C 0", "18.2;0.0Q;0|57.8;0.0T;1|"},
	}
}

// Benzene is a Kekule benzene ring with explicit hydrogens omitted.
func Benzene() FixtureMolecule {
	m := FixtureMolecule{Name: "benzene"}
	coords := [][2]float64{{1.39, 0}, {0.695, 1.204}, {-0.695, 1.204}, {-1.39, 0}, {-0.695, -1.204}, {0.695, -1.204}}
	for i, c := range coords {
		m.Atoms = append(m.Atoms, FixtureAtom{Symbol: "C", X: c[0], Y: c[1], Z: 0.01 * float64(i)})
	}
	for i := 0; i < 6; i++ {
		order := 1
		if i%2 == 0 {
			order = 2
		}
		m.Bonds = append(m.Bonds, FixtureBond{A: i + 1, B: (i+1)%6 + 1, Order: order})
	}
	m.Props = []string{"Spectrum 13C 0", "128.5;0.0D;0|128.5;0.0D;1|128.5;0.0D;2|128.5;0.0D;3|128.5;0.0D;4|128.5;0.0D;5|"}
	return m
}

// SingleAtom is a lone carbon atom: parseable, 3D, but bond-free.
func SingleAtom() FixtureMolecule {
	return FixtureMolecule{
		Name:  "methane-heavy",
		Atoms: []FixtureAtom{{Symbol: "C", X: 0.1, Y: 0.2, Z: 0.3}},
		Props: []string{"Spectrum 13C 0", "-2.3;0.0Q;0|"},
	}
}

// Unparsable is a record whose counts line is garbage.
const Unparsable = "broken\n  FIXTURE\n\nxx yy  0  0  0  0  0  0  0  0999 V2000\nM  END\n$$$$\n"

// JoinSDF concatenates rendered records.
func JoinSDF(mols ...FixtureMolecule) string {
	var sb strings.Builder
	for _, m := range mols {
		sb.WriteString(m.SDF())
	}
	return sb.String()
}

// WriteFile writes content to dir/name, creating parent directories.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
