package sdf_test

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ShiftGraph/internal/domain/molecule"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/chem/sdf"
	"github.com/turtacn/ShiftGraph/internal/testutil"
	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
)

func readAll(t *testing.T, content string) []*sdf.Record {
	t.Helper()
	rd := sdf.NewReader(strings.NewReader(content))
	var out []*sdf.Record
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestReader_ParsesEthanol(t *testing.T) {
	recs := readAll(t, testutil.Ethanol().SDF())
	require.Len(t, recs, 1)
	require.NoError(t, recs[0].ParseErr)

	mol := recs[0].Molecule
	assert.Equal(t, "ethanol", mol.Name)
	require.Len(t, mol.Atoms, 3)
	assert.Equal(t, "O", mol.Atoms[2].Symbol)
	assert.Equal(t, 8, mol.Atoms[2].AtomicNum)
	require.Len(t, mol.Bonds, 2)
	assert.Equal(t, 1, mol.Bonds[1].Begin)
	assert.Equal(t, 2, mol.Bonds[1].End)
	assert.Equal(t, 1, mol.Bonds[1].Order)

	require.NotNil(t, mol.Conformer)
	assert.True(t, mol.Conformer.Is3D)
	assert.InDelta(t, -1.2, mol.Conformer.Coords[0][0], 1e-9)
	assert.InDelta(t, -0.2, mol.Conformer.Coords[2][2], 1e-9)

	v, ok := mol.Properties.Get("Spectrum 13C 0")
	assert.True(t, ok)
	assert.Equal(t, "18.2;0.0Q;0|57.8;0.0T;1|", v)
	assert.True(t, strings.HasSuffix(mol.MolBlock, "M  END\n"))
}

func TestReader_ContinuesAfterBadRecord(t *testing.T) {
	content := testutil.Ethanol().SDF() + testutil.Unparsable + testutil.Benzene().SDF()
	recs := readAll(t, content)
	require.Len(t, recs, 3)

	assert.NotNil(t, recs[0].Molecule)
	assert.Nil(t, recs[1].Molecule)
	require.Error(t, recs[1].ParseErr)
	assert.True(t, apperrors.IsCode(recs[1].ParseErr, apperrors.CodeRecordParse))
	assert.Equal(t, 1, recs[1].Index)
	assert.Equal(t, "benzene", recs[2].Molecule.Name)
	assert.Equal(t, 2, recs[2].Index)
}

func TestReader_LastRecordWithoutTerminator(t *testing.T) {
	content := strings.TrimSuffix(testutil.Ethanol().SDF(), "$$$$\n")
	recs := readAll(t, content)
	require.Len(t, recs, 1)
	assert.NoError(t, recs[0].ParseErr)
}

func TestReader_EmptyAndTrailingBlankLines(t *testing.T) {
	assert.Empty(t, readAll(t, ""))
	recs := readAll(t, testutil.Ethanol().SDF()+"\n\n")
	assert.Len(t, recs, 1)
}

func TestReader_CRLF(t *testing.T) {
	content := strings.ReplaceAll(testutil.Ethanol().SDF(), "\n", "\r\n")
	recs := readAll(t, content)
	require.Len(t, recs, 1)
	require.NoError(t, recs[0].ParseErr)
	assert.Len(t, recs[0].Molecule.Atoms, 3)
}

func TestReader_ChargesAndRadicals(t *testing.T) {
	m := testutil.Ethanol()
	m.Atoms[2].ChargeCode = 5 // -1 in the atom block
	recs := readAll(t, m.SDF())
	require.NoError(t, recs[0].ParseErr)
	assert.Equal(t, -1, recs[0].Molecule.Atoms[2].FormalCharge)

	m.PropertyLines = []string{"M  CHG  1   1   1", "M  RAD  1   2   2", "M  ISO  1   1  13"}
	recs = readAll(t, m.SDF())
	require.NoError(t, recs[0].ParseErr)
	atoms := recs[0].Molecule.Atoms
	assert.Equal(t, 1, atoms[0].FormalCharge)
	assert.Equal(t, 0, atoms[2].FormalCharge, "M  CHG resets atom block charges")
	assert.Equal(t, 1, atoms[1].Radicals)
	assert.Equal(t, 13, atoms[0].Isotope)
}

func TestReader_MultiLineDataItem(t *testing.T) {
	m := testutil.Ethanol().WithProps("Spectrum 13C 0", "18.2;0.0Q;0|\n57.8;0.0T;1|", "Solvent", "CDCl3")
	recs := readAll(t, m.SDF())
	require.NoError(t, recs[0].ParseErr)
	v, _ := recs[0].Molecule.Properties.Get("Spectrum 13C 0")
	assert.Equal(t, "18.2;0.0Q;0|\n57.8;0.0T;1|", v)
	assert.Equal(t, []string{"Spectrum 13C 0", "Solvent"}, recs[0].Molecule.Properties.Keys())
}

func TestReader_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*testutil.FixtureMolecule)
		want   string
	}{
		{"unknown element", func(m *testutil.FixtureMolecule) { m.Atoms[0].Symbol = "Xx" }, "unknown element"},
		{"bond out of range", func(m *testutil.FixtureMolecule) { m.Bonds[0].B = 9 }, "out of range"},
		{"self bond", func(m *testutil.FixtureMolecule) { m.Bonds[0].B = 1 }, "self bond"},
		{"duplicate bond", func(m *testutil.FixtureMolecule) { m.Bonds[1] = testutil.FixtureBond{A: 2, B: 1, Order: 1} }, "duplicate bond"},
		{"bad bond type", func(m *testutil.FixtureMolecule) { m.Bonds[0].Order = 9 }, "invalid bond type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testutil.Ethanol()
			m.Atoms = append([]testutil.FixtureAtom(nil), m.Atoms...)
			m.Bonds = append([]testutil.FixtureBond(nil), m.Bonds...)
			tt.mutate(&m)
			recs := readAll(t, m.SDF())
			require.Len(t, recs, 1)
			require.Error(t, recs[0].ParseErr)
			assert.Contains(t, recs[0].ParseErr.Error(), tt.want)
		})
	}
}

func TestReader_TruncatedRecord(t *testing.T) {
	content := "x\n  FIXTURE 0101000000 3D\n\n  5  0  0  0  0  0  0  0  0  0999 V2000\nM  END\n$$$$\n"
	recs := readAll(t, content)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0].ParseErr.Error(), "truncated")
}

func TestWriter_RoundTripPreservesMolBlock(t *testing.T) {
	original := testutil.JoinSDF(testutil.Ethanol(), testutil.Benzene())
	recs := readAll(t, original)

	var buf bytes.Buffer
	w := sdf.NewWriter(&buf)
	for _, r := range recs {
		require.NoError(t, w.Write(r.Molecule))
	}
	require.NoError(t, w.Flush())
	assert.Equal(t, 2, w.Count())
	assert.Equal(t, original, buf.String())
}

func TestWriter_GeneratesMolBlock(t *testing.T) {
	m := testutil.Ethanol()
	m.Atoms[0].ChargeCode = 3 // +1
	recs := readAll(t, m.SDF())
	mol := recs[0].Molecule
	mol.MolBlock = ""

	var buf bytes.Buffer
	w := sdf.NewWriter(&buf)
	require.NoError(t, w.Write(mol))
	require.NoError(t, w.Flush())
	assert.Contains(t, buf.String(), "M  CHG  1   1   1\n")

	again := readAll(t, buf.String())
	require.Len(t, again, 1)
	require.NoError(t, again[0].ParseErr)
	got := again[0].Molecule
	assert.Equal(t, mol.Name, got.Name)
	assert.Equal(t, mol.Bonds, got.Bonds)
	assert.True(t, got.Conformer.Is3D)
	assert.Equal(t, 1, got.Atoms[0].FormalCharge)
	for i := range mol.Atoms {
		assert.Equal(t, mol.Atoms[i].Symbol, got.Atoms[i].Symbol)
		assert.InDeltaSlice(t, mol.Conformer.Coords[i][:], got.Conformer.Coords[i][:], 1e-4)
	}
}

func TestReadFileAndWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "in.sdf", testutil.JoinSDF(testutil.Ethanol(), testutil.SingleAtom()))

	recs, err := sdf.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	out := filepath.Join(dir, "out.sdf")
	require.NoError(t, sdf.WriteFile(out, []*molecule.Molecule{recs[1].Molecule}))

	again, err := sdf.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "methane-heavy", again[0].Molecule.Name)

	_, err = sdf.ReadFile(filepath.Join(dir, "missing.sdf"))
	assert.Error(t, err)
}
