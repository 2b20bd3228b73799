package split

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ShiftGraph/internal/testutil"
	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
)

func TestNPZ_RoundTrip(t *testing.T) {
	ix := Indices{Train: []int{4, 0, 3}, Val: []int{1}, Test: []int{}}
	path, err := SaveNPZ(filepath.Join(t.TempDir(), "out", "splits"), ix)
	require.NoError(t, err)
	assert.Equal(t, ".npz", filepath.Ext(path))

	back, err := LoadNPZ(path)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 0, 3}, back.Train)
	assert.Equal(t, []int{1}, back.Val)
	assert.Empty(t, back.Test)
}

func TestNPZ_MembersAreAlignedNPY(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNPZ(&buf, Indices{Train: []int{1, 2}, Val: []int{3}, Test: []int{4}}))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)
	assert.Equal(t, "idx_train.npy", zr.File[0].Name)
	assert.Equal(t, zip.Store, zr.File[0].Method)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	var raw bytes.Buffer
	_, err = raw.ReadFrom(rc)
	require.NoError(t, err)

	data := raw.Bytes()
	assert.Equal(t, "\x93NUMPY", string(data[:6]))
	headerLen := int(binary.LittleEndian.Uint16(data[8:10]))
	assert.Zero(t, (10+headerLen)%64)
	header := string(data[10 : 10+headerLen])
	assert.Contains(t, header, "'descr': '<i4'")
	assert.Contains(t, header, "'shape': (2,)")
	assert.Equal(t, byte('\n'), header[len(header)-1])
	assert.Len(t, data, 10+headerLen+8)
}

// writeInt64NPZ builds an archive the way numpy does for int64 arrays.
func writeInt64NPZ(t *testing.T, path string, arrays map[string][]int64) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, values := range arrays {
		w, err := zw.Create(name + ".npy")
		require.NoError(t, err)
		header := fmt.Sprintf("{'descr': '<i8', 'fortran_order': False, 'shape': (%d,), }\n", len(values))
		w.Write([]byte("\x93NUMPY\x01\x00"))
		binary.Write(w, binary.LittleEndian, uint16(len(header)))
		w.Write([]byte(header))
		binary.Write(w, binary.LittleEndian, values)
	}
	require.NoError(t, zw.Close())
}

func TestLoadNPZ_Int64(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splits.npz")
	writeInt64NPZ(t, path, map[string][]int64{
		KeyTrain: {2, 0},
		KeyVal:   {1},
		KeyTest:  {3},
	})
	ix, err := LoadNPZ(path)
	require.NoError(t, err)
	assert.Equal(t, Indices{Train: []int{2, 0}, Val: []int{1}, Test: []int{3}}, ix)
}

func TestLoadNPZ_MissingMember(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splits.npz")
	writeInt64NPZ(t, path, map[string][]int64{KeyTrain: {0}, KeyVal: {1}})
	_, err := LoadNPZ(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeSplitFileRead))
	assert.Contains(t, err.Error(), KeyTest)
}

func TestLoadNPZ_NotAnArchive(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "bad.npz", "not a zip")
	_, err := LoadNPZ(path)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeSplitFileRead))
}

func TestReadNPY_RejectsOtherDtypes(t *testing.T) {
	header := "{'descr': '<f8', 'fortran_order': False, 'shape': (1,), }\n"
	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY\x01\x00")
	binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	_, err := readNPYInts(&buf)
	assert.ErrorContains(t, err, "unsupported dtype")
}

func TestReadNPY_RejectsScalarShape(t *testing.T) {
	header := "{'descr': '<i8', 'fortran_order': False, 'shape': (), }\n"
	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY\x01\x00")
	binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	binary.Write(&buf, binary.LittleEndian, int64(7))
	_, err := readNPYInts(&buf)
	assert.ErrorContains(t, err, "not one-dimensional")
}

func TestReadNPY_EmptyArray(t *testing.T) {
	header := "{'descr': '<i4', 'fortran_order': False, 'shape': (0,), }\n"
	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY\x01\x00")
	binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	values, err := readNPYInts(&buf)
	require.NoError(t, err)
	assert.Empty(t, values)
}
