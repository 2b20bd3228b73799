package split

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"

	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
)

// Archive member names, matching numpy.savez keyword arguments.
const (
	KeyTrain = "idx_train"
	KeyVal   = "idx_val"
	KeyTest  = "idx_test"
)

var npyMagic = []byte("\x93NUMPY")

// SaveNPZ writes ix to path as an uncompressed numpy archive holding three
// 1-D int32 arrays. Like numpy.savez, ".npz" is appended when missing. The
// final path is returned.
func SaveNPZ(path string, ix Indices) (string, error) {
	if !strings.HasSuffix(path, ".npz") {
		path += ".npz"
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", apperrors.Wrap(err, apperrors.CodeSplitFileWrite, "failed to create split directory").WithDetail(dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeSplitFileWrite, "failed to create split file").WithDetail(path)
	}
	defer f.Close()

	if err := WriteNPZ(f, ix); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeSplitFileWrite, "failed to write split file").WithDetail(path)
	}
	if err := f.Close(); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeSplitFileWrite, "failed to close split file").WithDetail(path)
	}
	return path, nil
}

// WriteNPZ writes the archive to w.
func WriteNPZ(w io.Writer, ix Indices) error {
	zw := zip.NewWriter(w)
	for _, member := range []struct {
		name string
		idx  []int
	}{{KeyTrain, ix.Train}, {KeyVal, ix.Val}, {KeyTest, ix.Test}} {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: member.name + ".npy", Method: zip.Store})
		if err != nil {
			return err
		}
		if err := writeNPYInt32(fw, member.idx); err != nil {
			return fmt.Errorf("%s: %w", member.name, err)
		}
	}
	return zw.Close()
}

// writeNPYInt32 writes a version 1.0 .npy file with dtype '<i4'.
func writeNPYInt32(w io.Writer, values []int) error {
	header := fmt.Sprintf("{'descr': '<i4', 'fortran_order': False, 'shape': (%d,), }", len(values))
	// magic(6) + version(2) + header length(2) + header, padded to 64 bytes and ending in '\n'.
	pad := 64 - (10+len(header)+1)%64
	if pad == 64 {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.Write(npyMagic)
	buf.Write([]byte{1, 0})
	binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	for _, v := range values {
		if v < -1<<31 || v > 1<<31-1 {
			return fmt.Errorf("index %d overflows int32", v)
		}
		binary.Write(&buf, binary.LittleEndian, int32(v))
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// LoadNPZ reads an archive written by SaveNPZ or numpy.savez. Arrays may be
// '<i4' or '<i8'.
func LoadNPZ(path string) (Indices, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Indices{}, apperrors.Wrap(err, apperrors.CodeSplitFileRead, "failed to open split file").WithDetail(path)
	}
	defer zr.Close()

	arrays := make(map[string][]int, 3)
	for _, f := range zr.File {
		name := strings.TrimSuffix(f.Name, ".npy")
		if name != KeyTrain && name != KeyVal && name != KeyTest {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Indices{}, apperrors.Wrap(err, apperrors.CodeSplitFileRead, "failed to open archive member").WithDetail(f.Name)
		}
		values, err := readNPYInts(rc)
		rc.Close()
		if err != nil {
			return Indices{}, apperrors.Wrap(err, apperrors.CodeSplitFileRead, "failed to decode archive member").WithDetail(f.Name)
		}
		arrays[name] = values
	}
	for _, key := range []string{KeyTrain, KeyVal, KeyTest} {
		if _, ok := arrays[key]; !ok {
			return Indices{}, apperrors.New(apperrors.CodeSplitFileRead, "split file lacks array").WithDetail(key)
		}
	}
	return Indices{Train: arrays[KeyTrain], Val: arrays[KeyVal], Test: arrays[KeyTest]}, nil
}

var (
	descrPattern = regexp.MustCompile(`'descr':\s*'([^']*)'`)
	shapePattern = regexp.MustCompile(`'shape':\s*\(\s*(\d+)\s*,?\s*\)`)
)

func readNPYInts(r io.Reader) ([]int, error) {
	prefix := make([]byte, 8)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, err
	}
	if !bytes.Equal(prefix[:6], npyMagic) {
		return nil, fmt.Errorf("not an npy file")
	}
	var headerLen int
	switch prefix[6] {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		headerLen = int(n)
	default:
		return nil, fmt.Errorf("unsupported npy version %d.%d", prefix[6], prefix[7])
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	m := descrPattern.FindSubmatch(header)
	if m == nil {
		return nil, fmt.Errorf("npy header has no descr")
	}
	descr := string(m[1])
	if descr != "<i4" && descr != "<i8" {
		return nil, fmt.Errorf("unsupported dtype %q", descr)
	}
	s := shapePattern.FindSubmatch(header)
	if s == nil {
		return nil, fmt.Errorf("npy array is not one-dimensional")
	}
	n, err := strconv.Atoi(string(s[1]))
	if err != nil {
		return nil, err
	}

	out := make([]int, n)
	if descr == "<i4" {
		raw := make([]int32, n)
		if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			out[i] = int(v)
		}
		return out, nil
	}
	raw := make([]int64, n)
	if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
		return nil, err
	}
	for i, v := range raw {
		out[i] = int(v)
	}
	return out, nil
}
