package dataset

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/turtacn/ShiftGraph/internal/intelligence/molgraph"
	"github.com/turtacn/ShiftGraph/pkg/errors"
	mtypes "github.com/turtacn/ShiftGraph/pkg/types/molecule"
)

// Cache file layout: the 4-byte magic, a little-endian uint16 format version,
// then a zstd frame holding the protobuf-wire encoded dataset.
const (
	CacheMagic   = "SGDS"
	CacheVersion = uint16(1)
	headerLen    = len(CacheMagic) + 2
)

// Dataset message fields.
const (
	fieldNucleus protowire.Number = 1
	fieldExample protowire.Number = 2
)

// Example message fields. Matrices are stored flattened in row-major order
// with their width alongside.
const (
	fieldName        protowire.Number = 1
	fieldSourceIndex protowire.Number = 2
	fieldNumNodes    protowire.Number = 3
	fieldXWidth      protowire.Number = 4
	fieldX           protowire.Number = 5
	fieldEdgeSrc     protowire.Number = 6
	fieldEdgeDst     protowire.Number = 7
	fieldEdgeWidth   protowire.Number = 8
	fieldEdgeAttr    protowire.Number = 9
	fieldPos         protowire.Number = 10
	fieldZ           protowire.Number = 11
	fieldLabel       protowire.Number = 12
	fieldMask        protowire.Number = 13
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
)

// Encode serializes ds. Equal datasets always produce identical bytes.
func Encode(ds *Dataset) ([]byte, error) {
	var body []byte
	body = protowire.AppendTag(body, fieldNucleus, protowire.BytesType)
	body = protowire.AppendString(body, string(ds.Nucleus))
	for i := range ds.Examples() {
		ex := &ds.examples[i]
		msg, err := encodeExample(ex)
		if err != nil {
			return nil, err
		}
		body = protowire.AppendTag(body, fieldExample, protowire.BytesType)
		body = protowire.AppendBytes(body, msg)
	}

	out := make([]byte, headerLen, headerLen+len(body)/2)
	copy(out, CacheMagic)
	binary.LittleEndian.PutUint16(out[len(CacheMagic):], CacheVersion)
	return zstdEncoder.EncodeAll(body, out), nil
}

func encodeExample(ex *LabeledExample) ([]byte, error) {
	g := ex.Graph
	if g == nil {
		return nil, errors.Newf(errors.CodeInternal, "example %d has no graph", ex.SourceIndex)
	}
	var b []byte
	b = protowire.AppendTag(b, fieldName, protowire.BytesType)
	b = protowire.AppendString(b, ex.Name)
	b = appendVarintField(b, fieldSourceIndex, uint64(ex.SourceIndex))
	b = appendVarintField(b, fieldNumNodes, uint64(g.NumNodes()))

	xw, x, err := flatten(g.X)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "ragged node features")
	}
	b = appendVarintField(b, fieldXWidth, uint64(xw))
	b = appendPackedInts(b, fieldX, x)

	b = appendPackedInts(b, fieldEdgeSrc, g.EdgeIndex[0])
	b = appendPackedInts(b, fieldEdgeDst, g.EdgeIndex[1])
	ew, ea, err := flatten(g.EdgeAttr)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "ragged edge features")
	}
	b = appendVarintField(b, fieldEdgeWidth, uint64(ew))
	b = appendPackedInts(b, fieldEdgeAttr, ea)

	pos := make([]float64, 0, 3*len(g.Pos))
	for _, p := range g.Pos {
		pos = append(pos, p[0], p[1], p[2])
	}
	b = appendPackedDoubles(b, fieldPos, pos)
	b = appendPackedInts(b, fieldZ, g.Z)
	b = appendPackedDoubles(b, fieldLabel, ex.Label)

	mask := make([]int64, len(ex.Mask))
	for i, m := range ex.Mask {
		if m {
			mask[i] = 1
		}
	}
	b = appendPackedInts(b, fieldMask, mask)
	return b, nil
}

func flatten(rows [][]int64) (int, []int64, error) {
	if len(rows) == 0 {
		return 0, nil, nil
	}
	w := len(rows[0])
	out := make([]int64, 0, w*len(rows))
	for i, r := range rows {
		if len(r) != w {
			return 0, nil, fmt.Errorf("row %d has %d columns, want %d", i, len(r), w)
		}
		out = append(out, r...)
	}
	return w, out, nil
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendPackedInts(b []byte, num protowire.Number, vs []int64) []byte {
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func appendPackedDoubles(b []byte, num protowire.Number, vs []float64) []byte {
	packed := make([]byte, 0, 8*len(vs))
	for _, v := range vs {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func corrupt(format string, args ...interface{}) *errors.AppError {
	return errors.Newf(errors.CodeCacheCorrupt, format, args...)
}

// Decode parses bytes produced by Encode.
func Decode(data []byte) (*Dataset, error) {
	if len(data) < headerLen || !bytes.Equal(data[:len(CacheMagic)], []byte(CacheMagic)) {
		return nil, corrupt("missing %s header", CacheMagic)
	}
	if v := binary.LittleEndian.Uint16(data[len(CacheMagic):headerLen]); v != CacheVersion {
		return nil, errors.Newf(errors.CodeCacheVersionUnsupported, "cache format version %d, supported %d", v, CacheVersion)
	}
	body, err := zstdDecoder.DecodeAll(data[headerLen:], nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCacheCorrupt, "cache payload is not valid zstd")
	}

	ds := &Dataset{}
	for len(body) > 0 {
		num, typ, n := protowire.ConsumeTag(body)
		if n < 0 {
			return nil, corrupt("bad dataset tag: %v", protowire.ParseError(n))
		}
		body = body[n:]
		switch {
		case num == fieldNucleus && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(body)
			if m < 0 {
				return nil, corrupt("bad nucleus: %v", protowire.ParseError(m))
			}
			ds.Nucleus = mtypes.Nucleus(s)
			n = m
		case num == fieldExample && typ == protowire.BytesType:
			msg, m := protowire.ConsumeBytes(body)
			if m < 0 {
				return nil, corrupt("bad example: %v", protowire.ParseError(m))
			}
			ex, err := decodeExample(msg)
			if err != nil {
				return nil, err
			}
			ds.examples = append(ds.examples, *ex)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, body)
			if n < 0 {
				return nil, corrupt("bad field %d: %v", num, protowire.ParseError(n))
			}
		}
		body = body[n:]
	}
	if !ds.Nucleus.IsValid() {
		return nil, corrupt("unknown nucleus %q", ds.Nucleus)
	}
	return ds, nil
}

func decodeExample(b []byte) (*LabeledExample, error) {
	var (
		ex                           LabeledExample
		numNodes, xw, ew             int
		x, src, dst, ea, z, maskBits []int64
		pos                          []float64
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, corrupt("bad example tag: %v", protowire.ParseError(n))
		}
		b = b[n:]

		var err error
		switch {
		case typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, corrupt("bad varint field %d: %v", num, protowire.ParseError(m))
			}
			switch num {
			case fieldSourceIndex:
				ex.SourceIndex = int(v)
			case fieldNumNodes:
				numNodes = int(v)
			case fieldXWidth:
				xw = int(v)
			case fieldEdgeWidth:
				ew = int(v)
			}
			n = m
		case typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, corrupt("bad bytes field %d: %v", num, protowire.ParseError(m))
			}
			switch num {
			case fieldName:
				ex.Name = string(v)
			case fieldX:
				x, err = consumePackedInts(v)
			case fieldEdgeSrc:
				src, err = consumePackedInts(v)
			case fieldEdgeDst:
				dst, err = consumePackedInts(v)
			case fieldEdgeAttr:
				ea, err = consumePackedInts(v)
			case fieldZ:
				z, err = consumePackedInts(v)
			case fieldMask:
				maskBits, err = consumePackedInts(v)
			case fieldPos:
				pos, err = consumePackedDoubles(v)
			case fieldLabel:
				ex.Label, err = consumePackedDoubles(v)
			}
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, corrupt("bad field %d: %v", num, protowire.ParseError(n))
			}
		}
		if err != nil {
			return nil, corrupt("field %d: %v", num, err)
		}
		b = b[n:]
	}

	if len(src) != len(dst) {
		return nil, corrupt("example %d: %d edge sources, %d targets", ex.SourceIndex, len(src), len(dst))
	}
	if len(pos) != 3*numNodes {
		return nil, corrupt("example %d: %d coordinates for %d nodes", ex.SourceIndex, len(pos), numNodes)
	}
	g := &molgraph.Graph{Z: z}
	var err error
	if g.X, err = unflatten(x, numNodes, xw); err != nil {
		return nil, corrupt("example %d node features: %v", ex.SourceIndex, err)
	}
	if g.EdgeAttr, err = unflatten(ea, len(src), ew); err != nil {
		return nil, corrupt("example %d edge features: %v", ex.SourceIndex, err)
	}
	g.EdgeIndex = [2][]int64{src, dst}
	g.Pos = make([][3]float64, numNodes)
	for i := range g.Pos {
		copy(g.Pos[i][:], pos[3*i:3*i+3])
	}
	ex.Graph = g

	ex.Mask = make([]bool, len(maskBits))
	for i, v := range maskBits {
		ex.Mask[i] = v != 0
	}
	if err := ex.Validate(); err != nil {
		return nil, corrupt("%v", err)
	}
	if err := g.Validate(); err != nil {
		return nil, corrupt("example %d: %v", ex.SourceIndex, err)
	}
	return &ex, nil
}

func unflatten(flat []int64, rows, width int) ([][]int64, error) {
	if rows < 0 || width < 0 {
		return nil, fmt.Errorf("negative shape %dx%d", rows, width)
	}
	// width comes from the blob, so rows*width may overflow.
	if width == 0 && len(flat) != 0 || width > 0 && (len(flat)%width != 0 || len(flat)/width != rows) {
		return nil, fmt.Errorf("%d values for %dx%d", len(flat), rows, width)
	}
	out := make([][]int64, rows)
	for i := range out {
		out[i] = flat[i*width : (i+1)*width : (i+1)*width]
	}
	return out, nil
}

func consumePackedInts(b []byte) ([]int64, error) {
	var out []int64
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, int64(v))
		b = b[n:]
	}
	return out, nil
}

func consumePackedDoubles(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("packed doubles length %d", len(b))
	}
	out := make([]float64, 0, len(b)/8)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, math.Float64frombits(v))
		b = b[n:]
	}
	return out, nil
}
