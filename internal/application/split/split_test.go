package split

import (
	"sort"
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want Size
	}{
		{"None", Unset()},
		{"", Unset()},
		{"8", Count(8)},
		{"0.8", Fraction(0.8)},
		{"1.0", Fraction(1)},
		{"1e-1", Fraction(0.1)},
		{" 3 ", Count(3)},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseSize("eighty")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidSplit))
}

func TestSize_StringRoundTrips(t *testing.T) {
	for _, s := range []Size{Unset(), Count(0), Count(12), Fraction(1), Fraction(0.25)} {
		back, err := ParseSize(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, back, s.String())
	}
}

func TestSize_YAML(t *testing.T) {
	type doc struct {
		Train Size `yaml:"train"`
		Val   Size `yaml:"val"`
		Test  Size `yaml:"test"`
	}
	out, err := yaml.Marshal(doc{Train: Fraction(1), Val: Count(5), Test: Unset()})
	require.NoError(t, err)
	assert.Equal(t, "train: 1.0\nval: 5\ntest: null\n", string(out))

	var back doc
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, Fraction(1), back.Train)
	assert.Equal(t, Count(5), back.Val)
	assert.True(t, back.Test.IsUnset())
}

func TestSizeDecodeHook(t *testing.T) {
	var out struct {
		Train Size
		Val   Size
		Test  Size
		Other int
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{DecodeHook: SizeDecodeHook(), Result: &out})
	require.NoError(t, err)
	require.NoError(t, dec.Decode(map[string]interface{}{"train": 1.0, "val": 3, "test": "None", "other": 7}))

	assert.Equal(t, Fraction(1), out.Train)
	assert.Equal(t, Count(3), out.Val)
	assert.True(t, out.Test.IsUnset())
	assert.Equal(t, 7, out.Other)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name             string
		n                int
		train, val, test Size
		want             Sizes
	}{
		{"fractions", 10, Fraction(0.8), Fraction(0.1), Fraction(0.1), Sizes{N: 10, Train: 8, Val: 1, Test: 1}},
		{"infer test", 10, Fraction(0.7), Fraction(0.2), Unset(), Sizes{N: 10, Train: 7, Val: 2, Test: 1}},
		{"infer train", 10, Unset(), Count(2), Count(3), Sizes{N: 10, Train: 5, Val: 2, Test: 3}},
		{"half to even", 5, Fraction(0.5), Fraction(0.5), Count(0), Sizes{N: 5, Train: 2, Val: 2, Test: 0, Excluded: 1}},
		{"overshoot trims test", 6, Fraction(0.5), Fraction(0.25), Fraction(0.25), Sizes{N: 6, Train: 3, Val: 2, Test: 1}},
		{"overshoot trims val", 6, Fraction(0.5), Fraction(0.25), Count(2), Sizes{N: 6, Train: 3, Val: 1, Test: 2}},
		{"counts with exclusion", 10, Count(5), Count(2), Count(1), Sizes{N: 10, Train: 5, Val: 2, Test: 1, Excluded: 2}},
		{"empty dataset", 0, Fraction(0.8), Fraction(0.1), Fraction(0.1), Sizes{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.n, tt.train, tt.val, tt.test)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name             string
		n                int
		train, val, test Size
	}{
		{"two unset", 10, Unset(), Unset(), Fraction(0.1)},
		{"negative inferred", 10, Count(8), Count(5), Unset()},
		{"counts exceed", 5, Count(3), Count(3), Count(0)},
		{"fractions exceed after trim", 3, Fraction(0.5), Fraction(0.5), Fraction(0.5)},
		{"fraction above one", 10, Fraction(1.5), Unset(), Count(0)},
		{"zero fraction", 10, Fraction(0.8), Fraction(0), Unset()},
		{"negative count", 10, Count(-1), Unset(), Count(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.n, tt.train, tt.val, tt.test)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidSplit))
			assert.Equal(t, 2, apperrors.ExitCode(err))
		})
	}
}

func TestTrainValTestSplit_DisjointAndSized(t *testing.T) {
	ix, sizes, err := TrainValTestSplit(100, Fraction(0.7), Fraction(0.2), Unset(), 42)
	require.NoError(t, err)
	assert.Len(t, ix.Train, sizes.Train)
	assert.Len(t, ix.Val, sizes.Val)
	assert.Len(t, ix.Test, sizes.Test)
	assert.Equal(t, 100, ix.Total())

	seen := make(map[int]bool)
	for _, part := range [][]int{ix.Train, ix.Val, ix.Test} {
		for _, i := range part {
			assert.False(t, seen[i], "index %d appears twice", i)
			assert.True(t, i >= 0 && i < 100)
			seen[i] = true
		}
	}
}

func TestTrainValTestSplit_Deterministic(t *testing.T) {
	a, _, err := TrainValTestSplit(50, Fraction(0.8), Fraction(0.1), Fraction(0.1), 7)
	require.NoError(t, err)
	b, _, err := TrainValTestSplit(50, Fraction(0.8), Fraction(0.1), Fraction(0.1), 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, _, err := TrainValTestSplit(50, Fraction(0.8), Fraction(0.1), Fraction(0.1), 8)
	require.NoError(t, err)
	assert.NotEqual(t, a.Train, c.Train)
}

func TestTrainValTestSplit_ExcludesRemainder(t *testing.T) {
	ix, sizes, err := TrainValTestSplit(10, Count(3), Count(2), Count(1), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, sizes.Excluded)
	assert.Equal(t, 6, ix.Total())
}

func TestPermute(t *testing.T) {
	p := Permute(20, 3)
	sorted := append([]int(nil), p...)
	sort.Ints(sorted)
	for i, v := range sorted {
		assert.Equal(t, i, v)
	}
}
