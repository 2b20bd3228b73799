package split

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ShiftGraph/internal/testutil"
	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
)

func TestMakeSplits_ComputeSaveReload(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions(20)
	opts.OutputFile = filepath.Join(dir, "run", "splits.npz")

	first, err := MakeSplits(opts, nil)
	require.NoError(t, err)
	assert.False(t, first.Loaded)
	assert.Equal(t, opts.OutputFile, first.SavedTo)
	assert.Equal(t, Sizes{N: 20, Train: 16, Val: 2, Test: 2}, first.Sizes)
	assert.FileExists(t, opts.OutputFile)

	reload := Options{DatasetLen: 20, SplitsFile: opts.OutputFile}
	second, err := MakeSplits(reload, nil)
	require.NoError(t, err)
	assert.True(t, second.Loaded)
	assert.Equal(t, first.Indices, second.Indices)
}

func TestMakeSplits_LogsExcludedSamples(t *testing.T) {
	log := testutil.NewMockLogger()
	opts := Options{DatasetLen: 10, Train: Count(5), Val: Count(2), Test: Count(1), Seed: 1}
	_, err := MakeSplits(opts, log)
	require.NoError(t, err)
	assert.True(t, log.HasMessage("info", "2 samples were excluded from the dataset"))
}

func TestMakeSplits_LoadedIndicesMustFitDataset(t *testing.T) {
	path, err := SaveNPZ(filepath.Join(t.TempDir(), "splits.npz"), Indices{Train: []int{0, 9}, Val: []int{}, Test: []int{}})
	require.NoError(t, err)

	_, err = MakeSplits(Options{DatasetLen: 5, SplitsFile: path}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeSplitFileRead))
}

func TestMakeSplits_LoadedPartitionsMustBeDisjoint(t *testing.T) {
	path, err := SaveNPZ(filepath.Join(t.TempDir(), "splits.npz"), Indices{Train: []int{0, 1, 2}, Val: []int{3}, Test: []int{2}})
	require.NoError(t, err)

	for _, n := range []int{10, 0} {
		_, err = MakeSplits(Options{DatasetLen: n, SplitsFile: path}, nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeSplitFileRead))
		assert.Contains(t, err.Error(), "index 2 in train and test")
	}
}

func TestCheckIndices(t *testing.T) {
	assert.NoError(t, checkIndices(Indices{Train: []int{4, 0}, Val: []int{1}, Test: []int{}}, 5))
	assert.NoError(t, checkIndices(Indices{Train: []int{40}}, 0))
	assert.Error(t, checkIndices(Indices{Train: []int{-1}}, 0))
	assert.Error(t, checkIndices(Indices{Train: []int{1, 1}}, 5))
}

func TestMakeSplits_InvalidSizes(t *testing.T) {
	_, err := MakeSplits(Options{DatasetLen: 10, Train: Unset(), Val: Unset(), Test: Count(1)}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidSplit))
}
