package split

import (
	"fmt"

	"github.com/turtacn/ShiftGraph/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
)

// Options configures MakeSplits.
type Options struct {
	DatasetLen int
	Train      Size
	Val        Size
	Test       Size
	Seed       uint64
	// SplitsFile, when set, is loaded instead of computing a new split.
	SplitsFile string
	// OutputFile, when set, receives the resulting split.
	OutputFile string
}

// DefaultOptions returns the 0.8/0.1/0.1 split with seed 42.
func DefaultOptions(n int) Options {
	return Options{DatasetLen: n, Train: Fraction(0.8), Val: Fraction(0.1), Test: Fraction(0.1), Seed: 42}
}

// Result is the outcome of MakeSplits.
type Result struct {
	Indices Indices
	// Sizes is zero when the split was loaded from a file.
	Sizes Sizes
	// Loaded reports whether Indices came from SplitsFile.
	Loaded bool
	// SavedTo is the archive path written, if any.
	SavedTo string
}

// MakeSplits loads the split from opts.SplitsFile or computes it, then saves
// it to opts.OutputFile when one is given.
func MakeSplits(opts Options, log logging.Logger) (*Result, error) {
	log = logging.OrNop(log)
	res := &Result{}

	if opts.SplitsFile != "" {
		ix, err := LoadNPZ(opts.SplitsFile)
		if err != nil {
			return nil, err
		}
		if err := checkIndices(ix, opts.DatasetLen); err != nil {
			return nil, err
		}
		res.Indices, res.Loaded = ix, true
		log.Info("loaded splits", logging.String("file", opts.SplitsFile),
			logging.Int("train", len(ix.Train)), logging.Int("val", len(ix.Val)), logging.Int("test", len(ix.Test)))
	} else {
		ix, sizes, err := TrainValTestSplit(opts.DatasetLen, opts.Train, opts.Val, opts.Test, opts.Seed)
		if err != nil {
			return nil, err
		}
		res.Indices, res.Sizes = ix, sizes
		if sizes.Excluded > 0 {
			log.Info(fmt.Sprintf("%d samples were excluded from the dataset", sizes.Excluded),
				logging.Int("excluded", sizes.Excluded))
		}
	}

	if opts.OutputFile != "" {
		path, err := SaveNPZ(opts.OutputFile, res.Indices)
		if err != nil {
			return nil, err
		}
		res.SavedTo = path
		log.Info("saved splits", logging.String("file", path))
	}
	return res, nil
}

// checkIndices rejects loaded indices that do not address the dataset or
// that appear more than once across the partitions. A non-positive n skips
// only the upper bound.
func checkIndices(ix Indices, n int) error {
	seen := make(map[int]string, ix.Total())
	parts := []struct {
		name    string
		indices []int
	}{{"train", ix.Train}, {"val", ix.Val}, {"test", ix.Test}}
	for _, part := range parts {
		for _, i := range part.indices {
			if i < 0 || n > 0 && i >= n {
				return apperrors.New(apperrors.CodeSplitFileRead, "split index outside dataset").
					WithDetail(fmt.Sprintf("index %d, dataset length %d", i, n))
			}
			if prev, dup := seen[i]; dup {
				return apperrors.New(apperrors.CodeSplitFileRead, "split partitions overlap").
					WithDetail(fmt.Sprintf("index %d in %s and %s", i, prev, part.name))
			}
			seen[i] = part.name
		}
	}
	return nil
}
