package split

import (
	"fmt"
	"math"
	"math/rand/v2"

	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
)

// Indices holds the dataset positions of each partition.
type Indices struct {
	Train []int
	Val   []int
	Test  []int
}

// Total returns the number of indices across all partitions.
func (ix Indices) Total() int {
	return len(ix.Train) + len(ix.Val) + len(ix.Test)
}

// Sizes are resolved partition sizes for a dataset of length N.
type Sizes struct {
	N        int
	Train    int
	Val      int
	Test     int
	Excluded int
}

// Resolve turns the requested sizes into counts. At most one size may be
// unset; it takes whatever the other two leave. Fractions are scaled by n and
// rounded half to even. When the sum overshoots n, the first fraction-derived
// size in the order test, val, train gives up one sample.
func Resolve(n int, train, val, test Size) (Sizes, error) {
	if n < 0 {
		return Sizes{}, apperrors.InvalidSplit("dataset length must not be negative")
	}
	unset := 0
	for _, s := range []Size{train, val, test} {
		if s.IsUnset() {
			unset++
		}
		if err := s.Validate(); err != nil {
			return Sizes{}, err
		}
	}
	if unset > 1 {
		return Sizes{}, apperrors.InvalidSplit("only one of train_size, val_size, test_size may be unset")
	}

	tr, va, te := resolveOne(n, train), resolveOne(n, val), resolveOne(n, test)
	switch {
	case train.IsUnset():
		tr = n - va - te
	case val.IsUnset():
		va = n - tr - te
	case test.IsUnset():
		te = n - tr - va
	}

	if tr+va+te > n {
		switch {
		case test.IsFraction():
			te--
		case val.IsFraction():
			va--
		case train.IsFraction():
			tr--
		}
	}

	if tr < 0 || va < 0 || te < 0 {
		return Sizes{}, apperrors.InvalidSplit(fmt.Sprintf(
			"one of training (%d), validation (%d) or testing (%d) splits ended up with a negative size", tr, va, te))
	}
	total := tr + va + te
	if total > n {
		return Sizes{}, apperrors.InvalidSplit(fmt.Sprintf(
			"the dataset (%d) is smaller than the combined split sizes (%d)", n, total))
	}
	return Sizes{N: n, Train: tr, Val: va, Test: te, Excluded: n - total}, nil
}

func resolveOne(n int, s Size) int {
	switch s.Kind() {
	case SizeCount:
		return s.CountValue()
	case SizeFraction:
		return int(math.RoundToEven(float64(n) * s.FractionValue()))
	}
	return 0
}

// Permute returns a seeded permutation of 0..n-1.
func Permute(n int, seed uint64) []int {
	r := rand.New(rand.NewPCG(seed, seed))
	return r.Perm(n)
}

// TrainValTestSplit resolves the sizes and slices a seeded permutation of
// 0..n-1 into contiguous train, val and test runs. Indices beyond the
// combined size are excluded.
func TrainValTestSplit(n int, train, val, test Size, seed uint64) (Indices, Sizes, error) {
	sizes, err := Resolve(n, train, val, test)
	if err != nil {
		return Indices{}, Sizes{}, err
	}
	perm := Permute(n, seed)
	a, b, c := sizes.Train, sizes.Train+sizes.Val, sizes.Train+sizes.Val+sizes.Test
	return Indices{
		Train: append([]int{}, perm[:a]...),
		Val:   append([]int{}, perm[a:b]...),
		Test:  append([]int{}, perm[b:c]...),
	}, sizes, nil
}
