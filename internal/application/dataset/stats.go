package dataset

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/turtacn/ShiftGraph/internal/domain/molecule"
	mtypes "github.com/turtacn/ShiftGraph/pkg/types/molecule"
)

// Summary describes the label distribution of a dataset. Label statistics
// cover masked atoms only.
type Summary struct {
	Nucleus       mtypes.Nucleus `json:"nucleus"`
	Examples      int            `json:"examples"`
	Atoms         int            `json:"atoms"`
	Edges         int            `json:"edges"`
	LabelledAtoms int            `json:"labelled_atoms"`
	MeanAtoms     float64        `json:"mean_atoms"`
	Mean          float64        `json:"mean"`
	Std           float64        `json:"std"`
	Min           float64        `json:"min"`
	Median        float64        `json:"median"`
	Max           float64        `json:"max"`
}

// Summarize computes the label statistics of ds. Std is the unbiased sample
// standard deviation and is zero with fewer than two labels.
func Summarize(ds *Dataset) Summary {
	s := Summary{Examples: ds.Len()}
	if ds != nil {
		s.Nucleus = ds.Nucleus
	}
	var labels, sizes []float64
	for _, ex := range ds.Examples() {
		s.Atoms += ex.Graph.NumNodes()
		s.Edges += ex.Graph.NumEdges()
		sizes = append(sizes, float64(ex.Graph.NumNodes()))
		for i, m := range ex.Mask {
			if m {
				labels = append(labels, ex.Label[i])
			}
		}
	}
	s.LabelledAtoms = len(labels)
	if len(sizes) > 0 {
		s.MeanAtoms = stat.Mean(sizes, nil)
	}
	if len(labels) == 0 {
		return s
	}

	if len(labels) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(labels, nil)
	} else {
		s.Mean = labels[0]
	}
	s.Min = floats.Min(labels)
	s.Max = floats.Max(labels)
	// same aggregation as per-atom shifts: even counts average the middle pair
	s.Median = molecule.Median(labels)
	return s
}
