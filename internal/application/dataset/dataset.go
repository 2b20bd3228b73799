// Package dataset assembles labelled graph examples from raw structure files,
// caches the result, and provides the curation and summary tools around it.
package dataset

import (
	"fmt"

	"github.com/turtacn/ShiftGraph/internal/intelligence/molgraph"
	mtypes "github.com/turtacn/ShiftGraph/pkg/types/molecule"
)

// LabeledExample is one molecule ready for training: its graph, a chemical
// shift per atom, and a mask marking which atoms carry a label.
type LabeledExample struct {
	Graph *molgraph.Graph
	Label []float64
	Mask  []bool
	// Name is the record title line.
	Name string
	// SourceIndex is the record position in the raw file.
	SourceIndex int
}

// Validate checks the label, mask and node counts agree and that unlabelled
// atoms carry a zero label.
func (e *LabeledExample) Validate() error {
	if e.Graph == nil {
		return fmt.Errorf("example %d has no graph", e.SourceIndex)
	}
	n := e.Graph.NumNodes()
	if len(e.Label) != len(e.Mask) || len(e.Mask) != n {
		return fmt.Errorf("example %d: %d labels, %d mask entries, %d nodes", e.SourceIndex, len(e.Label), len(e.Mask), n)
	}
	for i, m := range e.Mask {
		if !m && e.Label[i] != 0 {
			return fmt.Errorf("example %d: unmasked atom %d has label %g", e.SourceIndex, i, e.Label[i])
		}
	}
	return nil
}

// LabelledAtoms counts the atoms with Mask set.
func (e *LabeledExample) LabelledAtoms() int {
	n := 0
	for _, m := range e.Mask {
		if m {
			n++
		}
	}
	return n
}

// Dataset is an ordered, read-only collection of examples for one nucleus.
type Dataset struct {
	Nucleus  mtypes.Nucleus
	examples []LabeledExample
}

// New wraps examples. The slice is owned by the dataset afterwards.
func New(nucleus mtypes.Nucleus, examples []LabeledExample) *Dataset {
	return &Dataset{Nucleus: nucleus, examples: examples}
}

// Len returns the number of examples.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.examples)
}

// Get returns the i-th example.
func (d *Dataset) Get(i int) (*LabeledExample, error) {
	if i < 0 || i >= d.Len() {
		return nil, fmt.Errorf("index %d out of range [0,%d)", i, d.Len())
	}
	return &d.examples[i], nil
}

// Examples returns the examples in order. Callers must not modify them.
func (d *Dataset) Examples() []LabeledExample {
	if d == nil {
		return nil
	}
	return d.examples
}

// Subset returns a dataset holding the examples at indices, in that order.
// The examples are shared with d.
func (d *Dataset) Subset(indices []int) (*Dataset, error) {
	out := make([]LabeledExample, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= d.Len() {
			return nil, fmt.Errorf("subset index %d out of range [0,%d)", i, d.Len())
		}
		out = append(out, d.examples[i])
	}
	return &Dataset{Nucleus: d.Nucleus, examples: out}, nil
}

// Rejection records why a raw record did not become an example.
type Rejection struct {
	SourceIndex int
	Name        string
	Reason      mtypes.RejectionReason
	Err         error
}

func (r Rejection) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("record %d (%s): %s: %v", r.SourceIndex, r.Name, r.Reason, r.Err)
	}
	return fmt.Sprintf("record %d (%s): %s", r.SourceIndex, r.Name, r.Reason)
}

// RejectionCounts tallies rejections by reason.
func RejectionCounts(rejections []Rejection) map[mtypes.RejectionReason]int {
	out := make(map[mtypes.RejectionReason]int)
	for _, r := range rejections {
		out[r.Reason]++
	}
	return out
}
