// Package molecule defines the plain enumerations shared by every ShiftGraph
// layer: the NMR nucleus a dataset is built for and the reasons a record can
// be rejected. No domain logic lives here.
package molecule

import (
	"fmt"
	"strings"
)

// Nucleus identifies the NMR-active isotope whose chemical shifts label a dataset.
type Nucleus string

const (
	// Carbon13 is the 13C nucleus.
	Carbon13 Nucleus = "13C"

	// Hydrogen1 is the 1H nucleus.
	Hydrogen1 Nucleus = "1H"

	// Fluorine19 is the 19F nucleus.
	Fluorine19 Nucleus = "19F"
)

// AllNuclei lists every supported nucleus in a fixed order.
var AllNuclei = []Nucleus{Carbon13, Hydrogen1, Fluorine19}

var datasetNames = map[Nucleus]string{
	Carbon13:   "carbon",
	Hydrogen1:  "hydrogen",
	Fluorine19: "fluorine",
}

// DatasetName returns the short dataset name (carbon, hydrogen, fluorine).
func (n Nucleus) DatasetName() string {
	return datasetNames[n]
}

// IsValid reports whether n is one of the supported nuclei.
func (n Nucleus) IsValid() bool {
	_, ok := datasetNames[n]
	return ok
}

func (n Nucleus) String() string { return string(n) }

// ParseNucleus accepts either the isotope label ("13C") or the dataset name
// ("carbon"), case-insensitively.
func ParseNucleus(s string) (Nucleus, error) {
	s = strings.TrimSpace(s)
	for _, n := range AllNuclei {
		if strings.EqualFold(s, string(n)) || strings.EqualFold(s, n.DatasetName()) {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown nucleus %q (want one of 13C, 1H, 19F)", s)
}

// RejectionReason classifies why a record did not become a labelled example.
type RejectionReason string

const (
	ReasonUnparsable         RejectionReason = "unparsable"
	ReasonElementNotAllowed  RejectionReason = "element_not_allowed"
	ReasonNoConformer        RejectionReason = "no_conformer"
	ReasonNoBonds            RejectionReason = "no_bonds"
	ReasonSpectrumParseError RejectionReason = "spectrum_parse_error"
	ReasonNoLabels           RejectionReason = "no_labels"
	ReasonLengthMismatch     RejectionReason = "length_mismatch"
)

// AllRejectionReasons lists every reason in pipeline order.
var AllRejectionReasons = []RejectionReason{
	ReasonUnparsable,
	ReasonElementNotAllowed,
	ReasonNoConformer,
	ReasonNoBonds,
	ReasonSpectrumParseError,
	ReasonNoLabels,
	ReasonLengthMismatch,
}

// IsInvariantViolation reports whether the reason indicates a pipeline bug
// rather than bad input data.
func (r RejectionReason) IsInvariantViolation() bool {
	return r == ReasonLengthMismatch
}

func (r RejectionReason) String() string { return string(r) }
