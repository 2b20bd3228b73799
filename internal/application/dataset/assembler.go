package dataset

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/turtacn/ShiftGraph/internal/domain/molecule"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/chem/sdf"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ShiftGraph/internal/intelligence/molgraph"
	"github.com/turtacn/ShiftGraph/pkg/errors"
	mtypes "github.com/turtacn/ShiftGraph/pkg/types/molecule"
)

// GraphBuilder turns a molecule into its graph, or reports that it has none.
type GraphBuilder interface {
	Build(mol *molecule.Molecule) (*molgraph.Graph, bool)
}

// Metrics receives pipeline events. *prometheus.BuildMetrics implements it.
type Metrics interface {
	RecordOutcome(kept bool)
	RecordRejection(reason string)
	RecordCacheAccess(store string, hit bool)
	ObserveBuild(nucleus string, cacheHit bool, d time.Duration, examples int)
	RecordCurated(kept bool)
}

type nopMetrics struct{}

func (nopMetrics) RecordOutcome(bool)                            {}
func (nopMetrics) RecordRejection(string)                        {}
func (nopMetrics) RecordCacheAccess(string, bool)                {}
func (nopMetrics) ObserveBuild(string, bool, time.Duration, int) {}
func (nopMetrics) RecordCurated(bool)                            {}

// NopMetrics discards every event.
func NopMetrics() Metrics { return nopMetrics{} }

// AssemblerConfig controls which records become examples.
type AssemblerConfig struct {
	Nucleus mtypes.Nucleus
	// FilterElements applies Filter before feature extraction.
	FilterElements bool
	Filter         *molecule.ElementFilter
	// Require3D rejects molecules whose conformer is flat.
	Require3D bool
	// ProgressEvery logs a progress line every N records; 0 disables it.
	ProgressEvery int
	// Graphs defaults to a molgraph.Builder with the OGB encoder.
	Graphs GraphBuilder
}

// Assembler runs each raw record through filtering, graph construction and
// labelling, and collects the survivors into a Dataset.
type Assembler struct {
	cfg     AssemblerConfig
	logger  logging.Logger
	metrics Metrics
}

// NewAssembler validates cfg and fills its defaults.
func NewAssembler(cfg AssemblerConfig, log logging.Logger, m Metrics) (*Assembler, error) {
	if !cfg.Nucleus.IsValid() {
		return nil, errors.New(errors.CodeUnknownNucleus, "unknown nucleus").WithDetail(string(cfg.Nucleus))
	}
	if cfg.Filter == nil {
		cfg.Filter = molecule.NewElementFilter()
	}
	if cfg.Graphs == nil {
		cfg.Graphs = molgraph.NewBuilder(nil)
	}
	if cfg.ProgressEvery < 0 {
		cfg.ProgressEvery = 0
	}
	if m == nil {
		m = NopMetrics()
	}
	return &Assembler{cfg: cfg, logger: logging.OrNop(log), metrics: m}, nil
}

// Nucleus returns the nucleus whose shifts label the examples.
func (a *Assembler) Nucleus() mtypes.Nucleus {
	return a.cfg.Nucleus
}

func reject(rec *sdf.Record, name string, reason mtypes.RejectionReason, err error) *Rejection {
	return &Rejection{SourceIndex: rec.Index, Name: name, Reason: reason, Err: err}
}

// ProcessRecord returns either the example built from rec or the reason it
// was dropped.
func (a *Assembler) ProcessRecord(rec *sdf.Record) (*LabeledExample, *Rejection) {
	mol := rec.Molecule
	if rec.ParseErr != nil || mol == nil {
		return nil, reject(rec, "", mtypes.ReasonUnparsable, rec.ParseErr)
	}

	if a.cfg.FilterElements && !a.cfg.Filter.Allows(mol) {
		return nil, reject(rec, mol.Name, mtypes.ReasonElementNotAllowed,
			errors.Newf(errors.CodeElementNotAllowed, "disallowed elements %v", a.cfg.Filter.Disallowed(mol)))
	}
	if !mol.Conformer.Usable(mol.NumAtoms(), a.cfg.Require3D) {
		return nil, reject(rec, mol.Name, mtypes.ReasonNoConformer,
			errors.New(errors.CodeNoConformer, "molecule has no usable conformer"))
	}

	g, ok := a.cfg.Graphs.Build(mol)
	if !ok {
		return nil, reject(rec, mol.Name, mtypes.ReasonNoBonds,
			errors.New(errors.CodeNoBonds, "molecule has no bonds"))
	}

	if mol.Spectra == nil {
		molecule.Ingest(mol)
	}
	if err := mol.SpectrumErrors[a.cfg.Nucleus]; err != nil {
		return nil, reject(rec, mol.Name, mtypes.ReasonSpectrumParseError, err)
	}
	shifts := mol.Spectra[a.cfg.Nucleus]
	if len(shifts) == 0 {
		return nil, reject(rec, mol.Name, mtypes.ReasonNoLabels,
			errors.New(errors.CodeNoLabels, "no shifts for nucleus").WithDetail(string(a.cfg.Nucleus)))
	}

	n := mol.NumAtoms()
	label := make([]float64, n)
	mask := make([]bool, n)
	for idx, shift := range shifts {
		label[idx] = shift
		mask[idx] = true
	}

	if len(label) != len(mask) || len(mask) != g.NumNodes() {
		return nil, reject(rec, mol.Name, mtypes.ReasonLengthMismatch,
			errors.Newf(errors.CodeLengthMismatch, "%d labels, %d mask entries, %d nodes", len(label), len(mask), g.NumNodes()))
	}

	return &LabeledExample{Graph: g, Label: label, Mask: mask, Name: mol.Name, SourceIndex: rec.Index}, nil
}

func (a *Assembler) logRejection(r *Rejection) {
	fields := []logging.Field{
		logging.Int("record", r.SourceIndex),
		logging.String("name", r.Name),
		logging.String("reason", r.Reason.String()),
	}
	if r.Err != nil {
		fields = append(fields, logging.Err(r.Err))
	}
	if r.Reason.IsInvariantViolation() {
		a.logger.Error("invariant violation, record dropped", fields...)
		return
	}
	a.logger.Warn("record rejected", fields...)
}

// Assemble drains src and returns the kept examples in input order together
// with every rejection. Only errors from src itself or cancellation of ctx
// abort the run.
func (a *Assembler) Assemble(ctx context.Context, src sdf.Source) (*Dataset, []Rejection, error) {
	var (
		examples   []LabeledExample
		rejections []Rejection
		processed  int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, rejections, errors.Wrap(err, errors.CodeCanceled, "assembly canceled").
				WithDetail(fmt.Sprintf("after %d records", processed))
		}
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rejections, errors.Wrap(err, errors.CodeFileRead, "failed to read molecule source")
		}
		processed++

		ex, rej := a.ProcessRecord(rec)
		if rej != nil {
			rejections = append(rejections, *rej)
			a.metrics.RecordOutcome(false)
			a.metrics.RecordRejection(rej.Reason.String())
			a.logRejection(rej)
		} else {
			examples = append(examples, *ex)
			a.metrics.RecordOutcome(true)
			a.logger.Debug("record accepted",
				logging.Int("record", ex.SourceIndex),
				logging.String("name", ex.Name),
				logging.Int("labelled_atoms", ex.LabelledAtoms()))
		}

		if a.cfg.ProgressEvery > 0 && processed%a.cfg.ProgressEvery == 0 {
			a.logger.Info("processing molecules",
				logging.Int("processed", processed),
				logging.Int("kept", len(examples)),
				logging.Int("rejected", len(rejections)))
		}
	}

	a.logger.Info("assembled dataset",
		logging.String("nucleus", a.cfg.Nucleus.String()),
		logging.Int("processed", processed),
		logging.Int("kept", len(examples)),
		logging.Int("rejected", len(rejections)))
	return New(a.cfg.Nucleus, examples), rejections, nil
}
