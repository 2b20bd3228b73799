package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/turtacn/ShiftGraph/internal/domain/molecule"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/chem/sdf"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ShiftGraph/pkg/errors"
	mtypes "github.com/turtacn/ShiftGraph/pkg/types/molecule"
)

// CurateOptions selects the records copied from Input to Output.
type CurateOptions struct {
	Input   string
	Output  string
	Nucleus mtypes.Nucleus
	// Filter defaults to the standard organic whitelist.
	Filter *molecule.ElementFilter
}

// CurateReport counts what happened to each input record.
type CurateReport struct {
	Input      string `json:"input"`
	Output     string `json:"output"`
	Seen       int    `json:"seen"`
	Invalid    int    `json:"invalid"`
	Disallowed int    `json:"disallowed"`
	NoSpectrum int    `json:"no_spectrum"`
	Kept       int    `json:"kept"`
}

// Curate copies the parseable records of opts.Input that contain only allowed
// elements and carry a spectrum for opts.Nucleus into opts.Output.
func Curate(ctx context.Context, opts CurateOptions, log logging.Logger, m Metrics) (*CurateReport, error) {
	log = logging.OrNop(log)
	if m == nil {
		m = NopMetrics()
	}
	if !opts.Nucleus.IsValid() {
		return nil, errors.New(errors.CodeUnknownNucleus, "unknown nucleus").WithDetail(string(opts.Nucleus))
	}
	filter := opts.Filter
	if filter == nil {
		filter = molecule.NewElementFilter()
	}

	in, err := os.Open(opts.Input)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.CodeRawFileMissing, "input file not found").WithDetail(opts.Input)
		}
		return nil, errors.Wrap(err, errors.CodeFileRead, "failed to open input").WithDetail(opts.Input)
	}
	defer in.Close()

	if err := checkDistinct(in, opts.Output); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CodeFileWrite, "failed to create output directory").WithDetail(opts.Output)
	}
	// Kept records go to a temp file renamed over Output only on success.
	out, err := os.CreateTemp(filepath.Dir(opts.Output), filepath.Base(opts.Output)+".*.tmp")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeFileWrite, "failed to create output").WithDetail(opts.Output)
	}
	committed := false
	_ = out.Chmod(0o644)
	defer func() {
		if !committed {
			_ = out.Close()
			_ = os.Remove(out.Name())
		}
	}()

	report := &CurateReport{Input: opts.Input, Output: opts.Output}
	if err := curateRecords(ctx, opts, filter, sdf.NewReader(in), sdf.NewWriter(out), report, log, m); err != nil {
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, errors.Wrap(err, errors.CodeFileWrite, "failed to close output").WithDetail(opts.Output)
	}
	if err := os.Rename(out.Name(), opts.Output); err != nil {
		return nil, errors.Wrap(err, errors.CodeFileWrite, "failed to move output into place").WithDetail(opts.Output)
	}
	committed = true

	log.Info(fmt.Sprintf("Valid molecules found: %d", report.Kept),
		logging.Int("seen", report.Seen),
		logging.Int("invalid", report.Invalid),
		logging.Int("disallowed", report.Disallowed),
		logging.Int("no_spectrum", report.NoSpectrum),
		logging.String("output", opts.Output))
	return report, nil
}

// checkDistinct rejects an output path naming the already opened input.
func checkDistinct(in *os.File, output string) error {
	inInfo, err := in.Stat()
	if err != nil {
		return errors.Wrap(err, errors.CodeFileRead, "failed to stat input").WithDetail(in.Name())
	}
	outInfo, err := os.Stat(output)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, errors.CodeFileWrite, "failed to stat output").WithDetail(output)
	}
	if os.SameFile(inInfo, outInfo) {
		return errors.InvalidConfig("curate input and output are the same file").WithDetail(output)
	}
	return nil
}

func curateRecords(ctx context.Context, opts CurateOptions, filter *molecule.ElementFilter, rd *sdf.Reader, wr *sdf.Writer,
	report *CurateReport, log logging.Logger, m Metrics) error {
	for {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.CodeCanceled, "curation canceled")
		}
		rec, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, errors.CodeFileRead, "failed to read input").WithDetail(opts.Input)
		}
		report.Seen++

		switch {
		case rec.ParseErr != nil || rec.Molecule == nil:
			report.Invalid++
			log.Warn(fmt.Sprintf("Invalid molecule found in %s", opts.Input),
				logging.Int("record", rec.Index), logging.Err(rec.ParseErr))
		case !filter.Allows(rec.Molecule):
			report.Disallowed++
			log.Debug("molecule has disallowed elements",
				logging.Int("record", rec.Index),
				logging.Any("elements", filter.Disallowed(rec.Molecule)))
		case !molecule.HasSpectrum(rec.Molecule, opts.Nucleus):
			report.NoSpectrum++
		default:
			if err := wr.Write(rec.Molecule); err != nil {
				return errors.Wrap(err, errors.CodeFileWrite, "failed to write molecule").WithDetail(opts.Output)
			}
			report.Kept++
			m.RecordCurated(true)
			continue
		}
		m.RecordCurated(false)
	}
	if err := wr.Flush(); err != nil {
		return errors.Wrap(err, errors.CodeFileWrite, "failed to flush output").WithDetail(opts.Output)
	}
	return nil
}
