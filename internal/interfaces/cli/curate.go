package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/ShiftGraph/internal/application/dataset"
	"github.com/turtacn/ShiftGraph/pkg/errors"
)

// CurateResult is the printable outcome of the curate command.
type CurateResult struct {
	*dataset.CurateReport
}

func (r CurateResult) String() string {
	return fmt.Sprintf("Valid molecules found: %d\nwritten to %s (%d seen, %d invalid, %d disallowed, %d without spectrum)",
		r.Kept, r.Output, r.Seen, r.Invalid, r.Disallowed, r.NoSpectrum)
}

// TableHeaders implements tableProvider.
func (r CurateResult) TableHeaders() []string {
	return []string{"INPUT", "OUTPUT", "SEEN", "INVALID", "DISALLOWED", "NO_SPECTRUM", "KEPT"}
}

// TableRows implements tableProvider.
func (r CurateResult) TableRows() [][]string {
	return [][]string{{
		r.Input, r.Output,
		strconv.Itoa(r.Seen), strconv.Itoa(r.Invalid), strconv.Itoa(r.Disallowed),
		strconv.Itoa(r.NoSpectrum), strconv.Itoa(r.Kept),
	}}
}

func newCurateCmd() *cobra.Command {
	var (
		input   string
		output  string
		nucleus string
	)

	cmd := &cobra.Command{
		Use:   "curate",
		Short: "Filter a raw SDF export down to usable molecules",
		Long: "Copy the records of an SDF file that parse, contain only allowed elements and\n" +
			"carry a spectrum for the nucleus. The default output is the raw dataset file\n" +
			"that build reads.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cliCtx.Config
			if input != "" {
				cfg.Curate.Input = input
			}
			if output != "" {
				cfg.Curate.Output = output
			}
			if err := overrideDataset(cfg, nucleus, ""); err != nil {
				return err
			}
			if cfg.Curate.Input == "" {
				return errors.InvalidConfig("curate requires --input or curate.input")
			}

			ctx, cancel := cliCtx.commandContext(cmd)
			defer cancel()

			report, err := dataset.Curate(ctx, dataset.CurateOptions{
				Input:   cfg.Curate.Input,
				Output:  cfg.CurateOutput(),
				Nucleus: cfg.Nucleus(),
				Filter:  cfg.ElementFilter(),
			}, cliCtx.Logger, cliCtx.Metrics)
			if err != nil {
				return err
			}
			return PrintResult(cmd, CurateResult{report})
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "SDF file to curate (overrides curate.input)")
	cmd.Flags().StringVar(&output, "output-file", "", "curated SDF path (default: <root>/raw/<name>_dataset.sdf)")
	cmd.Flags().StringVar(&nucleus, "nucleus", "", "nucleus whose spectrum is required (overrides dataset.nucleus)")
	return cmd
}
