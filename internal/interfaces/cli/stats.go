package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/ShiftGraph/internal/application/dataset"
)

// StatsResult is the printable label summary of a processed dataset.
type StatsResult struct {
	dataset.Summary
}

func (r StatsResult) String() string {
	return fmt.Sprintf("%s: %d examples, %d atoms (%.1f per molecule), %d edges\n"+
		"shifts over %d labelled atoms: mean %.3f, std %.3f, min %.3f, median %.3f, max %.3f ppm",
		r.Nucleus, r.Examples, r.Atoms, r.MeanAtoms, r.Edges,
		r.LabelledAtoms, r.Mean, r.Std, r.Min, r.Median, r.Max)
}

// TableHeaders implements tableProvider.
func (r StatsResult) TableHeaders() []string {
	return []string{"STATISTIC", "VALUE"}
}

// TableRows implements tableProvider.
func (r StatsResult) TableRows() [][]string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
	return [][]string{
		{"nucleus", r.Nucleus.String()},
		{"examples", strconv.Itoa(r.Examples)},
		{"atoms", strconv.Itoa(r.Atoms)},
		{"edges", strconv.Itoa(r.Edges)},
		{"labelled_atoms", strconv.Itoa(r.LabelledAtoms)},
		{"mean_atoms", f(r.MeanAtoms)},
		{"mean", f(r.Mean)},
		{"std", f(r.Std)},
		{"min", f(r.Min)},
		{"median", f(r.Median)},
		{"max", f(r.Max)},
	}
}

func newStatsCmd() *cobra.Command {
	var (
		nucleus string
		root    string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the label distribution of a processed dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if err := overrideDataset(cliCtx.Config, nucleus, root); err != nil {
				return err
			}

			ctx, cancel := cliCtx.commandContext(cmd)
			defer cancel()

			store, err := cliCtx.openStore(ctx)
			if err != nil {
				return err
			}
			ds, err := dataset.Load(ctx, store, cliCtx.Config.Nucleus())
			if err != nil {
				return err
			}
			return PrintResult(cmd, StatsResult{dataset.Summarize(ds)})
		},
	}

	cmd.Flags().StringVar(&nucleus, "nucleus", "", "nucleus of the processed dataset (overrides dataset.nucleus)")
	cmd.Flags().StringVar(&root, "root", "", "dataset root directory (overrides dataset.root)")
	return cmd
}
