package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/ShiftGraph/internal/application/dataset"
	"github.com/turtacn/ShiftGraph/internal/application/split"
	"github.com/turtacn/ShiftGraph/internal/config"
)

// SplitResult is the printable outcome of the split command.
type SplitResult struct {
	DatasetLen int    `json:"dataset_len"`
	Train      int    `json:"train"`
	Val        int    `json:"val"`
	Test       int    `json:"test"`
	Excluded   int    `json:"excluded"`
	Loaded     bool   `json:"loaded"`
	SavedTo    string `json:"saved_to,omitempty"`
}

func (r *SplitResult) String() string {
	s := fmt.Sprintf("train=%d val=%d test=%d of %d", r.Train, r.Val, r.Test, r.DatasetLen)
	if r.Excluded > 0 {
		s += fmt.Sprintf("\n%d samples were excluded from the dataset", r.Excluded)
	}
	if r.Loaded {
		s += "\nloaded from splits file"
	}
	if r.SavedTo != "" {
		s += "\nsaved to " + r.SavedTo
	}
	return s
}

// TableHeaders implements tableProvider.
func (r *SplitResult) TableHeaders() []string {
	return []string{"PARTITION", "SIZE"}
}

// TableRows implements tableProvider.
func (r *SplitResult) TableRows() [][]string {
	return [][]string{
		{"train", strconv.Itoa(r.Train)},
		{"val", strconv.Itoa(r.Val)},
		{"test", strconv.Itoa(r.Test)},
		{"excluded", strconv.Itoa(r.Excluded)},
	}
}

// splitFlags holds the split command's overrides of the split section.
type splitFlags struct {
	train, val, test string
	seed             uint64
	splitsFile       string
	outputFile       string
	datasetLen       int
	nucleus          string
	root             string
}

func newSplitCmd() *cobra.Command {
	f := &splitFlags{}

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Partition the processed dataset into train, validation and test sets",
		Long: "Compute a seeded train/validation/test split of the processed dataset, or load\n" +
			"one from an .npz archive, and optionally save it. Sizes accept a count, a\n" +
			"fraction in (0, 1], or None for the remainder.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cliCtx.Config
			if err := f.apply(cmd, cfg); err != nil {
				return err
			}

			n := f.datasetLen
			if n <= 0 {
				ctx, cancel := cliCtx.commandContext(cmd)
				defer cancel()
				store, err := cliCtx.openStore(ctx)
				if err != nil {
					return err
				}
				ds, err := dataset.Load(ctx, store, cfg.Nucleus())
				if err != nil {
					return err
				}
				n = ds.Len()
			}

			res, err := split.MakeSplits(split.Options{
				DatasetLen: n,
				Train:      cfg.Split.TrainSize,
				Val:        cfg.Split.ValSize,
				Test:       cfg.Split.TestSize,
				Seed:       cfg.Split.Seed,
				SplitsFile: cfg.Split.SplitsFile,
				OutputFile: cfg.Split.OutputFile,
			}, cliCtx.Logger)
			if err != nil {
				return err
			}

			ix := res.Indices
			cliCtx.Metrics.SetSplitSizes(len(ix.Train), len(ix.Val), len(ix.Test))
			return PrintResult(cmd, &SplitResult{
				DatasetLen: n,
				Train:      len(ix.Train),
				Val:        len(ix.Val),
				Test:       len(ix.Test),
				Excluded:   res.Sizes.Excluded,
				Loaded:     res.Loaded,
				SavedTo:    res.SavedTo,
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.train, "train-size", "", "training set size (count, fraction or None)")
	fl.StringVar(&f.val, "val-size", "", "validation set size (count, fraction or None)")
	fl.StringVar(&f.test, "test-size", "", "test set size (count, fraction or None)")
	fl.Uint64Var(&f.seed, "seed", 0, "permutation seed (overrides split.seed)")
	fl.StringVar(&f.splitsFile, "splits-file", "", "load indices from this .npz instead of computing them")
	fl.StringVar(&f.outputFile, "output-file", "", "save the indices to this .npz")
	fl.IntVar(&f.datasetLen, "dataset-len", 0, "split this many examples without loading the dataset")
	fl.StringVar(&f.nucleus, "nucleus", "", "nucleus of the processed dataset (overrides dataset.nucleus)")
	fl.StringVar(&f.root, "root", "", "dataset root directory (overrides dataset.root)")
	return cmd
}

// apply copies every flag the user set into cfg and revalidates it.
func (f *splitFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	sizes := []struct {
		flag string
		text string
		dst  *split.Size
	}{
		{"train-size", f.train, &cfg.Split.TrainSize},
		{"val-size", f.val, &cfg.Split.ValSize},
		{"test-size", f.test, &cfg.Split.TestSize},
	}
	for _, s := range sizes {
		if !cmd.Flags().Changed(s.flag) {
			continue
		}
		size, err := split.ParseSize(s.text)
		if err != nil {
			return err
		}
		*s.dst = size
	}
	if cmd.Flags().Changed("seed") {
		cfg.Split.Seed = f.seed
	}
	if f.splitsFile != "" {
		cfg.Split.SplitsFile = f.splitsFile
	}
	if f.outputFile != "" {
		cfg.Split.OutputFile = f.outputFile
	}
	if f.nucleus != "" {
		cfg.Dataset.Nucleus = f.nucleus
	}
	if f.root != "" {
		cfg.Dataset.Root = f.root
	}
	return cfg.Validate()
}
