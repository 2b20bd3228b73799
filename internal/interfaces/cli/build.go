package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/ShiftGraph/internal/application/dataset"
	"github.com/turtacn/ShiftGraph/internal/config"
)

// BuildResult is the printable outcome of the build command.
type BuildResult struct {
	RunID      string         `json:"run_id"`
	Nucleus    string         `json:"nucleus"`
	Store      string         `json:"store"`
	CacheKey   string         `json:"cache_key"`
	CacheHit   bool           `json:"cache_hit"`
	Kept       int            `json:"kept"`
	Rejected   int            `json:"rejected"`
	Rejections map[string]int `json:"rejections,omitempty"`
	Duration   string         `json:"duration"`
}

func newBuildResult(r *dataset.BuildReport) *BuildResult {
	res := &BuildResult{
		RunID:    r.RunID,
		Nucleus:  r.Nucleus.String(),
		Store:    r.Store,
		CacheKey: r.CacheKey,
		CacheHit: r.CacheHit,
		Kept:     r.Kept,
		Rejected: r.Rejected,
		Duration: r.Duration.Round(time.Millisecond).String(),
	}
	if counts := dataset.RejectionCounts(r.Rejections); len(counts) > 0 {
		res.Rejections = make(map[string]int, len(counts))
		for reason, n := range counts {
			res.Rejections[string(reason)] = n
		}
	}
	return res
}

func (r *BuildResult) reasons() []string {
	out := make([]string, 0, len(r.Rejections))
	for reason := range r.Rejections {
		out = append(out, reason)
	}
	sort.Strings(out)
	return out
}

func (r *BuildResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Valid molecules found: %d\n", r.Kept)
	source := "processed"
	if r.CacheHit {
		source = "cached"
	}
	fmt.Fprintf(&sb, "%s dataset %s (%s:%s) in %s", source, r.Nucleus, r.Store, r.CacheKey, r.Duration)
	for _, reason := range r.reasons() {
		fmt.Fprintf(&sb, "\n  rejected %-22s %d", reason, r.Rejections[reason])
	}
	return sb.String()
}

// TableHeaders implements tableProvider.
func (r *BuildResult) TableHeaders() []string {
	return []string{"FIELD", "VALUE"}
}

// TableRows implements tableProvider.
func (r *BuildResult) TableRows() [][]string {
	rows := [][]string{
		{"run_id", r.RunID},
		{"nucleus", r.Nucleus},
		{"store", r.Store},
		{"cache_key", r.CacheKey},
		{"cache_hit", strconv.FormatBool(r.CacheHit)},
		{"kept", strconv.Itoa(r.Kept)},
		{"rejected", strconv.Itoa(r.Rejected)},
	}
	for _, reason := range r.reasons() {
		rows = append(rows, []string{"rejected." + reason, strconv.Itoa(r.Rejections[reason])})
	}
	return append(rows, []string{"duration", r.Duration})
}

func newBuildCmd() *cobra.Command {
	var (
		nucleus string
		root    string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build or load the processed dataset for a nucleus",
		Long: "Read <root>/raw/<name>_dataset.sdf, turn every usable molecule into a labelled\n" +
			"graph, and cache the result under processed/. An existing cache is loaded as is.",
		Args: cobra.NoArgs,
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
			assembler, err := cliCtx.newAssembler()
			if err != nil {
				return err
			}
			b := dataset.NewBuilder(cliCtx.Config.Dataset.Root, store, assembler, cliCtx.Logger, cliCtx.Metrics)
			_, report, err := b.Build(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, newBuildResult(report))
		},
	}

	cmd.Flags().StringVar(&nucleus, "nucleus", "", "nucleus to build (overrides dataset.nucleus)")
	cmd.Flags().StringVar(&root, "root", "", "dataset root directory (overrides dataset.root)")
	return cmd
}

// overrideDataset applies the --nucleus and --root flags and revalidates.
func overrideDataset(cfg *config.Config, nucleus, root string) error {
	if nucleus == "" && root == "" {
		return nil
	}
	if nucleus != "" {
		cfg.Dataset.Nucleus = nucleus
	}
	if root != "" {
		cfg.Dataset.Root = root
	}
	return cfg.Validate()
}
