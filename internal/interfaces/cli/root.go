package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/ShiftGraph/internal/application/dataset"
	"github.com/turtacn/ShiftGraph/internal/config"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/storage"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/storage/filesystem"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/storage/minio"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/storage/redis"
	"github.com/turtacn/ShiftGraph/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// DefaultConfigFile is read when --config is not given and the file exists.
const DefaultConfigFile = "shiftgraph.yaml"

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	Timeout      time.Duration
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	Collector    prometheus.MetricsCollector
	Metrics      *prometheus.BuildMetrics
	OutputFormat string
	Verbose      bool
	Timeout      time.Duration
}

// NewRootCommand creates the root command with its global flags and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "shiftgraph",
		Short: "ShiftGraph builds graph datasets for NMR chemical shift prediction",
		Long: "ShiftGraph turns SDF collections of molecules with assigned NMR spectra into\n" +
			"labelled molecular graphs, caches them, and produces reproducible\n" +
			"train/validation/test splits.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPostRun(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./"+DefaultConfigFile+" when present)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json, table)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	pf.DurationVar(&opts.Timeout, "timeout", 0, "abort the command after this long (0 disables)")

	cmd.AddCommand(
		newBuildCmd(),
		newSplitCmd(),
		newCurateCmd(),
		newStatsCmd(),
		newConfigCmd(),
	)
	return cmd
}

// persistentPreRun loads config, logger and metrics, then stores CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	switch strings.ToLower(opts.OutputFormat) {
	case "text", "json", "table":
	default:
		return errors.InvalidConfig("output must be one of text, json, table").WithDetail(opts.OutputFormat)
	}

	cfg, err := initConfig(opts)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger, err := initLogger(cfg, opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:       cfg.Metrics.Namespace,
		EnableGoMetrics: cfg.Metrics.GoRuntime,
	}, logger)
	if err != nil {
		return errors.Wrap(err, errors.CodeConfigInvalid, "metrics initialization failed")
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		Collector:    collector,
		Metrics:      prometheus.NewBuildMetrics(collector),
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Verbose:      opts.Verbose,
		Timeout:      opts.Timeout,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// persistentPostRun exports metrics to the configured textfile and flushes the logger.
func persistentPostRun(cmd *cobra.Command) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil
	}
	defer func() { _ = cliCtx.Logger.Sync() }()

	if path := cliCtx.Config.Metrics.Textfile; path != "" {
		if err := cliCtx.Collector.WriteTextfile(path); err != nil {
			return errors.Wrap(err, errors.CodeFileWrite, "failed to write metrics textfile").WithDetail(path)
		}
		cliCtx.Logger.Debug("wrote metrics textfile", logging.String("path", path))
	}
	return nil
}

// initConfig loads configuration with priority: env > file > defaults.
func initConfig(opts *RootOptions) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		if !logging.ValidLevel(opts.LogLevel) {
			return nil, errors.InvalidConfig("log-level must be one of debug, info, warn, error").WithDetail(opts.LogLevel)
		}
		cfg.Log.Level = strings.ToLower(opts.LogLevel)
	}
	if opts.Verbose {
		cfg.Log.Level = logging.LevelDebug
	}
	return cfg, nil
}

// initLogger creates the logger described by cfg.Log.
func initLogger(cfg *config.Config, _ *RootOptions) (logging.Logger, error) {
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	logging.SetDefault(logger)
	return logger, nil
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}

	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// commandContext applies the --timeout flag to the command's context.
func (c *CLIContext) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, c.Timeout)
	}
	return context.WithCancel(ctx)
}

// openStore returns the blob store selected by cache.backend.
func (c *CLIContext) openStore(ctx context.Context) (storage.BlobStore, error) {
	switch c.Config.Cache.Backend {
	case config.BackendMinIO:
		store, err := minio.Connect(ctx, c.Config.Cache.MinIO, c.Logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendRedis:
		store, err := redis.Connect(ctx, c.Config.Cache.Redis, c.Logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return filesystem.New(c.Config.Dataset.Root), nil
	}
}

// newAssembler builds an assembler from the dataset section of the config.
func (c *CLIContext) newAssembler() (*dataset.Assembler, error) {
	ds := c.Config.Dataset
	return dataset.NewAssembler(dataset.AssemblerConfig{
		Nucleus:        c.Config.Nucleus(),
		FilterElements: ds.FilterElements,
		Filter:         c.Config.ElementFilter(),
		Require3D:      ds.Require3D,
		ProgressEvery:  ds.ProgressEvery,
	}, c.Logger, c.Metrics)
}

// Execute runs the root command under ctx and reports any error on stderr.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			logging.Default().Debug("command failed", logging.Code(err), logging.String("stack", appErr.Stack))
		}
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// PrintResult outputs data in the format specified by CLIContext.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return printJSON(cmd, data)
	}

	switch cliCtx.OutputFormat {
	case "json":
		return printJSON(cmd, data)
	case "table":
		return printTable(cmd, data)
	default:
		return printText(cmd, data)
	}
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(cmd *cobra.Command, data interface{}) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

// tableProvider is implemented by results that render as a table.
type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

// printTable falls back to text for results that are not tableProviders.
func printTable(cmd *cobra.Command, data interface{}) error {
	if tp, ok := data.(tableProvider); ok {
		fmt.Fprint(cmd.OutOrStdout(), FormatTable(tp.TableHeaders(), tp.TableRows()))
		return nil
	}
	return printText(cmd, data)
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// PrintSuccess writes a formatted success message to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %s\n", msg)
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(cells) {
				val = cells[i]
			}
			sb.WriteString(padRight(val, widths[i]))
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
