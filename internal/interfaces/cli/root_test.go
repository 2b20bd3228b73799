package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ShiftGraph/internal/application/dataset"
	"github.com/turtacn/ShiftGraph/internal/testutil"
	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
	mtypes "github.com/turtacn/ShiftGraph/pkg/types/molecule"
)

// writeConfig writes a config rooted at root and returns its path. extra is
// appended verbatim.
func writeConfig(t *testing.T, root, extra string) string {
	t.Helper()
	content := fmt.Sprintf("dataset:\n  root: %s\n  progress_every: 0\nlog:\n  level: error\n%s", root, extra)
	return testutil.WriteFile(t, t.TempDir(), "shiftgraph.yaml", content)
}

// writeRaw writes the carbon raw dataset under root.
func writeRaw(t *testing.T, root, content string) {
	t.Helper()
	testutil.WriteFile(t, root, filepath.Join(dataset.RawDir, dataset.RawFileName(mtypes.Carbon13)), content)
}

func rawFixture() string {
	return testutil.JoinSDF(testutil.Ethanol(), testutil.Benzene(), testutil.SingleAtom()) + testutil.Unparsable
}

// executeCommand runs the root command with args and captures its output.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "shiftgraph", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.Contains(t, cmd.Version, Version)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, name := range []string{"build", "split", "curate", "stats", "config"} {
		assert.True(t, names[name], "missing subcommand %q", name)
	}
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	pf := cmd.PersistentFlags()

	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{"config", "c", ""},
		{"log-level", "", ""},
		{"output", "o", "text"},
		{"verbose", "v", "false"},
		{"timeout", "", "0s"},
	}
	for _, tt := range tests {
		f := pf.Lookup(tt.name)
		require.NotNil(t, f, tt.name)
		assert.Equal(t, tt.shorthand, f.Shorthand, tt.name)
		assert.Equal(t, tt.def, f.DefValue, tt.name)
	}
}

func TestExecute_Help(t *testing.T) {
	stdout, _, err := executeCommand(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "shiftgraph")
}

func TestExecute_UnknownSubcommand(t *testing.T) {
	_, _, err := executeCommand(t, "train")
	assert.Error(t, err)
}

func TestPersistentPreRun_Errors(t *testing.T) {
	root := t.TempDir()
	cfgPath := writeConfig(t, root, "")

	tests := []struct {
		name string
		args []string
	}{
		{"bad output", []string{"-c", cfgPath, "-o", "xml", "config", "validate"}},
		{"bad log level", []string{"-c", cfgPath, "--log-level", "loud", "config", "validate"}},
		{"missing config", []string{"-c", filepath.Join(root, "absent.yaml"), "config", "validate"}},
		{"bad config", []string{"-c", writeConfig(t, root, "model:\n  depth: 3\n"), "config", "validate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, 2, apperrors.ExitCode(err), "got %v", err)
		})
	}
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := &cobra.Command{}
	_, err := GetCLIContext(cmd)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInternal))

	cmd.SetContext(context.Background())
	_, err = GetCLIContext(cmd)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInternal))
}

func TestExecute_PrintsError(t *testing.T) {
	var stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"-o", "yaml", "config", "validate"})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	PrintError(cmd, err)
	assert.Contains(t, stderr.String(), "Error: ")
	assert.Contains(t, stderr.String(), "output must be one of")
}

func TestInitConfig_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, DefaultConfigFile, "dataset:\n  nucleus: 19F\n")
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	cfg, err := initConfig(&RootOptions{Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, mtypes.Fluorine19, cfg.Nucleus())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitConfig_LogLevelOverride(t *testing.T) {
	cfg, err := initConfig(&RootOptions{ConfigPath: writeConfig(t, t.TempDir(), ""), LogLevel: "WARN"})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

type tableStub struct{}

func (tableStub) TableHeaders() []string { return []string{"A", "B"} }
func (tableStub) TableRows() [][]string  { return [][]string{{"x", "y"}} }
func (tableStub) String() string         { return "stub" }

func TestPrintResult_Formats(t *testing.T) {
	for _, tt := range []struct {
		format string
		want   string
	}{
		{"text", "stub\n"},
		{"table", "A  B\n-  -\nx  y\n"},
		{"json", "{}\n"},
	} {
		t.Run(tt.format, func(t *testing.T) {
			var out bytes.Buffer
			cmd := &cobra.Command{}
			cmd.SetOut(&out)
			cmd.SetContext(context.WithValue(context.Background(), cliContextKey{}, &CLIContext{OutputFormat: tt.format}))
			require.NoError(t, PrintResult(cmd, tableStub{}))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestPrintResult_NoContextFallsBackToJSON(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, PrintResult(cmd, map[string]int{"kept": 2}))
	assert.JSONEq(t, `{"kept": 2}`, out.String())
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"NAME", "N"}, [][]string{{"carbon", "12"}, {"h"}})
	assert.Equal(t, "NAME    N \n------  --\ncarbon  12\nh         \n", out)
	assert.Empty(t, FormatTable(nil, nil))
}

func TestPrintSuccess(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	PrintSuccess(cmd, "done")
	assert.Equal(t, "OK: done\n", out.String())
}
