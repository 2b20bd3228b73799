package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/ShiftGraph/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and save the effective configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSaveCmd())
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			out, err := config.Marshal(cliCtx.Config, config.DefaultSaveExclude...)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newConfigSaveCmd() *cobra.Command {
	var (
		exclude     []string
		withSecrets bool
	)

	cmd := &cobra.Command{
		Use:   "save PATH",
		Short: "Write the effective configuration to a YAML file",
		Long: "Write the effective configuration to PATH so a run can be reproduced. Keys\n" +
			"listed with --exclude are left out; credentials are left out unless\n" +
			"--with-secrets is given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			keys := append([]string(nil), exclude...)
			if !withSecrets {
				keys = append(keys, config.DefaultSaveExclude...)
			}
			if err := config.Save(cliCtx.Config, args[0], keys...); err != nil {
				return err
			}
			PrintSuccess(cmd, "configuration saved to "+args[0])
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "dotted keys to leave out, e.g. metrics.textfile")
	cmd.Flags().BoolVar(&withSecrets, "with-secrets", false, "keep credentials in the saved file")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := GetCLIContext(cmd); err != nil {
				return err
			}
			PrintSuccess(cmd, "configuration is valid")
			return nil
		},
	}
}
