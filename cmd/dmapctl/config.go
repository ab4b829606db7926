package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/dmapctl/internal/config"
)

const defaultConfigPath = "dmapctl.toml"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or validate a dmapctl config file",
		// config commands never need the dictionary or the config flag.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default config template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := pathArg(args)
			if err := config.WriteTemplate(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Load and validate a config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := pathArg(args)
			if _, err := config.Load(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "validated %s\n", path)
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}

func pathArg(args []string) string {
	if len(args) == 0 {
		return defaultConfigPath
	}
	return args[0]
}
