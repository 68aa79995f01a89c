// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"shmod-cli/internal/config"
	"shmod-cli/internal/issue"

	"github.com/spf13/cobra"
)

var (
	// configCmd groups configuration subcommands.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage shmod configuration",
	}

	// configShowCmd prints the effective configuration.
	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				rendered, _ := issue.Get(issue.ConfigLoadFailedId).Render("dark")
				fmt.Fprint(cmd.ErrOrStderr(), rendered)
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateTOML(cfg))
			return nil
		},
	}

	// configInitCmd writes a default config file.
	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Create a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.CreateDefaultConfig(); err != nil {
				return err
			}
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Config directory: %s\n", SuccessStyle.Render("✓"), cfgDir)
			return nil
		},
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
