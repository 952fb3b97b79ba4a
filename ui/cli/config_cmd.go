// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/toeirei/devrun/config"
	"github.com/toeirei/devrun/internal/i18n"
	"github.com/toeirei/devrun/internal/logging"
)

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the devrun configuration",
	}

	var user, system, force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to devrun.yaml",
		Long: `Writes the effective configuration to devrun.yaml in the project
directory, or to the user or system configuration directory. An existing
file is only replaced with --force.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ProjectConfigPath(a.runner.Root())
			if user || system {
				var err error
				path, err = config.GetConfigPath(system)
				if err != nil {
					return err
				}
			}

			cfg := a.cfg
			// the project directory is implied by where the file lives
			cfg.ProjectDir = ""
			if err := config.WriteConfigFile(&cfg, path, force); err != nil {
				if errors.Is(err, os.ErrExist) {
					return errors.New(i18n.T("config.exists", path))
				}
				return err
			}
			logging.Infof("%s", i18n.T("config.written", path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&user, "user", false, "Write to the user configuration directory")
	initCmd.Flags().BoolVar(&system, "system", false, "Write to the system configuration directory")
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	initCmd.MarkFlagsMutuallyExclusive("user", "system")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
