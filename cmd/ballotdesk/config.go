package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/ballotdesk/internal/config"
)

func newConfigCommand(root *rootOptions) *cobra.Command {
	var defaults bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if !defaults {
				var err error
				if cfg, err = root.load(); err != nil {
					return err
				}
			}
			return config.Write(cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "print the built-in defaults, ignoring file and environment")
	return cmd
}
