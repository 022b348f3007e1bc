package cmd

import (
	"context"
	"fmt"

	"github.com/jpfielding/rtss.go/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd manages the YAML defaults file
func NewConfigCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "manage the defaults file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "init <path>",
			Short: "write the built in defaults to a YAML file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return config.SaveConfig(config.DefaultConfig(), args[0])
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "print the settings in effect after --config is applied",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(data))
				return nil
			},
		},
	)
	return cmd
}
