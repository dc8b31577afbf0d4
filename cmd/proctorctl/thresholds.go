package main

import (
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/proctor/internal/config"
	"github.com/JaimeStill/proctor/internal/detection"
)

func newThresholdsCmd(configPath *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Print the effective detection configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadDetection(*configPath)
			if err != nil {
				return err
			}

			var out []byte
			switch format {
			case "toml":
				out, err = toml.Marshal(struct {
					Detection *detection.Config `toml:"detection"`
				}{cfg})
			case "json":
				out, err = json.MarshalIndent(cfg, "", "  ")
				out = append(out, '\n')
			default:
				return fmt.Errorf("unknown format %q (toml, json)", format)
			}
			if err != nil {
				return fmt.Errorf("encode thresholds: %w", err)
			}

			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "toml", "output format: toml or json")
	return cmd
}
