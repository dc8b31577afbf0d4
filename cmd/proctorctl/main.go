// Command proctorctl is the offline companion of the proctor service. It
// replays recorded observation timelines through the detection pipeline and
// prints the effective detection configuration.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/proctor/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "proctorctl",
		Short:        "Offline tools for the proctor service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.BaseConfigFile, "base configuration file")

	root.AddCommand(
		newReplayCmd(&configPath),
		newThresholdsCmd(&configPath),
	)
	return root
}
