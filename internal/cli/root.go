// Package cli implements the anima command-line interface using Cobra.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anima-project/anima/internal/domain"
)

var rootCmd = &cobra.Command{
	Use:   "anima",
	Short: "anima — an embodied self-state runtime",
	Long: `anima runs a small creature's proprioceptive self-state: four
scalars sensed from hardware telemetry, drifted by endogenous
calibration, expressed through an ambient LED and an autonomous
drawing habit.

The runtime splits into two processes sharing one tmpfs document:
  anima broker  — owns the sensor bus and actuators, ticks every 2s
  anima serve   — polls the snapshot, composes self-schema, serves HTTP`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go. Exit codes follow
// the conventional 0 ok / 1 fatal init error / 2 hardware contention.
func Execute(version string) {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, domain.ErrBusContention) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
