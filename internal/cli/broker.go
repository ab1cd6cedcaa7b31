package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/anima-project/anima/internal/daemon"
)

func init() {
	rootCmd.AddCommand(brokerCmd)
}

var brokerCmd = &cobra.Command{
	Use:   "broker",
	Short: "Run the sensor/actuator tick loop",
	Long:  `Start the broker process: reads sensors, senses self-state, drives the LED and drawing engine, and writes the shared-memory snapshot every 2 seconds.`,
	RunE:  runBroker,
}

func runBroker(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	return d.RunBroker(context.Background())
}
