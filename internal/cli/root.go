package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/monorkin/awair-local/internal/globals"
	"github.com/monorkin/awair-local/internal/version"
)

var (
	verbose  bool
	port     int
	endpoint string
	timeout  time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "awair-local",
	Short: "Read Awair air quality monitors over the local API",
	Long: `A client for the local HTTP API of Awair air quality monitors.

Devices are addressed by hostname or IP address. Readings can be fetched once,
polled on an interval, stored in a local database, exported as Prometheus
metrics or published to an MQTT broker.`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return globals.Initialize(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 0, "Device port (default from settings, usually 80)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "Endpoint variant: auto, latest or legacy (default from settings)")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 0, "Request timeout (default from settings)")
}
