package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	api "github.com/monorkin/awair-local/awair/api"
	"github.com/monorkin/awair-local/internal/globals"
)

var (
	discoverTimeout time.Duration
	discoverInfo    bool
)

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find devices on the local network",
	Long:  `Browse mDNS for Awair devices on the local network and list their addresses.`,
	Args:  cobra.NoArgs,
	RunE:  runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	discoverer := &api.Discoverer{
		Timeout: discoverTimeout,
		Logger:  globals.Logger,
	}

	devices, err := discoverer.Browse(ctx)
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Fprintln(os.Stderr, "No devices found.")
		return nil
	}

	client := newClient()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	if discoverInfo {
		fmt.Fprintln(w, "HOSTNAME\tADDRESS\tID\tTYPE\tFIRMWARE")
	} else {
		fmt.Fprintln(w, "HOSTNAME\tADDRESS")
	}

	for _, device := range devices {
		if !discoverInfo {
			fmt.Fprintf(w, "%s\t%s\n", device.Hostname(), device.Address())
			continue
		}

		deviceConfig, err := client.FetchConfig(ctx, device)
		if err != nil {
			globals.Logger.Warn("Failed to fetch device config", "device", device.Address(), "error", err)
			fmt.Fprintf(w, "%s\t%s\t-\t-\t-\n", device.Hostname(), device.Address())
			continue
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			device.Hostname(),
			device.Address(),
			deviceConfig.ID,
			deviceConfig.Type(),
			deviceConfig.FirmwareVersion,
		)
	}

	globals.Logger.Debug("Discovery completed", "count", len(devices))

	return nil
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "browse-timeout", api.DISCOVERY_TIMEOUT, "How long to browse for devices")
	discoverCmd.Flags().BoolVar(&discoverInfo, "info", false, "Fetch ID, type and firmware of each device")
	rootCmd.AddCommand(discoverCmd)
}
