package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monorkin/awair-local/internal/globals"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get [address]",
	Short: "Fetch the latest reading from a device",
	Long: `Fetch the latest reading from a device and print it as JSON.

Examples:
  awair-local get 192.168.1.10
  awair-local get awair-elem-1a2b3c --endpoint latest`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	device, err := newDevice(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	reading, err := newClient().FetchLatest(ctx, device)
	if err != nil {
		return err
	}

	output, err := json.MarshalIndent(reading, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format reading: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(output))

	if variant, ok := device.Endpoint(); ok {
		globals.Logger.Debug("Reading fetched", "device", device.Address(), "endpoint", variant.Name)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(getCmd)
}
