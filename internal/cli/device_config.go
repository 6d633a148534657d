package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	api "github.com/monorkin/awair-local/awair/api"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config [address]",
	Short: "Show a device's configuration",
	Long:  `Fetch the device's active configuration (ID, firmware, network and display settings) and print it as JSON.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	device, err := newDevice(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	deviceConfig, err := newClient().FetchConfig(ctx, device)
	if err != nil {
		return err
	}

	response := struct {
		Type   string            `json:"type"`
		Config *api.DeviceConfig `json:"config"`
	}{
		Type:   string(deviceConfig.Type()),
		Config: deviceConfig,
	}

	output, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format config: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(output))

	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
}
