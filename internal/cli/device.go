package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/monorkin/awair-local/internal/database"
	"github.com/monorkin/awair-local/internal/globals"
	"github.com/monorkin/awair-local/internal/models"
)

// deviceCmd represents the device command
var deviceCmd = &cobra.Command{
	Use:     "device",
	Aliases: []string{"d", "devices"},
	Short:   "List recorded devices",
	Long:    `Commands for listing devices that readings have been recorded from.`,
}

// deviceListCmd represents the device list command
var deviceListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all recorded devices",
	Long:    `List all recorded devices with their ID, name, serial number, IP address, endpoint variant and last seen timestamp.`,
	Args:    cobra.NoArgs,
	RunE:    runDeviceList,
}

func runDeviceList(cmd *cobra.Command, args []string) error {
	if err := database.Init(); err != nil {
		return err
	}

	globals.Logger.Debug("Fetching devices from database")

	var devices []models.Device
	if err := database.DB.Order("id").Find(&devices).Error; err != nil {
		return fmt.Errorf("failed to fetch devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No devices found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tNAME\tSERIAL\tIP ADDRESS\tENDPOINT\tLAST SEEN")
	fmt.Fprintln(w, "--\t----\t------\t----------\t--------\t---------")

	for _, device := range devices {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			device.ID,
			device.Name,
			device.SerialNumber,
			device.IPAddress,
			device.Endpoint,
			device.LastSeen.Format("2006-01-02T15:04:05Z07:00"),
		)
	}

	globals.Logger.Debug("Device list completed", "count", len(devices))

	return nil
}

func init() {
	rootCmd.AddCommand(deviceCmd)
	deviceCmd.AddCommand(deviceListCmd)
}
