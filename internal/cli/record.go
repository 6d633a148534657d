package cli

import (
	"github.com/spf13/cobra"

	api "github.com/monorkin/awair-local/awair/api"
	"github.com/monorkin/awair-local/internal/database"
	"github.com/monorkin/awair-local/internal/globals"
)

// recordCmd represents the record command
var recordCmd = &cobra.Command{
	Use:   "record [address]",
	Short: "Poll a device and store its readings",
	Long: `Poll a device on an interval and store every reading in the local database.

The database lives in the XDG data directory unless AWAIR_LOCAL_DB_PATH is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	if err := database.Init(); err != nil {
		return err
	}

	device, err := newDevice(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := newClient()

	deviceConfig, err := client.FetchConfig(ctx, device)
	if err != nil {
		return err
	}

	recorder, err := database.NewRecorder(database.DB, device, deviceConfig)
	if err != nil {
		return err
	}

	globals.Logger.Info("Recording readings", "device", device.Address(), "id", deviceConfig.ID, "device_id", recorder.DeviceID())

	return pollWith(ctx, client, device, func(device *api.Device, reading *api.Reading) error {
		variant, _ := device.Endpoint()
		if err := recorder.Record(reading, variant.Name); err != nil {
			return err
		}

		globals.Logger.Debug("Reading recorded", "device", device.Address(), "timestamp", reading.Timestamp)

		return nil
	}, nil)
}

func init() {
	addPollFlags(recordCmd)
	rootCmd.AddCommand(recordCmd)
}
