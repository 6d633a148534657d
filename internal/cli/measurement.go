package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/monorkin/awair-local/internal/database"
	"github.com/monorkin/awair-local/internal/globals"
	"github.com/monorkin/awair-local/internal/models"
)

// measurementCmd represents the measurement command
var measurementCmd = &cobra.Command{
	Use:     "measurement",
	Aliases: []string{"m", "measurements"},
	Short:   "Show recorded measurements",
	Long:    `Commands for reading measurements stored by the record command.`,
}

// measurementGetCmd represents the measurement get command
var measurementGetCmd = &cobra.Command{
	Use:   "get <device_id_or_serial>",
	Short: "Get the latest recorded measurement for a device",
	Long: `Get the latest recorded measurement for a device specified by either device ID or serial number.

Examples:
  awair-local measurement get 1
  awair-local measurement get awair-element_12345`,
	Args: cobra.ExactArgs(1),
	RunE: runMeasurementGet,
}

// MeasurementOutput is the JSON shape printed by measurement get. Sensors
// the device lacks are omitted.
type MeasurementOutput struct {
	Device struct {
		ID           uint   `json:"id"`
		Name         string `json:"name"`
		SerialNumber string `json:"serial_number"`
		IPAddress    string `json:"ip_address"`
		DeviceType   string `json:"device_type"`
		LastSeen     string `json:"last_seen"`
	} `json:"device"`
	Measurement struct {
		Timestamp   string   `json:"timestamp"`
		Score       int      `json:"score"`
		Temperature *float64 `json:"temperature,omitempty"`
		Humidity    *float64 `json:"humidity,omitempty"`
		CO2         *int64   `json:"co2,omitempty"`
		VOC         *int64   `json:"voc,omitempty"`
		PM25        *int64   `json:"pm25,omitempty"`
	} `json:"measurement"`
}

func runMeasurementGet(cmd *cobra.Command, args []string) error {
	if err := database.Init(); err != nil {
		return err
	}

	deviceIdentifier := args[0]
	globals.Logger.Debug("Getting measurement for device", "identifier", deviceIdentifier)

	var device models.Device
	var err error

	// Try parsing as ID first, then fall back to the serial number
	if deviceID, parseErr := strconv.ParseUint(deviceIdentifier, 10, 32); parseErr == nil {
		err = database.DB.First(&device, uint(deviceID)).Error
	} else {
		err = database.DB.Where("serial_number = ?", deviceIdentifier).First(&device).Error
	}
	if err != nil {
		return fmt.Errorf("device not found: %s", deviceIdentifier)
	}

	measurement, err := database.LatestMeasurement(database.DB, device.ID)
	if err != nil {
		return fmt.Errorf("no measurements found for device %s", deviceIdentifier)
	}

	var response MeasurementOutput
	response.Device.ID = device.ID
	response.Device.Name = device.Name
	response.Device.SerialNumber = device.SerialNumber
	response.Device.IPAddress = device.IPAddress
	response.Device.DeviceType = device.DeviceType
	response.Device.LastSeen = device.LastSeen.Format(time.RFC3339)
	response.Measurement.Timestamp = measurement.Timestamp.Format(time.RFC3339)
	response.Measurement.Score = measurement.Score
	response.Measurement.Temperature = measurement.Temperature
	response.Measurement.Humidity = measurement.Humidity
	response.Measurement.CO2 = measurement.CO2
	response.Measurement.VOC = measurement.VOC
	response.Measurement.PM25 = measurement.PM25

	output, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(output))

	globals.Logger.Debug("Measurement get completed", "device_id", device.ID)

	return nil
}

func init() {
	rootCmd.AddCommand(measurementCmd)
	measurementCmd.AddCommand(measurementGetCmd)
}
