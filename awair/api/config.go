package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

const (
	CONFIG_PATH = "/settings/config/data"
)

type LEDConfig struct {
	Mode       string `json:"mode"`
	Brightness int    `json:"brightness"`
}

// DeviceConfig is the device's active configuration.
type DeviceConfig struct {
	// ID is reported as device_uuid, though it is not formatted as a UUID.
	ID              string    `json:"device_uuid"`
	WifiMAC         string    `json:"wifi_mac"`
	SSID            string    `json:"ssid"`
	IP              string    `json:"ip"`
	Netmask         string    `json:"netmask"`
	Gateway         string    `json:"gateway"`
	FirmwareVersion string    `json:"fw_version"`
	Timezone        string    `json:"timezone"`
	Display         string    `json:"display"`
	LED             LEDConfig `json:"led"`
	VOCFeatureSet   int       `json:"voc_feature_set"`
}

// Type derives the device generation from its ID.
func (config *DeviceConfig) Type() DeviceType {
	lowercaseID := strings.ToLower(config.ID)

	switch {
	case strings.HasPrefix(lowercaseID, "awair-element_"):
		return DeviceTypeAwairElement
	case strings.HasPrefix(lowercaseID, "awair-omni_"):
		return DeviceTypeAwairOmni
	default:
		return DeviceTypeUnknown
	}
}

// FetchConfig requests the device's configuration. Errors are classified
// the same way as FetchLatest's.
func (client *Client) FetchConfig(ctx context.Context, device *Device) (*DeviceConfig, error) {
	url := device.URL(CONFIG_PATH)

	body, err := client.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var config DeviceConfig
	if err := json.Unmarshal(body, &config); err != nil {
		return nil, &ClientError{
			Kind:       ErrorKindDecode,
			URL:        url,
			StatusCode: http.StatusOK,
			Err:        &DecodeError{Kind: DecodeErrorMalformed, Err: err},
		}
	}

	if config.ID == "" {
		return nil, &ClientError{
			Kind:       ErrorKindDecode,
			URL:        url,
			StatusCode: http.StatusOK,
			Err:        &DecodeError{Kind: DecodeErrorMissingField, Field: "device_uuid", Key: "device_uuid"},
		}
	}

	client.log(slog.LevelDebug, "Device config fetched", "device", device.Address(), "id", config.ID, "firmware", config.FirmwareVersion)

	return &config, nil
}
