package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	api "github.com/monorkin/awair-local/awair/api"
	"github.com/monorkin/awair-local/internal/globals"
)

// newDevice builds a device from the address argument, or the default
// device from settings when none is given. An explicit --port always wins
// over a port in the address; the settings port only replaces the default.
func newDevice(cmd *cobra.Command, args []string) (*api.Device, error) {
	globals.MustBeInitialized()
	settings := globals.Settings

	var address string
	switch {
	case len(args) > 0:
		address = args[0]
	case settings.DefaultDevice != nil:
		address = *settings.DefaultDevice
	default:
		return nil, fmt.Errorf("no device address given and no default_device in settings")
	}

	var options []api.DeviceOption

	switch {
	case cmd.Flags().Changed("port"):
		options = append(options, api.WithPort(port))
	case settings.Port != 0 && settings.Port != api.DEFAULT_PORT:
		options = append(options, api.WithPort(settings.Port))
	}

	variant := settings.Endpoint
	if endpoint != "" {
		variant = endpoint
	}
	if variant != "" && variant != "auto" {
		pinned, err := api.EndpointByName(variant)
		if err != nil {
			return nil, err
		}
		options = append(options, api.WithEndpoint(pinned))
	}

	return api.NewDevice(address, options...)
}

func newClient() *api.Client {
	requestTimeout := globals.Settings.RequestTimeout()
	if timeout > 0 {
		requestTimeout = timeout
	}

	return api.NewClient(
		api.WithTimeout(requestTimeout),
		api.WithLogger(globals.Logger),
	)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
