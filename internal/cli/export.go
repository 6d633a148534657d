package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	api "github.com/monorkin/awair-local/awair/api"
	"github.com/monorkin/awair-local/internal/globals"
	"github.com/monorkin/awair-local/internal/metrics"
)

var listenAddress string

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [address]",
	Short: "Expose a device's readings as Prometheus metrics",
	Long:  `Poll a device on an interval and serve the latest reading as Prometheus gauges on /metrics.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	device, err := newDevice(cmd, args)
	if err != nil {
		return err
	}

	address := globals.Settings.MetricsListenAddress
	if listenAddress != "" {
		address = listenAddress
	}

	exporter := metrics.NewExporter()

	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler())

	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signalContext()
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		globals.Logger.Info("Serving metrics", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			cancel()
		}
	}()

	pollErr := pollWith(ctx, newClient(), device, func(device *api.Device, reading *api.Reading) error {
		exporter.Observe(device.Hostname(), reading)
		return nil
	}, func(device *api.Device, err error) {
		kind := "other"
		var clientErr *api.ClientError
		if errors.As(err, &clientErr) {
			kind = clientErr.Kind.String()
		}
		exporter.ObserveFailure(device.Hostname(), kind)
	})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		globals.Logger.Warn("Failed to shut down metrics server", "address", address, "error", err)
	}

	select {
	case err := <-serverErr:
		return err
	default:
		return pollErr
	}
}

func init() {
	addPollFlags(exportCmd)
	exportCmd.Flags().StringVarP(&listenAddress, "listen", "l", "", "Address to serve metrics on (default from settings)")
	rootCmd.AddCommand(exportCmd)
}
