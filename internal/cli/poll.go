package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	api "github.com/monorkin/awair-local/awair/api"
	"github.com/monorkin/awair-local/internal/globals"
)

var (
	pollInterval time.Duration
	pollRetries  int
	pollCount    int
)

// pollCmd represents the poll command
var pollCmd = &cobra.Command{
	Use:   "poll [address]",
	Short: "Poll a device on an interval",
	Long: `Poll a device on an interval and print one JSON reading per line.

Transient failures are retried with exponential backoff. Errors that remain
after all retries are logged and polling continues.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPoll,
}

func runPoll(cmd *cobra.Command, args []string) error {
	device, err := newDevice(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	out := json.NewEncoder(cmd.OutOrStdout())

	return pollWith(ctx, newClient(), device, func(device *api.Device, reading *api.Reading) error {
		return out.Encode(reading)
	}, nil)
}

// pollWith polls device until interrupted or until --count ticks have been
// handled. Readings go to onReading; an error from it stops polling and is
// returned. onError, if set, sees every error that survived retries.

func pollWith(ctx context.Context, client *api.Client, device *api.Device, onReading func(*api.Device, *api.Reading) error, onError func(*api.Device, error)) error {
	interval := globals.Settings.PollInterval()
	if pollInterval > 0 {
		interval = pollInterval
	}

	retries := globals.Settings.MaxRetries
	if pollRetries >= 0 {
		retries = pollRetries
	}

	poller, err := client.NewPoller(device, api.PollOptions{
		Interval:   interval,
		MaxRetries: retries,
	})
	if err != nil {
		return err
	}

	globals.Logger.Info("Polling device", "device", device.Address(), "interval", interval, "retries", retries)

	ticks := 0
	for reading, err := range poller.Readings(ctx) {
		ticks++
		if err != nil {
			globals.Logger.Error("Poll failed", "device", device.Address(), "error", err)
			if onError != nil {
				onError(device, err)
			}
		} else if err := onReading(device, reading); err != nil {
			return fmt.Errorf("failed to handle reading: %w", err)
		}

		if pollCount > 0 && ticks >= pollCount {
			break
		}
	}

	globals.Logger.Info("Polling stopped", "device", device.Address())

	return nil
}

func addPollFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVarP(&pollInterval, "interval", "i", 0, "Polling interval (default from settings)")
	cmd.Flags().IntVarP(&pollRetries, "retries", "r", -1, "Retries per tick for transient failures (default from settings)")
	cmd.Flags().IntVarP(&pollCount, "count", "n", 0, "Stop after this many ticks (0 polls forever)")
}

func init() {
	addPollFlags(pollCmd)
	rootCmd.AddCommand(pollCmd)
}
