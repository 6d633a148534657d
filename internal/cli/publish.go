package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	api "github.com/monorkin/awair-local/awair/api"
	"github.com/monorkin/awair-local/internal/globals"
	"github.com/monorkin/awair-local/internal/publish"
)

var (
	mqttBroker   string
	mqttTopic    string
	mqttClientID string
	mqttRetained bool
)

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish [address]",
	Short: "Publish a device's readings to MQTT",
	Long: `Poll a device on an interval and publish every reading as a JSON document
to <topic>/<device hostname> on an MQTT broker.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPublish,
}

func runPublish(cmd *cobra.Command, args []string) error {
	device, err := newDevice(cmd, args)
	if err != nil {
		return err
	}

	options := publish.Options{
		Broker:   globals.Settings.MQTTBroker,
		ClientID: mqttClientID,
		Topic:    globals.Settings.MQTTTopic,
		Retained: mqttRetained,
	}
	if mqttBroker != "" {
		options.Broker = mqttBroker
	}
	if mqttTopic != "" {
		options.Topic = mqttTopic
	}
	if options.ClientID == "" {
		hostname, _ := os.Hostname()
		options.ClientID = fmt.Sprintf("awair-local-%s-%d", hostname, os.Getpid())
	}

	publisher, err := publish.Connect(options, globals.Logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	globals.Logger.Info("Publishing readings", "broker", options.Broker, "topic", publisher.TopicFor(device.Hostname()))

	ctx, cancel := signalContext()
	defer cancel()

	return pollWith(ctx, newClient(), device, func(device *api.Device, reading *api.Reading) error {
		if err := publisher.Publish(device.Hostname(), reading); err != nil {
			// The client reconnects on its own; keep polling.
			globals.Logger.Error("Failed to publish reading", "error", err)
		}
		return nil
	}, nil)
}

func init() {
	addPollFlags(publishCmd)
	publishCmd.Flags().StringVar(&mqttBroker, "broker", "", "MQTT broker URL (default from settings)")
	publishCmd.Flags().StringVar(&mqttTopic, "topic", "", "MQTT topic prefix (default from settings)")
	publishCmd.Flags().StringVar(&mqttClientID, "client-id", "", "MQTT client ID (default derived from hostname)")
	publishCmd.Flags().BoolVar(&mqttRetained, "retained", false, "Publish readings as retained messages")
	rootCmd.AddCommand(publishCmd)
}
