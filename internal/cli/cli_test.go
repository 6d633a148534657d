package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/monorkin/awair-local/internal/config"
	"github.com/monorkin/awair-local/internal/globals"
)

// The database and settings are process-wide, so every test in this
// package shares one scratch directory.
func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "awair-local-cli")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	os.Setenv(config.SETTINGS_PATH_ENV, filepath.Join(dir, "settings.json"))
	os.Setenv(config.DB_PATH_ENV, filepath.Join(dir, "readings.sqlite"))

	if err := globals.Initialize(false); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func newDeviceStub(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/air-data/latest":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"timestamp":"2024-03-01T10:15:30Z","score":88,"temp":21.5,"humid":40.2,"co2":612}`))
		case "/settings/config/data":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"device_uuid":"awair-element_5366","fw_version":"1.4.0"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	return server
}

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v failed: %v\n%s", args, err, out.String())
	}

	return out.String()
}

func TestGetPrintsReading(t *testing.T) {
	server := newDeviceStub(t)

	output := execute(t, "get", server.URL)

	var reading map[string]any
	if err := json.Unmarshal([]byte(output), &reading); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}
	if reading["score"] != float64(88) || reading["co2"] != float64(612) {
		t.Fatalf("unexpected reading %v", reading)
	}
	if _, ok := reading["pm25"]; ok {
		t.Fatalf("absent sensors must be omitted: %v", reading)
	}
}

func TestPollStopsAfterCount(t *testing.T) {
	server := newDeviceStub(t)

	output := execute(t, "poll", server.URL, "--interval", "10ms", "--count", "2")

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two readings, got %d:\n%s", len(lines), output)
	}
}

func TestConfigPrintsDeviceType(t *testing.T) {
	server := newDeviceStub(t)

	output := execute(t, "config", server.URL)

	if !strings.Contains(output, `"type": "awair-element"`) {
		t.Fatalf("expected device type in output:\n%s", output)
	}
}

func TestRecordThenReadBack(t *testing.T) {
	server := newDeviceStub(t)

	execute(t, "record", server.URL, "--interval", "10ms", "--count", "2")

	output := execute(t, "measurement", "get", "awair-element_5366")

	var response MeasurementOutput
	if err := json.Unmarshal([]byte(output), &response); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}
	if response.Device.SerialNumber != "awair-element_5366" || response.Device.DeviceType != "awair-element" {
		t.Fatalf("unexpected device %#v", response.Device)
	}
	if response.Measurement.Score != 88 || response.Measurement.CO2 == nil || *response.Measurement.CO2 != 612 {
		t.Fatalf("unexpected measurement %#v", response.Measurement)
	}
	if response.Measurement.PM25 != nil {
		t.Fatalf("expected pm25 to be absent, got %d", *response.Measurement.PM25)
	}

	list := execute(t, "device", "list")
	if !strings.Contains(list, "awair-element_5366") || !strings.Contains(list, "latest") {
		t.Fatalf("expected recorded device with its endpoint in list:\n%s", list)
	}
}

func TestExportStopsAfterCount(t *testing.T) {
	server := newDeviceStub(t)

	execute(t, "export", server.URL, "--listen", "127.0.0.1:0", "--interval", "10ms", "--count", "1")
}

func TestNewDevicePortFlag(t *testing.T) {
	t.Cleanup(func() { port = 0 })

	newCommand := func() *cobra.Command {
		cmd := &cobra.Command{}
		cmd.Flags().IntVar(&port, "port", 0, "")
		return cmd
	}

	cmd := newCommand()
	device, err := newDevice(cmd, []string{"10.0.0.2:8080"})
	if err != nil {
		t.Fatalf("newDevice returned error: %v", err)
	}
	if device.Port() != 8080 {
		t.Fatalf("expected the address port without --port, got %d", device.Port())
	}

	cmd = newCommand()
	if err := cmd.Flags().Set("port", "80"); err != nil {
		t.Fatal(err)
	}
	device, err = newDevice(cmd, []string{"10.0.0.2:8080"})
	if err != nil {
		t.Fatalf("newDevice returned error: %v", err)
	}
	if device.Port() != 80 {
		t.Fatalf("expected an explicit --port 80 to win, got %d", device.Port())
	}
}
