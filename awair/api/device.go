package api

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
)

const (
	DEFAULT_PORT = 80
)

type DeviceType string

const (
	DeviceTypeAwairElement DeviceType = "awair-element"
	DeviceTypeAwairOmni    DeviceType = "awair-omni"
	DeviceTypeUnknown      DeviceType = "unknown"
)

// Device identifies one device on the local network and the endpoint
// variant used to read from it. Its address never changes after
// construction. When no variant is pinned, the first successful request
// records the detected variant on the Device so later requests skip probing.
type Device struct {
	host     string
	port     int
	hostname string
	pinned   *Endpoint
	detected atomic.Pointer[Endpoint]
}

type DeviceOption func(*Device)

// WithPort overrides the port given in the address, or the default port.
func WithPort(port int) DeviceOption {
	return func(device *Device) {
		device.port = port
	}
}

// WithEndpoint pins the device to a single endpoint variant and disables
// auto detection.
func WithEndpoint(endpoint Endpoint) DeviceOption {
	return func(device *Device) {
		device.pinned = &endpoint
	}
}

// WithHostname records the name the device announced itself under.
func WithHostname(hostname string) DeviceOption {
	return func(device *Device) {
		device.hostname = hostname
	}
}

// NewDevice builds a Device from a hostname or IP address, optionally with
// a port ("192.168.1.10:8080") or as an http URL ("http://awair-elem-1234").
func NewDevice(address string, options ...DeviceOption) (*Device, error) {
	host, port, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	device := &Device{
		host: host,
		port: port,
	}

	for _, option := range options {
		option(device)
	}

	if device.port < 1 || device.port > 65535 {
		return nil, fmt.Errorf("invalid port %d for device %s", device.port, host)
	}

	if device.pinned != nil && device.pinned.Path == "" {
		return nil, fmt.Errorf("endpoint variant %q has no path", device.pinned.Name)
	}

	return device, nil
}

func parseAddress(address string) (string, int, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", 0, fmt.Errorf("device address is empty")
	}

	if strings.Contains(address, "://") {
		parsed, err := url.Parse(address)
		if err != nil {
			return "", 0, fmt.Errorf("invalid device address %q: %w", address, err)
		}
		if parsed.Scheme != "http" {
			return "", 0, fmt.Errorf("unsupported scheme %q in device address, only http is served", parsed.Scheme)
		}
		if parsed.Hostname() == "" {
			return "", 0, fmt.Errorf("device address %q has no host", address)
		}

		port := DEFAULT_PORT
		if parsed.Port() != "" {
			port, err = strconv.Atoi(parsed.Port())
			if err != nil {
				return "", 0, fmt.Errorf("invalid port in device address %q: %w", address, err)
			}
		}

		return parsed.Hostname(), port, nil
	}

	host, portString, err := net.SplitHostPort(address)
	if err != nil {
		// No port given, or a bare IPv6 literal.
		return strings.Trim(address, "[]"), DEFAULT_PORT, nil
	}

	if host == "" {
		return "", 0, fmt.Errorf("device address %q has no host", address)
	}

	port, err := strconv.Atoi(portString)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in device address %q: %w", address, err)
	}

	return host, port, nil
}

func (device *Device) Host() string {
	return device.host
}

func (device *Device) Port() int {
	return device.port
}

// Hostname returns the announced hostname, falling back to the host.
func (device *Device) Hostname() string {
	if device.hostname != "" {
		return device.hostname
	}

	return device.host
}

// Address returns host:port, bracketing IPv6 literals.
func (device *Device) Address() string {
	return net.JoinHostPort(device.host, strconv.Itoa(device.port))
}

func (device *Device) URL(path string) string {
	return "http://" + device.Address() + path
}

// Endpoint returns the pinned variant, or the detected one once known.
func (device *Device) Endpoint() (Endpoint, bool) {
	if device.pinned != nil {
		return *device.pinned, true
	}

	if detected := device.detected.Load(); detected != nil {
		return *detected, true
	}

	return Endpoint{}, false
}

func (device *Device) Pinned() bool {
	return device.pinned != nil
}

// rememberEndpoint records a detected variant. Concurrent callers racing on
// the same device all store the same value, so the last write wins.
func (device *Device) rememberEndpoint(endpoint Endpoint) {
	device.detected.Store(&endpoint)
}

func (device *Device) String() string {
	return device.Address()
}
