package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	AWAIR_HOSTNAME_PREFIX = "awair-"
	DISCOVERY_SERVICE     = "_http._tcp"
	DISCOVERY_DOMAIN      = "local."
	DISCOVERY_TIMEOUT     = 5 * time.Second
)

// Discoverer finds devices announcing themselves over mDNS.
type Discoverer struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

func (discoverer *Discoverer) log(level slog.Level, msg string, args ...any) {
	if discoverer.Logger != nil {
		discoverer.Logger.Log(context.Background(), level, msg, args...)
	}
}

// Browse collects devices until the timeout elapses or ctx is done. The
// returned devices auto detect their endpoint variant.
func (discoverer *Discoverer) Browse(ctx context.Context) ([]*Device, error) {
	timeout := discoverer.Timeout
	if timeout <= 0 {
		timeout = DISCOVERY_TIMEOUT
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, DISCOVERY_SERVICE, DISCOVERY_DOMAIN, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for devices: %w", err)
	}

	discoverer.log(slog.LevelDebug, "Browsing for devices", "service", DISCOVERY_SERVICE, "timeout", timeout)

	var devices []*Device
	seen := make(map[string]bool)

loop:
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				break loop
			}

			device, ok := deviceFromEntry(entry)
			if !ok || seen[device.Address()] {
				continue
			}

			seen[device.Address()] = true
			devices = append(devices, device)
			discoverer.log(slog.LevelDebug, "Device discovered", "hostname", device.Hostname(), "address", device.Address())
		case <-ctx.Done():
			break loop
		}
	}

	return devices, nil
}

func deviceFromEntry(entry *zeroconf.ServiceEntry) (*Device, bool) {
	if entry == nil || !isAwairHostname(entry.HostName) || len(entry.AddrIPv4) == 0 {
		return nil, false
	}

	options := []DeviceOption{WithHostname(strings.TrimSuffix(entry.HostName, "."))}
	if entry.Port > 0 {
		options = append(options, WithPort(entry.Port))
	}

	device, err := NewDevice(entry.AddrIPv4[0].String(), options...)
	if err != nil {
		return nil, false
	}

	return device, true
}

func isAwairHostname(hostname string) bool {
	if len(hostname) < len(AWAIR_HOSTNAME_PREFIX) {
		return false
	}

	return strings.EqualFold(hostname[:len(AWAIR_HOSTNAME_PREFIX)], AWAIR_HOSTNAME_PREFIX)
}
