package api

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestDeviceFromEntry(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		HostName: "AWAIR-ELEM-1A2B3C.local.",
		Port:     80,
		AddrIPv4: []net.IP{net.ParseIP("192.168.1.10")},
	}

	device, ok := deviceFromEntry(entry)
	if !ok {
		t.Fatal("expected entry to be accepted")
	}
	if device.Address() != "192.168.1.10:80" {
		t.Fatalf("unexpected address %q", device.Address())
	}
	if device.Hostname() != "AWAIR-ELEM-1A2B3C.local" {
		t.Fatalf("unexpected hostname %q", device.Hostname())
	}
	if device.Pinned() {
		t.Fatal("discovered devices must auto detect their endpoint")
	}
}

func TestDeviceFromEntrySkipsOtherHosts(t *testing.T) {
	entries := []*zeroconf.ServiceEntry{
		nil,
		{HostName: "printer.local.", AddrIPv4: []net.IP{net.ParseIP("192.168.1.20")}},
		{HostName: "aw.local."},
		{HostName: "awair-omni-1.local."},
	}

	for _, entry := range entries {
		if _, ok := deviceFromEntry(entry); ok {
			t.Fatalf("expected entry %#v to be skipped", entry)
		}
	}
}
