package network

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"

	"nmpanel/network/nmtest"
)

func TestFetchConnection(t *testing.T) {
	t.Parallel()

	off := false
	fake := nmtest.NewNetworkManager()
	fake.AddConnection("/conn/1", nmtest.Connection{
		UUID: "u-1", ID: "home", Type: WirelessType, SSID: "home", Autoconnect: &off, Timestamp: 1700000000,
	})

	c, err := FetchConnection(context.Background(), NewBus(fake), "/conn/1")
	if err != nil {
		t.Fatalf("FetchConnection: %v", err)
	}
	if c.UUID != "u-1" || c.ID != "home" || !c.IsWireless() || c.SSID != "home" {
		t.Fatalf("conn=%+v", c)
	}
	if c.Autoconnect || c.Timestamp != 1700000000 {
		t.Fatalf("autoconnect=%v timestamp=%d", c.Autoconnect, c.Timestamp)
	}
}

func TestParseConnectionSettings_Malformed(t *testing.T) {
	t.Parallel()

	cases := []Settings{
		{},
		{"connection": {"id": dbus.MakeVariant("x"), "type": dbus.MakeVariant("vpn")}},
		{"connection": {"uuid": dbus.MakeVariant(42), "id": dbus.MakeVariant("x"), "type": dbus.MakeVariant("vpn")}},
	}
	for i, s := range cases {
		if _, err := ParseConnectionSettings("/c", s); !errors.Is(err, ErrMalformedSettings) {
			t.Fatalf("case %d: err=%v", i, err)
		}
	}
}

func TestParseConnectionSettings_DefaultsAutoconnect(t *testing.T) {
	t.Parallel()

	c, err := ParseConnectionSettings("/c", Settings{"connection": {
		"uuid": dbus.MakeVariant("u"), "id": dbus.MakeVariant("wired"), "type": dbus.MakeVariant("802-3-ethernet"),
	}})
	if err != nil {
		t.Fatalf("ParseConnectionSettings: %v", err)
	}
	if !c.Autoconnect || c.IsWireless() {
		t.Fatalf("conn=%+v", c)
	}
}

func TestParseConnectionSettings_VPNService(t *testing.T) {
	t.Parallel()

	c, err := ParseConnectionSettings("/c", Settings{
		"connection": {"uuid": dbus.MakeVariant("u"), "id": dbus.MakeVariant("work"), "type": dbus.MakeVariant("vpn")},
		"vpn":        {"service-type": dbus.MakeVariant("org.freedesktop.NetworkManager.openvpn")},
	})
	if err != nil {
		t.Fatalf("ParseConnectionSettings: %v", err)
	}
	if c.VPNService != "OPENVPN" {
		t.Fatalf("service=%q", c.VPNService)
	}
}

func TestFetchConnection_MalformedIsQueryError(t *testing.T) {
	t.Parallel()

	fake := nmtest.NewNetworkManager()
	fake.SetConnectionSettings("/conn/bad", map[string]map[string]dbus.Variant{"ipv4": {}})

	_, err := FetchConnection(context.Background(), NewBus(fake), "/conn/bad")
	if KindOf(err) != ErrorObjectQuery || !errors.Is(err, ErrMalformedSettings) {
		t.Fatalf("err=%v", err)
	}
}

func TestFetchActiveConnections(t *testing.T) {
	t.Parallel()

	fake := nmtest.NewNetworkManager()
	fake.SetProp(NMPath, NMDest, "ActiveConnections", []dbus.ObjectPath{"/active/1"})
	fake.SetProp("/active/1", ActiveIF, "Connection", dbus.ObjectPath("/conn/1"))

	got, err := FetchActiveConnections(context.Background(), NewBus(fake))
	if err != nil {
		t.Fatalf("FetchActiveConnections: %v", err)
	}
	if got["/conn/1"] != "/active/1" {
		t.Fatalf("active=%v", got)
	}
}
