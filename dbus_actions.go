package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/godbus/dbus/v5"

	nmdbus "nmpanel/dbus"
	"nmpanel/models"
	"nmpanel/network"
)

func failed(err error) tea.Msg {
	return models.ErrMsg{Err: errors.New(network.UserMessage(err))}
}

// Commands run without a deadline of their own: the client bounds queries
// with its query timeout and activations with its activation timeout.

// activateCmd activates a stored connection. Success only means
// NetworkManager accepted the request; the state change arrives as a signal.
func activateCmd(client *nmdbus.Client, conn network.ConnectionInfo, device dbus.ObjectPath) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if _, err := client.Activate(ctx, string(conn.Path), device); err != nil {
			return failed(err)
		}
		return models.NoticeMsg(fmt.Sprintf("Activating %s", conn.ID))
	}
}

func deactivateCmd(client *nmdbus.Client, name string, active dbus.ObjectPath) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if err := client.Deactivate(ctx, active); err != nil {
			return failed(err)
		}
		return models.NoticeMsg(fmt.Sprintf("Disconnected %s", name))
	}
}

var errNoWifi = errors.New("no Wi-Fi device found")

// disconnectDeviceCmd deactivates whatever is active on d. The active
// connection is read from the bus since the cache tracks device state only.
func disconnectDeviceCmd(client *nmdbus.Client, d network.DeviceInfo) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		active, err := client.ActiveConnection(ctx, d.Path)
		if err != nil {
			return failed(err)
		}
		if active == "" || active == network.NoObject {
			return models.NoticeMsg(fmt.Sprintf("%s is not connected", d.Interface))
		}
		if err := client.Deactivate(ctx, active); err != nil {
			return failed(err)
		}
		return models.NoticeMsg(fmt.Sprintf("Disconnected %s", d.Interface))
	}
}

// connectCmd joins a scanned network, reusing a stored profile when one
// exists for the SSID.
func connectCmd(client *nmdbus.Client, device dbus.ObjectPath, ap network.AccessPointInfo, secret string, auth *network.EnterpriseAuth) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if _, err := client.Connect(ctx, device, ap, secret, auth); err != nil {
			return failed(err)
		}
		return models.NoticeMsg(fmt.Sprintf("Connecting to %s", ap.SSID))
	}
}

func deleteConnectionCmd(client *nmdbus.Client, conn network.ConnectionInfo) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if err := client.DeleteConnection(ctx, conn.Path); err != nil {
			return failed(err)
		}
		return models.NoticeMsg(fmt.Sprintf("Forgot %s", conn.ID))
	}
}

func toggleWifiCmd(client *nmdbus.Client, enable bool) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if err := client.SetWirelessEnabled(ctx, enable); err != nil {
			return failed(err)
		}
		if enable {
			return models.NoticeMsg("Wi-Fi enabled")
		}
		return models.NoticeMsg("Wi-Fi disabled")
	}
}

// requestScanCmd asks for a scan and schedules a results refresh once the
// radio has had time to collect beacons.
func requestScanCmd(client *nmdbus.Client, device dbus.ObjectPath) tea.Cmd {
	scan := func() tea.Msg {
		ctx := context.Background()
		if err := client.RequestScan(ctx, device); err != nil {
			return failed(err)
		}
		return models.NoticeMsg("Scanning...")
	}
	refresh := tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return models.PerformScanRefreshMsg{}
	})
	return tea.Batch(scan, refresh)
}

// accessPointsCmd reads the current scan results of device.
func accessPointsCmd(client *nmdbus.Client, device dbus.ObjectPath) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		return models.AccessPointsMsg(network.StrongestBySSID(client.ListAccessPoints(ctx, device)))
	}
}

// activeConnectionsMsg maps stored connection paths to active connection
// paths.
type activeConnectionsMsg map[dbus.ObjectPath]dbus.ObjectPath

func activeConnectionsCmd(client *nmdbus.Client) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		m, err := client.ActiveConnections(ctx)
		if err != nil {
			return failed(err)
		}
		return activeConnectionsMsg(m)
	}
}
