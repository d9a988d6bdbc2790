package models

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"nmpanel/network"
)

// Boxes of the main view, in tab order.
const (
	BoxDevices = iota
	BoxVPN
	BoxKnown
	BoxScanned
	BoxCount
)

// TablesModel is a container model that holds all the main tables.
type TablesModel struct {
	// Populated from the panel model just before rendering.
	SelectedBox     int
	SelectedEntry   int
	NetsHeight      int
	Global          network.GlobalState
	DeviceData      []network.DeviceInfo
	VpnData         []network.ConnectionInfo
	KnownNetworks   []network.ConnectionInfo
	ScannedNetworks []network.AccessPointInfo
	// Active holds the uuids of active connections.
	Active map[string]bool
}

func (m TablesModel) Init() tea.Cmd {
	return nil
}

func (m TablesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

func (m TablesModel) entry(box int) int {
	if m.SelectedBox != box {
		return 0
	}
	return m.SelectedEntry
}

func (m TablesModel) row(box, total, height int) int {
	if m.SelectedBox != box {
		return -1
	}
	return windowRow(total, m.SelectedEntry, height)
}

// View renders all tables in order.
func (m TablesModel) View() string {
	devices := TableModel("Devices", m.SelectedBox == BoxDevices, m.row(BoxDevices, len(m.DeviceData), -1),
		formatDeviceData(m.DeviceData, m.Global))
	vpns := TableModel("Virtual Private Networks", m.SelectedBox == BoxVPN, m.row(BoxVPN, len(m.VpnData), -1),
		formatVpnData(m.VpnData, m.Active))
	known := TableModel("Known Networks", m.SelectedBox == BoxKnown, m.row(BoxKnown, len(m.KnownNetworks), m.NetsHeight),
		formatKnownNetworksData(m.KnownNetworks, m.Active, m.entry(BoxKnown), m.NetsHeight))
	scanned := TableModel("New Networks", m.SelectedBox == BoxScanned, m.row(BoxScanned, len(m.ScannedNetworks), m.NetsHeight),
		formatScannedNetworksData(m.ScannedNetworks, m.entry(BoxScanned), m.NetsHeight))

	vpnView := vpns.View()
	if len(m.VpnData) == 0 {
		vpnView = ""
	}

	return strings.Join([]string{
		devices.View(),
		vpnView,
		known.View(),
		scanned.View(),
	}, "")
}
