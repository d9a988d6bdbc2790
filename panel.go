package main

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/godbus/dbus/v5"
	overlay "github.com/rmhubbert/bubbletea-overlay"

	"nmpanel/config"
	nmdbus "nmpanel/dbus"
	"nmpanel/models"
	"nmpanel/network"
)

const (
	popupNone = iota
	popupForm
	popupConfirm
)

// panel is the root model. It reads from the client's cache, which the sync
// engine keeps current, and issues commands through the client.
type panel struct {
	client *nmdbus.Client
	cfg    config.Config
	logger *slog.Logger

	width, height int
	selectedBox   int
	selectedEntry int

	global  network.GlobalState
	devices []network.DeviceInfo
	vpns    []network.ConnectionInfo
	known   []network.ConnectionInfo
	scanned []network.AccessPointInfo
	allAPs  []network.AccessPointInfo
	active  map[dbus.ObjectPath]dbus.ObjectPath

	tables       models.TablesModel
	statusBar    models.StatusBarData
	form         models.WpaEapForm
	confirmation models.Confirmation

	popup         int
	typing        bool
	selectedAP    network.AccessPointInfo
	pendingDelete network.ConnectionInfo
}

func newPanel(client *nmdbus.Client, cfg config.Config, logger *slog.Logger) panel {
	m := panel{
		client:       client,
		cfg:          cfg,
		logger:       logger,
		active:       map[dbus.ObjectPath]dbus.ObjectPath{},
		statusBar:    models.ModelStatusBar(),
		confirmation: models.ModelConfirmation(),
		popup:        popupNone,
	}
	m.reload()
	return m
}

func (m panel) Init() tea.Cmd {
	cmds := []tea.Cmd{
		func() tea.Msg { return cacheChangedMsg{} },
		refreshTicker(m.cfg.Panel.ScanInterval()),
	}
	if w, ok := m.wifiDevice(); ok {
		cmds = append(cmds, accessPointsCmd(m.client, w))
	}
	return tea.Batch(cmds...)
}

// reload copies the cache into the view state.
func (m *panel) reload() {
	m.global = m.client.GlobalState()
	m.devices = m.client.ListDevices()
	m.vpns, m.known = nil, nil
	for _, c := range m.client.ListConnections() {
		if c.IsVPN() {
			m.vpns = append(m.vpns, c)
		} else {
			m.known = append(m.known, c)
		}
	}
	m.filterScanned()
	m.clampSelection()
}

// filterScanned hides networks that already have a stored profile.
func (m *panel) filterScanned() {
	m.scanned = m.scanned[:0:0]
	for _, ap := range m.allAPs {
		if _, ok := m.client.FindConnectionBySSID(ap.SSID); !ok {
			m.scanned = append(m.scanned, ap)
		}
	}
}

func (m *panel) boxLen(box int) int {
	switch box {
	case models.BoxDevices:
		return len(m.devices)
	case models.BoxVPN:
		return len(m.vpns)
	case models.BoxKnown:
		return len(m.known)
	case models.BoxScanned:
		return len(m.scanned)
	}
	return 0
}

func (m *panel) clampSelection() {
	m.selectedEntry = max(min(m.selectedEntry, m.boxLen(m.selectedBox)-1), 0)
}

func (m panel) wifiDevice() (dbus.ObjectPath, bool) {
	d, ok := m.client.FirstDevice(network.KindWiFi)
	return d.Path, ok
}

func (m panel) activeByUUID() map[string]bool {
	out := make(map[string]bool, len(m.active))
	for _, c := range append(append([]network.ConnectionInfo(nil), m.vpns...), m.known...) {
		if _, ok := m.active[c.Path]; ok {
			out[c.UUID] = true
		}
	}
	return out
}

func (m panel) notice(text string) (panel, tea.Cmd) {
	if !m.cfg.Panel.Notifications() {
		return m, nil
	}
	var sb tea.Model
	sb, _ = m.statusBar.Update(models.NoticeMsg(text))
	m.statusBar = sb.(models.StatusBarData)
	return m, nil
}

func (m panel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.popup {
	case popupForm:
		return m.updateForm(msg)
	case popupConfirm:
		return m.updateConfirm(msg)
	}

	if m.typing {
		return m.updatePassword(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case cacheChangedMsg:
		m.reload()
		return m, activeConnectionsCmd(m.client)

	case models.GlobalStateMsg:
		m.global = network.GlobalState(msg)
		return m, nil

	case activeConnectionsMsg:
		m.active = msg
		return m, nil

	case models.AccessPointsMsg:
		m.allAPs = msg
		m.filterScanned()
		m.clampSelection()
		return m, nil

	case models.PeriodicRefreshMsg:
		cmds := []tea.Cmd{refreshTicker(m.cfg.Panel.ScanInterval())}
		if w, ok := m.wifiDevice(); ok && m.global.WirelessEnabled {
			cmds = append(cmds, accessPointsCmd(m.client, w))
		}
		return m, tea.Batch(cmds...)

	case models.PerformScanRefreshMsg:
		if w, ok := m.wifiDevice(); ok {
			return m, accessPointsCmd(m.client, w)
		}
		return m, nil

	case models.NoticeMsg:
		return m.notice(string(msg))

	case models.ErrMsg:
		m.logger.Warn("command failed", "error", msg.Err)
		var sb tea.Model
		sb, _ = m.statusBar.Update(msg)
		m.statusBar = sb.(models.StatusBarData)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m panel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.selectedEntry > 0 {
			m.selectedEntry--
		}

	case "down", "j":
		if m.selectedEntry < m.boxLen(m.selectedBox)-1 {
			m.selectedEntry++
		}

	case "tab":
		m.moveBox(1)

	case "shift+tab":
		m.moveBox(-1)

	case "r":
		if w, ok := m.wifiDevice(); ok {
			return m, requestScanCmd(m.client, w)
		}

	case "w":
		return m, toggleWifiCmd(m.client, !m.global.WirelessEnabled)

	case "enter", " ":
		return m.activateSelected()

	case "delete", "d":
		var conn network.ConnectionInfo
		switch {
		case m.selectedBox == models.BoxKnown && len(m.known) > 0:
			conn = m.known[m.selectedEntry]
		case m.selectedBox == models.BoxVPN && len(m.vpns) > 0:
			conn = m.vpns[m.selectedEntry]
		default:
			return m, nil
		}
		m.pendingDelete = conn
		m.confirmation = models.ModelConfirmation()
		m.confirmation.Message = fmt.Sprintf("Forget the stored connection '%s'?\n", conn.ID)
		m.popup = popupConfirm
	}
	return m, nil
}

// moveBox cycles the focused box, skipping the VPN box when it is empty.
func (m *panel) moveBox(step int) {
	for range models.BoxCount {
		m.selectedBox = (m.selectedBox + step + models.BoxCount) % models.BoxCount
		if m.selectedBox != models.BoxVPN || len(m.vpns) > 0 {
			break
		}
	}
	m.selectedEntry = 0
}

func (m panel) activateSelected() (tea.Model, tea.Cmd) {
	if m.boxLen(m.selectedBox) == 0 {
		return m, nil
	}
	switch m.selectedBox {
	case models.BoxDevices:
		d := m.devices[m.selectedEntry]
		if d.State.Phase() == network.PhaseConnected || d.State.Phase() == network.PhaseConnecting {
			return m, disconnectDeviceCmd(m.client, d)
		}

	case models.BoxVPN:
		vpn := m.vpns[m.selectedEntry]
		if active, ok := m.active[vpn.Path]; ok {
			return m, deactivateCmd(m.client, vpn.ID, active)
		}
		return m, activateCmd(m.client, vpn, "")

	case models.BoxKnown:
		conn := m.known[m.selectedEntry]
		var device dbus.ObjectPath
		if conn.IsWireless() {
			device, _ = m.wifiDevice()
		}
		return m, activateCmd(m.client, conn, device)

	case models.BoxScanned:
		w, ok := m.wifiDevice()
		if !ok {
			return m, func() tea.Msg { return models.ErrMsg{Err: errNoWifi} }
		}
		m.selectedAP = m.scanned[m.selectedEntry]
		switch {
		case m.selectedAP.Enterprise:
			m.form = models.ModelWpaEapForm(m.selectedAP.SSID)
			m.popup = popupForm
			return m, m.form.Init()
		case m.selectedAP.Security.RequiresSecret():
			m.typing = true
			m.statusBar.Input.Placeholder = fmt.Sprintf("Password for %s...", m.selectedAP.SSID)
			return m, m.statusBar.Input.Focus()
		default:
			return m, connectCmd(m.client, w, m.selectedAP, "", nil)
		}
	}
	return m, nil
}

func (m panel) stopTyping() panel {
	m.typing = false
	m.statusBar.Input.Placeholder = ""
	m.statusBar.Input.Blur()
	m.statusBar.Input.SetValue("")
	return m
}

func (m panel) updatePassword(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		// Background messages still reach the main view.
		m.typing = false
		next, cmd := m.Update(msg)
		p := next.(panel)
		p.typing = true
		var blink tea.Cmd
		p.statusBar.Input, blink = p.statusBar.Input.Update(msg)
		return p, tea.Batch(cmd, blink)
	}

	switch key.String() {
	case "esc", "ctrl+c":
		return m.stopTyping(), nil
	case "enter":
		secret := m.statusBar.Input.Value()
		m = m.stopTyping()
		w, ok := m.wifiDevice()
		if !ok {
			return m, nil
		}
		return m, connectCmd(m.client, w, m.selectedAP, secret, nil)
	}

	var cmd tea.Cmd
	m.statusBar.Input, cmd = m.statusBar.Input.Update(key)
	return m, cmd
}

func (m panel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case models.ExitFormMsg:
		m.popup = popupNone
		return m, nil
	case models.SubmitEapFormMsg:
		m.popup = popupNone
		w, ok := m.wifiDevice()
		if !ok {
			return m, nil
		}
		auth := msg.Auth
		return m, connectCmd(m.client, w, m.selectedAP, "", &auth)
	case tea.KeyMsg, tea.WindowSizeMsg:
		var f tea.Model
		var cmd tea.Cmd
		f, cmd = m.form.Update(msg)
		m.form = f.(models.WpaEapForm)
		return m, cmd
	}
	// Background messages still reach the main view.
	m.popup = popupNone
	next, cmd := m.Update(msg)
	p := next.(panel)
	p.popup = popupForm
	return p, cmd
}

func (m panel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case models.SubmitConfirmationMsg:
		m.popup = popupNone
		if msg.Value {
			return m, deleteConnectionCmd(m.client, m.pendingDelete)
		}
		return m, nil
	case tea.KeyMsg:
		var c tea.Model
		var cmd tea.Cmd
		c, cmd = m.confirmation.Update(msg)
		m.confirmation = c.(models.Confirmation)
		return m, cmd
	}
	m.popup = popupNone
	next, cmd := m.Update(msg)
	p := next.(panel)
	p.popup = popupConfirm
	return p, cmd
}

var labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#9cca69")).Padding(0, 1)

// label is the one-line summary shown above the tables.
func (m panel) label() string {
	if name, ok := m.client.Connecting(); ok {
		return fmt.Sprintf("Connecting to %s...", name)
	}
	for _, d := range m.devices {
		if d.State.Phase() != network.PhaseConnected {
			continue
		}
		if w, ok := d.Wifi(); ok {
			return fmt.Sprintf("%s %s %s", d.Kind, d.Interface, models.SignalBars(w.Strength))
		}
		return fmt.Sprintf("%s %s", d.Kind, d.Interface)
	}
	return fmt.Sprintf("NetworkManager: %s", m.global.State)
}

func (m panel) View() string {
	netsHeight := 10
	if len(m.vpns) > 0 {
		netsHeight = 8
	}

	m.tables.SelectedBox = m.selectedBox
	m.tables.SelectedEntry = m.selectedEntry
	m.tables.NetsHeight = netsHeight
	m.tables.Global = m.global
	m.tables.DeviceData = m.devices
	m.tables.VpnData = m.vpns
	m.tables.KnownNetworks = m.known
	m.tables.ScannedNetworks = m.scanned
	m.tables.Active = m.activeByUUID()

	header := ""
	if m.cfg.Panel.Label() {
		style := labelStyle
		if m.cfg.Panel.Transparency >= 50 {
			style = style.Faint(true)
		}
		header = style.Render(m.label()) + "\n"
	}

	body := m.tables.View()
	switch m.popup {
	case popupForm:
		o := m.withPopup(&m.form)
		body = o.View()
	case popupConfirm:
		o := m.withPopup(&m.confirmation)
		body = o.View()
	}
	return header + body + m.statusBar.View()
}

// withPopup draws popup on top of the tables.
func (m *panel) withPopup(popup tea.Model) overlay.Model {
	o := overlay.Model{
		Background: &m.tables,
		Foreground: popup,
		XPosition:  overlay.Left,
		YPosition:  overlay.Center,
		XOffset:    models.CalculatePadding(popup.View()),
		YOffset:    0,
	}
	o.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	return o
}
