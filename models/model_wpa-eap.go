package models

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nmpanel/network"
)

const (
	focusEAP = iota
	focusPhase2
	focusIdentity
	focusAnonymous
	focusPassword
	focusCACert
	focusCount
)

// WpaEapForm collects 802.1X credentials for one SSID.
type WpaEapForm struct {
	SSID string

	eapMethod  Picker
	phase2Auth Picker
	identity   textinput.Model
	anonymous  textinput.Model
	password   textinput.Model
	caCert     textinput.Model
	focused    int
}

func newFormInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.Width = 32
	ti.CharLimit = limit
	return ti
}

func ModelWpaEapForm(ssid string) WpaEapForm {
	password := newFormInput("Password", 256)
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'

	f := WpaEapForm{
		SSID:       ssid,
		eapMethod:  NewPicker("PEAP", "TTLS", "TLS", "PWD"),
		phase2Auth: NewPicker("MSCHAPV2", "PAP", "CHAP", "MSCHAP", "NONE"),
		identity:   newFormInput("Identity", 256),
		anonymous:  newFormInput("Anonymous identity (optional)", 256),
		password:   password,
		caCert:     newFormInput("Path to CA certificate (e.g. /etc/ssl/certs/ca.pem)", 512),
	}
	f.eapMethod.Focus()
	return f
}

func (m WpaEapForm) Init() tea.Cmd {
	return textinput.Blink
}

// Auth returns the credentials currently entered.
func (m WpaEapForm) Auth() network.EnterpriseAuth {
	return network.EnterpriseAuth{
		EAP:               m.eapMethod.Selected(),
		Phase2:            m.phase2Auth.Selected(),
		Identity:          strings.TrimSpace(m.identity.Value()),
		AnonymousIdentity: strings.TrimSpace(m.anonymous.Value()),
		Password:          m.password.Value(),
		CACert:            strings.TrimSpace(m.caCert.Value()),
	}
}

func (m *WpaEapForm) setFocus(i int) tea.Cmd {
	m.focused = (i + focusCount) % focusCount
	m.eapMethod.Blur()
	m.phase2Auth.Blur()
	m.identity.Blur()
	m.anonymous.Blur()
	m.password.Blur()
	m.caCert.Blur()

	switch m.focused {
	case focusEAP:
		m.eapMethod.Focus()
	case focusPhase2:
		m.phase2Auth.Focus()
	case focusIdentity:
		return m.identity.Focus()
	case focusAnonymous:
		return m.anonymous.Focus()
	case focusPassword:
		return m.password.Focus()
	case focusCACert:
		return m.caCert.Focus()
	}
	return nil
}

func (m WpaEapForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab":
			return m, m.setFocus(m.focused + 1)
		case "shift+tab":
			return m, m.setFocus(m.focused - 1)
		case "esc", "ctrl+c":
			return m, func() tea.Msg { return ExitFormMsg{} }
		case "enter":
			if m.focused < focusCACert {
				return m, m.setFocus(m.focused + 1)
			}
			auth := m.Auth()
			return m, func() tea.Msg { return SubmitEapFormMsg{Auth: auth} }
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.eapMethod, cmd = m.eapMethod.Update(msg)
	cmds = append(cmds, cmd)
	m.phase2Auth, cmd = m.phase2Auth.Update(msg)
	cmds = append(cmds, cmd)
	m.identity, cmd = m.identity.Update(msg)
	cmds = append(cmds, cmd)
	m.anonymous, cmd = m.anonymous.Update(msg)
	cmds = append(cmds, cmd)
	m.password, cmd = m.password.Update(msg)
	cmds = append(cmds, cmd)
	m.caCert, cmd = m.caCert.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m WpaEapForm) View() string {
	inactiveBox := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#444a66")).
		Padding(0, 1)
	activeBox := inactiveBox.BorderForeground(lipgloss.Color("#a7abca"))

	inactiveLabel := lipgloss.NewStyle().Foreground(lipgloss.Color("#a7abca"))
	activeLabel := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#cda162"))

	formStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#9cca69")).
		Padding(0, 1)

	label := func(i int, s string) string {
		if m.focused == i {
			return activeLabel.Render(s)
		}
		return inactiveLabel.Render(s)
	}
	box := func(i int, ti textinput.Model) string {
		if m.focused == i {
			return activeBox.Render(ti.View())
		}
		return inactiveBox.Render(ti.View())
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		activeLabel.Render(m.SSID),
		"",
		label(focusEAP, "EAP Method:"),
		m.eapMethod.View(),
		label(focusPhase2, "Phase 2 (inner-auth):"),
		m.phase2Auth.View(),
		label(focusIdentity, "Identity:"),
		box(focusIdentity, m.identity),
		label(focusAnonymous, "Anonymous identity:"),
		box(focusAnonymous, m.anonymous),
		label(focusPassword, "Password:"),
		box(focusPassword, m.password),
		label(focusCACert, "CA Certificate:"),
		box(focusCACert, m.caCert),
	)

	return formStyle.Render(content)
}
