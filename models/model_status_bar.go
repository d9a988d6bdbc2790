package models

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type keyMap struct {
	Scan     key.Binding
	Select   key.Binding
	Delete   key.Binding
	Wireless key.Binding
	Switch   key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Scan, k.Select, k.Delete, k.Wireless, k.Quit}
}

// FullHelp returns keybindings for the expanded help view. It's part of the
// key.Map interface.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Scan, k.Select, k.Delete},
		{k.Wireless, k.Switch, k.Quit},
	}
}

// Keys are the panel's bindings.
var Keys = keyMap{
	Scan: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r:", "scan"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("↵:", "connect"),
	),
	Delete: key.NewBinding(
		key.WithKeys("delete", "d"),
		key.WithHelp("del:", "forget"),
	),
	Wireless: key.NewBinding(
		key.WithKeys("w"),
		key.WithHelp("w:", "wifi on/off"),
	),
	Switch: key.NewBinding(
		key.WithKeys("tab", "shift+tab"),
		key.WithHelp("tab:", "next box"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q:", "quit"),
	),
}

var noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#cda162"))

type StatusBarData struct {
	Input  textinput.Model
	Notice string
	Err    error
}

func ModelStatusBar() StatusBarData {
	ti := textinput.New()
	ti.CharLimit = 156
	ti.Width = 32
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'

	return StatusBarData{Input: ti}
}

func (m StatusBarData) Init() tea.Cmd {
	return textinput.Blink
}

func (m StatusBarData) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case NoticeMsg:
		m.Notice = string(msg)
		m.Err = nil
		return m, nil
	case ErrMsg:
		m.Err = msg.Err
		return m, nil
	}

	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// View puts the password input or the latest notice on the left and the key
// help on the right.
func (m StatusBarData) View() string {
	keyHelp := help.New().View(Keys)

	left := m.Notice
	if m.Err != nil {
		left = m.Err.Error()
	}
	left = noticeStyle.Render(left)
	if m.Input.Focused() {
		left = m.Input.View()
	}

	remaining := windowWidth() - lipgloss.Width(left) - lipgloss.Width(keyHelp) - 2
	return left + strings.Repeat(" ", max(remaining, 0)) + keyHelp
}
