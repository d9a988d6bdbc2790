package models

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Confirmation asks a yes/no question. Value starts on Cancel.
type Confirmation struct {
	Message string
	Value   bool
}

func ModelConfirmation() Confirmation {
	return Confirmation{}
}

func (m Confirmation) Init() tea.Cmd {
	return nil
}

func (m Confirmation) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			v := m.Value
			return m, func() tea.Msg { return SubmitConfirmationMsg{Value: v} }
		case "esc", "ctrl+c":
			return m, func() tea.Msg { return SubmitConfirmationMsg{Value: false} }
		case "tab", "right", "l":
			m.Value = true
		case "shift+tab", "left", "h":
			m.Value = false
		}
	}
	return m, nil
}

func (m Confirmation) View() string {
	containerStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#a7abca")).
		Foreground(lipgloss.Color("#a7abca")).
		Align(lipgloss.Center).
		Padding(0, 1).
		Width(50)

	inactiveButton := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#444a66")).
		Align(lipgloss.Center).
		Padding(0, 3).
		Width(18)

	activeButton := inactiveButton.BorderForeground(lipgloss.Color("#cda162"))

	confirmButton := inactiveButton.Render("Confirm")
	cancelButton := activeButton.Render("Cancel")
	if m.Value {
		confirmButton = activeButton.Render("Confirm")
		cancelButton = inactiveButton.Render("Cancel")
	}

	return containerStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.Message,
			lipgloss.JoinHorizontal(lipgloss.Center, cancelButton, confirmButton),
		),
	)
}
