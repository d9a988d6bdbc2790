package models

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nmpanel/network"
)

// ModelErrorType fills the screen with a fatal error, such as the system bus
// being unreachable at startup.
type ModelErrorType struct {
	err error
}

func ModelError(err error) ModelErrorType {
	return ModelErrorType{err}
}

func (m ModelErrorType) Init() tea.Cmd {
	return nil
}

func (m ModelErrorType) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ModelErrorType) View() string {
	style := lipgloss.NewStyle().
		AlignHorizontal(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#ff0000")).
		Foreground(lipgloss.Color("#aa0000")).
		Width(max(windowWidth()-2, 10)).
		Height(max(windowHeight()-4, 3)).
		Padding(2, 4)

	return style.Render(network.UserMessage(m.err) + "\n\n" + m.err.Error() + "\n\nPress 'q' to quit.")
}
