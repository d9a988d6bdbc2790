package models

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	pickerItemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#a7abca"))
	pickerCursorStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#a7abca")).Foreground(lipgloss.Color("#444a66"))
	pickerSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#cda162"))
)

// Picker is a vertical single-choice list. It shows every option while
// focused and only the chosen one otherwise.
type Picker struct {
	Options []string
	cursor  int
	focused bool
}

func NewPicker(options ...string) Picker {
	return Picker{Options: options}
}

func (p *Picker) Focus() { p.focused = true }
func (p *Picker) Blur()  { p.focused = false }

func (p Picker) Focused() bool { return p.focused }

// Selected returns the option under the cursor.
func (p Picker) Selected() string {
	if len(p.Options) == 0 {
		return ""
	}
	return p.Options[p.cursor]
}

func (p Picker) Update(msg tea.Msg) (Picker, tea.Cmd) {
	if !p.focused {
		return p, nil
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "k":
			p.cursor = (p.cursor + len(p.Options) - 1) % max(len(p.Options), 1)
		case "down", "j":
			p.cursor = (p.cursor + 1) % max(len(p.Options), 1)
		}
	}
	return p, nil
}

func (p Picker) View() string {
	if !p.focused {
		return pickerSelectedStyle.Render(fmt.Sprintf("» %d. %s", p.cursor+1, p.Selected()))
	}
	lines := make([]string, len(p.Options))
	for i, o := range p.Options {
		line := fmt.Sprintf(" %d. %s", i+1, o)
		if i == p.cursor {
			lines[i] = pickerCursorStyle.Render(line)
		} else {
			lines[i] = pickerItemStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
