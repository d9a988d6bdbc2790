package models

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/table"
)

// TableData renders one titled box. rows[0] is the header and rows[1] a
// spacer; entries start at rows[2].
type TableData struct {
	title           string
	isTableSelected bool
	selectedRow     int
	rows            [][]string
}

func TableModel(title string, isTableSelected bool, selectedRow int, rows [][]string) TableData {
	return TableData{
		title:           title,
		isTableSelected: isTableSelected,
		selectedRow:     selectedRow,
		rows:            rows,
	}
}

func (m TableData) Init() tea.Cmd {
	return nil
}

func (m TableData) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

func (m TableData) View() string {
	borderStyle := inactiveBorderStyle
	if m.isTableSelected {
		borderStyle = activeBorderStyle
	}

	t := table.New().
		Border(boxBorder).
		BorderColumn(false).
		BorderStyle(borderStyle).
		StyleFunc(boxStyle(m.selectedRow, m.isTableSelected)).
		Rows(m.rows...)

	return calcTitle(m.title, m.isTableSelected) + t.Render() + "\n"
}
