package models

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"nmpanel/network"
)

func TestSignalBars(t *testing.T) {
	t.Parallel()

	tests := []struct {
		strength uint8
		want     string
	}{
		{100, "▂▄▆█"},
		{81, "▂▄▆█"},
		{80, "▂▄▆_"},
		{61, "▂▄▆_"},
		{60, "▂▄__"},
		{41, "▂▄__"},
		{40, "▂___"},
		{21, "▂___"},
		{20, "____"},
		{0, "____"},
	}
	for _, tt := range tests {
		if got := SignalBars(tt.strength); got != tt.want {
			t.Fatalf("SignalBars(%d)=%q want %q", tt.strength, got, tt.want)
		}
	}
}

func TestFreqToBand(t *testing.T) {
	t.Parallel()

	for freq, want := range map[uint32]string{
		2437: "2.4 GHz",
		5180: "5 GHz",
		5955: "6 GHz",
		900:  "900 MHz",
		0:    "",
	} {
		if got := freqToBand(freq); got != want {
			t.Fatalf("freqToBand(%d)=%q want %q", freq, got, want)
		}
	}
}

func TestDeviceStatus(t *testing.T) {
	t.Parallel()

	d := network.DeviceInfo{State: network.DeviceStateActivated, Available: true}
	if got := DeviceStatus(d); got != "Connected" {
		t.Fatalf("status=%q", got)
	}
	d = network.DeviceInfo{State: network.DeviceStateUnavailable}
	if got := DeviceStatus(d); got != "Unavailable" {
		t.Fatalf("status=%q", got)
	}
}

func TestFormatArrays(t *testing.T) {
	t.Parallel()

	arr := []int{0, 1, 2, 3, 4, 5}
	if got := formatArrays(arr, 0, 3); len(got) != 3 || got[0] != 0 {
		t.Fatalf("got=%v", got)
	}
	if got := formatArrays(arr, 4, 3); got[0] != 2 || got[2] != 4 {
		t.Fatalf("got=%v", got)
	}
	if got := formatArrays(arr, 1, -1); len(got) != 6 {
		t.Fatalf("got=%v", got)
	}
	if row := windowRow(len(arr), 4, 3); row != 2 {
		t.Fatalf("row=%d", row)
	}
	if row := windowRow(2, 1, 3); row != 1 {
		t.Fatalf("row=%d", row)
	}
}

func TestPicker(t *testing.T) {
	t.Parallel()

	p := NewPicker("a", "b", "c")
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	if p.Selected() != "a" {
		t.Fatalf("unfocused picker moved")
	}

	p.Focus()
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyUp})
	if p.Selected() != "c" {
		t.Fatalf("selected=%q", p.Selected())
	}
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	if p.Selected() != "a" {
		t.Fatalf("selected=%q", p.Selected())
	}
}

func TestWpaEapForm_Submit(t *testing.T) {
	t.Parallel()

	var m tea.Model = ModelWpaEapForm("office")
	send := func(msg tea.Msg) tea.Cmd {
		var cmd tea.Cmd
		m, cmd = m.Update(msg)
		return cmd
	}

	send(tea.KeyMsg{Type: tea.KeyDown})  // TTLS
	send(tea.KeyMsg{Type: tea.KeyEnter}) // phase 2
	send(tea.KeyMsg{Type: tea.KeyDown})  // PAP
	send(tea.KeyMsg{Type: tea.KeyEnter}) // identity
	send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("alice")})
	send(tea.KeyMsg{Type: tea.KeyTab}) // anonymous
	send(tea.KeyMsg{Type: tea.KeyTab}) // password
	send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("pw")})
	send(tea.KeyMsg{Type: tea.KeyTab}) // CA cert
	cmd := send(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("no submit command")
	}

	msg, ok := cmd().(SubmitEapFormMsg)
	if !ok {
		t.Fatalf("msg=%#v", cmd())
	}
	want := network.EnterpriseAuth{EAP: "TTLS", Phase2: "PAP", Identity: "alice", Password: "pw"}
	if msg.Auth != want {
		t.Fatalf("auth=%+v", msg.Auth)
	}
}

func TestWpaEapForm_Escape(t *testing.T) {
	t.Parallel()

	_, cmd := ModelWpaEapForm("office").Update(tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := cmd().(ExitFormMsg); !ok {
		t.Fatalf("escape did not exit")
	}
}

func TestConfirmation(t *testing.T) {
	t.Parallel()

	var m tea.Model = ModelConfirmation()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := cmd().(SubmitConfirmationMsg); got.Value {
		t.Fatalf("default confirmed")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := cmd().(SubmitConfirmationMsg); !got.Value {
		t.Fatalf("confirm not submitted")
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if got := cmd().(SubmitConfirmationMsg); got.Value {
		t.Fatalf("escape confirmed")
	}
}
