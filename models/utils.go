package models

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"nmpanel/network"
)

func windowWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return width
}

func windowHeight() int {
	_, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 24
	}
	return height
}

func freqToBand(freq uint32) string {
	switch {
	case freq == 0:
		return ""
	case freq >= 2400 && freq < 2500:
		return "2.4 GHz"
	case freq >= 5925 && freq < 7125:
		return "6 GHz"
	case freq >= 5000 && freq < 5925:
		return "5 GHz"
	default:
		return fmt.Sprintf("%d MHz", freq)
	}
}

// SignalBars renders a strength percentage as one of five levels.
func SignalBars(strength uint8) string {
	switch {
	case strength > 80:
		return "▂▄▆█"
	case strength > 60:
		return "▂▄▆_"
	case strength > 40:
		return "▂▄__"
	case strength > 20:
		return "▂___"
	default:
		return "____"
	}
}

// DeviceStatus is the short status shown for a device.
func DeviceStatus(d network.DeviceInfo) string {
	if !d.Available {
		return "Unavailable"
	}
	return d.State.Phase().String()
}

func padHeaders(headers []string, headersLengths []int) []string {
	if len(headers) == 0 {
		return headers
	}
	totalWidth := max(windowWidth()-2, 1)
	numHeaders := len(headers)
	fixedTotal := 0
	var flexibleIndices []int
	for i, length := range headersLengths {
		if length > 0 {
			fixedTotal += length + 4
		} else {
			flexibleIndices = append(flexibleIndices, i)
		}
	}
	remainingWidth := max(totalWidth-fixedTotal, 0)
	flexColWidth := 0
	if len(flexibleIndices) > 0 {
		flexColWidth = remainingWidth / len(flexibleIndices)
	}
	for i := range headers {
		var left, right int
		if headersLengths[i] > 0 {
			left, right = 2, 2
		} else {
			extra := flexColWidth - len(headers[i])
			if extra <= 0 {
				continue
			}
			left = extra / 2
			right = extra - left
		}
		headers[i] = strings.Repeat(" ", left) + headers[i] + strings.Repeat(" ", right)
	}
	currentTotal := 0
	for _, h := range headers {
		currentTotal += len(h)
	}
	for i := range max(totalWidth-currentTotal, 0) {
		headers[i%numHeaders] += " "
	}
	return headers
}

func calcTitle(title string, selected bool) string {
	color := "#a7abca"
	if selected {
		color = "#9cca69"
	}
	repeatCount := max(windowWidth()-4-len(title), 0)
	return lipgloss.NewStyle().
		Bold(selected).
		Foreground(lipgloss.Color(color)).
		Align(lipgloss.Center).
		Render(fmt.Sprintf("┌ %s %s┐", title, strings.Repeat("─", repeatCount)))
}

var boxBorder = lipgloss.Border{
	Bottom: "─", Left: "│", Right: "│",
	BottomLeft: "└", BottomRight: "┘",
}
var activeBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9cca69"))
var inactiveBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a7abca"))

// boxStyle highlights the header row and, in the focused box, the selected
// row. windowRow is the selection's index inside the visible window.
func boxStyle(windowRow int, selectedBox bool) func(row, col int) lipgloss.Style {
	return func(row int, col int) lipgloss.Style {
		switch {
		case row == 0:
			fg := lipgloss.Color("#a7abca")
			if selectedBox {
				fg = lipgloss.Color("#cda162")
			}
			return lipgloss.NewStyle().Bold(true).Foreground(fg).AlignHorizontal(lipgloss.Center)
		case row == windowRow+2 && selectedBox:
			return lipgloss.NewStyle().
				Background(lipgloss.Color("#a7abca")).
				Foreground(lipgloss.Color("#444a66")).
				AlignHorizontal(lipgloss.Center)
		default:
			return lipgloss.NewStyle().Foreground(lipgloss.Color("#a7abca")).AlignHorizontal(lipgloss.Center)
		}
	}
}

func marker(on bool) string {
	if on {
		return "  >  "
	}
	return "     "
}

func formatDeviceData(devices []network.DeviceInfo, global network.GlobalState) [][]string {
	data := [][]string{
		padHeaders([]string{"Interface", "Type", "Status", "Details"}, []int{-1, -1, -1, -1}), {""},
	}
	for _, d := range devices {
		data = append(data, []string{d.Interface, d.Kind.String(), DeviceStatus(d), deviceDetails(d, global)})
	}
	return data
}

func deviceDetails(d network.DeviceInfo, global network.GlobalState) string {
	switch det := d.Details.(type) {
	case *network.WifiDetails:
		radio := "radio on"
		if !global.WirelessEnabled {
			radio = "radio off"
		}
		if d.State.Phase() == network.PhaseConnected {
			return fmt.Sprintf("%s %s", SignalBars(det.Strength), radio)
		}
		return radio
	case *network.EthernetDetails:
		if !det.Carrier {
			return "cable unplugged"
		}
		if det.Speed > 0 {
			return fmt.Sprintf("%d Mb/s", det.Speed)
		}
	case *network.MobileDetails:
		return det.Operator
	}
	return ""
}

func formatVpnData(vpns []network.ConnectionInfo, active map[string]bool) [][]string {
	data := [][]string{
		padHeaders([]string{"", "Name", "Type"}, []int{5, -1, -1}), {""},
	}
	for _, vpn := range vpns {
		data = append(data, []string{marker(active[vpn.UUID]), vpn.ID, vpn.VPNService})
	}
	return data
}

func formatKnownNetworksData(networks []network.ConnectionInfo, active map[string]bool, selectedRow, height int) [][]string {
	base := [][]string{
		padHeaders([]string{"", "Name", "Auto Connect", "Last Used"}, []int{5, -1, 12, -1}), {""},
	}
	for _, n := range formatArrays(networks, selectedRow, height) {
		base = append(base, []string{marker(active[n.UUID]), n.ID, strconv.FormatBool(n.Autoconnect), lastUsed(n.Timestamp)})
	}
	for i := 0; i < height-len(networks); i++ {
		base = append(base, []string{""})
	}
	return base
}

func lastUsed(ts uint64) string {
	if ts == 0 {
		return "never"
	}
	return strconv.FormatUint(ts, 10)
}

func formatScannedNetworksData(networks []network.AccessPointInfo, selectedRow, height int) [][]string {
	data := [][]string{
		padHeaders([]string{"Name", "Security", "Band", "Signal"}, []int{-1, -1, -1, -1}), {""},
	}
	for _, n := range formatArrays(networks, selectedRow, height) {
		data = append(data, []string{
			n.SSID,
			string(n.Security),
			freqToBand(n.Frequency),
			fmt.Sprintf("%s %d%%", SignalBars(n.Strength), n.Strength),
		})
	}
	for i := 0; i < height-len(networks); i++ {
		data = append(data, []string{""})
	}
	return data
}

// formatArrays returns the window of arr that keeps selectedIndex visible.
func formatArrays[T any](arr []T, selectedIndex int, windowSize int) []T {
	if windowSize <= 0 {
		return arr
	}
	start := 0
	if selectedIndex >= windowSize {
		start = selectedIndex - windowSize + 1
	}
	end := start + windowSize
	if end > len(arr) {
		end = len(arr)
		start = max(end-windowSize, 0)
	}
	if start > end {
		start = end
	}
	return arr[start:end]
}

// windowRow maps a selection index to its row inside the visible window.
func windowRow(total, selectedIndex, windowSize int) int {
	if windowSize <= 0 || total <= windowSize {
		return selectedIndex
	}
	start := 0
	if selectedIndex >= windowSize {
		start = selectedIndex - windowSize + 1
	}
	start = min(start, total-windowSize)
	return selectedIndex - start
}

func CalculatePadding(s string) int {
	line := strings.Split(s, "\n")[0]
	return max(0, (windowWidth()-lipgloss.Width(line))/2)
}
