package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/godbus/dbus/v5"

	"nmpanel/config"
	nmdbus "nmpanel/dbus"
	"nmpanel/models"
	"nmpanel/network"
	"nmpanel/network/nmtest"
)

const (
	ethDev  = dbus.ObjectPath("/org/freedesktop/NetworkManager/Devices/1")
	wifiDev = dbus.ObjectPath("/org/freedesktop/NetworkManager/Devices/2")
)

const wiredConn = dbus.ObjectPath("/org/freedesktop/NetworkManager/Settings/1")

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func fakeNetworkManager() *nmtest.Transport {
	fake := nmtest.NewNetworkManager()
	fake.AddDevice(ethDev, "eth0", nmtest.DeviceTypeEthernet, 100)
	fake.AddDevice(wifiDev, "wlan0", nmtest.DeviceTypeWifi, 30)
	fake.AddConnection(wiredConn, nmtest.Connection{UUID: "u-1", ID: "Wired 1", Type: "802-3-ethernet"})
	fake.AddAccessPoint(wifiDev, "/ap/1", "home", 70, 1, 0, 0x100)
	return fake
}

func startClient(t *testing.T) (*nmdbus.Client, *nmtest.Transport) {
	t.Helper()
	fake := fakeNetworkManager()
	client := nmdbus.New(fake, nmdbus.Options{Logger: discard()})
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, fake
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	opts, err := parseFlags([]string{"--scan", "--log-level", "debug", "-c", "/tmp/x.yaml"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if !opts.list || !opts.scan || opts.logLevel != "debug" || opts.configPath != "/tmp/x.yaml" {
		t.Fatalf("opts=%+v", opts)
	}
	opts, err = parseFlags([]string{"--write-config"})
	if err != nil || !opts.writeConfig || opts.list {
		t.Fatalf("opts=%+v err=%v", opts, err)
	}
	if _, err := parseFlags([]string{"extra"}); err == nil {
		t.Fatalf("expected error for positional argument")
	}
}

func TestNewLogger_Level(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "path", "/x")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"path":"/x"`) {
		t.Fatalf("out=%s", out)
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	client, _ := startClient(t)
	var buf bytes.Buffer
	if err := list(context.Background(), client, false, &buf); err != nil {
		t.Fatalf("list: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"eth0", "wlan0", "Wired 1", "u-1", "Connected"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestBridge(t *testing.T) {
	t.Parallel()

	client, fake := startClient(t)
	rec := &recordingSender{}
	h := bridge(client, rec)
	defer client.Unobserve(h)

	fake.Emit(nmtest.StateChanged(wifiDev, 100, 30, 0))
	fake.Emit(nmtest.ManagerPropertiesChanged(map[string]any{"WirelessEnabled": false}))

	deadline := time.Now().Add(2 * time.Second)
	for rec.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.msgs) != 2 {
		t.Fatalf("msgs=%#v", rec.msgs)
	}
	if _, ok := rec.msgs[0].(cacheChangedMsg); !ok {
		t.Fatalf("first=%#v", rec.msgs[0])
	}
	if g, ok := rec.msgs[1].(models.GlobalStateMsg); !ok || g.WirelessEnabled {
		t.Fatalf("second=%#v", rec.msgs[1])
	}
}

func newTestPanel(t *testing.T) (panel, *nmtest.Transport) {
	t.Helper()
	client, fake := startClient(t)
	var cfg config.Config
	config.ApplyDefaults(&cfg)
	return newPanel(client, cfg, discard()), fake
}

func press(m tea.Model, keys ...string) tea.Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ = m.Update(msg)
	}
	return m
}

func TestPanel_SkipsEmptyVPNBox(t *testing.T) {
	t.Parallel()

	m, _ := newTestPanel(t)
	got := press(m, "tab").(panel)
	if got.selectedBox != models.BoxKnown {
		t.Fatalf("box=%d", got.selectedBox)
	}
}

func TestPanel_ScannedNetworkPromptsForPassword(t *testing.T) {
	t.Parallel()

	m, _ := newTestPanel(t)
	next, _ := m.Update(models.AccessPointsMsg{{Path: "/ap/1", SSID: "home", Security: "WPA2", Strength: 70}})
	m = next.(panel)
	if len(m.scanned) != 1 {
		t.Fatalf("scanned=%+v", m.scanned)
	}

	m = press(m, "tab", "tab", "enter").(panel)
	if !m.typing || m.selectedAP.SSID != "home" {
		t.Fatalf("typing=%v ap=%+v", m.typing, m.selectedAP)
	}
	m = press(m, "esc").(panel)
	if m.typing {
		t.Fatalf("escape did not cancel")
	}
}

func TestPanel_DeleteAsksForConfirmation(t *testing.T) {
	t.Parallel()

	m, _ := newTestPanel(t)
	m = press(m, "tab", "d").(panel)
	if m.popup != popupConfirm || m.pendingDelete.UUID != "u-1" {
		t.Fatalf("popup=%d pending=%+v", m.popup, m.pendingDelete)
	}

	next, cmd := m.Update(models.SubmitConfirmationMsg{Value: false})
	m = next.(panel)
	if m.popup != popupNone || cmd != nil {
		t.Fatalf("popup=%d cmd=%v", m.popup, cmd)
	}
}

func TestPanel_StoredProfilesHideScannedNetworks(t *testing.T) {
	t.Parallel()

	m, fake := newTestPanel(t)
	fake.AddConnection("/org/freedesktop/NetworkManager/Settings/2", nmtest.Connection{UUID: "u-2", ID: "home", Type: "802-11-wireless", SSID: "home"})
	fake.Emit(nmtest.NewConnection("/org/freedesktop/NetworkManager/Settings/2"))

	deadline := time.Now().Add(2 * time.Second)
	for len(m.client.ListConnections()) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	next, _ := m.Update(models.AccessPointsMsg{{Path: "/ap/1", SSID: "home"}, {Path: "/ap/2", SSID: "cafe"}})
	m = next.(panel)
	if len(m.scanned) != 1 || m.scanned[0].SSID != "cafe" {
		t.Fatalf("scanned=%+v", m.scanned)
	}
}

func TestRun_WriteConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nmpanel", "config.yaml")
	if err := run([]string{"--write-config", "-c", path, "--log-level", "debug"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Bus.QueryTimeoutSec != config.DefaultQueryTimeoutSec {
		t.Fatalf("cfg=%+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
}

func TestAttach_ObservesChangesAfterLoad(t *testing.T) {
	t.Parallel()

	fake := fakeNetworkManager()
	client := nmdbus.New(fake, nmdbus.Options{Logger: discard()})
	t.Cleanup(func() { client.Close() })

	rec := &recordingSender{}
	h, err := attach(context.Background(), client, rec)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer client.Unobserve(h)
	if n := rec.count(); n != 0 {
		t.Fatalf("bulk load sent %d messages", n)
	}
	if len(client.ListDevices()) != 2 {
		t.Fatalf("devices=%+v", client.ListDevices())
	}

	fake.Emit(nmtest.StateChanged(ethDev, 30, 100, 0))
	deadline := time.Now().Add(2 * time.Second)
	for rec.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := rec.count(); n != 1 {
		t.Fatalf("msgs=%d", n)
	}
}

func TestAttach_StartFailure(t *testing.T) {
	t.Parallel()

	fake := fakeNetworkManager()
	fake.FailMatch(errors.New("denied"))
	client := nmdbus.New(fake, nmdbus.Options{Logger: discard()})
	t.Cleanup(func() { client.Close() })

	if _, err := attach(context.Background(), client, &recordingSender{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCommands_UseClientQueryTimeout(t *testing.T) {
	t.Parallel()

	fake := fakeNetworkManager()
	fake.Handle(wiredConn, network.ConnectionIF+".Delete", func(ctx context.Context, _ ...any) ([]any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	client := nmdbus.New(fake, nmdbus.Options{Logger: discard(), QueryTimeout: 100 * time.Millisecond})
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	start := time.Now()
	msg := deleteConnectionCmd(client, network.ConnectionInfo{Path: wiredConn, ID: "Wired 1"})()
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("delete took %v", elapsed)
	}
	if _, ok := msg.(models.ErrMsg); !ok {
		t.Fatalf("msg=%#v", msg)
	}
}

func TestPanel_BackgroundMessagesWhileTyping(t *testing.T) {
	t.Parallel()

	m, _ := newTestPanel(t)
	next, _ := m.Update(models.AccessPointsMsg{{Path: "/ap/1", SSID: "home", Security: "WPA2", Strength: 70}})
	m = press(next, "tab", "tab", "enter").(panel)
	if !m.typing {
		t.Fatalf("not typing")
	}

	next, cmd := m.Update(models.PeriodicRefreshMsg{})
	m = next.(panel)
	if cmd == nil || !m.typing {
		t.Fatalf("cmd=%v typing=%v", cmd, m.typing)
	}

	next, _ = m.Update(models.NoticeMsg("Wi-Fi enabled"))
	m = next.(panel)
	if m.statusBar.Notice != "Wi-Fi enabled" || !m.typing {
		t.Fatalf("notice=%q typing=%v", m.statusBar.Notice, m.typing)
	}

	m = press(m, "x").(panel)
	if m.statusBar.Input.Value() != "x" {
		t.Fatalf("input=%q", m.statusBar.Input.Value())
	}
}

func TestPanel_ConfirmationDrawnOverTables(t *testing.T) {
	t.Parallel()

	m, _ := newTestPanel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	m = press(next, "tab", "d").(panel)
	view := m.View()
	if !strings.Contains(view, "Forget") || !strings.Contains(view, "eth0") {
		t.Fatalf("view:\n%s", view)
	}
}
