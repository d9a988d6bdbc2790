package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"nmpanel/cache"
	nmdbus "nmpanel/dbus"
	"nmpanel/models"
	"nmpanel/network"
)

// cacheChangedMsg tells the panel to re-read the client's cache.
type cacheChangedMsg struct{}

// sender is the part of *tea.Program the bridge needs.
type sender interface {
	Send(tea.Msg)
}

// bridge forwards client notifications into the program. Observers run on
// the sync engine's goroutine, and Send hands the message to the program's
// event loop.
func bridge(client *nmdbus.Client, p sender) cache.Handle {
	changed := func() { p.Send(cacheChangedMsg{}) }
	return client.Observe(cache.Funcs{
		OnState:             func(g network.GlobalState) { p.Send(models.GlobalStateMsg(g)) },
		OnDeviceAdded:       func(network.DeviceInfo) { changed() },
		OnDeviceRemoved:     func(network.DeviceInfo) { changed() },
		OnConnectionAdded:   func(network.ConnectionInfo) { changed() },
		OnConnectionRemoved: func(network.ConnectionInfo) { changed() },
	})
}

// attach bridges client into p and then starts it, so no change applied
// after the bulk load is missed. The bulk load itself notifies nobody; the
// panel picks it up with the reload it requests in Init.
func attach(ctx context.Context, client *nmdbus.Client, p sender) (cache.Handle, error) {
	h := bridge(client, p)
	if err := client.Start(ctx); err != nil {
		client.Unobserve(h)
		return 0, err
	}
	return h, nil
}

// refreshTicker drives the periodic access point refresh.
func refreshTicker(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return models.PeriodicRefreshMsg{}
	})
}
