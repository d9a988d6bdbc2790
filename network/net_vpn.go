package network

import (
	"context"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

func vpnServiceName(connType string, settings Settings) string {
	if connType == "wireguard" {
		return "WireGuard"
	}
	if vpn, ok := settings["vpn"]; ok {
		if service, ok := vpn["service-type"].Value().(string); ok && service != "" {
			parts := strings.Split(service, ".")
			return strings.ToUpper(parts[len(parts)-1])
		}
	}
	return "VPN"
}

// FetchActiveConnections maps each active stored connection path to its
// active connection path. Entries that fail to load are skipped.
func FetchActiveConnections(ctx context.Context, bus *Bus) (map[dbus.ObjectPath]dbus.ObjectPath, error) {
	v, err := bus.Manager().Property(ctx, NMDest, "ActiveConnections")
	if err != nil {
		return nil, fmt.Errorf("read active connections: %w", err)
	}
	var actives []dbus.ObjectPath
	if err := dbus.Store([]any{v.Value()}, &actives); err != nil {
		return nil, fmt.Errorf("read active connections: %w", err)
	}

	out := make(map[dbus.ObjectPath]dbus.ObjectPath, len(actives))
	for _, active := range actives {
		cv, err := bus.Object(active).Property(ctx, ActiveIF, "Connection")
		if err != nil {
			continue
		}
		if conn, ok := cv.Value().(dbus.ObjectPath); ok {
			out[conn] = active
		}
	}
	return out, nil
}
