package network

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// WirelessType is the connection.type of Wi-Fi profiles.
const WirelessType = "802-11-wireless"

// ErrMalformedSettings is wrapped by ParseConnectionSettings failures.
var ErrMalformedSettings = errors.New("malformed connection settings")

// FetchConnectionPaths enumerates the stored connection profiles.
func FetchConnectionPaths(ctx context.Context, bus *Bus) ([]dbus.ObjectPath, error) {
	var paths []dbus.ObjectPath
	if err := bus.Settings().Call(ctx, SettingsIF+".ListConnections").Store(&paths); err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return paths, nil
}

// FetchConnection reads and parses the settings of one stored connection.
func FetchConnection(ctx context.Context, bus *Bus, path dbus.ObjectPath) (ConnectionInfo, error) {
	var settings Settings
	if err := bus.Object(path).Call(ctx, ConnectionIF+".GetSettings").Store(&settings); err != nil {
		return ConnectionInfo{}, queryError("read connection settings", path, err)
	}
	conn, err := ParseConnectionSettings(path, settings)
	if err != nil {
		return ConnectionInfo{}, queryError("parse connection settings", path, err)
	}
	return conn, nil
}

// ParseConnectionSettings extracts a ConnectionInfo from a GetSettings reply.
// uuid, id and type are required.
func ParseConnectionSettings(path dbus.ObjectPath, settings Settings) (ConnectionInfo, error) {
	group, ok := settings["connection"]
	if !ok {
		return ConnectionInfo{}, fmt.Errorf("%w: no connection group", ErrMalformedSettings)
	}
	str := func(key string) (string, error) {
		s, ok := group[key].Value().(string)
		if !ok || s == "" {
			return "", fmt.Errorf("%w: connection.%s missing", ErrMalformedSettings, key)
		}
		return s, nil
	}

	c := ConnectionInfo{Path: path, Autoconnect: true}
	var err error
	if c.UUID, err = str("uuid"); err != nil {
		return ConnectionInfo{}, err
	}
	if c.ID, err = str("id"); err != nil {
		return ConnectionInfo{}, err
	}
	if c.Type, err = str("type"); err != nil {
		return ConnectionInfo{}, err
	}
	if v, ok := group["autoconnect"].Value().(bool); ok {
		c.Autoconnect = v
	}
	c.Timestamp, _ = group["timestamp"].Value().(uint64)

	if wifi, ok := settings[WirelessType]; ok {
		if b, ok := wifi["ssid"].Value().([]byte); ok {
			c.SSID = strings.TrimRight(string(b), "\x00")
		}
	}
	if c.IsVPN() {
		c.VPNService = vpnServiceName(c.Type, settings)
	}
	return c, nil
}
