package nmtest

import (
	"context"
	"slices"

	"github.com/godbus/dbus/v5"
)

const (
	nmDest       = "org.freedesktop.NetworkManager"
	ManagerPath  = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	SettingsPath = dbus.ObjectPath("/org/freedesktop/NetworkManager/Settings")
	devIF        = "org.freedesktop.NetworkManager.Device"
	wiredIF      = "org.freedesktop.NetworkManager.Device.Wired"
	wifiIF       = "org.freedesktop.NetworkManager.Device.Wireless"
	apIF         = "org.freedesktop.NetworkManager.AccessPoint"
	settingsIF   = "org.freedesktop.NetworkManager.Settings"
	connectionIF = "org.freedesktop.NetworkManager.Settings.Connection"
)

// NetworkManager DeviceType values.
const (
	DeviceTypeEthernet = uint32(1)
	DeviceTypeWifi     = uint32(2)
	DeviceTypeModem    = uint32(8)
)

// NewNetworkManager returns a bus holding a connected manager and an empty
// settings store.
func NewNetworkManager() *Transport {
	t := New()
	t.SetProp(ManagerPath, nmDest, "State", uint32(70))
	t.SetProp(ManagerPath, nmDest, "WirelessEnabled", true)
	t.SetProp(ManagerPath, nmDest, "NetworkingEnabled", true)
	t.SetProp(ManagerPath, nmDest, "ActiveConnections", []dbus.ObjectPath{})
	t.Handle(ManagerPath, nmDest+".GetDevices", func(context.Context, ...any) ([]any, error) {
		t.mu.Lock()
		defer t.mu.Unlock()
		return []any{slices.Clone(t.devices)}, nil
	})
	t.Handle(SettingsPath, settingsIF+".ListConnections", func(context.Context, ...any) ([]any, error) {
		t.mu.Lock()
		defer t.mu.Unlock()
		return []any{slices.Clone(t.connections)}, nil
	})
	return t
}

// AddDevice registers a device and lists it in GetDevices. Wi-Fi devices get
// an empty access point list and a RequestScan handler.
func (t *Transport) AddDevice(path dbus.ObjectPath, iface string, devType, state uint32) {
	t.SetProp(path, devIF, "DeviceType", devType)
	t.SetProp(path, devIF, "Interface", iface)
	t.SetProp(path, devIF, "State", state)
	t.SetProp(path, devIF, "Managed", true)
	t.SetProp(path, devIF, "ActiveConnection", dbus.ObjectPath("/"))
	switch devType {
	case DeviceTypeEthernet:
		t.SetProp(path, wiredIF, "Carrier", state == 100)
		t.SetProp(path, wiredIF, "Speed", uint32(1000))
	case DeviceTypeWifi:
		t.SetProp(path, wifiIF, "ActiveAccessPoint", dbus.ObjectPath("/"))
		t.SetProp(path, wifiIF, "AccessPoints", []dbus.ObjectPath{})
		t.Handle(path, wifiIF+".GetAllAccessPoints", func(context.Context, ...any) ([]any, error) {
			t.mu.Lock()
			defer t.mu.Unlock()
			return []any{t.accessPointsLocked(path)}, nil
		})
		t.Handle(path, wifiIF+".RequestScan", func(context.Context, ...any) ([]any, error) {
			return nil, nil
		})
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !slices.Contains(t.devices, path) {
		t.devices = append(t.devices, path)
	}
}

// RemoveDevice drops a device from the bus and from GetDevices.
func (t *Transport) RemoveDevice(path dbus.ObjectPath) {
	t.Remove(path)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.devices = slices.DeleteFunc(t.devices, func(p dbus.ObjectPath) bool { return p == path })
}

// AddAccessPoint registers an access point and attaches it to device.
func (t *Transport) AddAccessPoint(device, path dbus.ObjectPath, ssid string, strength uint8, flags, wpa, rsn uint32) {
	t.SetProp(path, apIF, "Ssid", []byte(ssid))
	t.SetProp(path, apIF, "Strength", strength)
	t.SetProp(path, apIF, "Flags", flags)
	t.SetProp(path, apIF, "WpaFlags", wpa)
	t.SetProp(path, apIF, "RsnFlags", rsn)
	t.SetProp(path, apIF, "HwAddress", "00:11:22:33:44:55")
	t.SetProp(path, apIF, "Frequency", uint32(2437))

	t.mu.Lock()
	defer t.mu.Unlock()
	aps := t.accessPointsLocked(device)
	dev := t.objectLocked(device)
	if dev.Props[wifiIF] == nil {
		dev.Props[wifiIF] = make(map[string]dbus.Variant)
	}
	dev.Props[wifiIF]["AccessPoints"] = dbus.MakeVariant(append(aps, path))
}

func (t *Transport) accessPointsLocked(device dbus.ObjectPath) []dbus.ObjectPath {
	o, ok := t.objects[device]
	if !ok {
		return nil
	}
	aps, _ := o.Props[wifiIF]["AccessPoints"].Value().([]dbus.ObjectPath)
	return slices.Clone(aps)
}

// Connection describes a stored profile for AddConnection.
type Connection struct {
	UUID        string
	ID          string
	Type        string
	SSID        string
	Autoconnect *bool
	Timestamp   uint64
}

// AddConnection registers a stored profile and lists it in ListConnections.
func (t *Transport) AddConnection(path dbus.ObjectPath, c Connection) {
	group := map[string]dbus.Variant{
		"uuid": dbus.MakeVariant(c.UUID),
		"id":   dbus.MakeVariant(c.ID),
		"type": dbus.MakeVariant(c.Type),
	}
	if c.Autoconnect != nil {
		group["autoconnect"] = dbus.MakeVariant(*c.Autoconnect)
	}
	if c.Timestamp != 0 {
		group["timestamp"] = dbus.MakeVariant(c.Timestamp)
	}
	settings := map[string]map[string]dbus.Variant{"connection": group}
	if c.SSID != "" {
		settings["802-11-wireless"] = map[string]dbus.Variant{
			"ssid": dbus.MakeVariant([]byte(c.SSID)),
		}
	}
	t.SetConnectionSettings(path, settings)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !slices.Contains(t.connections, path) {
		t.connections = append(t.connections, path)
	}
}

// SetConnectionSettings replaces what GetSettings returns for path.
func (t *Transport) SetConnectionSettings(path dbus.ObjectPath, settings map[string]map[string]dbus.Variant) {
	t.mu.Lock()
	t.settings[path] = settings
	t.mu.Unlock()

	t.Handle(path, connectionIF+".GetSettings", func(context.Context, ...any) ([]any, error) {
		t.mu.Lock()
		defer t.mu.Unlock()
		return []any{t.settings[path]}, nil
	})
}

// RemoveConnection drops a stored profile.
func (t *Transport) RemoveConnection(path dbus.ObjectPath) {
	t.Remove(path)
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.settings, path)
	t.connections = slices.DeleteFunc(t.connections, func(p dbus.ObjectPath) bool { return p == path })
}

// Signal builders.

func DeviceAdded(path dbus.ObjectPath) *dbus.Signal {
	return &dbus.Signal{Sender: nmDest, Path: ManagerPath, Name: nmDest + ".DeviceAdded", Body: []any{path}}
}

func DeviceRemoved(path dbus.ObjectPath) *dbus.Signal {
	return &dbus.Signal{Sender: nmDest, Path: ManagerPath, Name: nmDest + ".DeviceRemoved", Body: []any{path}}
}

func StateChanged(path dbus.ObjectPath, newState, oldState, reason uint32) *dbus.Signal {
	return &dbus.Signal{Sender: nmDest, Path: path, Name: devIF + ".StateChanged", Body: []any{newState, oldState, reason}}
}

func ManagerPropertiesChanged(changed map[string]any) *dbus.Signal {
	props := make(map[string]dbus.Variant, len(changed))
	for k, v := range changed {
		props[k] = dbus.MakeVariant(v)
	}
	return &dbus.Signal{
		Sender: nmDest,
		Path:   ManagerPath,
		Name:   propsIF + ".PropertiesChanged",
		Body:   []any{nmDest, props, []string{}},
	}
}

func NewConnection(path dbus.ObjectPath) *dbus.Signal {
	return &dbus.Signal{Sender: nmDest, Path: SettingsPath, Name: settingsIF + ".NewConnection", Body: []any{path}}
}

func ConnectionRemoved(path dbus.ObjectPath) *dbus.Signal {
	return &dbus.Signal{Sender: nmDest, Path: SettingsPath, Name: settingsIF + ".ConnectionRemoved", Body: []any{path}}
}

func ConnectionUpdated(path dbus.ObjectPath) *dbus.Signal {
	return &dbus.Signal{Sender: nmDest, Path: path, Name: connectionIF + ".Updated"}
}
