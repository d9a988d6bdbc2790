package network

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	NMDest        = "org.freedesktop.NetworkManager"
	NMPath        = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	SettingsPath  = dbus.ObjectPath("/org/freedesktop/NetworkManager/Settings")
	PropsIF       = "org.freedesktop.DBus.Properties"
	DevIF         = "org.freedesktop.NetworkManager.Device"
	WiredIF       = "org.freedesktop.NetworkManager.Device.Wired"
	WifiIF        = "org.freedesktop.NetworkManager.Device.Wireless"
	ModemIF       = "org.freedesktop.NetworkManager.Device.Modem"
	AccessPointIF = "org.freedesktop.NetworkManager.AccessPoint"
	SettingsIF    = "org.freedesktop.NetworkManager.Settings"
	ConnectionIF  = "org.freedesktop.NetworkManager.Settings.Connection"
	ActiveIF      = "org.freedesktop.NetworkManager.Connection.Active"
)

// NoObject is the null object path NetworkManager uses for "none".
const NoObject = dbus.ObjectPath("/")

// FetchDevicePaths enumerates the devices known to the manager.
func FetchDevicePaths(ctx context.Context, bus *Bus) ([]dbus.ObjectPath, error) {
	var paths []dbus.ObjectPath
	if err := bus.Manager().Call(ctx, NMDest+".GetDevices").Store(&paths); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return paths, nil
}

// FetchDevice builds a DeviceInfo for path. DeviceType and Interface are
// mandatory; kind-specific details are best effort.
func FetchDevice(ctx context.Context, bus *Bus, path dbus.ObjectPath) (DeviceInfo, error) {
	obj := bus.Object(path)
	props, err := obj.Properties(ctx, DevIF)
	if err != nil {
		return DeviceInfo{}, queryError("read device", path, err)
	}

	devType, ok := props["DeviceType"].Value().(uint32)
	if !ok {
		return DeviceInfo{}, queryError("read device", path, fmt.Errorf("missing DeviceType"))
	}
	iface, ok := props["Interface"].Value().(string)
	if !ok {
		return DeviceInfo{}, queryError("read device", path, fmt.Errorf("missing Interface"))
	}

	dev := DeviceInfo{
		Path:      path,
		Interface: iface,
		Kind:      KindFromType(devType),
	}
	if v, ok := props["State"].Value().(uint32); ok {
		dev.State = DeviceState(v)
	}
	dev.Available = dev.State > DeviceStateUnavailable
	dev.Managed, _ = props["Managed"].Value().(bool)
	dev.ActiveConnection, _ = props["ActiveConnection"].Value().(dbus.ObjectPath)
	if reason, ok := props["StateReason"].Value().([]any); ok && len(reason) == 2 {
		dev.StateReason, _ = reason[1].(uint32)
	}

	switch dev.Kind {
	case KindEthernet:
		dev.Details = fetchWired(ctx, obj)
	case KindWiFi:
		dev.Details = fetchWifi(ctx, bus, obj)
	case KindMobile:
		dev.Details = fetchModem(ctx, obj)
	}
	return dev, nil
}

func fetchWired(ctx context.Context, obj Object) *EthernetDetails {
	d := &EthernetDetails{}
	props, err := obj.Properties(ctx, WiredIF)
	if err != nil {
		return d
	}
	d.Carrier, _ = props["Carrier"].Value().(bool)
	d.Speed, _ = props["Speed"].Value().(uint32)
	return d
}

func fetchWifi(ctx context.Context, bus *Bus, obj Object) *WifiDetails {
	d := &WifiDetails{ActiveAccessPoint: NoObject}
	props, err := obj.Properties(ctx, WifiIF)
	if err != nil {
		return d
	}
	if ap, ok := props["ActiveAccessPoint"].Value().(dbus.ObjectPath); ok {
		d.ActiveAccessPoint = ap
	}
	d.AccessPoints, _ = props["AccessPoints"].Value().([]dbus.ObjectPath)
	if d.ActiveAccessPoint != NoObject {
		if v, err := bus.Object(d.ActiveAccessPoint).Property(ctx, AccessPointIF, "Strength"); err == nil {
			if s, ok := v.Value().(byte); ok {
				d.Strength = min(s, 100)
			}
		}
	}
	return d
}

func fetchModem(ctx context.Context, obj Object) *MobileDetails {
	d := &MobileDetails{}
	props, err := obj.Properties(ctx, ModemIF)
	if err != nil {
		return d
	}
	d.Operator, _ = props["OperatorCode"].Value().(string)
	return d
}

// FetchGlobalState reads the manager-wide flags.
func FetchGlobalState(ctx context.Context, bus *Bus) (GlobalState, error) {
	props, err := bus.Manager().Properties(ctx, NMDest)
	if err != nil {
		return GlobalState{}, queryError("read manager state", NMPath, err)
	}
	var g GlobalState
	ApplyManagerProperties(&g, props)
	return g, nil
}

// ApplyManagerProperties copies the manager properties present in props into
// g and reports whether any field was touched.
func ApplyManagerProperties(g *GlobalState, props map[string]dbus.Variant) bool {
	changed := false
	if v, ok := props["State"].Value().(uint32); ok {
		g.State = NMState(v)
		changed = true
	}
	if v, ok := props["WirelessEnabled"].Value().(bool); ok {
		g.WirelessEnabled = v
		changed = true
	}
	if v, ok := props["NetworkingEnabled"].Value().(bool); ok {
		g.NetworkingEnabled = v
		changed = true
	}
	return changed
}
