package network

import (
	"fmt"
	"slices"

	"github.com/godbus/dbus/v5"
)

// DeviceKind is the local classification of a NetworkManager device.
type DeviceKind int

const (
	KindUnknown DeviceKind = iota
	KindEthernet
	KindWiFi
	KindMobile
	KindVPN
	KindBluetooth
)

func (k DeviceKind) String() string {
	switch k {
	case KindEthernet:
		return "Ethernet"
	case KindWiFi:
		return "Wi-Fi"
	case KindMobile:
		return "Mobile"
	case KindVPN:
		return "VPN"
	case KindBluetooth:
		return "Bluetooth"
	default:
		return "Unknown"
	}
}

// NetworkManager DeviceType values.
const (
	nmDeviceEthernet  = 1
	nmDeviceWiFi      = 2
	nmDeviceBluetooth = 5
	nmDeviceModem     = 8
	nmDeviceTun       = 16
	nmDeviceWireGuard = 29
)

// KindFromType maps a NetworkManager DeviceType to a DeviceKind.
func KindFromType(t uint32) DeviceKind {
	switch t {
	case nmDeviceEthernet:
		return KindEthernet
	case nmDeviceWiFi:
		return KindWiFi
	case nmDeviceModem:
		return KindMobile
	case nmDeviceBluetooth:
		return KindBluetooth
	case nmDeviceTun, nmDeviceWireGuard:
		return KindVPN
	default:
		return KindUnknown
	}
}

// DeviceState is NetworkManager's device state scale.
type DeviceState uint32

const (
	DeviceStateUnknown      DeviceState = 0
	DeviceStateUnmanaged    DeviceState = 10
	DeviceStateUnavailable  DeviceState = 20
	DeviceStateDisconnected DeviceState = 30
	DeviceStatePrepare      DeviceState = 40
	DeviceStateConfig       DeviceState = 50
	DeviceStateNeedAuth     DeviceState = 60
	DeviceStateIPConfig     DeviceState = 70
	DeviceStateIPCheck      DeviceState = 80
	DeviceStateSecondaries  DeviceState = 90
	DeviceStateActivated    DeviceState = 100
	DeviceStateDeactivating DeviceState = 110
	DeviceStateFailed       DeviceState = 120
)

func (s DeviceState) String() string {
	switch s {
	case DeviceStateUnmanaged:
		return "unmanaged"
	case DeviceStateUnavailable:
		return "unavailable"
	case DeviceStateDisconnected:
		return "disconnected"
	case DeviceStatePrepare:
		return "prepare"
	case DeviceStateConfig:
		return "config"
	case DeviceStateNeedAuth:
		return "need-auth"
	case DeviceStateIPConfig:
		return "ip-config"
	case DeviceStateIPCheck:
		return "ip-check"
	case DeviceStateSecondaries:
		return "secondaries"
	case DeviceStateActivated:
		return "activated"
	case DeviceStateDeactivating:
		return "deactivating"
	case DeviceStateFailed:
		return "failed"
	case DeviceStateUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("state(%d)", uint32(s))
	}
}

// Phase collapses the device state scale into what a panel shows.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseDisconnected
	PhaseConnecting
	PhaseConnected
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "Disconnected"
	case PhaseConnecting:
		return "Connecting"
	case PhaseConnected:
		return "Connected"
	case PhaseFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

func (s DeviceState) Phase() Phase {
	switch {
	case s == DeviceStateActivated:
		return PhaseConnected
	case s == DeviceStateFailed:
		return PhaseFailed
	case s >= DeviceStatePrepare && s < DeviceStateActivated:
		return PhaseConnecting
	case s == DeviceStateUnknown:
		return PhaseUnknown
	default:
		return PhaseDisconnected
	}
}

// DeviceDetails is the kind-specific part of a DeviceInfo. It is one of
// *EthernetDetails, *WifiDetails or *MobileDetails, or nil.
type DeviceDetails interface {
	clone() DeviceDetails
}

type EthernetDetails struct {
	Carrier bool
	Speed   uint32 // Mb/s
}

func (d *EthernetDetails) clone() DeviceDetails { c := *d; return &c }

type WifiDetails struct {
	ActiveAccessPoint dbus.ObjectPath
	Strength          uint8
	AccessPoints      []dbus.ObjectPath
}

func (d *WifiDetails) clone() DeviceDetails {
	c := *d
	c.AccessPoints = slices.Clone(d.AccessPoints)
	return &c
}

type MobileDetails struct {
	Operator      string
	SignalQuality uint32
}

func (d *MobileDetails) clone() DeviceDetails { c := *d; return &c }

// DeviceInfo mirrors one NetworkManager device.
type DeviceInfo struct {
	Path             dbus.ObjectPath
	Interface        string
	Kind             DeviceKind
	State            DeviceState
	StateReason      uint32
	Managed          bool
	Available        bool
	ActiveConnection dbus.ObjectPath
	Details          DeviceDetails
}

// Clone returns a deep copy of d.
func (d DeviceInfo) Clone() DeviceInfo {
	if d.Details != nil {
		d.Details = d.Details.clone()
	}
	return d
}

// Wifi returns the Wi-Fi details of d, if any.
func (d DeviceInfo) Wifi() (*WifiDetails, bool) {
	w, ok := d.Details.(*WifiDetails)
	return w, ok
}

// ConnectionInfo mirrors one stored connection profile.
type ConnectionInfo struct {
	Path        dbus.ObjectPath
	UUID        string
	ID          string
	Type        string
	Autoconnect bool
	Timestamp   uint64
	SSID        string
	// VPNService is the friendly plugin name for vpn and wireguard profiles.
	VPNService string
}

func (c ConnectionInfo) IsWireless() bool { return c.Type == WirelessType }

func (c ConnectionInfo) IsVPN() bool {
	return c.Type == "vpn" || c.Type == "wireguard"
}

// AccessPointInfo is a scan result. It is fetched on demand and not cached.
type AccessPointInfo struct {
	Path       dbus.ObjectPath
	SSID       string
	Hidden     bool
	Strength   uint8
	Security   Security
	Enterprise bool
	BSSID      string
	Frequency  uint32
}

// NMState is NetworkManager's global connectivity state.
type NMState uint32

const (
	NMStateUnknown         NMState = 0
	NMStateAsleep          NMState = 10
	NMStateDisconnected    NMState = 20
	NMStateDisconnecting   NMState = 30
	NMStateConnecting      NMState = 40
	NMStateConnectedLocal  NMState = 50
	NMStateConnectedSite   NMState = 60
	NMStateConnectedGlobal NMState = 70
)

func (s NMState) String() string {
	switch s {
	case NMStateAsleep:
		return "asleep"
	case NMStateDisconnected:
		return "disconnected"
	case NMStateDisconnecting:
		return "disconnecting"
	case NMStateConnecting:
		return "connecting"
	case NMStateConnectedLocal:
		return "connected (local)"
	case NMStateConnectedSite:
		return "connected (site)"
	case NMStateConnectedGlobal:
		return "connected"
	default:
		return "unknown"
	}
}

func (s NMState) Connected() bool { return s >= NMStateConnectedLocal }

// GlobalState is the manager-wide snapshot.
type GlobalState struct {
	State             NMState
	WirelessEnabled   bool
	NetworkingEnabled bool
}
