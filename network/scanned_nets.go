package network

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
)

// Security is the authentication scheme of a Wi-Fi network. The values are
// the tags the profile builder accepts.
type Security string

const (
	SecurityNone       Security = "None"
	SecurityWEP        Security = "WEP"
	SecurityWPA        Security = "WPA"
	SecurityWPA2       Security = "WPA2"
	SecurityWPA3       Security = "WPA3"
	SecurityEnterprise Security = "802.1X"
	SecurityUnknown    Security = "Unknown"
)

// RequiresSecret reports whether connecting needs a pre-shared secret.
func (s Security) RequiresSecret() bool {
	switch s {
	case SecurityWEP, SecurityWPA, SecurityWPA2, SecurityWPA3:
		return true
	}
	return false
}

// Access point capability and key management bits.
const (
	apFlagPrivacy      = 0x1
	apSecKeyMgmtPSK    = 0x100
	apSecKeyMgmt8021X  = 0x200
	apSecKeyMgmtSAE    = 0x400
	apSecKeyMgmtSuiteB = 0x2000
)

// ClassifyAccessPoint derives the security kind from the Flags, WpaFlags and
// RsnFlags properties. SAE wins over PSK, which wins over any other WPA bit,
// which wins over plain privacy.
func ClassifyAccessPoint(flags, wpa, rsn uint32) Security {
	switch {
	case rsn&apSecKeyMgmtSAE != 0:
		return SecurityWPA3
	case rsn&apSecKeyMgmtPSK != 0 || wpa&apSecKeyMgmtPSK != 0:
		return SecurityWPA2
	case wpa != 0:
		return SecurityWPA
	case flags&apFlagPrivacy != 0 && rsn == 0:
		return SecurityWEP
	case flags&apFlagPrivacy == 0 && rsn == 0:
		return SecurityNone
	default:
		return SecurityUnknown
	}
}

// IsEnterprise reports whether the access point advertises 802.1X key
// management.
func IsEnterprise(wpa, rsn uint32) bool {
	return (wpa|rsn)&(apSecKeyMgmt8021X|apSecKeyMgmtSuiteB) != 0
}

// FetchAccessPointPaths lists every access point a Wi-Fi device knows about.
func FetchAccessPointPaths(ctx context.Context, bus *Bus, device dbus.ObjectPath) ([]dbus.ObjectPath, error) {
	var paths []dbus.ObjectPath
	if err := bus.Object(device).Call(ctx, WifiIF+".GetAllAccessPoints").Store(&paths); err != nil {
		return nil, fmt.Errorf("list access points of %s: %w", device, err)
	}
	return paths, nil
}

// FetchAccessPoint reads one access point field by field. Ssid and Strength
// are mandatory; a failure on any other field leaves it zero.
func FetchAccessPoint(ctx context.Context, bus *Bus, path dbus.ObjectPath) (AccessPointInfo, error) {
	obj := bus.Object(path)
	ap := AccessPointInfo{Path: path}

	var ssid []byte
	v, err := obj.Property(ctx, AccessPointIF, "Ssid")
	if err == nil {
		err = dbus.Store([]any{v.Value()}, &ssid)
	}
	if err != nil {
		return AccessPointInfo{}, queryError("read ssid", path, err)
	}
	ap.SSID = strings.TrimRight(string(ssid), "\x00")
	ap.Hidden = ap.SSID == ""

	v, err = obj.Property(ctx, AccessPointIF, "Strength")
	if err != nil {
		return AccessPointInfo{}, queryError("read strength", path, err)
	}
	strength, ok := v.Value().(byte)
	if !ok {
		return AccessPointInfo{}, queryError("read strength", path, fmt.Errorf("unexpected signature %s", v.Signature()))
	}
	ap.Strength = min(strength, 100)

	var flags, wpa, rsn uint32
	uint32Prop(ctx, obj, "Flags", &flags)
	uint32Prop(ctx, obj, "WpaFlags", &wpa)
	uint32Prop(ctx, obj, "RsnFlags", &rsn)
	ap.Security = ClassifyAccessPoint(flags, wpa, rsn)
	ap.Enterprise = IsEnterprise(wpa, rsn)

	if v, err := obj.Property(ctx, AccessPointIF, "HwAddress"); err == nil {
		ap.BSSID, _ = v.Value().(string)
	}
	uint32Prop(ctx, obj, "Frequency", &ap.Frequency)
	return ap, nil
}

func uint32Prop(ctx context.Context, obj Object, name string, dest *uint32) {
	if v, err := obj.Property(ctx, AccessPointIF, name); err == nil {
		*dest, _ = v.Value().(uint32)
	}
}

// FetchAccessPoints returns the scan results of device. Records that fail to
// load are logged and dropped.
func FetchAccessPoints(ctx context.Context, bus *Bus, device dbus.ObjectPath, logger *slog.Logger) ([]AccessPointInfo, error) {
	paths, err := FetchAccessPointPaths(ctx, bus, device)
	if err != nil {
		return nil, err
	}
	aps := make([]AccessPointInfo, 0, len(paths))
	for _, p := range paths {
		ap, err := FetchAccessPoint(ctx, bus, p)
		if err != nil {
			logger.Warn("skipping access point", "path", p, "error", err)
			continue
		}
		aps = append(aps, ap)
	}
	return aps, nil
}

// StrongestBySSID keeps the strongest access point per SSID, dropping hidden
// ones, ordered by descending strength.
func StrongestBySSID(aps []AccessPointInfo) []AccessPointInfo {
	best := make(map[string]int)
	var out []AccessPointInfo
	for _, ap := range aps {
		if ap.Hidden {
			continue
		}
		if i, ok := best[ap.SSID]; ok {
			if ap.Strength > out[i].Strength {
				out[i] = ap
			}
			continue
		}
		best[ap.SSID] = len(out)
		out = append(out, ap)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	return out
}
