package network

import (
	"errors"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

// Settings is the nested group/key map NetworkManager uses for connection
// profiles.
type Settings map[string]map[string]dbus.Variant

const wirelessSecurityGroup = "802-11-wireless-security"

// newUUID is swapped out by tests.
var newUUID = uuid.NewString

func baseWirelessProfile(ssid string) Settings {
	return Settings{
		"connection": {
			"id":          dbus.MakeVariant(ssid),
			"uuid":        dbus.MakeVariant(newUUID()),
			"type":        dbus.MakeVariant(WirelessType),
			"autoconnect": dbus.MakeVariant(true),
		},
		WirelessType: {
			"ssid": dbus.MakeVariant([]byte(ssid)),
			"mode": dbus.MakeVariant("infrastructure"),
		},
		"ipv4": {"method": dbus.MakeVariant("auto")},
		"ipv6": {"method": dbus.MakeVariant("auto")},
	}
}

// BuildWirelessProfile returns the profile for a pre-shared-key or open
// network. The security group is left out when secret is empty or kind has
// no key management mapping, which yields an open profile; callers that must
// not connect openly check Security.RequiresSecret first.
func BuildWirelessProfile(ssid, secret string, kind Security) Settings {
	s := baseWirelessProfile(ssid)
	if secret == "" {
		return s
	}

	var sec map[string]dbus.Variant
	switch kind {
	case SecurityWPA, SecurityWPA2:
		sec = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"auth-alg": dbus.MakeVariant("open"),
			"psk":      dbus.MakeVariant(secret),
		}
	case SecurityWPA3:
		sec = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("sae"),
			"psk":      dbus.MakeVariant(secret),
		}
	case SecurityWEP:
		sec = map[string]dbus.Variant{
			"key-mgmt":     dbus.MakeVariant("none"),
			"wep-key-type": dbus.MakeVariant(uint32(0)),
			"wep-key0":     dbus.MakeVariant(secret),
		}
	default:
		return s
	}
	s[wirelessSecurityGroup] = sec
	s[WirelessType]["security"] = dbus.MakeVariant(wirelessSecurityGroup)
	return s
}

// EnterpriseAuth holds the 802.1X parameters of an enterprise network.
type EnterpriseAuth struct {
	EAP               string // PEAP, TTLS, TLS, PWD
	Phase2            string // MSCHAPV2, PAP, CHAP, MSCHAP, NONE
	Identity          string
	AnonymousIdentity string
	Password          string
	CACert            string // filesystem path
}

var (
	ErrMissingSSID     = errors.New("ssid is required")
	ErrMissingEAP      = errors.New("eap method is required")
	ErrMissingIdentity = errors.New("identity is required")
)

// BuildEnterpriseProfile returns a WPA-EAP profile.
func BuildEnterpriseProfile(ssid string, auth EnterpriseAuth) (Settings, error) {
	switch {
	case ssid == "":
		return nil, ErrMissingSSID
	case auth.EAP == "":
		return nil, ErrMissingEAP
	case auth.Identity == "":
		return nil, ErrMissingIdentity
	}

	dot1x := map[string]dbus.Variant{
		"eap":      dbus.MakeVariant([]string{strings.ToLower(auth.EAP)}),
		"identity": dbus.MakeVariant(auth.Identity),
	}
	if auth.Password != "" {
		dot1x["password"] = dbus.MakeVariant(auth.Password)
	}
	if auth.AnonymousIdentity != "" {
		dot1x["anonymous-identity"] = dbus.MakeVariant(auth.AnonymousIdentity)
	}
	if auth.Phase2 != "" && !strings.EqualFold(auth.Phase2, "NONE") {
		dot1x["phase2-auth"] = dbus.MakeVariant(strings.ToLower(auth.Phase2))
	}
	if auth.CACert != "" {
		// NM takes certificate paths as a NUL-terminated file:// URI blob.
		dot1x["ca-cert"] = dbus.MakeVariant([]byte("file://" + auth.CACert + "\x00"))
	}

	s := baseWirelessProfile(ssid)
	s[WirelessType]["security"] = dbus.MakeVariant(wirelessSecurityGroup)
	s[wirelessSecurityGroup] = map[string]dbus.Variant{
		"key-mgmt": dbus.MakeVariant("wpa-eap"),
	}
	s["802-1x"] = dot1x
	return s, nil
}
