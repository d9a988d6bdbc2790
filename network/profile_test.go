package network

import (
	"errors"
	"testing"
)

func str(t *testing.T, s Settings, group, key string) string {
	t.Helper()
	v, ok := s[group][key].Value().(string)
	if !ok {
		t.Fatalf("%s.%s missing or not a string: %v", group, key, s[group][key])
	}
	return v
}

func TestBuildWirelessProfile_WPA2(t *testing.T) {
	t.Parallel()

	s := BuildWirelessProfile("home", "hunter2", SecurityWPA2)
	if got := str(t, s, wirelessSecurityGroup, "key-mgmt"); got != "wpa-psk" {
		t.Fatalf("key-mgmt=%q", got)
	}
	if got := str(t, s, wirelessSecurityGroup, "auth-alg"); got != "open" {
		t.Fatalf("auth-alg=%q", got)
	}
	if got := str(t, s, wirelessSecurityGroup, "psk"); got != "hunter2" {
		t.Fatalf("psk=%q", got)
	}
	if got := str(t, s, WirelessType, "security"); got != wirelessSecurityGroup {
		t.Fatalf("802-11-wireless.security=%q", got)
	}
	if ssid, _ := s[WirelessType]["ssid"].Value().([]byte); string(ssid) != "home" {
		t.Fatalf("ssid=%q", ssid)
	}
}

func TestBuildWirelessProfile_AlwaysAutoIP(t *testing.T) {
	t.Parallel()

	for _, kind := range []Security{SecurityNone, SecurityWEP, SecurityWPA, SecurityWPA2, SecurityWPA3, SecurityUnknown, "bogus"} {
		for _, secret := range []string{"", "secret"} {
			s := BuildWirelessProfile("net", secret, kind)
			if str(t, s, "ipv4", "method") != "auto" || str(t, s, "ipv6", "method") != "auto" {
				t.Fatalf("kind=%q secret=%q: ip methods not auto", kind, secret)
			}
			for _, g := range []string{"connection", WirelessType} {
				if _, ok := s[g]; !ok {
					t.Fatalf("kind=%q: missing group %s", kind, g)
				}
			}
			if str(t, s, "connection", "type") != WirelessType {
				t.Fatalf("kind=%q: wrong connection type", kind)
			}
		}
	}
}

func TestBuildWirelessProfile_EmptySecretOmitsSecurity(t *testing.T) {
	t.Parallel()

	s := BuildWirelessProfile("home", "", SecurityWPA2)
	if _, ok := s[wirelessSecurityGroup]; ok {
		t.Fatalf("security group present: %v", s[wirelessSecurityGroup])
	}
	if _, ok := s[WirelessType]["security"]; ok {
		t.Fatalf("802-11-wireless.security set without a security group")
	}
}

func TestBuildWirelessProfile_Kinds(t *testing.T) {
	t.Parallel()

	s := BuildWirelessProfile("n", "pw", SecurityWPA3)
	if str(t, s, wirelessSecurityGroup, "key-mgmt") != "sae" || str(t, s, wirelessSecurityGroup, "psk") != "pw" {
		t.Fatalf("wpa3=%v", s[wirelessSecurityGroup])
	}
	if _, ok := s[wirelessSecurityGroup]["auth-alg"]; ok {
		t.Fatalf("wpa3 must not set auth-alg")
	}

	s = BuildWirelessProfile("n", "abcde", SecurityWEP)
	if str(t, s, wirelessSecurityGroup, "key-mgmt") != "none" || str(t, s, wirelessSecurityGroup, "wep-key0") != "abcde" {
		t.Fatalf("wep=%v", s[wirelessSecurityGroup])
	}
	if kt, _ := s[wirelessSecurityGroup]["wep-key-type"].Value().(uint32); kt != 0 {
		t.Fatalf("wep-key-type=%d", kt)
	}

	s = BuildWirelessProfile("n", "pw", SecurityNone)
	if _, ok := s[wirelessSecurityGroup]; ok {
		t.Fatalf("open network got a security group")
	}
}

func TestBuildWirelessProfile_UsesGeneratedUUID(t *testing.T) {
	orig := newUUID
	newUUID = func() string { return "11111111-2222-3333-4444-555555555555" }
	t.Cleanup(func() { newUUID = orig })

	s := BuildWirelessProfile("n", "", SecurityNone)
	if got := str(t, s, "connection", "uuid"); got != "11111111-2222-3333-4444-555555555555" {
		t.Fatalf("uuid=%q", got)
	}
	if auto, _ := s["connection"]["autoconnect"].Value().(bool); !auto {
		t.Fatalf("autoconnect not set")
	}
}

func TestBuildEnterpriseProfile(t *testing.T) {
	t.Parallel()

	s, err := BuildEnterpriseProfile("corp", EnterpriseAuth{
		EAP:      "PEAP",
		Phase2:   "MSCHAPV2",
		Identity: "alice",
		Password: "pw",
		CACert:   "/etc/ssl/ca.pem",
	})
	if err != nil {
		t.Fatalf("BuildEnterpriseProfile: %v", err)
	}
	if str(t, s, wirelessSecurityGroup, "key-mgmt") != "wpa-eap" {
		t.Fatalf("key-mgmt=%v", s[wirelessSecurityGroup])
	}
	eap, _ := s["802-1x"]["eap"].Value().([]string)
	if len(eap) != 1 || eap[0] != "peap" {
		t.Fatalf("eap=%v", eap)
	}
	if str(t, s, "802-1x", "phase2-auth") != "mschapv2" || str(t, s, "802-1x", "identity") != "alice" {
		t.Fatalf("802-1x=%v", s["802-1x"])
	}
	ca, _ := s["802-1x"]["ca-cert"].Value().([]byte)
	if string(ca) != "file:///etc/ssl/ca.pem\x00" {
		t.Fatalf("ca-cert=%q", ca)
	}
	if str(t, s, "ipv4", "method") != "auto" || str(t, s, "ipv6", "method") != "auto" {
		t.Fatalf("ip methods not auto")
	}
}

func TestBuildEnterpriseProfile_Phase2None(t *testing.T) {
	t.Parallel()

	s, err := BuildEnterpriseProfile("corp", EnterpriseAuth{EAP: "TLS", Phase2: "NONE", Identity: "bob"})
	if err != nil {
		t.Fatalf("BuildEnterpriseProfile: %v", err)
	}
	if _, ok := s["802-1x"]["phase2-auth"]; ok {
		t.Fatalf("phase2-auth set for NONE")
	}
	if _, ok := s["802-1x"]["ca-cert"]; ok {
		t.Fatalf("ca-cert set without a path")
	}
}

func TestBuildEnterpriseProfile_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		ssid string
		auth EnterpriseAuth
		want error
	}{
		{"", EnterpriseAuth{EAP: "PEAP", Identity: "a"}, ErrMissingSSID},
		{"corp", EnterpriseAuth{Identity: "a"}, ErrMissingEAP},
		{"corp", EnterpriseAuth{EAP: "PEAP"}, ErrMissingIdentity},
	}
	for _, c := range cases {
		if _, err := BuildEnterpriseProfile(c.ssid, c.auth); !errors.Is(err, c.want) {
			t.Fatalf("ssid=%q auth=%+v: err=%v want %v", c.ssid, c.auth, err, c.want)
		}
	}
}
