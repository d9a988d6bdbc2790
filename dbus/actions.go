// Package dbus is the NetworkManager client: a sync engine that mirrors
// devices and stored connections into a cache, and the commands a panel
// issues against the manager.
package dbus

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"nmpanel/cache"
	"nmpanel/network"
)

// DefaultActivateTimeout bounds activation and connection creation.
const DefaultActivateTimeout = 30 * time.Second

var (
	// ErrSecretRequired is returned when a secured network is created
	// without a secret.
	ErrSecretRequired = errors.New("a secret is required for this network")
	// ErrEnterpriseAuthRequired is returned when an 802.1X network is
	// connected without enterprise credentials.
	ErrEnterpriseAuthRequired = errors.New("enterprise credentials are required for this network")
	ErrNotWireless            = errors.New("device is not a Wi-Fi device")
)

type Options struct {
	QueryTimeout    time.Duration
	ActivateTimeout time.Duration
	Logger          *slog.Logger
}

// Client answers queries from its cache and sends commands straight to
// NetworkManager. Commands never write the cache; their effects arrive
// later as signals.
type Client struct {
	bus             *network.Bus
	cache           *cache.Cache
	observers       cache.Registry
	engine          *Engine
	logger          *slog.Logger
	activateTimeout time.Duration

	// One marker per client: a second attempt replaces the first.
	mu              sync.Mutex
	connecting      string
	connectingToken uint64
	connectingSet   bool
}

func New(t network.Transport, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = network.DefaultQueryTimeout
	}
	if opts.ActivateTimeout <= 0 {
		opts.ActivateTimeout = DefaultActivateTimeout
	}

	bus := &network.Bus{Transport: t, Timeout: opts.QueryTimeout}
	c := &Client{
		bus:             bus,
		cache:           cache.New(opts.Logger),
		logger:          opts.Logger,
		activateTimeout: opts.ActivateTimeout,
	}
	c.engine = NewEngine(bus, c.cache, &c.observers, opts.Logger)
	return c
}

// Start loads the current state and begins following changes.
func (c *Client) Start(ctx context.Context) error {
	return c.engine.Start(ctx)
}

// Close stops the engine, closes the transport and empties the cache.
func (c *Client) Close() error {
	err := c.bus.Transport.Close()
	c.engine.Stop()
	c.cache.Clear()
	return err
}

// Observe registers o for cache change notifications. Notifications run on
// the engine goroutine; o must not block for long.
func (c *Client) Observe(o cache.Observer) cache.Handle { return c.observers.Add(o) }

func (c *Client) Unobserve(h cache.Handle) { c.observers.Remove(h) }

func (c *Client) ListDevices() []network.DeviceInfo { return c.cache.Devices() }

func (c *Client) ListConnections() []network.ConnectionInfo { return c.cache.Connections() }

func (c *Client) GlobalState() network.GlobalState { return c.cache.Global() }

func (c *Client) FindConnectionByUUID(uuid string) (network.ConnectionInfo, error) {
	return c.cache.ConnectionByUUID(uuid)
}

func (c *Client) FindConnectionBySSID(ssid string) (network.ConnectionInfo, bool) {
	return c.cache.ConnectionBySSID(ssid)
}

// FirstDevice returns the first cached device of kind.
func (c *Client) FirstDevice(kind network.DeviceKind) (network.DeviceInfo, bool) {
	for _, d := range c.cache.Devices() {
		if d.Kind == kind {
			return d, true
		}
	}
	return network.DeviceInfo{}, false
}

// ListAccessPoints reads the scan results of a Wi-Fi device. Any failure is
// logged and yields an empty list.
func (c *Client) ListAccessPoints(ctx context.Context, device dbus.ObjectPath) []network.AccessPointInfo {
	if d, ok := c.cache.Device(device); ok && d.Kind != network.KindWiFi {
		c.logger.Warn("not listing access points", "path", device, "error", ErrNotWireless)
		return nil
	}
	aps, err := network.FetchAccessPoints(ctx, c.bus, device, c.logger)
	if err != nil {
		c.logger.Warn("could not list access points", "path", device, "error", err)
		return nil
	}
	return aps
}

// RequestScan asks a Wi-Fi device to scan. It does not wait for results.
func (c *Client) RequestScan(ctx context.Context, device dbus.ObjectPath) error {
	err := c.bus.Object(device).Call(ctx, network.WifiIF+".RequestScan", map[string]dbus.Variant{}).Err
	return network.Classify("request scan", err, false)
}

// Activate activates a stored connection, given by object path or uuid, on
// device. It returns the active connection path. Success means NetworkManager
// accepted the request; the device reaching the activated state is reported
// through observers.
func (c *Client) Activate(ctx context.Context, ref string, device dbus.ObjectPath) (dbus.ObjectPath, error) {
	conn, err := c.resolveConnection(ref)
	if err != nil {
		return "", network.Classify("activate", err, false)
	}
	if info, ok := c.cache.Connection(conn); ok {
		token := c.beginConnecting(info.ID)
		defer c.endConnecting(token)
	}

	ctx, cancel := context.WithTimeout(ctx, c.activateTimeout)
	defer cancel()

	var active dbus.ObjectPath
	err = c.bus.Manager().Call(ctx, network.NMDest+".ActivateConnection", conn, orNone(device), network.NoObject).Store(&active)
	if err != nil {
		err = network.Classify("activate", err, false)
		c.logger.Warn("activation failed", "connection", conn, "device", device, "error", err)
		return "", err
	}
	c.logger.Info("activation requested", "connection", conn, "device", device, "active", active)
	return active, nil
}

func (c *Client) resolveConnection(ref string) (dbus.ObjectPath, error) {
	if strings.HasPrefix(ref, "/") {
		return dbus.ObjectPath(ref), nil
	}
	conn, err := c.cache.ConnectionByUUID(ref)
	if err != nil {
		return "", err
	}
	return conn.Path, nil
}

// Deactivate tears down an active connection.
func (c *Client) Deactivate(ctx context.Context, active dbus.ObjectPath) error {
	err := c.bus.Manager().Call(ctx, network.NMDest+".DeactivateConnection", active).Err
	if err != nil {
		err = network.Classify("deactivate", err, false)
		c.logger.Warn("deactivation failed", "active", active, "error", err)
	}
	return err
}

// CreateAndActivate stores a new profile for ssid and activates it. Secured
// kinds need a non-empty secret; an enterprise network needs
// CreateAndActivateEnterprise.
func (c *Client) CreateAndActivate(ctx context.Context, device, ap dbus.ObjectPath, ssid, secret string, kind network.Security) (conn, active dbus.ObjectPath, err error) {
	switch {
	case kind == network.SecurityEnterprise:
		return "", "", &network.Error{Kind: network.ErrorAuthRequired, Op: "create connection", Message: ErrEnterpriseAuthRequired.Error(), Err: ErrEnterpriseAuthRequired}
	case kind.RequiresSecret() && secret == "":
		return "", "", &network.Error{Kind: network.ErrorAuthRequired, Op: "create connection", Message: ErrSecretRequired.Error(), Err: ErrSecretRequired}
	}
	return c.addAndActivate(ctx, ssid, network.BuildWirelessProfile(ssid, secret, kind), device, ap)
}

// CreateAndActivateEnterprise stores a new 802.1X profile and activates it.
func (c *Client) CreateAndActivateEnterprise(ctx context.Context, device, ap dbus.ObjectPath, ssid string, auth network.EnterpriseAuth) (conn, active dbus.ObjectPath, err error) {
	settings, err := network.BuildEnterpriseProfile(ssid, auth)
	if err != nil {
		return "", "", network.Classify("create connection", err, true)
	}
	return c.addAndActivate(ctx, ssid, settings, device, ap)
}

func (c *Client) addAndActivate(ctx context.Context, ssid string, settings network.Settings, device, ap dbus.ObjectPath) (conn, active dbus.ObjectPath, err error) {
	token := c.beginConnecting(ssid)
	defer c.endConnecting(token)

	ctx, cancel := context.WithTimeout(ctx, c.activateTimeout)
	defer cancel()

	err = c.bus.Manager().
		Call(ctx, network.NMDest+".AddAndActivateConnection", map[string]map[string]dbus.Variant(settings), orNone(device), orNone(ap)).
		Store(&conn, &active)
	if err != nil {
		err = network.Classify("create connection", err, true)
		c.logger.Warn("create and activate failed", "ssid", ssid, "device", device, "error", err)
		return "", "", err
	}
	c.logger.Info("connection created", "ssid", ssid, "connection", conn, "active", active)
	return conn, active, nil
}

// Connect joins the network of ap on device. A stored profile for the SSID
// is reused; otherwise a new one is created from secret or auth.
func (c *Client) Connect(ctx context.Context, device dbus.ObjectPath, ap network.AccessPointInfo, secret string, auth *network.EnterpriseAuth) (dbus.ObjectPath, error) {
	if existing, ok := c.cache.ConnectionBySSID(ap.SSID); ok {
		return c.Activate(ctx, string(existing.Path), device)
	}
	if ap.Enterprise {
		if auth == nil {
			return "", &network.Error{Kind: network.ErrorAuthRequired, Op: "connect", Message: ErrEnterpriseAuthRequired.Error(), Err: ErrEnterpriseAuthRequired}
		}
		_, active, err := c.CreateAndActivateEnterprise(ctx, device, ap.Path, ap.SSID, *auth)
		return active, err
	}
	_, active, err := c.CreateAndActivate(ctx, device, ap.Path, ap.SSID, secret, ap.Security)
	return active, err
}

// Connecting reports the network of the attempt currently in flight.
func (c *Client) Connecting() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connecting, c.connectingSet
}

func (c *Client) beginConnecting(name string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectingToken++
	c.connecting = name
	c.connectingSet = true
	return c.connectingToken
}

func (c *Client) endConnecting(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.connectingToken {
		return
	}
	c.connecting = ""
	c.connectingSet = false
}

// SetWirelessEnabled switches the Wi-Fi radio.
func (c *Client) SetWirelessEnabled(ctx context.Context, on bool) error {
	err := c.bus.Manager().SetProperty(ctx, network.NMDest, "WirelessEnabled", on)
	return network.Classify("set wireless enabled", err, true)
}

// DeleteConnection removes a stored profile.
func (c *Client) DeleteConnection(ctx context.Context, conn dbus.ObjectPath) error {
	err := c.bus.Object(conn).Call(ctx, network.ConnectionIF+".Delete").Err
	return network.Classify("delete connection", err, true)
}

// ActiveConnection reads the active connection of device from the bus.
func (c *Client) ActiveConnection(ctx context.Context, device dbus.ObjectPath) (dbus.ObjectPath, error) {
	v, err := c.bus.Object(device).Property(ctx, network.DevIF, "ActiveConnection")
	if err != nil {
		return "", network.Classify("read active connection", err, false)
	}
	p, _ := v.Value().(dbus.ObjectPath)
	return p, nil
}

// ActiveConnections maps active stored connection paths to their active
// connection paths.
func (c *Client) ActiveConnections(ctx context.Context) (map[dbus.ObjectPath]dbus.ObjectPath, error) {
	m, err := network.FetchActiveConnections(ctx, c.bus)
	if err != nil {
		return nil, network.Classify("list active connections", err, false)
	}
	return m, nil
}

func orNone(p dbus.ObjectPath) dbus.ObjectPath {
	if p == "" {
		return network.NoObject
	}
	return p
}
