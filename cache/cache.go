// Package cache holds the local mirror of NetworkManager devices, stored
// connections and global flags. The sync engine is its only writer; every
// reader gets copies.
package cache

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/godbus/dbus/v5"

	"nmpanel/network"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrDuplicateUUID      = errors.New("duplicate connection uuid")
)

// Cache is safe for concurrent use. A single lock guards everything.
type Cache struct {
	mu     sync.RWMutex
	logger *slog.Logger

	global network.GlobalState

	devices     map[dbus.ObjectPath]network.DeviceInfo
	deviceOrder []dbus.ObjectPath

	conns     map[dbus.ObjectPath]network.ConnectionInfo
	connOrder []dbus.ObjectPath
}

func New(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		logger:  logger,
		devices: make(map[dbus.ObjectPath]network.DeviceInfo),
		conns:   make(map[dbus.ObjectPath]network.ConnectionInfo),
	}
}

// Devices returns every device in insertion order.
func (c *Cache) Devices() []network.DeviceInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]network.DeviceInfo, 0, len(c.deviceOrder))
	for _, p := range c.deviceOrder {
		out = append(out, c.devices[p].Clone())
	}
	return out
}

func (c *Cache) Device(path dbus.ObjectPath) (network.DeviceInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.devices[path]
	if !ok {
		return network.DeviceInfo{}, false
	}
	return d.Clone(), true
}

// Connections returns every stored connection in insertion order.
func (c *Cache) Connections() []network.ConnectionInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]network.ConnectionInfo, 0, len(c.connOrder))
	for _, p := range c.connOrder {
		out = append(out, c.conns[p])
	}
	return out
}

func (c *Cache) Connection(path dbus.ObjectPath) (network.ConnectionInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conn, ok := c.conns[path]
	return conn, ok
}

// ConnectionByUUID returns the one connection carrying uuid. Two profiles
// with the same uuid are reported as ErrDuplicateUUID.
func (c *Cache) ConnectionByUUID(uuid string) (network.ConnectionInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var (
		found network.ConnectionInfo
		n     int
	)
	for _, p := range c.connOrder {
		if conn := c.conns[p]; conn.UUID == uuid {
			found = conn
			n++
		}
	}
	switch n {
	case 0:
		return network.ConnectionInfo{}, ErrConnectionNotFound
	case 1:
		return found, nil
	default:
		return network.ConnectionInfo{}, ErrDuplicateUUID
	}
}

// ConnectionBySSID returns the wireless connection whose id equals ssid.
// When several match, the most recently activated wins and ties go to the
// earliest inserted.
func (c *Cache) ConnectionBySSID(ssid string) (network.ConnectionInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var (
		best network.ConnectionInfo
		ok   bool
	)
	for _, p := range c.connOrder {
		conn := c.conns[p]
		if !conn.IsWireless() || conn.ID != ssid {
			continue
		}
		if !ok || conn.Timestamp > best.Timestamp {
			best, ok = conn, true
		}
	}
	return best, ok
}

func (c *Cache) Global() network.GlobalState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.global
}

// PutDevice inserts or replaces a device. It reports whether the device is
// new.
func (c *Cache) PutDevice(d network.DeviceInfo) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.devices[d.Path]
	c.devices[d.Path] = d.Clone()
	if !exists {
		c.deviceOrder = append(c.deviceOrder, d.Path)
	}
	return !exists
}

// SetDeviceState updates only the state of a known device and returns the
// updated snapshot. Unknown devices are left alone.
func (c *Cache) SetDeviceState(path dbus.ObjectPath, state network.DeviceState, reason uint32) (network.DeviceInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.devices[path]
	if !ok {
		return network.DeviceInfo{}, false
	}
	d.State = state
	d.StateReason = reason
	d.Available = state > network.DeviceStateUnavailable
	c.devices[path] = d
	return d.Clone(), true
}

// RemoveDevice evicts a device and returns its last snapshot.
func (c *Cache) RemoveDevice(path dbus.ObjectPath) (network.DeviceInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.devices[path]
	if !ok {
		return network.DeviceInfo{}, false
	}
	delete(c.devices, path)
	c.deviceOrder = slices.DeleteFunc(c.deviceOrder, func(p dbus.ObjectPath) bool { return p == path })
	return d, true
}

// PutConnection inserts or replaces a stored connection. A uuid already held
// by another path is kept and logged; lookups by that uuid then fail with
// ErrDuplicateUUID.
func (c *Cache) PutConnection(conn network.ConnectionInfo) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.connOrder {
		if other := c.conns[p]; p != conn.Path && other.UUID == conn.UUID {
			c.logger.Warn("duplicate connection uuid", "uuid", conn.UUID, "path", conn.Path, "other", p)
			break
		}
	}
	_, exists := c.conns[conn.Path]
	c.conns[conn.Path] = conn
	if !exists {
		c.connOrder = append(c.connOrder, conn.Path)
	}
	return !exists
}

func (c *Cache) RemoveConnection(path dbus.ObjectPath) (network.ConnectionInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conn, ok := c.conns[path]
	if !ok {
		return network.ConnectionInfo{}, false
	}
	delete(c.conns, path)
	c.connOrder = slices.DeleteFunc(c.connOrder, func(p dbus.ObjectPath) bool { return p == path })
	return conn, true
}

// UpdateGlobal applies fn to the global state under the lock and returns
// the result.
func (c *Cache) UpdateGlobal(fn func(*network.GlobalState)) network.GlobalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.global)
	return c.global
}

// Clear drops everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.global = network.GlobalState{}
	clear(c.devices)
	clear(c.conns)
	c.deviceOrder = nil
	c.connOrder = nil
}
