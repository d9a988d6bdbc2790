package dbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/godbus/dbus/v5"

	"nmpanel/cache"
	"nmpanel/network"
)

// Engine loads NetworkManager state into a cache and keeps it current from
// signals. It is the only writer of the cache.
type Engine struct {
	bus       *network.Bus
	cache     *cache.Cache
	observers *cache.Registry
	logger    *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	done    chan struct{}
}

func NewEngine(bus *network.Bus, c *cache.Cache, observers *cache.Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		bus:       bus,
		cache:     c,
		observers: observers,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Rules are the signal subscriptions the engine relies on.
func Rules() []network.MatchRule {
	return []network.MatchRule{
		{Interface: network.PropsIF, Member: "PropertiesChanged", Path: network.NMPath},
		{Interface: network.NMDest, Member: "DeviceAdded"},
		{Interface: network.NMDest, Member: "DeviceRemoved"},
		{Interface: network.DevIF, Member: "StateChanged"},
		{Interface: network.SettingsIF, Member: "NewConnection"},
		{Interface: network.SettingsIF, Member: "ConnectionRemoved"},
		{Interface: network.ConnectionIF, Member: "Updated"},
	}
}

// Start subscribes, runs the bulk load and then starts applying signals.
// Subscribing first means signals raised during the load wait in the
// transport queue and are applied, in order, once the load is done.
func (e *Engine) Start(ctx context.Context) error {
	for _, rule := range Rules() {
		if err := e.bus.Transport.AddMatch(ctx, rule.String()); err != nil {
			return fmt.Errorf("could not add match rule '%s': %w", rule, err)
		}
	}
	e.Load(ctx)
	if e.started.CompareAndSwap(false, true) {
		go e.run()
	}
	return nil
}

// Stop ends the signal loop and waits for it. It is safe to call more than
// once and before Start.
func (e *Engine) Stop() {
	e.cancel()
	if e.started.Load() {
		<-e.done
	}
}

// Load fills the cache from the manager. Objects that fail to load are
// logged and skipped.
func (e *Engine) Load(ctx context.Context) {
	if g, err := network.FetchGlobalState(ctx, e.bus); err != nil {
		e.logger.Warn("skipping global state", "error", err)
	} else {
		e.cache.UpdateGlobal(func(s *network.GlobalState) { *s = g })
	}

	devices, err := network.FetchDevicePaths(ctx, e.bus)
	if err != nil {
		e.logger.Warn("could not enumerate devices", "error", err)
	}
	for _, p := range devices {
		dev, err := network.FetchDevice(ctx, e.bus, p)
		if err != nil {
			e.logger.Warn("skipping device", "path", p, "error", err)
			continue
		}
		e.cache.PutDevice(dev)
	}

	conns, err := network.FetchConnectionPaths(ctx, e.bus)
	if err != nil {
		e.logger.Warn("could not enumerate connections", "error", err)
	}
	for _, p := range conns {
		conn, err := network.FetchConnection(ctx, e.bus, p)
		if err != nil {
			e.logger.Warn("skipping connection", "path", p, "error", err)
			continue
		}
		e.cache.PutConnection(conn)
	}
	e.logger.Debug("initial load complete", "devices", len(e.cache.Devices()), "connections", len(e.cache.Connections()))
}

func (e *Engine) run() {
	defer close(e.done)
	sigs := e.bus.Transport.Signals()
	for {
		select {
		case <-e.ctx.Done():
			return
		case s, ok := <-sigs:
			if !ok {
				return
			}
			e.Handle(e.ctx, s)
		}
	}
}

// Handle applies one signal to the cache and notifies observers.
func (e *Engine) Handle(ctx context.Context, s *dbus.Signal) {
	switch s.Name {
	case network.PropsIF + ".PropertiesChanged":
		if s.Path == network.NMPath {
			e.managerPropertiesChanged(s)
		}

	case network.NMDest + ".DeviceAdded":
		if p, ok := e.pathArg(s); ok {
			e.deviceAdded(ctx, p)
		}

	case network.NMDest + ".DeviceRemoved":
		if p, ok := e.pathArg(s); ok {
			e.deviceRemoved(p)
		}

	case network.DevIF + ".StateChanged":
		e.deviceStateChanged(s)

	case network.SettingsIF + ".NewConnection":
		if p, ok := e.pathArg(s); ok {
			e.connectionChanged(ctx, p)
		}

	case network.SettingsIF + ".ConnectionRemoved":
		if p, ok := e.pathArg(s); ok {
			e.connectionRemoved(p)
		}

	case network.ConnectionIF + ".Updated":
		e.connectionChanged(ctx, s.Path)
	}
}

func (e *Engine) pathArg(s *dbus.Signal) (dbus.ObjectPath, bool) {
	if len(s.Body) > 0 {
		if p, ok := s.Body[0].(dbus.ObjectPath); ok {
			return p, true
		}
	}
	e.logger.Warn("ignoring malformed signal", "signal", s.Name, "body", s.Body)
	return "", false
}

func (e *Engine) managerPropertiesChanged(s *dbus.Signal) {
	if len(s.Body) < 2 {
		e.logger.Warn("ignoring malformed signal", "signal", s.Name, "body", s.Body)
		return
	}
	if iface, _ := s.Body[0].(string); iface != network.NMDest {
		return
	}
	props, ok := s.Body[1].(map[string]dbus.Variant)
	if !ok {
		e.logger.Warn("ignoring malformed signal", "signal", s.Name, "body", s.Body)
		return
	}

	changed := false
	g := e.cache.UpdateGlobal(func(g *network.GlobalState) {
		changed = network.ApplyManagerProperties(g, props)
	})
	if changed {
		e.observers.StateChanged(g)
	}
}

func (e *Engine) deviceAdded(ctx context.Context, p dbus.ObjectPath) {
	dev, err := network.FetchDevice(ctx, e.bus, p)
	if err != nil {
		e.logger.Warn("skipping added device", "path", p, "error", err)
		return
	}
	e.cache.PutDevice(dev)
	e.observers.DeviceAdded(dev)
}

func (e *Engine) deviceRemoved(p dbus.ObjectPath) {
	dev, ok := e.cache.Device(p)
	if !ok {
		e.logger.Debug("removed device was not cached", "path", p)
		return
	}
	e.observers.DeviceRemoved(dev)
	e.cache.RemoveDevice(p)
}

func (e *Engine) deviceStateChanged(s *dbus.Signal) {
	if len(s.Body) < 3 {
		e.logger.Warn("ignoring malformed signal", "signal", s.Name, "body", s.Body)
		return
	}
	newState, ok1 := s.Body[0].(uint32)
	reason, ok2 := s.Body[2].(uint32)
	if !ok1 || !ok2 {
		e.logger.Warn("ignoring malformed signal", "signal", s.Name, "body", s.Body)
		return
	}
	dev, ok := e.cache.SetDeviceState(s.Path, network.DeviceState(newState), reason)
	if !ok {
		// Usually a device that was removed while the signal was queued.
		e.logger.Debug("state change for unknown device", "path", s.Path)
		return
	}
	e.observers.DeviceAdded(dev)
}

// connectionChanged refetches a stored connection. A path the cache has
// never seen is added.
func (e *Engine) connectionChanged(ctx context.Context, p dbus.ObjectPath) {
	conn, err := network.FetchConnection(ctx, e.bus, p)
	if err != nil {
		e.logger.Warn("skipping connection", "path", p, "error", err)
		return
	}
	e.cache.PutConnection(conn)
	e.observers.ConnectionAdded(conn)
}

func (e *Engine) connectionRemoved(p dbus.ObjectPath) {
	conn, ok := e.cache.RemoveConnection(p)
	if !ok {
		return
	}
	e.observers.ConnectionRemoved(conn)
}
