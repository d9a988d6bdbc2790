package cache

import (
	"sync"

	"nmpanel/network"
)

// Observer is notified of cache changes on the sync engine's goroutine.
// DeviceAdded also fires when a known device changes state.
type Observer interface {
	StateChanged(network.GlobalState)
	DeviceAdded(network.DeviceInfo)
	DeviceRemoved(network.DeviceInfo)
}

// ConnectionObserver is optionally implemented by observers interested in
// stored connections.
type ConnectionObserver interface {
	ConnectionAdded(network.ConnectionInfo)
	ConnectionRemoved(network.ConnectionInfo)
}

// Funcs adapts closures to Observer and ConnectionObserver. Nil fields are
// skipped.
type Funcs struct {
	OnState             func(network.GlobalState)
	OnDeviceAdded       func(network.DeviceInfo)
	OnDeviceRemoved     func(network.DeviceInfo)
	OnConnectionAdded   func(network.ConnectionInfo)
	OnConnectionRemoved func(network.ConnectionInfo)
}

func (f Funcs) StateChanged(g network.GlobalState) {
	if f.OnState != nil {
		f.OnState(g)
	}
}

func (f Funcs) DeviceAdded(d network.DeviceInfo) {
	if f.OnDeviceAdded != nil {
		f.OnDeviceAdded(d)
	}
}

func (f Funcs) DeviceRemoved(d network.DeviceInfo) {
	if f.OnDeviceRemoved != nil {
		f.OnDeviceRemoved(d)
	}
}

func (f Funcs) ConnectionAdded(c network.ConnectionInfo) {
	if f.OnConnectionAdded != nil {
		f.OnConnectionAdded(c)
	}
}

func (f Funcs) ConnectionRemoved(c network.ConnectionInfo) {
	if f.OnConnectionRemoved != nil {
		f.OnConnectionRemoved(c)
	}
}

// Handle identifies a registration.
type Handle uint64

type registration struct {
	h Handle
	o Observer
}

// Registry is an ordered list of observers.
type Registry struct {
	mu   sync.Mutex
	next Handle
	regs []registration
}

// Add registers o and returns its handle. Observers are notified in
// registration order.
func (r *Registry) Add(o Observer) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.regs = append(r.regs, registration{h: r.next, o: o})
	return r.next
}

// Remove unregisters h. Unknown handles are ignored.
func (r *Registry) Remove(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, reg := range r.regs {
		if reg.h == h {
			r.regs = append(r.regs[:i:i], r.regs[i+1:]...)
			return
		}
	}
}

func (r *Registry) snapshot() []Observer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Observer, len(r.regs))
	for i, reg := range r.regs {
		out[i] = reg.o
	}
	return out
}

func (r *Registry) StateChanged(g network.GlobalState) {
	for _, o := range r.snapshot() {
		o.StateChanged(g)
	}
}

func (r *Registry) DeviceAdded(d network.DeviceInfo) {
	for _, o := range r.snapshot() {
		o.DeviceAdded(d.Clone())
	}
}

func (r *Registry) DeviceRemoved(d network.DeviceInfo) {
	for _, o := range r.snapshot() {
		o.DeviceRemoved(d.Clone())
	}
}

func (r *Registry) ConnectionAdded(c network.ConnectionInfo) {
	for _, o := range r.snapshot() {
		if co, ok := o.(ConnectionObserver); ok {
			co.ConnectionAdded(c)
		}
	}
}

func (r *Registry) ConnectionRemoved(c network.ConnectionInfo) {
	for _, o := range r.snapshot() {
		if co, ok := o.(ConnectionObserver); ok {
			co.ConnectionRemoved(c)
		}
	}
}
