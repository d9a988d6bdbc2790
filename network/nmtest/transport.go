// Package nmtest provides an in-memory NetworkManager bus for tests.
package nmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/godbus/dbus/v5"
)

const propsIF = "org.freedesktop.DBus.Properties"

// Handler answers one method call.
type Handler func(ctx context.Context, args ...any) ([]any, error)

// Object is one fake remote object.
type Object struct {
	Props    map[string]map[string]dbus.Variant
	Methods  map[string]Handler
	PropErrs map[string]error // keyed by "iface.Name"
}

// Call records one method invocation.
type Call struct {
	Path   dbus.ObjectPath
	Method string
	Args   []any
}

// Transport is a fake network.Transport. Properties.Get, GetAll and Set are
// answered from Object.Props unless a handler overrides them.
type Transport struct {
	mu       sync.Mutex
	objects  map[dbus.ObjectPath]*Object
	calls    []Call
	matches  []string
	matchErr error

	// emitMu serializes Emit and Close so a send never hits a closed channel.
	emitMu sync.Mutex
	sigs   chan *dbus.Signal
	closed bool

	devices     []dbus.ObjectPath
	connections []dbus.ObjectPath
	settings    map[dbus.ObjectPath]map[string]map[string]dbus.Variant
}

// New returns an empty bus.
func New() *Transport {
	return &Transport{
		objects:  make(map[dbus.ObjectPath]*Object),
		sigs:     make(chan *dbus.Signal, 64),
		settings: make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant),
	}
}

// Object returns the object at path, creating it if needed.
func (t *Transport) Object(path dbus.ObjectPath) *Object {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.objectLocked(path)
}

func (t *Transport) objectLocked(path dbus.ObjectPath) *Object {
	o, ok := t.objects[path]
	if !ok {
		o = &Object{
			Props:    make(map[string]map[string]dbus.Variant),
			Methods:  make(map[string]Handler),
			PropErrs: make(map[string]error),
		}
		t.objects[path] = o
	}
	return o
}

// SetProp stores a property value.
func (t *Transport) SetProp(path dbus.ObjectPath, iface, name string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o := t.objectLocked(path)
	if o.Props[iface] == nil {
		o.Props[iface] = make(map[string]dbus.Variant)
	}
	o.Props[iface][name] = dbus.MakeVariant(value)
}

// FailProp makes reads of one property fail with err.
func (t *Transport) FailProp(path dbus.ObjectPath, iface, name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.objectLocked(path).PropErrs[iface+"."+name] = err
}

// Handle installs a method handler.
func (t *Transport) Handle(path dbus.ObjectPath, method string, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.objectLocked(path).Methods[method] = h
}

// Fail makes every call of method on path return err.
func (t *Transport) Fail(path dbus.ObjectPath, method string, err error) {
	t.Handle(path, method, func(context.Context, ...any) ([]any, error) { return nil, err })
}

// Remove drops the object at path.
func (t *Transport) Remove(path dbus.ObjectPath) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.objects, path)
}

// FailMatch makes AddMatch return err.
func (t *Transport) FailMatch(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.matchErr = err
}

func (t *Transport) Call(ctx context.Context, path dbus.ObjectPath, method string, args ...any) ([]any, error) {
	t.mu.Lock()
	t.calls = append(t.calls, Call{Path: path, Method: method, Args: args})
	o, ok := t.objects[path]
	if !ok {
		t.mu.Unlock()
		return nil, dbus.Error{
			Name: "org.freedesktop.DBus.Error.UnknownObject",
			Body: []any{"No such object path '" + string(path) + "'"},
		}
	}
	h, ok := o.Methods[method]
	if !ok {
		defer t.mu.Unlock()
		return t.propertyCallLocked(o, method, args)
	}
	t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h(ctx, args...)
}

func (t *Transport) propertyCallLocked(o *Object, method string, args []any) ([]any, error) {
	switch method {
	case propsIF + ".Get":
		iface, name := args[0].(string), args[1].(string)
		if err := o.PropErrs[iface+"."+name]; err != nil {
			return nil, err
		}
		v, ok := o.Props[iface][name]
		if !ok {
			return nil, dbus.Error{
				Name: "org.freedesktop.DBus.Error.UnknownProperty",
				Body: []any{"No such property '" + name + "'"},
			}
		}
		return []any{v}, nil
	case propsIF + ".GetAll":
		iface := args[0].(string)
		out := make(map[string]dbus.Variant, len(o.Props[iface]))
		for k, v := range o.Props[iface] {
			out[k] = v
		}
		return []any{out}, nil
	case propsIF + ".Set":
		iface, name := args[0].(string), args[1].(string)
		if o.Props[iface] == nil {
			o.Props[iface] = make(map[string]dbus.Variant)
		}
		o.Props[iface][name] = args[2].(dbus.Variant)
		return nil, nil
	}
	return nil, dbus.Error{
		Name: "org.freedesktop.DBus.Error.UnknownMethod",
		Body: []any{"No such method '" + method + "'"},
	}
}

func (t *Transport) AddMatch(_ context.Context, rule string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.matchErr != nil {
		return t.matchErr
	}
	t.matches = append(t.matches, rule)
	return nil
}

func (t *Transport) Signals() <-chan *dbus.Signal { return t.sigs }

// Emit delivers sig to the subscriber.
func (t *Transport) Emit(sig *dbus.Signal) {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()
	if t.closed {
		return
	}
	t.sigs <- sig
}

var errClosed = errors.New("nmtest: transport closed")

func (t *Transport) Close() error {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()
	if t.closed {
		return errClosed
	}
	t.closed = true
	close(t.sigs)
	return nil
}

// Calls returns every recorded call, optionally filtered by method.
func (t *Transport) Calls(method string) []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Call
	for _, c := range t.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Matches returns the installed match rules.
func (t *Transport) Matches() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.matches...)
}
