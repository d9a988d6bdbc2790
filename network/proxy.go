package network

import (
	"context"
	"time"

	"github.com/godbus/dbus/v5"
)

// DefaultQueryTimeout bounds calls whose context carries no deadline.
const DefaultQueryTimeout = 15 * time.Second

// Bus addresses NetworkManager objects over a Transport.
type Bus struct {
	Transport Transport
	Timeout   time.Duration
}

// NewBus returns a Bus with the default query timeout.
func NewBus(t Transport) *Bus {
	return &Bus{Transport: t, Timeout: DefaultQueryTimeout}
}

// Object returns a proxy for the object at path.
func (b *Bus) Object(path dbus.ObjectPath) Object {
	return Object{bus: b, Path: path}
}

func (b *Bus) Manager() Object  { return b.Object(NMPath) }
func (b *Bus) Settings() Object { return b.Object(SettingsPath) }

// Object is a proxy for one remote object.
type Object struct {
	bus  *Bus
	Path dbus.ObjectPath
}

// Reply holds the outcome of one method call.
type Reply struct {
	Body []any
	Err  error
}

// Store copies the reply body into dest, like dbus.Call.Store.
func (r *Reply) Store(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	return dbus.Store(r.Body, dest...)
}

// Call invokes method on the object. The bus timeout applies only when ctx
// has no deadline of its own.
func (o Object) Call(ctx context.Context, method string, args ...any) *Reply {
	if _, ok := ctx.Deadline(); !ok && o.bus.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.bus.Timeout)
		defer cancel()
	}
	body, err := o.bus.Transport.Call(ctx, o.Path, method, args...)
	return &Reply{Body: body, Err: err}
}

// Property reads a single property.
func (o Object) Property(ctx context.Context, iface, name string) (dbus.Variant, error) {
	var v dbus.Variant
	err := o.Call(ctx, PropsIF+".Get", iface, name).Store(&v)
	return v, err
}

// Properties reads every property of iface.
func (o Object) Properties(ctx context.Context, iface string) (map[string]dbus.Variant, error) {
	var props map[string]dbus.Variant
	err := o.Call(ctx, PropsIF+".GetAll", iface).Store(&props)
	return props, err
}

func (o Object) SetProperty(ctx context.Context, iface, name string, value any) error {
	return o.Call(ctx, PropsIF+".Set", iface, name, dbus.MakeVariant(value)).Err
}
