package network

import (
	"context"
	"strings"

	"github.com/godbus/dbus/v5"
)

// Transport is the call/subscribe channel to NetworkManager. Every call is
// addressed to the NetworkManager service; only the object path varies.
type Transport interface {
	Call(ctx context.Context, path dbus.ObjectPath, method string, args ...any) ([]any, error)
	AddMatch(ctx context.Context, rule string) error
	Signals() <-chan *dbus.Signal
	Close() error
}

// SystemTransport is a Transport over a private system bus connection.
type SystemTransport struct {
	conn *dbus.Conn
	sigs chan *dbus.Signal
}

// Dial opens and authenticates a private system bus connection. A private
// connection lets Close tear down the signal channel without affecting other
// users of the shared bus.
func Dial() (*SystemTransport, error) {
	conn, err := dbus.SystemBusPrivate()
	if err != nil {
		return nil, unavailable("connect to system bus", err)
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, unavailable("authenticate to system bus", err)
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, unavailable("system bus hello", err)
	}

	sigs := make(chan *dbus.Signal, 64)
	conn.Signal(sigs)
	return &SystemTransport{conn: conn, sigs: sigs}, nil
}

func unavailable(op string, err error) error {
	return &Error{Kind: ErrorTransportUnavailable, Op: op, Message: err.Error(), Err: err}
}

func (t *SystemTransport) Call(ctx context.Context, path dbus.ObjectPath, method string, args ...any) ([]any, error) {
	call := t.conn.Object(NMDest, path).CallWithContext(ctx, method, 0, args...)
	return call.Body, call.Err
}

func (t *SystemTransport) AddMatch(ctx context.Context, rule string) error {
	return t.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.AddMatch", 0, rule).Err
}

// Signals returns the channel all matched signals are delivered on. It is
// closed by Close.
func (t *SystemTransport) Signals() <-chan *dbus.Signal { return t.sigs }

func (t *SystemTransport) Close() error { return t.conn.Close() }

// MatchRule describes a signal subscription.
type MatchRule struct {
	Interface string
	Member    string
	Path      dbus.ObjectPath
}

func (r MatchRule) String() string {
	parts := []string{"type='signal'", "sender='" + NMDest + "'"}
	if r.Interface != "" {
		parts = append(parts, "interface='"+r.Interface+"'")
	}
	if r.Member != "" {
		parts = append(parts, "member='"+r.Member+"'")
	}
	if r.Path != "" {
		parts = append(parts, "path='"+string(r.Path)+"'")
	}
	return strings.Join(parts, ",")
}
