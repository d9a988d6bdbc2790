package network

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// ErrorKind groups remote failures by what a caller can do about them.
type ErrorKind int

const (
	ErrorGeneric ErrorKind = iota
	ErrorTransportUnavailable
	ErrorObjectQuery
	ErrorTimeout
	ErrorAuthRequired
	ErrorNoSuitableDevice
	ErrorAccessDenied
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorTransportUnavailable:
		return "transport unavailable"
	case ErrorObjectQuery:
		return "object query failed"
	case ErrorTimeout:
		return "timeout"
	case ErrorAuthRequired:
		return "authentication required"
	case ErrorNoSuitableDevice:
		return "no suitable device"
	case ErrorAccessDenied:
		return "access denied"
	default:
		return "generic"
	}
}

// Error is a classified NetworkManager failure. Message carries the remote
// text verbatim.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether trying the same call again may succeed without
// new input from the user.
func (e *Error) Retryable() bool { return e.Kind == ErrorTimeout }

// KindOf returns the kind of a classified error, or ErrorGeneric.
func KindOf(err error) ErrorKind {
	var nerr *Error
	if errors.As(err, &nerr) {
		return nerr.Kind
	}
	return ErrorGeneric
}

// Remote error names used for classification.
const (
	errNoReply          = "org.freedesktop.DBus.Error.NoReply"
	errTimeout          = "org.freedesktop.DBus.Error.Timeout"
	errTimedOut         = "org.freedesktop.DBus.Error.TimedOut"
	errAccessDenied     = "org.freedesktop.DBus.Error.AccessDenied"
	errPermissionDenied = "org.freedesktop.NetworkManager.PermissionDenied"
	errNoSecrets        = "org.freedesktop.NetworkManager.AgentManager.NoSecrets"
)

func remoteName(err error) string {
	var derr dbus.Error
	if errors.As(err, &derr) {
		return derr.Name
	}
	var dperr *dbus.Error
	if errors.As(err, &dperr) {
		return dperr.Name
	}
	return ""
}

// Classify turns a failed remote call into an *Error. The access-denied
// category only applies to connection creation, so callers opt in with
// allowAccessDenied. An error that is already classified is returned as is.
func Classify(op string, err error, allowAccessDenied bool) error {
	if err == nil {
		return nil
	}
	var nerr *Error
	if errors.As(err, &nerr) {
		return err
	}

	name := remoteName(err)
	msg := err.Error()
	kind := ErrorGeneric
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		name == errNoReply, name == errTimeout, name == errTimedOut:
		kind = ErrorTimeout
	case strings.Contains(msg, "Secrets were required"), name == errNoSecrets:
		kind = ErrorAuthRequired
	case strings.Contains(msg, "No suitable device"):
		kind = ErrorNoSuitableDevice
	case allowAccessDenied && (name == errPermissionDenied || name == errAccessDenied ||
		strings.Contains(strings.ToLower(msg), "not authorized")):
		kind = ErrorAccessDenied
	}
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

// queryError marks a per-object fetch failure.
func queryError(op string, path dbus.ObjectPath, err error) error {
	return &Error{
		Kind:    ErrorObjectQuery,
		Op:      op,
		Message: fmt.Sprintf("%s: %v", path, err),
		Err:     err,
	}
}

// UserMessage renders err as a short sentence suitable for a notification.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case ErrorAuthRequired:
		return "Invalid password or authentication failed"
	case ErrorNoSuitableDevice:
		return "No suitable network device found"
	case ErrorTimeout:
		return "The operation timed out, try again"
	case ErrorAccessDenied:
		return "You are not allowed to change network settings"
	case ErrorTransportUnavailable:
		return "NetworkManager is not reachable"
	}

	msg := err.Error()
	var nerr *Error
	if errors.As(err, &nerr) {
		msg = nerr.Message
	}
	msg = strings.TrimPrefix(msg, "GDBus.Error:")
	if strings.Contains(msg, "Connection activation failed") {
		return "Failed to activate connection. Please check your settings."
	}
	return msg
}
