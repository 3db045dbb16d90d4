package xnet

import (
	"errors"
	"fmt"
)

// Code is the numeric error taxonomy carried over from the message
// transport this package re-implements: callers that need the legacy
// ABI-style negative code (as opposed to a plain Go error) can recover
// it with errors.As against *Error.
type Code int

// Negative-facing error codes, preserved in the order and grouping of
// the original MessageErrorCode enum. Values here are positive;
// NegativeCode returns them negated when that matters to a caller,
// since Go errors are not themselves sortable/comparable integers.
const (
	CodeUninstallDriver Code = iota + 1
	CodeInvalidParam
	CodeAddressNotExist
	CodeBindFailed
	CodeConnectFailed
	CodeDisconnected
	CodeRecvInvalidMsg
	CodeRecvBuffNotEnough
	CodeRecvEmpty
	CodeReactorInitFailed
	CodeReactorGetEventFailed
	CodeReactorErrEvent
	CodeSendFailed
	CodeRecvFailed
	CodeUnsupported
	CodeCacheFailed
	CodeSendBuffNotEnough
	CodeUnknownConnection
	CodeInvalidHandle
	CodeDriverAlreadyRegistered
	CodeSystemError
)

var codeText = map[Code]string{
	CodeUninstallDriver:         "no driver installed for scheme",
	CodeInvalidParam:            "invalid parameter",
	CodeAddressNotExist:         "address not exist",
	CodeBindFailed:              "bind failed",
	CodeConnectFailed:           "connect failed",
	CodeDisconnected:            "connection disconnected",
	CodeRecvInvalidMsg:          "received invalid message",
	CodeRecvBuffNotEnough:       "receive buffer not enough",
	CodeRecvEmpty:               "received empty message",
	CodeReactorInitFailed:       "reactor init failed",
	CodeReactorGetEventFailed:   "reactor get event failed",
	CodeReactorErrEvent:         "reactor reported an error event",
	CodeSendFailed:              "send failed",
	CodeRecvFailed:              "receive failed",
	CodeUnsupported:             "unsupported operation",
	CodeCacheFailed:             "staging cache failed",
	CodeSendBuffNotEnough:       "send buffer not enough",
	CodeUnknownConnection:       "unknown connection",
	CodeInvalidHandle:           "invalid handle",
	CodeDriverAlreadyRegistered: "driver already registered",
	CodeSystemError:             "system error",
}

func (c Code) String() string {
	if s, ok := codeText[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

var errUnsupportedPlatform = errors.New("xnet: reactor not implemented for this platform")

// Error wraps a taxonomy Code together with the underlying cause, if any.
type Error struct {
	Code Code
	Err  error
}

func newError(c Code, err error) *Error { return &Error{Code: c, Err: err} }

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NegativeCode returns the ABI-compatible negative error code for e, or
// 0 if err does not wrap an *Error.
func NegativeCode(err error) int64 {
	var xe *Error
	if !errors.As(err, &xe) {
		return 0
	}
	return -int64(xe.Code)
}
