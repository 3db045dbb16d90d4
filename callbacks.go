package xnet

import "time"

// MsgExternInfo rides alongside every delivered message. The framework
// only ever reads Self/Remote/ArrivedAt; Src is opaque, filled in by
// whatever caller-supplied dispatcher sits above the façade.
type MsgExternInfo struct {
	Self     Handle
	Remote   Handle
	ArrivedAt time.Time
	Src      any
}

// OnMessageFunc is invoked once per fully reassembled frame.
type OnMessageFunc func(payload []byte, info MsgExternInfo)

// OnPeerConnectedFunc is invoked after a listener accepts a new peer.
// local is the listener's handle, peer is the freshly allocated
// per-connection handle.
type OnPeerConnectedFunc func(local, peer Handle)

// OnPeerClosedFunc is invoked when a server-side (accept-produced)
// connection drops or errors; the connection is already removed from
// the driver's tables by the time this fires.
type OnPeerClosedFunc func(local, peer Handle)

// OnClosedFunc is invoked when a listener is torn down by error. A
// client-style (dial-initiated) connection that errors is queued for
// reconnect instead and does not fire it. It is never invoked for an
// explicit Close call.
type OnClosedFunc func(handle Handle)

// Callbacks is the four-callback protocol applications register at
// Init time. A nil field is treated as a no-op.
type Callbacks struct {
	OnMessage       OnMessageFunc
	OnPeerConnected OnPeerConnectedFunc
	OnPeerClosed    OnPeerClosedFunc
	OnClosed        OnClosedFunc
}

func (c Callbacks) fireMessage(payload []byte, info MsgExternInfo) {
	if c.OnMessage != nil {
		c.OnMessage(payload, info)
	}
}

func (c Callbacks) firePeerConnected(local, peer Handle) {
	if c.OnPeerConnected != nil {
		c.OnPeerConnected(local, peer)
	}
}

func (c Callbacks) firePeerClosed(local, peer Handle) {
	if c.OnPeerClosed != nil {
		c.OnPeerClosed(local, peer)
	}
}

func (c Callbacks) fireClosed(handle Handle) {
	if c.OnClosed != nil {
		c.OnClosed(handle)
	}
}
